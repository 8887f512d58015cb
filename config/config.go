// Package config 提供了统一的配置加载与管理能力.
// 生成摘要:
// 1) 进程级配置 (日志/指标/追踪/HTTP/缓存) 与模拟参数 Simulation 统一由 TOML 加载。
// 2) 支持 APP_ 前缀环境变量覆盖与文件热更新。
// 假设:
// 1) 热更新只影响后续运行，进行中的模拟持有自己的配置副本。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/wyfcoding/creditpool/logging"
)

// Config 全局顶级配置结构.
type Config struct {
	Version    string        `mapstructure:"version"    toml:"version"`
	Log        LogConfig     `mapstructure:"log"        toml:"log"`
	Metrics    MetricsConfig `mapstructure:"metrics"    toml:"metrics"`
	Tracing    TracingConfig `mapstructure:"tracing"    toml:"tracing"`
	Server     ServerConfig  `mapstructure:"server"     toml:"server"`
	Cache      CacheConfig   `mapstructure:"cache"      toml:"cache"`
	Simulation Simulation    `mapstructure:"simulation" toml:"simulation"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"        toml:"file"`
	Console    bool   `mapstructure:"console"     toml:"console"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 链路追踪配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// ServerConfig HTTP 服务配置.
// MaxConcurrentRuns 为 0 时不限制并发模拟数；RateLimit 为每个客户端每秒可提交的模拟数，0 时不限流.
type ServerConfig struct {
	Name              string        `mapstructure:"name"                toml:"name"`
	Addr              string        `mapstructure:"addr"                toml:"addr"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    toml:"shutdown_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"     toml:"request_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"      validate:"gte=0"`
	MaxPaths          int           `mapstructure:"max_paths"           toml:"max_paths"           validate:"gte=0"`
	MaxConcurrentRuns int           `mapstructure:"max_concurrent_runs" toml:"max_concurrent_runs" validate:"gte=0"`
	QueueTimeout      time.Duration `mapstructure:"queue_timeout"       toml:"queue_timeout"`
	RateLimit         float64       `mapstructure:"rate_limit"          toml:"rate_limit"          validate:"gte=0"`
	RateBurst         int           `mapstructure:"rate_burst"          toml:"rate_burst"          validate:"gte=0"`
}

// CacheConfig 运行结果缓存配置.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"     toml:"ttl"`
	MaxMB   int           `mapstructure:"max_mb"  toml:"max_mb" validate:"gte=0"`
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
}

// Default 返回带默认值的进程配置.
func Default() Config {
	return Config{
		Version: "dev",
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Path: "/metrics", Enabled: true},
		Tracing: TracingConfig{ServiceName: "creditpool", SamplerRatio: 1.0},
		Server: ServerConfig{
			Name:              "creditpool",
			Addr:              ":8080",
			ShutdownTimeout:   5 * time.Second,
			RequestTimeout:    2 * time.Minute,
			MaxBodyBytes:      64 << 10,
			MaxPaths:          50_000,
			MaxConcurrentRuns: 4,
			QueueTimeout:      30 * time.Second,
			RateLimit:         2,
			RateBurst:         5,
		},
		Cache:      CacheConfig{TTL: 10 * time.Minute, MaxMB: 256, Enabled: true},
		Simulation: DefaultSimulation(),
	}
}

var (
	vInstance = viper.New()
	mu        sync.Mutex
	onReload  []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调，只会收到通过校验的配置.
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Load 加载 TOML 配置，覆盖在 conf 已有的默认值之上.
func Load(path string, conf *Config) error {
	vInstance.SetConfigFile(path)
	vInstance.SetConfigType("toml")

	vInstance.SetEnvPrefix("APP")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	if err := vInstance.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}

	if err := vInstance.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := validate(conf); err != nil {
		return err
	}

	vInstance.WatchConfig()
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := *conf
		if err := vInstance.Unmarshal(&next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := validate(&next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		mu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()
		for _, hook := range hooks {
			hook(&next)
		}
	})

	return nil
}

var appValidator = validator.New()

func validate(conf *Config) error {
	if err := appValidator.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := conf.Simulation.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "token", "endpoint"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}
		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}
