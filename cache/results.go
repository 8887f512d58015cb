package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wyfcoding/creditpool/config"
	"github.com/wyfcoding/creditpool/metrics"
)

// Fingerprint 返回配置的稳定指纹. 并发度不影响结果，不参与指纹.
func Fingerprint(cfg config.Simulation) (string, error) {
	cfg.MonteCarlo.Workers = 0
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "run:" + hex.EncodeToString(sum[:]), nil
}

// Results 按配置指纹缓存类型为 T 的运行产物.
type Results[T any] struct {
	store    Cache
	requests *prometheus.CounterVec
	logger   *slog.Logger
}

// NewResults 创建结果缓存. m 为 nil 时不采集命中率.
func NewResults[T any](store Cache, m *metrics.Metrics, logger *slog.Logger) *Results[T] {
	r := &Results[T]{store: store, logger: logger}
	if m != nil {
		r.requests = m.NewCounterVec(prometheus.CounterOpts{
			Name: "creditpool_cache_requests_total",
			Help: "Result cache lookups by outcome",
		}, []string{"result"})
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Get 查找缓存. 任何读取错误都按未命中处理.
func (r *Results[T]) Get(ctx context.Context, cfg config.Simulation) (T, bool) {
	var zero, v T
	key, err := Fingerprint(cfg)
	if err != nil {
		return zero, false
	}
	if err := r.store.Get(ctx, key, &v); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			r.logger.WarnContext(ctx, "result cache read failed", "key", key, "error", err)
		}
		r.count("miss")
		return zero, false
	}
	r.count("hit")
	return v, true
}

// Put 写入缓存，失败只记录日志.
func (r *Results[T]) Put(ctx context.Context, cfg config.Simulation, v T) {
	key, err := Fingerprint(cfg)
	if err == nil {
		err = r.store.Set(ctx, key, v, 0)
	}
	if err != nil {
		r.logger.WarnContext(ctx, "result cache write failed", "error", err)
	}
}

func (r *Results[T]) count(result string) {
	if r.requests != nil {
		r.requests.WithLabelValues(result).Inc()
	}
}
