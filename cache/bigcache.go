package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCache 使用 allegro/bigcache 实现 Cache. 所有条目共享创建时指定的 TTL.
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 创建 BigCache. maxMB 为 0 表示不限制容量.
func NewBigCache(ttl time.Duration, maxMB int) (*BigCache, error) {
	config := bigcache.DefaultConfig(ttl)
	config.HardMaxCacheSize = maxMB
	config.CleanWindow = 5 * time.Minute
	config.Verbose = false

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("init bigcache failed: %w", err)
	}
	return &BigCache{cache: cache}, nil
}

// Get 读取并反序列化到 value (必须为指针). 未命中返回 ErrCacheMiss.
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return ErrCacheMiss.WithDetail("key %s", key)
		}
		return err
	}
	return json.Unmarshal(data, value)
}

// Set 以 JSON 序列化存储. bigcache 不支持逐键过期，expiration 被忽略.
func (c *BigCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(key, data)
}

// Close 释放底层资源.
func (c *BigCache) Close() error {
	return c.cache.Close()
}
