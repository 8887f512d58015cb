// Package cache 提供运行结果的本地缓存. 相同配置 (含种子与路径数) 的运行结果是确定的，
// 因此可以按配置指纹直接复用.
package cache

import (
	"context"
	"time"

	"github.com/wyfcoding/creditpool/xerrors"
)

// ErrCacheMiss 键不存在或已过期.
var ErrCacheMiss = xerrors.New(xerrors.ErrNotFound, 404101, "cache miss", "", nil)

// Cache 定义了缓存接口.
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Close() error
}
