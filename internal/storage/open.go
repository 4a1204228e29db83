package storage

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options 选择存储后端
type Options struct {
	Backend     string // postgres / badger
	PostgresDSN string
	BadgerPath  string
	// Redis 为 nil 时不启用列表缓存
	Redis *redis.Client
}

// Open 按配置创建 Store
func Open(opts Options, logger *zap.Logger) (Store, error) {
	var cache *ListCache
	if opts.Redis != nil {
		cache = NewListCache(opts.Redis, logger)
	}

	switch opts.Backend {
	case "", "postgres":
		return NewPostgresStore(opts.PostgresDSN, cache, logger)
	case "badger":
		return NewBadgerStore(opts.BadgerPath, cache, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
