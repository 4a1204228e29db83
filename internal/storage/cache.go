package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 列表缓存 5 分钟，完全依赖 TTL 自然过期
const listCacheTTL = 5 * time.Minute

// ListCache 用 Redis 缓存列表查询结果；rdb 为 nil 时所有操作都是空操作
type ListCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewListCache(rdb *redis.Client, logger *zap.Logger) *ListCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListCache{rdb: rdb, ttl: listCacheTTL, logger: logger}
}

// NewRedisClient 连接 Redis，ping 失败只告警
func NewRedisClient(addr string, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil && logger != nil {
		logger.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
	}
	return rdb
}

func (c *ListCache) get(ctx context.Context, key string) ([]Article, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("list cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var cached []Article
	if err := json.Unmarshal(bs, &cached); err != nil {
		return nil, false
	}
	return cached, true
}

func (c *ListCache) set(ctx context.Context, key string, list []Article) {
	if c == nil || c.rdb == nil || len(list) == 0 {
		return
	}
	bs, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, bs, c.ttl).Err(); err != nil {
		c.logger.Debug("list cache write failed", zap.String("key", key), zap.Error(err))
	}
}
