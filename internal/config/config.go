package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	StoreBackend string // postgres / badger
	PostgresDSN  string
	BadgerPath   string
	RedisAddr    string

	CronSpec string
	FeedURLs []string

	RenderWSURL       string
	RenderTimeout     time.Duration
	RenderConcurrency int

	IngestConcurrency int
	FetchTimeout      time.Duration

	S3Bucket       string
	S3Region       string
	S3Prefix       string
	S3UsePathStyle bool
}

// Load 读取环境变量；工作目录存在 .env 时先加载它
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		AppPort:           getEnv("APP_PORT", "9000"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		StoreBackend:      getEnv("STORE_BACKEND", "postgres"),
		PostgresDSN:       getEnv("POSTGRES_DSN", "host=localhost user=newshub password=newshub dbname=newshub port=5432 sslmode=disable TimeZone=UTC"),
		BadgerPath:        getEnv("BADGER_PATH", "./badger-data"),
		// 为空表示不使用 Redis：没有列表缓存，也没有任务队列
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		CronSpec:          getEnv("CRON_SPEC", "*/30 * * * *"),
		FeedURLs:          splitList(getEnv("FEED_URLS", "")),
		RenderWSURL:       getEnv("RENDER_WS_URL", ""),
		RenderTimeout:     getEnvDuration("RENDER_TIMEOUT", 30*time.Second),
		RenderConcurrency: getEnvInt("RENDER_CONCURRENCY", 2),
		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Prefix:          getEnv("S3_PREFIX", "articles/"),
		S3UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
	}

	log.Printf("config loaded: env=%s port=%s store=%s redis=%t cron=%s feeds=%d render=%t",
		cfg.AppEnv, cfg.AppPort, cfg.StoreBackend, cfg.RedisAddr != "", cfg.CronSpec, len(cfg.FeedURLs), cfg.RenderWSURL != "")
	return cfg
}

// NewLogger 生产环境输出 JSON，其它环境使用开发格式；LOG_LEVEL 可覆盖级别
func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if c.AppEnv == "production" {
		zc = zap.NewProductionConfig()
	}
	if c.LogLevel != "" {
		lvl, err := zap.ParseAtomicLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

// getEnvDuration 支持 "30s" 这类写法，也接受纯数字（秒）
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("warn: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
