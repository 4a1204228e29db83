// Package app 把配置装配成可运行的组件，cmd/api 与 cmd/ingest 共用
package app

import (
	"context"
	"fmt"

	"github.com/LJTian/NewsHub/internal/archive"
	"github.com/LJTian/NewsHub/internal/collector"
	"github.com/LJTian/NewsHub/internal/config"
	"github.com/LJTian/NewsHub/internal/extractor"
	"github.com/LJTian/NewsHub/internal/ingest"
	"github.com/LJTian/NewsHub/internal/queue"
	"github.com/LJTian/NewsHub/internal/render"
	"github.com/LJTian/NewsHub/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Redis        *redis.Client
	Store        storage.Store
	Queue        *queue.RedisQueue
	Orchestrator *ingest.Orchestrator
}

// New 创建存储、队列与采集流水线；REDIS_ADDR 为空时不启用缓存和队列
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.RedisAddr != "" {
		a.Redis = storage.NewRedisClient(cfg.RedisAddr, logger)
		a.Queue = queue.NewRedisQueue(a.Redis)
	}

	store, err := storage.Open(storage.Options{
		Backend:     cfg.StoreBackend,
		PostgresDSN: cfg.PostgresDSN,
		BadgerPath:  cfg.BadgerPath,
		Redis:       a.Redis,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init store failed: %w", err)
	}
	a.Store = store

	deps := pipelineDeps(cfg, logger)
	deps.Store = store

	if cfg.S3Bucket != "" {
		arch, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Prefix:       cfg.S3Prefix,
			UsePathStyle: cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init archive failed: %w", err)
		}
		deps.Archiver = arch
	}

	a.Orchestrator = ingest.New(deps, ingest.WithConcurrency(cfg.IngestConcurrency))
	return a, nil
}

// NewExtractOnly 只装配抓取、抽取与渲染，不打开存储；用于单页抽取
func NewExtractOnly(cfg *config.Config, logger *zap.Logger) *ingest.Orchestrator {
	return ingest.New(pipelineDeps(cfg, logger), ingest.WithConcurrency(cfg.IngestConcurrency))
}

func pipelineDeps(cfg *config.Config, logger *zap.Logger) ingest.Deps {
	deps := ingest.Deps{
		Feeds:     collector.NewFeedNormalizer(logger, 0),
		Pages:     collector.NewCollyFetcher(logger, cfg.FetchTimeout),
		Extractor: extractor.New(logger),
		Logger:    logger,
	}
	deps.Escalator = render.NewEscalator(newRenderer(cfg, logger), deps.Extractor, cfg.RenderConcurrency, logger)
	return deps
}

func newRenderer(cfg *config.Config, logger *zap.Logger) render.Renderer {
	if cfg.RenderWSURL == "" {
		logger.Info("RENDER_WS_URL not set, render escalation disabled")
		return render.NopRenderer{}
	}
	return render.NewChromeRenderer(cfg.RenderWSURL, cfg.RenderTimeout, logger)
}

func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("close store failed", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
