package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/NewsHub/internal/api"
	"github.com/LJTian/NewsHub/internal/app"
	"github.com/LJTian/NewsHub/internal/config"
	"github.com/LJTian/NewsHub/internal/notify"
	"github.com/LJTian/NewsHub/internal/queue"
	"github.com/LJTian/NewsHub/internal/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init app failed", zap.Error(err))
	}
	defer a.Close()

	// 没有 Redis 时只提供查询和即时抽取接口
	var jobs api.JobQueue
	if a.Queue != nil {
		jobs = a.Queue

		worker := queue.NewWorker(a.Queue, a.Orchestrator, notify.NewLogNotifier(logger), logger)
		go worker.Start(ctx)

		s, err := scheduler.New(cfg.CronSpec, cfg.FeedURLs, a.Queue, logger)
		if err != nil {
			logger.Fatal("init scheduler failed", zap.Error(err))
		}
		s.Start()
		defer s.Stop()
	} else {
		logger.Warn("REDIS_ADDR not set, queue worker and scheduler disabled")
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	api.NewServer(a.Store, jobs, a.Orchestrator, logger).RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logger.Info("starting api server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exit", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
}
