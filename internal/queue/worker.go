package queue

import (
	"context"
	"errors"
	"time"

	"github.com/LJTian/NewsHub/internal/ingest"
	"github.com/LJTian/NewsHub/internal/notify"
	"go.uber.org/zap"
)

// Runner 执行一次订阅源采集
type Runner interface {
	Run(ctx context.Context, feedURL string) (*ingest.Summary, error)
}

type Worker struct {
	queue    *RedisQueue
	runner   Runner
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewWorker(q *RedisQueue, runner Runner, notifier notify.Notifier, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: q, runner: runner, notifier: notifier, logger: logger}
}

// Start 循环消费任务，直到 ctx 取消
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("ingest worker started, waiting for jobs")

	for {
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("ingest worker shutting down")
				return
			}
			if errors.Is(err, ErrEmpty) {
				continue
			}
			w.logger.Error("queue error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job *Job) {
	logger := w.logger.With(zap.String("job_id", job.ID.String()), zap.String("feed", job.FeedURL))
	logger.Info("job started")

	job.Status = StatusRunning
	if err := w.queue.SaveStatus(ctx, job); err != nil {
		logger.Warn("save running status failed", zap.Error(err))
	}

	sum, err := w.runner.Run(ctx, job.FeedURL)
	job.Summary = sum
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		logger.Error("job failed", zap.Error(err))
	} else {
		job.Status = StatusDone
		logger.Info("job done", zap.Int("processed", sum.Processed), zap.Int("full", sum.FullContent))
	}

	// 进程退出时 ctx 已取消，状态用独立的短超时写回
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.queue.SaveStatus(saveCtx, job); err != nil {
		logger.Error("save job status failed", zap.Error(err))
	}

	if w.notifier != nil {
		if err := w.notifier.Notify(saveCtx, notify.FromSummary(job.FeedURL, sum, err)); err != nil {
			logger.Warn("notify failed", zap.Error(err))
		}
	}
}
