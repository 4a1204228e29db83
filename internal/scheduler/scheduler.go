package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/LJTian/NewsHub/internal/queue"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Submitter 接收“采集订阅源 X”任务，RedisQueue 即为实现
type Submitter interface {
	Enqueue(ctx context.Context, feedURL string) (*queue.Job, error)
}

// Scheduler 只负责按 cron 周期提交任务，真正的采集由队列消费者完成
type Scheduler struct {
	cron      *cron.Cron
	feeds     []string
	submitter Submitter
	logger    *zap.Logger

	// 延迟执行首轮提交，避免与服务启动争抢资源
	startupDelay time.Duration
	mu           sync.Mutex
	startTimer   *time.Timer
}

func New(spec string, feeds []string, submitter Submitter, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New()

	s := &Scheduler{
		cron:         c,
		feeds:        feeds,
		submitter:    submitter,
		logger:       logger,
		startupDelay: 15 * time.Second,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.mu.Lock()
	s.startTimer = time.AfterFunc(s.startupDelay, s.runOnce)
	s.mu.Unlock()
}

// Stop 停止 cron，并等待正在执行的提交结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.startTimer != nil {
		s.startTimer.Stop()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发采集
func (s *Scheduler) RunOnce() int {
	return s.submitAll()
}

func (s *Scheduler) runOnce() {
	s.submitAll()
}

func (s *Scheduler) submitAll() int {
	if len(s.feeds) == 0 {
		s.logger.Info("no feeds configured, nothing to submit")
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	submitted := 0
	for _, feed := range s.feeds {
		job, err := s.submitter.Enqueue(ctx, feed)
		if err != nil {
			s.logger.Error("submit ingest job failed", zap.String("feed", feed), zap.Error(err))
			continue
		}
		submitted++
		s.logger.Info("ingest job submitted", zap.String("feed", feed), zap.String("job_id", job.ID.String()))
	}
	return submitted
}
