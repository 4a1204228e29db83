// Package queue 是“采集订阅源 X”任务的 Redis 队列与消费者
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/NewsHub/internal/ingest"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey     = "queue:ingest"
	jobKeyPrefix = "job:"

	// 完成的任务保留 1 小时，失败的保留 24 小时
	doneJobTTL   = time.Hour
	failedJobTTL = 24 * time.Hour
	// 排队中的任务没有过期时间
	pendingJobTTL = 0

	defaultPopTimeout = 5 * time.Second
)

var (
	ErrJobNotFound = errors.New("job not found")
	// ErrEmpty 在等待超时内队列没有任务
	ErrEmpty = errors.New("queue empty")
)

type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// Job 一个订阅源采集任务及其结果
type Job struct {
	ID        uuid.UUID       `json:"id"`
	FeedURL   string          `json:"feedUrl"`
	Status    JobStatus       `json:"status"`
	Summary   *ingest.Summary `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RedisQueue 用 LPUSH/BRPOP 实现先进先出队列，任务状态存为 JSON
type RedisQueue struct {
	rdb        *redis.Client
	popTimeout time.Duration
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, popTimeout: defaultPopTimeout}
}

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}

// Enqueue 创建 pending 任务并推入队列
func (q *RedisQueue) Enqueue(ctx context.Context, feedURL string) (*Job, error) {
	if feedURL == "" {
		return nil, errors.New("feed url is required")
	}
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New(),
		FeedURL:   feedURL,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, pendingJobTTL)
	pipe.LPush(ctx, queueKey, job.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", feedURL, err)
	}
	return job, nil
}

// Pop 阻塞等待下一个任务，超时返回 ErrEmpty
func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	result, err := q.rdb.BRPop(ctx, q.popTimeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(result[1])
	if err != nil {
		return nil, fmt.Errorf("bad job id %q: %w", result[1], err)
	}
	return q.GetStatus(ctx, id)
}

// SaveStatus 覆盖保存任务状态，按状态设置保留时间
func (q *RedisQueue) SaveStatus(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ttl := time.Duration(pendingJobTTL)
	switch job.Status {
	case StatusDone:
		ttl = doneJobTTL
	case StatusFailed:
		ttl = failedJobTTL
	}
	return q.rdb.Set(ctx, jobKey(job.ID), data, ttl).Err()
}

func (q *RedisQueue) GetStatus(ctx context.Context, id uuid.UUID) (*Job, error) {
	val, err := q.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(val, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Len 当前排队中的任务数
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, queueKey).Result()
}
