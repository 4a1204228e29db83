package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/NewsHub/internal/ingest"
	"github.com/LJTian/NewsHub/internal/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := NewRedisQueue(rdb)
	q.popTimeout = time.Second
	return q, mr
}

func TestRedisQueue_EnqueuePopFIFO(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "https://a.example.com/rss")
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "https://b.example.com/rss")
	require.NoError(t, err)

	list, _ := mr.List(queueKey)
	assert.Len(t, list, 2)
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, StatusPending, got.Status)

	got, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRedisQueue_StatusRoundTrip(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "https://a.example.com/rss")
	require.NoError(t, err)

	job.Status = StatusDone
	job.Summary = &ingest.Summary{FeedURL: job.FeedURL, Processed: 3, FullContent: 2, EmptyContent: 1}
	require.NoError(t, q.SaveStatus(ctx, job))

	got, err := q.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 2, got.Summary.FullContent)
	assert.Equal(t, doneJobTTL, mr.TTL(jobKey(job.ID)))

	_, err = q.GetStatus(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRedisQueue_EnqueueRequiresURL(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.Enqueue(context.Background(), "")
	assert.Error(t, err)
}

type fakeRunner struct {
	err error
}

func (f *fakeRunner) Run(ctx context.Context, feedURL string) (*ingest.Summary, error) {
	sum := &ingest.Summary{FeedURL: feedURL, Processed: 2, FullContent: 1, EmptyContent: 1}
	return sum, f.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []notify.Status
}

func (r *recordingNotifier) Notify(ctx context.Context, st notify.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

func runWorker(t *testing.T, q *RedisQueue, runner Runner, n notify.Notifier) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := NewWorker(q, runner, n, zap.NewNop())
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
}

func TestWorker_ProcessesJobAndNotifies(t *testing.T) {
	q, _ := newTestQueue(t)
	n := &recordingNotifier{}
	stop := runWorker(t, q, &fakeRunner{}, n)
	defer stop()

	job, err := q.Enqueue(context.Background(), "https://a.example.com/rss")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := q.GetStatus(context.Background(), job.ID)
		return err == nil && got.Status == StatusDone
	}, 3*time.Second, 20*time.Millisecond)

	got, err := q.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Summary.Processed)

	require.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 10*time.Millisecond)
	n.mu.Lock()
	assert.True(t, n.statuses[0].OK)
	n.mu.Unlock()
}

func TestWorker_FailedRunMarksJobFailed(t *testing.T) {
	q, mr := newTestQueue(t)
	n := &recordingNotifier{}
	stop := runWorker(t, q, &fakeRunner{err: errors.New("feed unavailable")}, n)
	defer stop()

	job, err := q.Enqueue(context.Background(), "https://a.example.com/rss")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := q.GetStatus(context.Background(), job.ID)
		return err == nil && got.Status == StatusFailed
	}, 3*time.Second, 20*time.Millisecond)

	got, _ := q.GetStatus(context.Background(), job.ID)
	assert.Equal(t, "feed unavailable", got.Error)
	assert.Equal(t, failedJobTTL, mr.TTL(jobKey(job.ID)))

	require.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 10*time.Millisecond)
	n.mu.Lock()
	assert.False(t, n.statuses[0].OK)
	n.mu.Unlock()
}
