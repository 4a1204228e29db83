// Package notify 把一次订阅源采集的结果渲染成可发送的状态消息
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/NewsHub/internal/ingest"
	"go.uber.org/zap"
)

// Status 是通知协作者需要的全部信息
type Status struct {
	FeedURL      string        `json:"feedUrl"`
	OK           bool          `json:"ok"`
	Processed    int           `json:"processed"`
	FullContent  int           `json:"fullContent"`
	EmptyContent int           `json:"emptyContent"`
	Escalated    int           `json:"escalated"`
	Failures     int           `json:"failures"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
}

// FromSummary 由运行结果构造状态；err 非空表示整批失败
func FromSummary(feedURL string, sum *ingest.Summary, err error) Status {
	st := Status{FeedURL: feedURL, OK: err == nil}
	if err != nil {
		st.Error = err.Error()
	}
	if sum != nil {
		st.Processed = sum.Processed
		st.FullContent = sum.FullContent
		st.EmptyContent = sum.EmptyContent
		st.Escalated = sum.Escalated
		st.Failures = len(sum.Failures)
		st.StartedAt = sum.StartedAt
		st.Duration = sum.Duration()
	}
	return st
}

func (s Status) Subject() string {
	if !s.OK {
		return fmt.Sprintf("[NewsHub] ingest failed: %s", s.FeedURL)
	}
	return fmt.Sprintf("[NewsHub] ingest done: %s (%d/%d with content)", s.FeedURL, s.FullContent, s.Processed)
}

func (s Status) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feed: %s\n", s.FeedURL)
	if !s.OK {
		fmt.Fprintf(&b, "Status: failed\nError: %s\n", s.Error)
	} else {
		b.WriteString("Status: ok\n")
	}
	fmt.Fprintf(&b, "Processed: %d\n", s.Processed)
	fmt.Fprintf(&b, "Full content: %d\n", s.FullContent)
	fmt.Fprintf(&b, "Empty content: %d\n", s.EmptyContent)
	fmt.Fprintf(&b, "Escalated to render: %d\n", s.Escalated)
	fmt.Fprintf(&b, "Item failures: %d\n", s.Failures)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started: %s (took %s)\n", s.StartedAt.Format(time.RFC3339), s.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// Notifier 发送状态消息，实现可以是邮件、IM 或日志
type Notifier interface {
	Notify(ctx context.Context, st Status) error
}

// LogNotifier 只把状态写到日志
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, st Status) error {
	fields := []zap.Field{
		zap.String("feed", st.FeedURL),
		zap.Int("processed", st.Processed),
		zap.Int("full", st.FullContent),
		zap.Int("empty", st.EmptyContent),
		zap.Int("failures", st.Failures),
	}
	if !st.OK {
		n.logger.Error(st.Subject(), append(fields, zap.String("error", st.Error))...)
		return nil
	}
	n.logger.Info(st.Subject(), fields...)
	return nil
}
