package ingest

import (
	"sort"
	"sync"
	"time"
)

// 条目失败所处的阶段
const (
	StageIdentity = "identity"
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StageRender   = "render"
	StagePersist  = "persist"
	StageArchive  = "archive"
)

// ItemFailure 记录单个条目的失败原因，不会中断整批处理
type ItemFailure struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Stage string `json:"stage"`
	Err   string `json:"error"`
}

// Summary 单个订阅源一次运行的统计结果。
// FullContent + EmptyContent == Processed。
type Summary struct {
	FeedURL      string        `json:"feedUrl"`
	Items        int           `json:"items"`
	Processed    int           `json:"processed"`
	FullContent  int           `json:"fullContent"`
	EmptyContent int           `json:"emptyContent"`
	Escalated    int           `json:"escalated"`
	Persisted    int           `json:"persisted"`
	Failures     []ItemFailure `json:"failures,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt"`
}

// Duration 本次运行耗时
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// summaryBuilder 在并发的条目处理之间汇总结果
type summaryBuilder struct {
	mu sync.Mutex
	s  Summary
}

func (b *summaryBuilder) record(o itemOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.s.Processed++
	if o.full {
		b.s.FullContent++
	} else {
		b.s.EmptyContent++
	}
	if o.escalated {
		b.s.Escalated++
	}
	if o.persisted {
		b.s.Persisted++
	}
	b.s.Failures = append(b.s.Failures, o.failures...)
}

func (b *summaryBuilder) finish(now time.Time) *Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	sort.SliceStable(b.s.Failures, func(i, j int) bool {
		return b.s.Failures[i].Index < b.s.Failures[j].Index
	})
	b.s.FinishedAt = now
	out := b.s
	return &out
}
