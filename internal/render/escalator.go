package render

import (
	"context"
	"fmt"

	"github.com/LJTian/NewsHub/internal/extractor"
	"go.uber.org/zap"
)

const defaultRenderConcurrency = 2

// Escalator 渲染页面后重新执行完整抽取。
// 并发渲染会话数由独立的信号量限制，与条目并发数无关。
type Escalator struct {
	renderer  Renderer
	extractor *extractor.Extractor
	sem       chan struct{}
	logger    *zap.Logger
}

func NewEscalator(renderer Renderer, ex *extractor.Extractor, concurrency int, logger *zap.Logger) *Escalator {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	if ex == nil {
		ex = extractor.New(logger)
	}
	if concurrency <= 0 {
		concurrency = defaultRenderConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Escalator{
		renderer:  renderer,
		extractor: ex,
		sem:       make(chan struct{}, concurrency),
		logger:    logger,
	}
}

// Escalate 渲染并抽取；渲染失败时 Success=false，Error 保留原因
func (e *Escalator) Escalate(ctx context.Context, pageURL string) extractor.ExtractionResult {
	res, _ := e.EscalateHTML(ctx, pageURL)
	return res
}

// EscalateHTML 与 Escalate 相同，同时返回渲染得到的 HTML，便于调用方补充元信息
func (e *Escalator) EscalateHTML(ctx context.Context, pageURL string) (extractor.ExtractionResult, string) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return extractor.ExtractionResult{Error: fmt.Sprintf("render cancelled: %v", ctx.Err())}, ""
	}
	defer func() { <-e.sem }()

	html, err := e.renderer.Render(ctx, pageURL)
	if err != nil {
		e.logger.Info("escalation render failed", zap.String("url", pageURL), zap.Error(err))
		return extractor.ExtractionResult{Error: err.Error()}, ""
	}

	res := e.extractor.Extract(html)
	res.Rendered = true
	return res, html
}
