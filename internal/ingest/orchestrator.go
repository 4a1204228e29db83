// Package ingest 驱动 订阅源 → 页面抓取 → 正文抽取 → 渲染升级 → 入库 的完整流程，
// 单个条目的失败只记录在 Summary 中，不会中断整批。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/LJTian/NewsHub/internal/collector"
	"github.com/LJTian/NewsHub/internal/extractor"
	"github.com/LJTian/NewsHub/internal/processor"
	"go.uber.org/zap"
)

const defaultConcurrency = 4

// Escalator 渲染后重新抽取，返回结果和渲染得到的 HTML
type Escalator interface {
	EscalateHTML(ctx context.Context, pageURL string) (extractor.ExtractionResult, string)
}

// Upserter 是持久化协作者，以 URL 为幂等键
type Upserter interface {
	Upsert(ctx context.Context, a *processor.Article) error
}

// Archiver 可选的入库后归档
type Archiver interface {
	Archive(ctx context.Context, a *processor.Article) error
}

// Deps 编排器依赖的协作者
type Deps struct {
	Feeds     collector.FeedSource
	Pages     collector.PageFetcher
	Extractor *extractor.Extractor
	Escalator Escalator
	Store     Upserter
	Archiver  Archiver
	Logger    *zap.Logger
}

type Orchestrator struct {
	feeds       collector.FeedSource
	pages       collector.PageFetcher
	extractor   *extractor.Extractor
	escalator   Escalator
	processor   *processor.SimpleProcessor
	store       Upserter
	archiver    Archiver
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Orchestrator)

// WithConcurrency 设置同时处理的条目数
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func New(d Deps, opts ...Option) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ex := d.Extractor
	if ex == nil {
		ex = extractor.New(logger)
	}
	o := &Orchestrator{
		feeds:       d.Feeds,
		pages:       d.Pages,
		extractor:   ex,
		escalator:   d.Escalator,
		processor:   processor.NewSimpleProcessor(),
		store:       d.Store,
		archiver:    d.Archiver,
		concurrency: defaultConcurrency,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run 处理一个订阅源。只有订阅源本身不可用时返回 error；
// ctx 取消时停止派发新条目，返回已完成部分的 Summary 和 ctx.Err()。
func (o *Orchestrator) Run(ctx context.Context, feedURL string) (*Summary, error) {
	b := &summaryBuilder{s: Summary{FeedURL: feedURL, StartedAt: o.now()}}
	log := o.logger.With(zap.String("feed", feedURL))

	items, err := o.feeds.Normalize(ctx, feedURL)
	if err != nil {
		log.Error("feed failed", zap.Error(err))
		return b.finish(o.now()), fmt.Errorf("ingest %s: %w", feedURL, err)
	}
	items = o.processor.Dedupe(items)
	b.s.Items = len(items)
	source := hostOf(feedURL)

	log.Info("ingest started", zap.Int("items", len(items)), zap.Int("concurrency", o.concurrency))

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.concurrency)
	)
dispatch:
	for i, it := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(idx int, item collector.FeedItem) {
			defer wg.Done()
			defer func() { <-sem }()
			b.record(o.processItem(ctx, idx, item, source))
		}(i, it)
	}
	wg.Wait()

	sum := b.finish(o.now())
	log.Info("ingest finished",
		zap.Int("processed", sum.Processed),
		zap.Int("full", sum.FullContent),
		zap.Int("empty", sum.EmptyContent),
		zap.Int("escalated", sum.Escalated),
		zap.Int("failures", len(sum.Failures)),
		zap.Duration("elapsed", sum.Duration()),
	)
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

type itemOutcome struct {
	full      bool
	escalated bool
	persisted bool
	failures  []ItemFailure
}

func (o *Orchestrator) processItem(ctx context.Context, idx int, item collector.FeedItem, source string) (out itemOutcome) {
	fail := func(stage string, err string) {
		out.failures = append(out.failures, ItemFailure{Index: idx, URL: item.URL, Stage: stage, Err: err})
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("item panic recovered", zap.String("url", item.URL), zap.Any("panic", r))
			out.full = false
			fail(StageExtract, fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	if item.URL == "" {
		fail(StageIdentity, "feed entry has no url")
		return out
	}
	log := o.logger.With(zap.String("url", item.URL))

	ex := o.extract(ctx, item.URL)
	out.escalated = ex.escalated
	if ex.stage != "" {
		fail(ex.stage, ex.result.Error)
		log.Info("item extraction failed", zap.String("stage", ex.stage), zap.String("error", ex.result.Error))
	}
	out.full = ex.result.Success

	var meta extractor.Metadata
	if ex.result.Success {
		meta = o.extractor.Enrich(ex.html, item.URL)
	}
	article := o.processor.Merge(item, ex.result, meta, source)

	if err := o.store.Upsert(ctx, &article); err != nil {
		fail(StagePersist, err.Error())
		log.Warn("upsert failed", zap.Error(err))
		return out
	}
	out.persisted = true

	if o.archiver != nil && article.HasContent() {
		if err := o.archiver.Archive(ctx, &article); err != nil {
			fail(StageArchive, err.Error())
			log.Warn("archive failed", zap.Error(err))
		}
	}
	return out
}

type extraction struct {
	result    extractor.ExtractionResult
	html      string
	escalated bool
	// stage 非空表示失败所在阶段
	stage string
	err   error
}

// extract 静态抓取并抽取；校验不通过时升级渲染，且每个条目最多升级一次。
// 非 2xx 或网络错误不升级。
func (o *Orchestrator) extract(ctx context.Context, pageURL string) extraction {
	html, err := o.pages.FetchPage(ctx, pageURL)
	if err != nil {
		return extraction{result: extractor.ExtractionResult{Error: err.Error()}, stage: StageFetch, err: err}
	}

	res := o.extractor.Extract(html)
	if res.Success {
		return extraction{result: res, html: html}
	}
	if o.escalator == nil {
		return extraction{result: res, html: html, stage: StageExtract}
	}

	rendered, renderedHTML := o.escalator.EscalateHTML(ctx, pageURL)
	if rendered.Success {
		return extraction{result: rendered, html: renderedHTML, escalated: true}
	}
	stage := StageExtract
	if !rendered.Rendered {
		stage = StageRender
	}
	return extraction{result: rendered, escalated: true, stage: stage}
}

// Extraction 是单个 URL 的抽取结果，供 API 和 CLI 使用
type Extraction struct {
	URL       string                     `json:"url"`
	Result    extractor.ExtractionResult `json:"result"`
	Metadata  extractor.Metadata         `json:"metadata"`
	Escalated bool                       `json:"escalated"`
}

// ExtractURL 对单个页面执行抓取、抽取与渲染升级，不入库。
// 只有页面抓取失败时返回 error。
func (o *Orchestrator) ExtractURL(ctx context.Context, pageURL string) (*Extraction, error) {
	if pageURL == "" {
		return nil, errors.New("url is required")
	}
	ex := o.extract(ctx, pageURL)
	if ex.stage == StageFetch {
		return nil, ex.err
	}
	out := &Extraction{URL: pageURL, Result: ex.result, Escalated: ex.escalated}
	if ex.result.Success {
		out.Metadata = o.extractor.Enrich(ex.html, pageURL)
	}
	return out, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
