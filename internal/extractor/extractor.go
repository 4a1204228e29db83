// Package extractor 从任意新闻页面 HTML 中抽取正文、标题与封面图，不依赖站点配置。
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// 抽取前删除的噪声元素：导航、页眉页脚、广告、分享、评论、脚本样式、侧栏等
var noiseSelectors = []string{
	"nav",
	"header",
	"footer",
	"aside",
	".advertisement",
	".ad",
	".ads",
	".social-share",
	".share-buttons",
	".related-articles",
	".recommended",
	".comments",
	".comment-section",
	".newsletter-signup",
	".subscription",
	"script",
	"style",
	"noscript",
	"iframe",
	".menu",
	".navigation",
	".nav",
	".sidebar",
	".widget",
}

var titleSelectors = []string{
	"h1",
	".article-title",
	".post-title",
	".entry-title",
	`[data-testid="headline"]`,
	".headline",
}

// Extractor 无状态，可在多个 goroutine 间共享
type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// Option 调整 Extractor 的行为，主要用于测试
type Option func(*Extractor)

// WithStrategies 替换正文级联
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

func New(logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		strategies: DefaultStrategies(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategies 返回当前使用的正文级联（副本）
func (e *Extractor) Strategies() []Strategy {
	out := make([]Strategy, len(e.strategies))
	copy(out, e.strategies)
	return out
}

// Extract 对一份原始 HTML 执行完整抽取流程。
// 对畸形标记永远不会 panic，失败时返回 Success=false。
func (e *Extractor) Extract(rawHTML string) (res ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extractor panic recovered", zap.Any("panic", r))
			res = failed(fmt.Sprintf("unexpected extraction fault: %v", r))
		}
	}()

	if strings.TrimSpace(rawHTML) == "" {
		return failed(ErrNoContent.Error())
	}

	original, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return failed(fmt.Sprintf("parse html: %v", err))
	}
	// 去噪在独立副本上进行，标题和封面的 meta 部分仍使用原始文档
	working, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return failed(fmt.Sprintf("parse html: %v", err))
	}
	RemoveNoise(working)

	for _, s := range e.strategies {
		candidate := e.runStrategy(s, working)
		if candidate == "" {
			continue
		}
		content := CleanText(candidate)
		if !IsValidContent(content) {
			e.logger.Debug("candidate rejected", zap.String("strategy", s.Name), zap.Int("chars", runeLen(content)))
			continue
		}

		return ExtractionResult{
			Success: true,
			Data: &ExtractedContent{
				Content:        content,
				Title:          ExtractTitle(original),
				CoverPhoto:     ExtractCoverPhoto(original, working),
				WordCount:      CountWords(content),
				CharacterCount: runeLen(content),
			},
			Strategy: s.Name,
		}
	}

	return failed(ErrNoContent.Error())
}

func (e *Extractor) runStrategy(s Strategy, doc *goquery.Document) (out string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("strategy panic recovered", zap.String("strategy", s.Name), zap.Any("panic", r))
			out = ""
		}
	}()
	return s.Extract(doc)
}

// RemoveNoise 原地删除噪声元素
func RemoveNoise(doc *goquery.Document) {
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
}

// ExtractTitle 优先取页面中的标题元素，兜底用 <title>
func ExtractTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		if t := collapse(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return collapse(doc.Find("title").First().Text())
}

// Enrich 借助 readability 补充作者、站点名、摘要和语言；任何失败都返回空值
func (e *Extractor) Enrich(rawHTML, pageURL string) (meta Metadata) {
	defer func() {
		if r := recover(); r != nil {
			meta = Metadata{}
		}
	}()

	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return Metadata{}
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		e.logger.Debug("readability metadata failed", zap.String("url", pageURL), zap.Error(err))
		return Metadata{}
	}
	return Metadata{
		Byline:   collapse(article.Byline),
		SiteName: collapse(article.SiteName),
		Excerpt:  collapse(article.Excerpt),
		Language: strings.TrimSpace(article.Language),
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
