package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/NewsHub/internal/collector"
	"github.com/LJTian/NewsHub/internal/extractor"
)

const (
	maxSummaryRunes = 500
	// 极端页面的正文上限，避免单行记录过大
	maxContentRunes = 200000
)

// Article 是写入存储层前的统一结构：订阅源字段 + 抽取结果
type Article struct {
	ID          string
	URL         string
	Title       string
	Summary     string
	Source      string
	PublishedAt time.Time
	// Image 优先使用订阅源提供的图片，其次是封面图
	Image string

	Content        string
	CoverPhoto     *extractor.CoverPhoto
	WordCount      int
	CharacterCount int
	Strategy       string
	Rendered       bool

	Byline   string
	SiteName string
	Language string

	// ExtractError 非空表示正文抽取失败，该条目仍会入库
	ExtractError string
	FetchedAt    time.Time
}

// HasContent 表示正文抽取成功
func (a *Article) HasContent() bool {
	return a.ExtractError == "" && a.Content != ""
}

// SimpleProcessor 负责去重、ID 生成以及订阅条目与抽取结果的合并
type SimpleProcessor struct {
	now func() time.Time
}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{now: time.Now}
}

// Dedupe 按 URL 去重，保留先出现的条目；URL 为空的条目原样保留，由调用方处理
func (p *SimpleProcessor) Dedupe(items []collector.FeedItem) []collector.FeedItem {
	out := make([]collector.FeedItem, 0, len(items))
	seen := make(map[string]struct{})

	for _, it := range items {
		if it.URL == "" {
			out = append(out, it)
			continue
		}
		id := hashURL(it.URL)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Merge 把订阅条目、抽取结果和页面元信息合并成一条 Article
func (p *SimpleProcessor) Merge(item collector.FeedItem, res extractor.ExtractionResult, meta extractor.Metadata, source string) Article {
	a := Article{
		ID:          hashURL(item.URL),
		URL:         item.URL,
		Title:       toValidUTF8(strings.TrimSpace(item.Title)),
		Summary:     toValidUTF8(strings.TrimSpace(item.Summary)),
		Source:      source,
		PublishedAt: item.PublishedAt,
		Image:       strings.TrimSpace(item.Image),
		Strategy:    res.Strategy,
		Rendered:    res.Rendered,
		Byline:      toValidUTF8(meta.Byline),
		SiteName:    toValidUTF8(meta.SiteName),
		Language:    meta.Language,
		FetchedAt:   p.now(),
	}

	if !res.Success || res.Data == nil {
		a.ExtractError = res.Error
		if a.ExtractError == "" {
			a.ExtractError = extractor.ErrNoContent.Error()
		}
		if a.Summary == "" {
			a.Summary = truncateRunes(toValidUTF8(meta.Excerpt), maxSummaryRunes)
		}
		return a
	}

	data := res.Data
	a.Content = truncateRunes(toValidUTF8(data.Content), maxContentRunes)
	a.WordCount = data.WordCount
	a.CharacterCount = data.CharacterCount
	if a.Content != data.Content {
		// 截断或清洗过的正文重新计数，保证计数与入库内容一致
		a.WordCount = extractor.CountWords(a.Content)
		a.CharacterCount = utf8.RuneCountInString(a.Content)
	}
	a.CoverPhoto = data.CoverPhoto
	if a.Title == "" {
		a.Title = toValidUTF8(data.Title)
	}
	if a.Image == "" && data.CoverPhoto != nil {
		a.Image = data.CoverPhoto.URL
	}
	if a.Summary == "" {
		a.Summary = toValidUTF8(meta.Excerpt)
	}
	if a.Summary == "" {
		a.Summary = truncateRunes(firstParagraph(a.Content), maxSummaryRunes)
	}
	return a
}

// ArticleID 返回 URL 对应的文章 ID
func ArticleID(url string) string {
	return hashURL(url)
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// truncateRunes 按字符截断，超出时追加省略号
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}

// 页面编码声明错误时可能混入非法字节，Postgres 会拒绝写入
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

func firstParagraph(content string) string {
	if i := strings.Index(content, "\n\n"); i >= 0 {
		return content[:i]
	}
	return content
}
