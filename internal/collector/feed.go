package collector

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const defaultFeedTimeout = 20 * time.Second

var imgSrcRe = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// FeedNormalizer 用 gofeed 解析 RSS/Atom/JSON Feed，并转换为统一的 FeedItem
type FeedNormalizer struct {
	parser  *gofeed.Parser
	timeout time.Duration
	logger  *zap.Logger
}

func NewFeedNormalizer(logger *zap.Logger, timeout time.Duration) *FeedNormalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	parser := gofeed.NewParser()
	parser.UserAgent = defaultUserAgent
	return &FeedNormalizer{parser: parser, timeout: timeout, logger: logger}
}

// Normalize 拉取并解析订阅源，条目保持文档顺序
func (n *FeedNormalizer) Normalize(ctx context.Context, feedURL string) ([]FeedItem, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	feed, err := n.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, feedURL, err)
	}
	return n.fromFeed(feedURL, feed), nil
}

// Parse 解析已经拿到的订阅源内容，供 CLI 和测试使用
func (n *FeedNormalizer) Parse(r io.Reader) ([]FeedItem, error) {
	feed, err := n.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	return n.fromFeed("", feed), nil
}

func (n *FeedNormalizer) fromFeed(feedURL string, feed *gofeed.Feed) []FeedItem {
	items := make([]FeedItem, 0, len(feed.Items))
	skipped := 0
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" && link == "" {
			skipped++
			continue
		}
		items = append(items, FeedItem{
			Title:       title,
			URL:         link,
			Summary:     itemSummary(it),
			PublishedAt: itemPublished(it),
			Image:       itemImage(it),
		})
	}
	if skipped > 0 {
		n.logger.Info("feed entries skipped", zap.String("feed", feedURL), zap.Int("skipped", skipped))
	}
	return items
}

// 摘要优先级：纯文本片段 > 渲染后的正文 > 原始描述
func itemSummary(it *gofeed.Item) string {
	raw := it.Content
	if raw == "" {
		raw = it.Description
	}
	if snippet := stripMarkup(raw); snippet != "" {
		return snippet
	}
	if c := strings.TrimSpace(it.Content); c != "" {
		return c
	}
	return strings.TrimSpace(it.Description)
}

func itemPublished(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return time.Time{}
}

// 图片优先级：media:content > 图片类型的 enclosure > 描述中的第一个 <img>
func itemImage(it *gofeed.Item) string {
	if media, ok := it.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	if m := imgSrcRe.FindStringSubmatch(it.Description); len(m) == 2 {
		return m[1]
	}
	return ""
}

func stripMarkup(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
