package collector

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFeedUnavailable 订阅源无法获取或无法解析
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrBadStatus 页面返回非 2xx 状态码
	ErrBadStatus = errors.New("unexpected http status")
)

// FeedItem 订阅源中的一条目，URL 是唯一标识
type FeedItem struct {
	Title       string
	URL         string
	Summary     string
	PublishedAt time.Time
	// Image 为空表示订阅源没有提供图片
	Image string
}

// PageFetcher 抽象文章页面的静态抓取
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

// FeedSource 抽象订阅源的获取与归一化
type FeedSource interface {
	Normalize(ctx context.Context, feedURL string) ([]FeedItem, error)
}
