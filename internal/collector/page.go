package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	defaultPageTimeout = 10 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// CollyFetcher 用 colly 抓取文章页面的静态 HTML
type CollyFetcher struct {
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

func NewCollyFetcher(logger *zap.Logger, timeout time.Duration) *CollyFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	return &CollyFetcher{timeout: timeout, userAgent: defaultUserAgent, logger: logger}
}

// FetchPage 返回页面 HTML；非 2xx 响应返回 ErrBadStatus
func (f *CollyFetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	// colly 不接收 context，只能在发起请求前检查
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// 每次抓取使用独立的 collector，避免 visited 记录和回调在并发间共享
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var (
		body   string
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(pageURL); err != nil {
		if status >= 300 {
			return "", fmt.Errorf("%w: %d %s", ErrBadStatus, status, pageURL)
		}
		return "", fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: %d %s", ErrBadStatus, status, pageURL)
	}

	f.logger.Debug("page fetched", zap.String("url", pageURL), zap.Int("bytes", len(body)))
	return body, nil
}
