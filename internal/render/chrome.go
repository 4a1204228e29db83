package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultRenderTimeout = 30 * time.Second
	// 导航完成后最多再等这么久的网络空闲
	networkIdleWait = 5 * time.Second

	viewportWidth  = 1366
	viewportHeight = 768

	renderUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguage  = "en-US,en;q=0.9"
)

// ChromeRenderer 通过 DevTools WebSocket 连接远程浏览器（如 browserless），每次渲染使用独立会话
type ChromeRenderer struct {
	wsURL   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewChromeRenderer(wsURL string, timeout time.Duration, logger *zap.Logger) *ChromeRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &ChromeRenderer{wsURL: wsURL, timeout: timeout, logger: logger}
}

// Render 打开页面、等待网络基本空闲后返回 document 的 outerHTML。
// 所有退出路径都会关闭标签页并断开连接。
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	if r.wsURL == "" {
		return "", ErrRenderUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, r.wsURL, chromedp.NoModifyURL)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		switch e.Name {
		case "init":
			// 新文档开始加载，丢弃 about:blank 阶段的空闲信号
			select {
			case <-idle:
			default:
			}
		case "networkAlmostIdle", "networkIdle":
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	start := time.Now()
	var html string
	err := chromedp.Run(tabCtx,
		page.SetLifecycleEventsEnabled(true),
		network.Enable(),
		emulation.SetUserAgentOverride(renderUserAgent).WithAcceptLanguage(acceptLanguage),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           acceptLanguage,
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
		}),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(pageURL),
		waitNetworkIdle(idle, networkIdleWait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		r.logger.Warn("render failed", zap.String("url", pageURL), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", ErrRenderUnavailable, pageURL, err)
	}

	r.logger.Debug("page rendered", zap.String("url", pageURL), zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(html)))
	return html, nil
}

// waitNetworkIdle 等待空闲信号；超过 max 仍未空闲时直接继续，用当前 DOM
func waitNetworkIdle(idle <-chan struct{}, max time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		timer := time.NewTimer(max)
		defer timer.Stop()
		select {
		case <-idle:
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}
