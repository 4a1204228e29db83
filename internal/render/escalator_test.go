package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/NewsHub/internal/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderedArticle = `<html><head><meta property="og:image" content="https://img.example.com/r.jpg"></head><body><article><p>` +
	`The rendered page finally shows its story. Scripts filled in every paragraph after load. ` +
	`Readers now see the full report on the transit budget. The council voted late on Tuesday night.` +
	`</p></article></body></html>`

type fakeRenderer struct {
	html  string
	err   error
	delay time.Duration

	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.html, f.err
}

func TestEscalate_ExtractsRenderedHTML(t *testing.T) {
	r := &fakeRenderer{html: renderedArticle}
	e := NewEscalator(r, nil, 0, nil)

	res, html := e.EscalateHTML(context.Background(), "https://news.example.com/a")

	require.True(t, res.Success, res.Error)
	assert.True(t, res.Rendered)
	assert.Equal(t, "https://img.example.com/r.jpg", res.Data.CoverPhoto.URL)
	assert.True(t, strings.Contains(html, "<article>"))
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestEscalate_RenderFailurePreservesError(t *testing.T) {
	r := &fakeRenderer{err: errors.New("session closed")}
	res := NewEscalator(r, extractor.New(nil), 1, nil).Escalate(context.Background(), "https://news.example.com/a")

	assert.False(t, res.Success)
	assert.False(t, res.Rendered)
	assert.Contains(t, res.Error, "session closed")
}

func TestEscalate_RenderedShellStillFails(t *testing.T) {
	r := &fakeRenderer{html: `<html><body><div id="app"></div></body></html>`}
	res := NewEscalator(r, nil, 1, nil).Escalate(context.Background(), "https://news.example.com/a")

	assert.False(t, res.Success)
	assert.True(t, res.Rendered)
	assert.Equal(t, extractor.ErrNoContent.Error(), res.Error)
}

func TestEscalate_ConcurrencyCap(t *testing.T) {
	r := &fakeRenderer{html: renderedArticle, delay: 20 * time.Millisecond}
	e := NewEscalator(r, nil, 2, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Escalate(context.Background(), "https://news.example.com/a")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, r.calls.Load())
	assert.LessOrEqual(t, r.maxSeen.Load(), int32(2))
}

func TestEscalate_CancelledWhileWaitingForSlot(t *testing.T) {
	r := &fakeRenderer{html: renderedArticle, delay: 200 * time.Millisecond}
	e := NewEscalator(r, nil, 1, nil)

	go e.Escalate(context.Background(), "https://news.example.com/busy")
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := e.Escalate(ctx, "https://news.example.com/queued")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cancelled")
}

func TestNopRenderer(t *testing.T) {
	_, err := NopRenderer{}.Render(context.Background(), "https://news.example.com/a")
	assert.ErrorIs(t, err, ErrRenderUnavailable)

	_, err = NewChromeRenderer("", 0, nil).Render(context.Background(), "https://news.example.com/a")
	assert.ErrorIs(t, err, ErrRenderUnavailable)
}
