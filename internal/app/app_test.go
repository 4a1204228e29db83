package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LJTian/NewsHub/internal/config"
	"github.com/LJTian/NewsHub/internal/render"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWithBadgerAndRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := &config.Config{
		StoreBackend:      "badger",
		RedisAddr:         mr.Addr(),
		RenderConcurrency: 1,
		IngestConcurrency: 2,
	}
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Queue)
	assert.NotNil(t, a.Orchestrator)

	job, err := a.Queue.Enqueue(context.Background(), "https://news.example.com/rss")
	require.NoError(t, err)
	assert.Equal(t, "https://news.example.com/rss", job.FeedURL)
}

func TestNewWithoutRedis(t *testing.T) {
	a, err := New(context.Background(), &config.Config{StoreBackend: "badger"}, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Queue)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &config.Config{StoreBackend: "mongo"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewRenderer(t *testing.T) {
	_, nop := newRenderer(&config.Config{}, zap.NewNop()).(render.NopRenderer)
	assert.True(t, nop)

	_, chrome := newRenderer(&config.Config{RenderWSURL: "ws://localhost:3000"}, zap.NewNop()).(*render.ChromeRenderer)
	assert.True(t, chrome)
}

func TestNewExtractOnlyNeedsNoStore(t *testing.T) {
	sentence := "The city council approved the new transit budget after a long debate on Tuesday evening. "
	page := `<html><head><meta property="og:image" content="//cdn.example.com/a.jpg"></head><body><article><p>` +
		strings.Repeat(sentence, 4) + `</p></article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	// 默认后端是 postgres 且 DSN 不可达，单页抽取不应受影响
	cfg := &config.Config{StoreBackend: "postgres", PostgresDSN: "host=127.0.0.1 port=1 dbname=none"}
	out, err := NewExtractOnly(cfg, zap.NewNop()).ExtractURL(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	require.True(t, out.Result.Success, out.Result.Error)
	assert.False(t, out.Escalated)
	require.NotNil(t, out.Result.Data.CoverPhoto)
	assert.Equal(t, "https://cdn.example.com/a.jpg", out.Result.Data.CoverPhoto.URL)
}
