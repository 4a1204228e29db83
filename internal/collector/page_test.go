package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollyFetcherFetchPage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer srv.Close()

	f := NewCollyFetcher(nil, 0)
	// 同一个 URL 连续抓取两次都应成功
	for i := 0; i < 2; i++ {
		body, err := f.FetchPage(context.Background(), srv.URL+"/story")
		if err != nil {
			t.Fatalf("FetchPage error: %v", err)
		}
		if !strings.Contains(body, "<p>hello</p>") {
			t.Fatalf("unexpected body: %q", body)
		}
	}
	if !strings.Contains(gotUA, "Chrome/120") {
		t.Fatalf("expected browser-like user agent, got %q", gotUA)
	}
}

func TestCollyFetcherBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewCollyFetcher(nil, 0).FetchPage(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
}

func TestCollyFetcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollyFetcher(nil, 0).FetchPage(ctx, "http://127.0.0.1:1/never")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
