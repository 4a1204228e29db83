package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要真实数据库：NEWSHUB_TEST_POSTGRES_DSN=postgres://... go test ./internal/storage
func TestPostgresStore_Upsert(t *testing.T) {
	dsn := os.Getenv("NEWSHUB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NEWSHUB_TEST_POSTGRES_DSN not set")
	}

	s, err := NewPostgresStore(dsn, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	url := "https://news.example.com/pg-" + time.Now().Format("150405.000000")
	defer s.DB.Where("url = ?", url).Delete(&Article{})

	require.NoError(t, s.Upsert(ctx, article(url, "First", time.Now(), 10)))
	require.NoError(t, s.Upsert(ctx, article(url, "Second", time.Now(), 20)))

	got, err := s.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, 20, got.WordCount)

	var count int64
	require.NoError(t, s.DB.Model(&Article{}).Where("url = ?", url).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = s.Get(ctx, url+"-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
