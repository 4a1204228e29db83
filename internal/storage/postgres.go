package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/LJTian/NewsHub/internal/processor"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 重新入库时需要覆盖的列，created_at 保持首次写入时间
var upsertColumns = []string{
	"title", "summary", "source", "image", "content", "cover_photo",
	"word_count", "character_count", "strategy", "rendered",
	"byline", "site_name", "language", "extract_error",
	"published_at", "published_date", "fetched_at", "updated_at",
}

// PostgresStore 基于 gorm + PostgreSQL，列表查询带 Redis 缓存
type PostgresStore struct {
	DB     *gorm.DB
	cache  *ListCache
	logger *zap.Logger
}

func NewPostgresStore(dsn string, cache *ListCache, logger *zap.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Article{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{DB: db, cache: cache, logger: logger}, nil
}

// Upsert 以 URL 作为幂等键，已存在时原地更新
func (s *PostgresStore) Upsert(ctx context.Context, a *processor.Article) error {
	rec := toRecord(a)
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", a.URL, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, url string) (*Article, error) {
	var rec Article
	err := s.DB.WithContext(ctx).Where("url = ?", url).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List 按来源、日期与排序返回文章列表
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]Article, error) {
	opts = opts.normalized()
	key := opts.cacheKey()
	if cached, ok := s.cache.get(ctx, key); ok {
		return cached, nil
	}

	db := s.DB.WithContext(ctx).Model(&Article{})
	if opts.Source != "" {
		db = db.Where("source = ?", opts.Source)
	}
	if opts.Date != "" {
		db = db.Where("published_date = ?", opts.Date)
	}
	if opts.OnlyContent {
		db = db.Where("content <> ''")
	}
	switch opts.Sort {
	case "words":
		db = db.Order("word_count DESC").Order("published_at DESC")
	default:
		db = db.Order("published_at DESC")
	}

	var list []Article
	if err := db.Limit(opts.Limit).Find(&list).Error; err != nil {
		return nil, err
	}
	s.cache.set(ctx, key, list)
	return list, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
