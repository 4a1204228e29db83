package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/LJTian/NewsHub/internal/processor"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const articleKeyPrefix = "article:"

// BadgerStore 嵌入式 KV 存储，适合单机部署和 CLI
type BadgerStore struct {
	db     *badger.DB
	cache  *ListCache
	logger *zap.Logger
}

// NewBadgerStore 打开 path 下的 Badger；path 为空时使用内存模式
func NewBadgerStore(path string, cache *ListCache, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return newBadgerStore(db, cache, logger), nil
}

func newBadgerStore(db *badger.DB, cache *ListCache, logger *zap.Logger) *BadgerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgerStore{db: db, cache: cache, logger: logger}
}

func articleKey(id string) []byte {
	return []byte(articleKeyPrefix + id)
}

// Upsert 以 URL 的哈希为键覆盖写入，保留首次写入时间
func (s *BadgerStore) Upsert(ctx context.Context, a *processor.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := toRecord(a)
	now := time.Now()
	return s.db.Update(func(txn *badger.Txn) error {
		key := articleKey(rec.ID)
		rec.CreatedAt = now
		if item, err := txn.Get(key); err == nil {
			var existing Article
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &existing) }); err == nil {
				rec.CreatedAt = existing.CreatedAt
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		rec.UpdatedAt = now

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Get(ctx context.Context, url string) (*Article, error) {
	var rec Article
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(articleKey(processor.ArticleID(url)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List 扫描全部文章后在内存中过滤排序
func (s *BadgerStore) List(ctx context.Context, opts ListOptions) ([]Article, error) {
	opts = opts.normalized()
	key := opts.cacheKey()
	if cached, ok := s.cache.get(ctx, key); ok {
		return cached, nil
	}

	var list []Article
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(articleKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Article
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				s.logger.Warn("skip corrupt article record", zap.ByteString("key", it.Item().Key()), zap.Error(err))
				continue
			}
			if opts.matches(&rec) {
				list = append(list, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(list, func(i, j int) bool {
		if opts.Sort == "words" && list[i].WordCount != list[j].WordCount {
			return list[i].WordCount > list[j].WordCount
		}
		return list[i].PublishedAt.After(list[j].PublishedAt)
	})
	if len(list) > opts.Limit {
		list = list[:opts.Limit]
	}
	s.cache.set(ctx, key, list)
	return list, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
