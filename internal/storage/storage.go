package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/NewsHub/internal/extractor"
	"github.com/LJTian/NewsHub/internal/processor"
	"gorm.io/datatypes"
)

// ErrNotFound 指定 URL 的文章不存在
var ErrNotFound = errors.New("article not found")

// Store 是文章持久化的统一接口，以 URL 为幂等键
type Store interface {
	Upsert(ctx context.Context, a *processor.Article) error
	Get(ctx context.Context, url string) (*Article, error)
	List(ctx context.Context, opts ListOptions) ([]Article, error)
	Close() error
}

// Article 是入库的文章记录
type Article struct {
	ID            string            `gorm:"primaryKey;size:40" json:"id"`
	URL           string            `gorm:"size:2048;uniqueIndex" json:"url"`
	Title         string            `gorm:"size:512" json:"title"`
	Summary       string            `gorm:"type:text" json:"summary"`
	Source        string            `gorm:"size:255;index" json:"source"`
	Image         string            `gorm:"size:2048" json:"image,omitempty"`
	Content       string            `gorm:"type:text" json:"content,omitempty"`
	CoverPhoto    datatypes.JSONMap `gorm:"type:jsonb" json:"coverPhoto,omitempty"`
	WordCount     int               `json:"wordCount"`
	CharCount     int               `gorm:"column:character_count" json:"characterCount"`
	Strategy      string            `gorm:"size:32" json:"strategy,omitempty"`
	Rendered      bool              `json:"rendered"`
	Byline        string            `gorm:"size:255" json:"byline,omitempty"`
	SiteName      string            `gorm:"size:255" json:"siteName,omitempty"`
	Language      string            `gorm:"size:32" json:"language,omitempty"`
	ExtractError  string            `gorm:"type:text" json:"extractError,omitempty"`
	PublishedAt   time.Time         `gorm:"index" json:"publishedAt"`
	PublishedDate string            `gorm:"size:10;index" json:"publishedDate"` // 日期 YYYY-MM-DD，用于按日期展示
	FetchedAt     time.Time         `json:"fetchedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListOptions 列表查询条件
// Sort: latest(默认) / words
// Date: 可选，格式 2006-01-02
type ListOptions struct {
	Source      string
	Date        string
	Sort        string
	Limit       int
	OnlyContent bool
}

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 || o.Limit > 1000 {
		o.Limit = 20
	}
	if o.Sort == "" {
		o.Sort = "latest"
	}
	return o
}

func (o ListOptions) cacheKey() string {
	return fmt.Sprintf("articles:list:%s:%s:%s:%d:%t", o.Source, o.Sort, o.Date, o.Limit, o.OnlyContent)
}

// 东八区，用于日期展示与筛选
var locEast8 *time.Location

func init() {
	locEast8, _ = time.LoadLocation("Asia/Shanghai")
	if locEast8 == nil {
		locEast8 = time.FixedZone("CST", 8*3600)
	}
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

func publishedDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(locEast8).Format("2006-01-02")
}

func toRecord(a *processor.Article) *Article {
	return &Article{
		ID:            a.ID,
		URL:           a.URL,
		Title:         truncateRunesDB(a.Title, 512),
		Summary:       a.Summary,
		Source:        truncateRunesDB(a.Source, 255),
		Image:         a.Image,
		Content:       a.Content,
		CoverPhoto:    coverToJSON(a.CoverPhoto),
		WordCount:     a.WordCount,
		CharCount:     a.CharacterCount,
		Strategy:      a.Strategy,
		Rendered:      a.Rendered,
		Byline:        truncateRunesDB(a.Byline, 255),
		SiteName:      truncateRunesDB(a.SiteName, 255),
		Language:      truncateRunesDB(a.Language, 32),
		ExtractError:  a.ExtractError,
		PublishedAt:   a.PublishedAt,
		PublishedDate: publishedDate(a.PublishedAt),
		FetchedAt:     a.FetchedAt,
	}
}

func coverToJSON(c *extractor.CoverPhoto) datatypes.JSONMap {
	if c == nil {
		return nil
	}
	m := datatypes.JSONMap{
		"url":    c.URL,
		"source": string(c.Source),
	}
	if c.Alt != "" {
		m["alt"] = c.Alt
	}
	if c.Width > 0 {
		m["width"] = c.Width
	}
	if c.Height > 0 {
		m["height"] = c.Height
	}
	return m
}

// matches 供非 SQL 后端复用的过滤逻辑
func (o ListOptions) matches(a *Article) bool {
	if o.Source != "" && a.Source != o.Source {
		return false
	}
	if o.Date != "" && a.PublishedDate != o.Date {
		return false
	}
	if o.OnlyContent && a.Content == "" {
		return false
	}
	return true
}
