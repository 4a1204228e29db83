// Package archive 把抽取成功的文章以 JSON 形式归档到 S3 或兼容的对象存储
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/LJTian/NewsHub/internal/extractor"
	"github.com/LJTian/NewsHub/internal/processor"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter 是 S3 客户端中归档用到的唯一方法，方便测试替换
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config 为空的字段回落到 AWS 默认配置链
type S3Config struct {
	Bucket       string
	Region       string
	Prefix       string
	UsePathStyle bool
}

type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Archiver 使用默认凭证链创建 S3 客户端
func NewS3Archiver(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3Archiver, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func NewWithClient(client ObjectPutter, bucket, prefix string, logger *zap.Logger) *S3Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// archivedArticle 是归档对象的 JSON 结构
type archivedArticle struct {
	ID          string                `json:"id"`
	URL         string                `json:"url"`
	Title       string                `json:"title"`
	Summary     string                `json:"summary,omitempty"`
	Source      string                `json:"source"`
	Image       string                `json:"image,omitempty"`
	Content     string                `json:"content"`
	CoverPhoto  *extractor.CoverPhoto `json:"coverPhoto,omitempty"`
	WordCount   int                   `json:"wordCount"`
	Byline      string                `json:"byline,omitempty"`
	Language    string                `json:"language,omitempty"`
	PublishedAt time.Time             `json:"publishedAt"`
	FetchedAt   time.Time             `json:"fetchedAt"`
}

// Key 返回文章的对象键：<prefix>/<yyyy>/<mm>/<dd>/<id>.json，日期取抓取时间
func (a *S3Archiver) Key(art *processor.Article) string {
	day := art.FetchedAt
	if day.IsZero() {
		day = time.Now()
	}
	return path.Join(a.prefix, day.UTC().Format("2006/01/02"), art.ID+".json")
}

func (a *S3Archiver) Archive(ctx context.Context, art *processor.Article) error {
	body, err := json.Marshal(archivedArticle{
		ID:          art.ID,
		URL:         art.URL,
		Title:       art.Title,
		Summary:     art.Summary,
		Source:      art.Source,
		Image:       art.Image,
		Content:     art.Content,
		CoverPhoto:  art.CoverPhoto,
		WordCount:   art.WordCount,
		Byline:      art.Byline,
		Language:    art.Language,
		PublishedAt: art.PublishedAt,
		FetchedAt:   art.FetchedAt,
	})
	if err != nil {
		return err
	}

	key := a.Key(art)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("archive %s to s3://%s/%s: %w", art.URL, a.bucket, key, err)
	}
	a.logger.Debug("article archived", zap.String("url", art.URL), zap.String("key", key))
	return nil
}
