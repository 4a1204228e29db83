package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/LJTian/NewsHub/internal/ingest"
	"github.com/LJTian/NewsHub/internal/queue"
	"github.com/LJTian/NewsHub/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArticleReader 是 API 用到的存储读接口
type ArticleReader interface {
	Get(ctx context.Context, url string) (*storage.Article, error)
	List(ctx context.Context, opts storage.ListOptions) ([]storage.Article, error)
}

// JobQueue 提交采集任务并查询状态
type JobQueue interface {
	Enqueue(ctx context.Context, feedURL string) (*queue.Job, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*queue.Job, error)
}

// URLExtractor 对单个页面即时抽取
type URLExtractor interface {
	ExtractURL(ctx context.Context, pageURL string) (*ingest.Extraction, error)
}

type Server struct {
	store     ArticleReader
	jobs      JobQueue
	extractor URLExtractor
	logger    *zap.Logger
}

// NewServer jobs 为 nil 时采集相关接口返回 503
func NewServer(store ArticleReader, jobs JobQueue, ex URLExtractor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: store, jobs: jobs, extractor: ex, logger: logger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
		v1.GET("/articles/lookup", s.lookupArticle)
		v1.POST("/ingest", s.enqueueIngest)
		v1.GET("/jobs/:id", s.jobStatus)
		v1.POST("/extract", s.extract)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func (s *Server) listArticles(c *gin.Context) {
	sort := c.DefaultQuery("sort", "latest")
	if sort != "latest" && sort != "words" {
		sort = "latest"
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	items, err := s.store.List(c.Request.Context(), storage.ListOptions{
		Source:      c.Query("source"),
		Date:        c.Query("date"),
		Sort:        sort,
		Limit:       limit,
		OnlyContent: c.Query("withContent") == "true",
	})
	if err != nil {
		s.logger.Error("list articles failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, http.StatusOK, items)
}

func (s *Server) lookupArticle(c *gin.Context) {
	u := c.Query("url")
	if u == "" {
		fail(c, http.StatusBadRequest, "bad_request", "url is required")
		return
	}
	a, err := s.store.Get(c.Request.Context(), u)
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "not_found", "article not found")
		return
	}
	if err != nil {
		s.logger.Error("get article failed", zap.String("url", u), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, http.StatusOK, a)
}

type ingestRequest struct {
	FeedURL string `json:"feedUrl"`
}

func (s *Server) enqueueIngest(c *gin.Context) {
	if s.jobs == nil {
		fail(c, http.StatusServiceUnavailable, "unavailable", "job queue not configured")
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil || !isHTTPURL(req.FeedURL) {
		fail(c, http.StatusBadRequest, "bad_request", "feedUrl must be an http(s) url")
		return
	}
	job, err := s.jobs.Enqueue(c.Request.Context(), req.FeedURL)
	if err != nil {
		s.logger.Error("enqueue failed", zap.String("feed", req.FeedURL), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, http.StatusAccepted, job)
}

func (s *Server) jobStatus(c *gin.Context) {
	if s.jobs == nil {
		fail(c, http.StatusServiceUnavailable, "unavailable", "job queue not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}
	job, err := s.jobs.GetStatus(c.Request.Context(), id)
	if errors.Is(err, queue.ErrJobNotFound) {
		fail(c, http.StatusNotFound, "not_found", "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job failed", zap.String("job_id", id.String()), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, http.StatusOK, job)
}

type extractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

// extract 即时抽取单个页面，不入库；正文按 rune 截断
func (s *Server) extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil || !isHTTPURL(req.URL) {
		fail(c, http.StatusBadRequest, "bad_request", "url must be an http(s) url")
		return
	}
	if req.MaxChars <= 0 || req.MaxChars > 20000 {
		req.MaxChars = 5000
	}

	out, err := s.extractor.ExtractURL(c.Request.Context(), req.URL)
	if err != nil {
		s.logger.Info("extract fetch failed", zap.String("url", req.URL), zap.Error(err))
		fail(c, http.StatusBadGateway, "fetch_failed", err.Error())
		return
	}
	if out.Result.Data != nil {
		data := *out.Result.Data
		rs := []rune(data.Content)
		if len(rs) > req.MaxChars {
			data.Content = string(rs[:req.MaxChars]) + "…"
		}
		out.Result.Data = &data
	}
	ok(c, http.StatusOK, out)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
