package extractor

import "errors"

// ErrNoContent 表示所有正文策略都未产出合格内容
var ErrNoContent = errors.New("could not extract main content from the page")

// CoverSource 记录封面图来自哪一步级联，仅用于排查和测试断言
type CoverSource string

const (
	SourceOGImage      CoverSource = "og-image"
	SourceTwitterImage CoverSource = "twitter-image"
	SourceJSONLD       CoverSource = "json-ld"
	SourceArticleImage CoverSource = "article-image"
	SourceFeatured     CoverSource = "featured-selector"
)

// CoverPhoto 文章封面图；Width/Height 为 0 表示页面未声明
type CoverPhoto struct {
	URL    string      `json:"url"`
	Alt    string      `json:"alt,omitempty"`
	Width  int         `json:"width,omitempty"`
	Height int         `json:"height,omitempty"`
	Source CoverSource `json:"source"`
}

// ExtractedContent 是单个页面的抽取结果，计数基于清洗后的正文
type ExtractedContent struct {
	Content        string      `json:"content"`
	Title          string      `json:"title,omitempty"`
	CoverPhoto     *CoverPhoto `json:"coverPhoto,omitempty"`
	WordCount      int         `json:"wordCount"`
	CharacterCount int         `json:"characterCount"`
}

// ExtractionResult 是抽取器对外的返回结构。
// 普通的“抽不到正文”只体现为 Success=false，不返回 error。
type ExtractionResult struct {
	Success bool              `json:"success"`
	Data    *ExtractedContent `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	// Strategy 为命中的正文策略名
	Strategy string `json:"strategy,omitempty"`
	// Rendered 表示结果来自无头浏览器渲染后的 DOM
	Rendered bool `json:"rendered,omitempty"`
}

// Metadata 是 readability 补充的页面元信息，抽取失败时各字段为空
type Metadata struct {
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"siteName,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Language string `json:"language,omitempty"`
}

func failed(msg string) ExtractionResult {
	return ExtractionResult{Success: false, Error: msg}
}
