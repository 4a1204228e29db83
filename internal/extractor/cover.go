package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const minImageSize = 100

// 图片地址中出现这些片段时视为图标、广告或追踪像素
var excludedImageTokens = []string{
	"icon", "logo", "avatar", "profile", "ad", "banner",
	"widget", "button", "pixel", "tracker", "1x1",
}

var articleImageContainers = []string{
	"article",
	`[role="main"]`,
	".article-content",
	".post-content",
	".content",
}

var featuredImageSelectors = []string{
	".featured-image img",
	".hero-image img",
	".article-image img",
	".post-image img",
	".cover-image img",
	".thumbnail img",
	`[data-testid="featured-image"] img`,
	".article-header img",
	".story-image img",
}

type coverStep struct {
	source CoverSource
	find   func(doc *goquery.Document) *CoverPhoto
	// stripped 为 true 时在去噪后的文档上查找，避免选中侧栏、推荐位里的图片
	stripped bool
}

// 顺序固定：og > twitter > json-ld > 正文首图 > 特色图选择器
var coverCascade = []coverStep{
	{SourceOGImage, ogImage, false},
	{SourceTwitterImage, twitterImage, false},
	{SourceJSONLD, jsonLDImage, false},
	{SourceArticleImage, articleImage, true},
	{SourceFeatured, featuredImage, true},
}

// ExtractCoverPhoto 按固定优先级查找封面图，找不到返回 nil。
// meta 与 ld+json 只存在于原始文档，正文图片则从去噪后的 working 中找。
func ExtractCoverPhoto(original, working *goquery.Document) *CoverPhoto {
	for _, step := range coverCascade {
		doc := original
		if step.stripped {
			doc = working
		}
		if photo := runCoverStep(step, doc); photo != nil && photo.URL != "" {
			return photo
		}
	}
	return nil
}

// 单步出现异常（畸形 DOM 等）只当作这一步没有结果
func runCoverStep(step coverStep, doc *goquery.Document) (photo *CoverPhoto) {
	defer func() {
		if r := recover(); r != nil {
			photo = nil
		}
	}()
	return step.find(doc)
}

func ogImage(doc *goquery.Document) *CoverPhoto {
	content := metaContent(doc, `meta[property="og:image"]`)
	if content == "" {
		return nil
	}
	return &CoverPhoto{
		URL:    ResolveURL(content),
		Alt:    metaContent(doc, `meta[property="og:image:alt"]`),
		Width:  atoi(metaContent(doc, `meta[property="og:image:width"]`)),
		Height: atoi(metaContent(doc, `meta[property="og:image:height"]`)),
		Source: SourceOGImage,
	}
}

func twitterImage(doc *goquery.Document) *CoverPhoto {
	content := metaContent(doc, `meta[name="twitter:image"], meta[property="twitter:image"]`)
	if content == "" {
		return nil
	}
	return &CoverPhoto{
		URL:    ResolveURL(content),
		Alt:    metaContent(doc, `meta[name="twitter:image:alt"], meta[property="twitter:image:alt"]`),
		Source: SourceTwitterImage,
	}
}

func jsonLDImage(doc *goquery.Document) *CoverPhoto {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		data, err := decodeOrdered(json.NewDecoder(strings.NewReader(s.Text())))
		if err != nil {
			// 解析失败的块直接跳过
			return true
		}
		found = findImageInJSONLD(data)
		return found == ""
	})
	if found == "" {
		return nil
	}
	return &CoverPhoto{URL: ResolveURL(found), Source: SourceJSONLD}
}

func articleImage(doc *goquery.Document) *CoverPhoto {
	for _, sel := range articleImageContainers {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if img := firstValidImage(container.Find("img")); img != nil {
			return coverFromImg(img, SourceArticleImage)
		}
	}
	return nil
}

func featuredImage(doc *goquery.Document) *CoverPhoto {
	for _, sel := range featuredImageSelectors {
		if img := firstValidImage(doc.Find(sel)); img != nil {
			return coverFromImg(img, SourceFeatured)
		}
	}
	return nil
}

func firstValidImage(imgs *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	imgs.EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if IsValidImage(img) {
			found = img
			return false
		}
		return true
	})
	return found
}

// IsValidImage 过滤没有地址、尺寸过小或疑似图标/广告的图片
func IsValidImage(img *goquery.Selection) bool {
	if goquery.NodeName(img) != "img" {
		return false
	}
	src := imageSource(img)
	if src == "" {
		return false
	}
	if w, ok := dimension(img, "width"); ok && w < minImageSize {
		return false
	}
	if h, ok := dimension(img, "height"); ok && h < minImageSize {
		return false
	}
	lower := strings.ToLower(src)
	for _, token := range excludedImageTokens {
		if strings.Contains(lower, token) {
			return false
		}
	}
	return true
}

func coverFromImg(img *goquery.Selection, source CoverSource) *CoverPhoto {
	w, _ := dimension(img, "width")
	h, _ := dimension(img, "height")
	return &CoverPhoto{
		URL:    ResolveURL(imageSource(img)),
		Alt:    strings.TrimSpace(img.AttrOr("alt", "")),
		Width:  w,
		Height: h,
		Source: source,
	}
}

func imageSource(img *goquery.Selection) string {
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
		return src
	}
	return strings.TrimSpace(img.AttrOr("data-src", ""))
}

// dimension 读取声明的宽/高；属性缺失或无法解析时 ok=false
func dimension(img *goquery.Selection, attr string) (int, bool) {
	v, exists := img.Attr(attr)
	if !exists {
		return 0, false
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ResolveURL 只处理绝对地址和协议相对地址；其它相对地址原样返回，
// 由调用方结合页面地址自行解析。
func ResolveURL(raw string) string {
	u := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	default:
		return u
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
