package extractor

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 策略名，同时写入 ExtractionResult.Strategy
const (
	StrategySelector         = "selector"
	StrategyTextDensity      = "text-density"
	StrategyParagraphDensity = "paragraph-density"
	StrategyFallback         = "fallback"
)

const (
	selectorMinChars  = 200
	paragraphMinChars = 50
)

// 常见新闻站点的正文容器，按优先级排列
var contentSelectors = []string{
	"article",
	`[role="main"]`,
	".article-content",
	".post-content",
	".entry-content",
	".content",
	".story-body",
	".article-body",
	".post-body",
	"#main-content",
	".main-content",
	".article-text",
	".story-content",
}

// Strategy 是正文级联中的一步，Extract 返回空串表示没有结果
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) string
}

// DefaultStrategies 返回固定顺序的正文策略
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategySelector, Extract: BySelectors},
		{Name: StrategyTextDensity, Extract: ByTextDensity},
		{Name: StrategyParagraphDensity, Extract: ByParagraphDensity},
		{Name: StrategyFallback, Extract: Fallback},
	}
}

// BySelectors 依次尝试常见正文容器，取第一个文本超过 200 字符的
func BySelectors(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := CleanText(textOf(el))
		if runeLen(text) > selectorMinChars {
			return text
		}
	}
	return ""
}

// ByTextDensity 在 div/section/main 中找文本密度最高的元素
func ByTextDensity(doc *goquery.Document) string {
	best := bestBy(doc.Find("div, section, main"), textDensity)
	if best == nil {
		return ""
	}
	return textOf(best)
}

// ByParagraphDensity 在块级容器中找段落数与文本量综合得分最高的元素
func ByParagraphDensity(doc *goquery.Document) string {
	best := bestBy(doc.Find("div, section, main, article"), paragraphScore)
	if best == nil {
		return ""
	}
	return textOf(best)
}

// Fallback 拼接页面上所有足够长的 <p>
func Fallback(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		t := strings.TrimSpace(p.Text())
		if runeLen(t) > paragraphMinChars {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

// textDensity = 文本长度 / HTML 长度 × (1 + 0.1 × 段落数)
func textDensity(s *goquery.Selection) float64 {
	inner, err := s.Html()
	if err != nil || inner == "" {
		return 0
	}
	textLen := runeLen(s.Text())
	htmlLen := runeLen(inner)
	paragraphs := s.Find("p").Length()
	return float64(textLen) / float64(htmlLen) * (1 + 0.1*float64(paragraphs))
}

// paragraphScore = 段落数 × ln(文本长度 + 1)
func paragraphScore(s *goquery.Selection) float64 {
	paragraphs := s.Find("p").Length()
	textLen := runeLen(s.Text())
	return float64(paragraphs) * math.Log(float64(textLen)+1)
}

// bestBy 返回得分最高（且大于 0）的元素，同分保留先出现的
func bestBy(candidates *goquery.Selection, score func(*goquery.Selection) float64) *goquery.Selection {
	var best *goquery.Selection
	high := 0.0
	candidates.Each(func(_ int, s *goquery.Selection) {
		if v := score(s); v > high {
			high = v
			best = s
		}
	})
	return best
}
