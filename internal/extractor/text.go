package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// 正文有效性阈值
const (
	minContentChars     = 100
	minContentWords     = 20
	minContentSentences = 3
)

var (
	inlineSpaceRe   = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	lineEdgeRe      = regexp.MustCompile(` *\n *`)
	blankLineRe     = regexp.MustCompile(`\n{2,}`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
)

// 块级元素前后补换行，避免相邻段落的文字粘在一起
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true,
	"table": true, "tr": true, "figure": true, "figcaption": true,
	"header": true, "footer": true, "aside": true, "nav": true,
}

// CleanText 合并空白：行内空白压成一个空格，单个换行视为空格，
// 连续空行压成一个段落分隔，最后去掉首尾空白。
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = inlineSpaceRe.ReplaceAllString(s, " ")
	s = lineEdgeRe.ReplaceAllString(s, "\n")

	paras := blankLineRe.Split(s, -1)
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// CountWords 按空白切分计数
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// CountSentences 以 . ! ? 切分，统计非空片段
func CountSentences(s string) int {
	n := 0
	for _, seg := range sentenceSplitRe.Split(s, -1) {
		if strings.TrimSpace(seg) != "" {
			n++
		}
	}
	return n
}

// IsValidContent 判断候选正文是否像一篇真实文章
func IsValidContent(content string) bool {
	if utf8.RuneCountInString(content) < minContentChars {
		return false
	}
	if CountWords(content) < minContentWords {
		return false
	}
	return CountSentences(content) >= minContentSentences
}

// textOf 取选区的可见文本，块级元素之间保留段落分隔
func textOf(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			b.WriteString("\n")
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteString("\n\n")
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
