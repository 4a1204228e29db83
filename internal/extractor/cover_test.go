package extractor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ogMeta       = `<meta property="og:image" content="https://img.example.com/og.jpg"><meta property="og:image:alt" content="Council"><meta property="og:image:width" content="1200"><meta property="og:image:height" content="630">`
	twitterMeta  = `<meta name="twitter:image" content="https://img.example.com/tw.jpg"><meta name="twitter:image:alt" content="Tw alt">`
	jsonLDScript = `<script type="application/ld+json">{"@type":"NewsArticle","image":{"@type":"ImageObject","url":"https://img.example.com/ld.jpg"}}</script>`
	articleBody  = `<article><img src="https://img.example.com/body.jpg" alt="Body"></article>`
	featuredBody = `<div class="hero-image"><img src="https://img.example.com/hero.jpg"></div>`
)

func coverDoc(t *testing.T, head, body string) *CoverPhoto {
	t.Helper()
	html := "<html><head>" + head + "</head><body>" + body + "</body></html>"
	working := mustDoc(t, html)
	RemoveNoise(working)
	return ExtractCoverPhoto(mustDoc(t, html), working)
}

func TestCoverCascade_FixedPriority(t *testing.T) {
	cases := []struct {
		name       string
		head, body string
		wantURL    string
		wantSource CoverSource
	}{
		{"og wins", ogMeta + twitterMeta + jsonLDScript, articleBody + featuredBody, "https://img.example.com/og.jpg", SourceOGImage},
		{"twitter next", twitterMeta + jsonLDScript, articleBody + featuredBody, "https://img.example.com/tw.jpg", SourceTwitterImage},
		{"json-ld next", jsonLDScript, articleBody + featuredBody, "https://img.example.com/ld.jpg", SourceJSONLD},
		{"article image next", "", articleBody + featuredBody, "https://img.example.com/body.jpg", SourceArticleImage},
		{"featured last", "", featuredBody, "https://img.example.com/hero.jpg", SourceFeatured},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			photo := coverDoc(t, c.head, c.body)
			require.NotNil(t, photo)
			assert.Equal(t, c.wantURL, photo.URL)
			assert.Equal(t, c.wantSource, photo.Source)
		})
	}
}

func TestCoverCascade_None(t *testing.T) {
	assert.Nil(t, coverDoc(t, "", "<p>no images here</p>"))
}

func TestOGImage_Metadata(t *testing.T) {
	photo := coverDoc(t, ogMeta, "")
	require.NotNil(t, photo)
	assert.Equal(t, "Council", photo.Alt)
	assert.Equal(t, 1200, photo.Width)
	assert.Equal(t, 630, photo.Height)
}

func TestTwitterImage_PropertyVariant(t *testing.T) {
	photo := coverDoc(t, `<meta property="twitter:image" content="//img.example.com/p.jpg">`, "")
	require.NotNil(t, photo)
	assert.Equal(t, "https://img.example.com/p.jpg", photo.URL)
	assert.Equal(t, SourceTwitterImage, photo.Source)
}

func TestJSONLD_ImageShapes(t *testing.T) {
	cases := map[string]string{
		"string":            `{"image":"https://img.example.com/a.jpg"}`,
		"array of strings":  `{"image":["https://img.example.com/a.jpg","https://img.example.com/b.jpg"]}`,
		"array of objects":  `{"image":[{"url":"https://img.example.com/a.jpg"}]}`,
		"object with url":   `{"image":{"url":"https://img.example.com/a.jpg"}}`,
		"nested in graph":   `{"@graph":[{"@type":"WebPage"},{"@type":"NewsArticle","image":"https://img.example.com/a.jpg"}]}`,
		"top level array":   `[{"@type":"Organization"},{"image":"https://img.example.com/a.jpg"}]`,
		"depth first order": `{"publisher":{"logo":{"image":"https://img.example.com/a.jpg"}},"mainEntity":{"image":"https://img.example.com/z.jpg"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			photo := coverDoc(t, `<script type="application/ld+json">`+body+`</script>`, "")
			require.NotNil(t, photo)
			assert.Equal(t, "https://img.example.com/a.jpg", photo.URL)
			assert.Equal(t, SourceJSONLD, photo.Source)
		})
	}
}

func TestJSONLD_MalformedBlockSkipped(t *testing.T) {
	head := `<script type="application/ld+json">{"image": [oops</script>` +
		`<script type="application/ld+json">{"image":"https://img.example.com/ok.jpg"}</script>`
	photo := coverDoc(t, head, "")
	require.NotNil(t, photo)
	assert.Equal(t, "https://img.example.com/ok.jpg", photo.URL)
}

func TestArticleImage_SkipsInvalidImages(t *testing.T) {
	body := `<article>
		<img src="https://img.example.com/site-logo.png">
		<img src="https://img.example.com/tiny.jpg" width="50" height="300">
		<img data-src="https://img.example.com/lazy.jpg" width="800" height="450" alt="Lazy">
	</article>`
	photo := coverDoc(t, "", body)
	require.NotNil(t, photo)
	assert.Equal(t, "https://img.example.com/lazy.jpg", photo.URL)
	assert.Equal(t, "Lazy", photo.Alt)
	assert.Equal(t, 800, photo.Width)
	assert.Equal(t, 450, photo.Height)
}

func TestArticleImage_IgnoresNoiseInsideArticle(t *testing.T) {
	body := `<article>
		<aside class="related-articles"><img src="https://img.example.com/other-story.jpg" width="300" height="200"></aside>
		<p>The council met on Tuesday.</p>
		<img src="https://img.example.com/council-photo.jpg" width="800" height="450">
	</article>`
	photo := coverDoc(t, "", body)
	require.NotNil(t, photo)
	assert.Equal(t, "https://img.example.com/council-photo.jpg", photo.URL)
	assert.Equal(t, SourceArticleImage, photo.Source)
}

func TestFeaturedImage_IgnoresSidebar(t *testing.T) {
	body := `<div class="sidebar"><div class="featured-image"><img src="https://img.example.com/promo.jpg"></div></div>` +
		`<div class="hero-image"><img src="https://img.example.com/hero.jpg"></div>`
	photo := coverDoc(t, "", body)
	require.NotNil(t, photo)
	assert.Equal(t, "https://img.example.com/hero.jpg", photo.URL)
	assert.Equal(t, SourceFeatured, photo.Source)
}

func TestCoverMeta_SurvivesNoiseRemoval(t *testing.T) {
	// script 在去噪名单里，ld+json 仍需从原始文档读取
	photo := coverDoc(t, jsonLDScript, "")
	require.NotNil(t, photo)
	assert.Equal(t, SourceJSONLD, photo.Source)
}

func TestIsValidImage(t *testing.T) {
	cases := []struct {
		name string
		img  string
		want bool
	}{
		{"plain", `<img src="https://img.example.com/photo.jpg">`, true},
		{"data-src", `<img data-src="https://img.example.com/photo.jpg">`, true},
		{"no source", `<img alt="x">`, false},
		{"small width only", `<img src="https://img.example.com/photo.jpg" width="80">`, false},
		{"small height only", `<img src="https://img.example.com/photo.jpg" height="99">`, false},
		{"big enough", `<img src="https://img.example.com/photo.jpg" width="100" height="100">`, true},
		{"px suffix", `<img src="https://img.example.com/photo.jpg" width="40px">`, false},
		{"unparsable width ignored", `<img src="https://img.example.com/photo.jpg" width="auto">`, true},
		{"logo despite size", `<img src="https://img.example.com/LOGO.png" width="1200" height="800">`, false},
		{"icon despite size", `<img src="https://img.example.com/icons/x.png" width="1200" height="800">`, false},
		{"1x1 despite size", `<img src="https://img.example.com/1x1.gif" width="1200" height="800">`, false},
		{"tracker", `<img src="https://t.example.com/tracker.gif">`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc := mustDoc(t, "<html><body>"+c.img+"</body></html>")
			assert.Equal(t, c.want, IsValidImage(doc.Find("img").First()))
		})
	}
}

func TestIsValidImage_RejectsNonImg(t *testing.T) {
	doc := mustDoc(t, `<html><body><div src="https://img.example.com/photo.jpg"></div></body></html>`)
	assert.False(t, IsValidImage(doc.Find("div").First()))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://a.example.com/x.jpg", ResolveURL("https://a.example.com/x.jpg"))
	assert.Equal(t, "http://a.example.com/x.jpg", ResolveURL("http://a.example.com/x.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", ResolveURL("//cdn.example.com/a.jpg"))
	// 相对地址不做猜测
	assert.Equal(t, "/images/a.jpg", ResolveURL("/images/a.jpg"))
	assert.Equal(t, "images/a.jpg", ResolveURL(" images/a.jpg "))
}

func TestDecodeOrdered_KeepsKeyOrder(t *testing.T) {
	v, err := decodeOrderedString(`{"b":1,"a":{"d":[1,"x"],"c":null}}`)
	require.NoError(t, err)
	obj, ok := v.(jsonObject)
	require.True(t, ok)
	keys := make([]string, 0, len(obj))
	for _, f := range obj {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"b", "a"}, keys)
}

func decodeOrderedString(s string) (any, error) {
	return decodeOrdered(json.NewDecoder(strings.NewReader(s)))
}
