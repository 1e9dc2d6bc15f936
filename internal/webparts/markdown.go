package webparts

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	// Without html.WithUnsafe the renderer omits raw HTML from wiki source.
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

var ugcPolicy = bluemonday.UGCPolicy()

// RenderMarkdown converts wiki source to HTML. Source that fails to convert is shown
// preformatted.
func RenderMarkdown(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return template.HTML("")
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(b.String())
}

// SanitizeHTML strips scripts, handlers and other unsafe markup from user supplied HTML.
func SanitizeHTML(src string) template.HTML {
	return template.HTML(ugcPolicy.Sanitize(src))
}
