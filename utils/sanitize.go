package utils

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	stripper = bluemonday.StrictPolicy()
	mdPolicy = bluemonday.UGCPolicy()

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldhtml.WithHardWraps()),
	)
)

func init() {
	mdPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	mdPolicy.RequireNoReferrerOnLinks(true)
}

// SanitizeText strips every tag and trims surrounding space. Entities produced
// by the policy are unescaped again so plain text round-trips unchanged.
// Stored user text goes through here; HTML is only produced by RenderMarkdown.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(stripper.Sanitize(input)))
}

// RenderMarkdown converts user markdown into sanitised HTML.
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source)
	}
	return string(mdPolicy.SanitizeBytes(buf.Bytes()))
}
