package utils

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"<b>Tom & Jerry</b>", "Tom & Jerry"},
		{`<img src=x onerror=alert(1)>name`, "name"},
		{"<script>alert(1)</script>", ""},
		{"A & B's \"quote\"", "A & B's \"quote\""},
		{"line one\nline **two**", "line one\nline **two**"},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	html := RenderMarkdown("**done**\nnext line\n\n[site](https://example.com)\n\n<script>alert(1)</script>")
	for _, want := range []string{"<strong>done</strong>", "<br", `href="https://example.com"`, `target="_blank"`, "noreferrer"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered markdown missing %q: %s", want, html)
		}
	}
	if strings.Contains(html, "<script") {
		t.Errorf("script survived rendering: %s", html)
	}
}
