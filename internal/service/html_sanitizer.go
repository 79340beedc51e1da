package service

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
	)
	richTextPolicy  = allowVideoEmbeds(bluemonday.UGCPolicy())
	plainTextPolicy = bluemonday.StrictPolicy()

	codeFencePattern  = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	headBlockPattern  = regexp.MustCompile(`(?is)<head[^>]*>.*?</head\s*>`)
	styleBlockPattern = regexp.MustCompile(`(?is)<style[^>]*>.*?</style\s*>`)
	htmlTagPattern    = regexp.MustCompile(`(?i)</?html[^>]*>`)
	bodyTagPattern    = regexp.MustCompile(`(?i)</?body[^>]*>`)
	doctypePattern    = regexp.MustCompile(`(?i)<!doctype[^>]*>`)
	anyTagPattern     = regexp.MustCompile(`</?[A-Za-z][^>]*>`)
)

// CleanGeneratedHTML 把模型输出收敛为可直接放入编辑器的 HTML 片段：
// 去掉代码围栏与整页包装（head、style、html、body），纯 Markdown 输出会先渲染成 HTML，最后统一做 UGC 过滤。
func CleanGeneratedHTML(raw string) string {
	cleaned := codeFencePattern.ReplaceAllString(raw, "")
	cleaned = doctypePattern.ReplaceAllString(cleaned, "")
	cleaned = headBlockPattern.ReplaceAllString(cleaned, "")
	cleaned = styleBlockPattern.ReplaceAllString(cleaned, "")
	cleaned = htmlTagPattern.ReplaceAllString(cleaned, "")
	cleaned = bodyTagPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}

	if !anyTagPattern.MatchString(cleaned) {
		var buf bytes.Buffer
		if err := markdownEngine.Convert([]byte(cleaned), &buf); err == nil {
			cleaned = buf.String()
		}
	}

	out := SanitizeRichText(cleaned)
	for strings.Contains(out, "```") {
		out = strings.ReplaceAll(out, "```", "")
	}
	return strings.TrimSpace(out)
}

// SanitizeRichText filters HTML through the UGC policy.
// Video iframes survive only when they point at a supported player.
func SanitizeRichText(input string) string {
	return richTextPolicy.Sanitize(normalizeVideoIframes(input))
}

// SanitizePlainText strips every tag and returns unescaped text.
func SanitizePlainText(input string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(input)))
}
