package service

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCleanGeneratedHTML(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain fragment",
			raw:  "<h2>Hi</h2><p>There</p>",
			want: "<h2>Hi</h2><p>There</p>",
		},
		{
			name: "fenced fragment",
			raw:  "```html\n<p>Fenced</p>\n```",
			want: "<p>Fenced</p>",
		},
		{
			name: "full document",
			raw:  "<html><head><meta charset=\"utf-8\"></head><body><ul><li>One</li></ul></body></html>",
			want: "<ul><li>One</li></ul>",
		},
		{
			name: "inline style block",
			raw:  "<style>h2{font-size:3em}</style><h2>Styled</h2>",
			want: "<h2>Styled</h2>",
		},
		{
			name: "script removed",
			raw:  "<p>ok</p><script>alert(1)</script>",
			want: "<p>ok</p>",
		},
		{
			name: "empty",
			raw:  "  ```  ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanGeneratedHTML(tt.raw); got != tt.want {
				t.Fatalf("CleanGeneratedHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizePlainText(t *testing.T) {
	if got := SanitizePlainText("  <i>Tom</i> &amp; Jerry "); got != "Tom & Jerry" {
		t.Fatalf("unexpected plain text %q", got)
	}
}

var forbiddenGeneratedMarkup = regexp.MustCompile(`(?i)<html|<head[\s>/]|<style|<body|<!doctype`)

func TestProperty_CleanGeneratedHTMLNeverLeaksWrappers(t *testing.T) {
	fragments := []string{
		"```", "```html", "`", "``",
		"<!DOCTYPE html>", "<html lang=\"en\">", "</html>",
		"<head><title>t</title></head>", "<HEAD>", "</head>",
		"<style>p{}</style>", "<STYLE>", "</style>",
		"<body>", "</BODY>",
		"<h2>Title</h2>", "<p>text</p>", "<ul><li>x</li></ul>", "<strong>b</strong>",
		"## heading", "**bold**", "plain words", "\n", "<", ">", " ",
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("cleaned output has no fences or document wrappers", prop.ForAll(
		func(picks []int) bool {
			var b strings.Builder
			for _, i := range picks {
				b.WriteString(fragments[i])
			}
			out := CleanGeneratedHTML(b.String())
			return !strings.Contains(out, "```") && !forbiddenGeneratedMarkup.MatchString(out)
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
	))

	properties.TestingRun(t)
}
