// Package render turns user submitted bodies into HTML that is safe to
// serve back to browsers.
package render

import (
	"html"
	"strings"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	ugc    = newUGCPolicy()
	strict = bluemonday.StrictPolicy()
)

func newUGCPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// Rich editor output carries inline images and alignment classes.
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("p", "span", "div", "img")
	p.AllowStyles("color", "background-color", "text-align").Globally()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// SanitizeHTML cleans a post body written in the rich editor.
func SanitizeHTML(body string) string {
	return strings.TrimSpace(ugc.Sanitize(body))
}

// Markdown renders a comment body. Raw HTML in the source is escaped by
// the sanitizer pass.
func Markdown(text string) string {
	out := blackfriday.Run([]byte(text),
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.HardLineBreak),
	)
	return strings.TrimSpace(string(ugc.SanitizeBytes(out)))
}

// PlainText strips every tag and collapses whitespace. Used for search
// documents, feed descriptions and snippets.
func PlainText(body string) string {
	text := html.UnescapeString(strict.Sanitize(body))
	return strings.Join(strings.Fields(text), " ")
}

// Snippet returns at most n runes of the plain text of body.
func Snippet(body string, n int) string {
	text := []rune(PlainText(body))
	if n <= 0 || len(text) <= n {
		return string(text)
	}
	return strings.TrimSpace(string(text[:n])) + "…"
}

// Slug is the URL fragment appended to post permalinks.
func Slug(title string) string {
	s := slug.Make(title)
	if s == "" {
		return "post"
	}
	return s
}
