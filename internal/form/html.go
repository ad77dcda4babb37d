package form

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var tagPattern = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

// ContainsMarkup reports whether s carries at least one tag-like substring.
func ContainsMarkup(s string) bool {
	return tagPattern.MatchString(s)
}

// PlainText extracts the readable text of an HTML fragment. Script and style
// bodies are dropped, entities are decoded and whitespace runs collapse to a
// single space. Inline tags join their text with the surrounding words; block
// elements separate it.
func PlainText(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) {
				skip++
			}
			if isBlockTag(string(name)) {
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) && skip > 0 {
				skip--
			}
			if isBlockTag(string(name)) {
				sb.WriteByte(' ')
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			sb.Write(tokenizer.Text())
		}
	}
}

func isSkippedTag(name string) bool {
	switch strings.ToLower(name) {
	case "script", "style", "noscript":
		return true
	}
	return false
}

func isBlockTag(name string) bool {
	switch strings.ToLower(name) {
	case "p", "div", "br", "hr", "h1", "h2", "h3", "h4", "h5", "h6",
		"li", "ul", "ol", "tr", "td", "th", "table", "blockquote", "pre", "section", "article":
		return true
	}
	return false
}
