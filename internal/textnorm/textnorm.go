// Package textnorm turns client-submitted entry text into the canonical
// content used for analysis, clustering and alert matching.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Content picks the transcript when present, otherwise the typed text, strips
// markup sent by rich-text editors and collapses whitespace. The boolean is
// false when nothing usable remains.
func Content(text, transcript string) (string, bool) {
	if clean := Clean(transcript); clean != "" {
		return clean, true
	}
	clean := Clean(text)
	return clean, clean != ""
}

// Clean strips HTML markup and collapses runs of whitespace.
func Clean(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if looksLikeMarkup(raw) {
		raw = stripMarkup(raw)
	}
	return strings.Join(strings.Fields(raw), " ")
}

// Tokens lowercases text and splits it on anything that is not a letter, digit or apostrophe.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func looksLikeMarkup(s string) bool {
	open := strings.IndexByte(s, '<')
	return open >= 0 && strings.IndexByte(s[open:], '>') > 0
}

func stripMarkup(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	// Block elements would otherwise glue adjacent words together.
	doc.Find("p, div, br, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	doc.Find("script, style").Remove()
	return doc.Text()
}
