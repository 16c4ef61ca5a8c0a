// Package extract finds esa.io post links in the heterogeneous payloads a
// Slack message can carry and normalizes them to canonical form.
package extract

import (
	"regexp"
	"strings"

	"esabot/internal/domain"
)

var (
	// urlPattern matches any URL candidate in free text. Slack wraps links
	// in <...> and appends |display labels; both are stripped during
	// cleaning, so the scan stops at whitespace and the wrapper characters.
	urlPattern = regexp.MustCompile(`https?://[^\s<>|]+`)

	// postPattern recognizes an esa post URL and captures its canonical
	// prefix. Anything after the post number (revision pages, diffs, query
	// strings, anchors) is dropped so that deep links and canonical links
	// dedup to the same key.
	postPattern = regexp.MustCompile(`(https?://[^/\s]+\.esa\.io/posts/\d+)`)
)

// Normalize cleans one URL candidate and reduces it to the canonical
// scheme://host/posts/<number> form. It returns "" when the candidate is not
// an esa post URL. Normalize(Normalize(u)) == Normalize(u) for all u.
func Normalize(raw string) string {
	cleaned := clean(raw)
	m := postPattern.FindString(cleaned)
	return m
}

// clean strips the markup Slack leaves around a pasted link: a |display
// suffix, enclosing angle brackets, and a single trailing close-parenthesis
// from links written inside parentheses.
func clean(raw string) string {
	if idx := strings.Index(raw, "|"); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.Trim(raw, "<>")
	raw = strings.TrimSuffix(raw, ")")
	return raw
}

// Extract scans text, structured blocks, and attachments for esa post links
// and returns the canonical URLs, deduplicated, in encounter order.
func Extract(text string, blocks []domain.Block, atts []domain.Attachment) []string {
	var urls []string
	seen := make(map[string]struct{})
	add := func(candidate string) {
		u := Normalize(candidate)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	addText := func(s string) {
		for _, c := range urlPattern.FindAllString(s, -1) {
			add(c)
		}
	}

	addText(text)
	for _, b := range blocks {
		walkBlock(b, add, addText)
	}
	for _, a := range atts {
		for _, s := range []string{a.OriginalURL, a.TitleLink, a.FromURL, a.Fallback, a.Text} {
			addText(s)
		}
	}
	return urls
}

// walkBlock traverses the closed set of block node shapes. Link runs
// contribute their URL directly; text runs and sections are re-scanned as
// free text. Unknown node types are skipped, not rejected.
func walkBlock(b domain.Block, add func(string), addText func(string)) {
	switch b.Type {
	case domain.BlockLink:
		add(b.URL)
		if b.Text != "" {
			addText(b.Text)
		}
	case domain.BlockText, domain.BlockSection:
		addText(b.Text)
	case domain.BlockRichText, domain.BlockRichTextSection:
		// container: nothing at this level
	default:
		// unrecognized node: ignore its own fields, still walk children
	}
	for _, el := range b.Elements {
		walkBlock(el, add, addText)
	}
}
