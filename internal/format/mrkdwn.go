// Package format turns raw model output into a chunked, length-safe Slack
// Block Kit message.
package format

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the per-section ceiling for summary content.
	DefaultChunkSize = 2800
	// minBoundaryRatio: a newline boundary earlier than this fraction of the
	// limit is ignored to avoid pathologically tiny chunks.
	minBoundaryRatio = 0.6
)

var (
	escapedOrdinal = regexp.MustCompile(`\\(\d+)`)
	headingRule    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRule     = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	boldRule       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRule     = regexp.MustCompile(`__(.+?)__`)
)

// RepairNumbering replaces escaped ordinal placeholders (a backslash followed
// by digits, left over from markdown escaping) with a strictly increasing
// counter. The original digits are discarded: the first placeholder anywhere
// in the text becomes 1, the second 2, and so on.
func RepairNumbering(text string) string {
	n := 0
	return escapedOrdinal.ReplaceAllStringFunc(text, func(string) string {
		n++
		return strconv.Itoa(n)
	})
}

// ToMrkdwn translates the constrained markdown subset the model emits into
// Slack mrkdwn, line by line. Rules apply in a fixed order: fence toggle,
// code passthrough, heading, bullet, bold, then underscore emphasis. Content
// inside a fenced code block passes through untouched.
func ToMrkdwn(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inCode := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "```" {
			inCode = !inCode
			out = append(out, "```")
			continue
		}
		if inCode {
			out = append(out, line)
			continue
		}
		if trimmed == "" {
			out = append(out, "")
			continue
		}

		if m := headingRule.FindStringSubmatch(trimmed); m != nil {
			trimmed = "*" + m[2] + "*"
		} else if m := bulletRule.FindStringSubmatch(trimmed); m != nil {
			trimmed = "• " + m[1]
		}
		trimmed = boldRule.ReplaceAllString(trimmed, "*$1*")
		trimmed = italicRule.ReplaceAllString(trimmed, "_${1}_")

		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

// Chunk splits text into pieces no longer than size bytes. It prefers the
// last newline at or before the limit; when there is none, or it would leave
// a chunk shorter than 60% of the limit, it splits at the hard limit instead
// (backed off to a rune boundary). Chunks are trimmed at the split points;
// nothing but boundary whitespace is lost.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	push := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			chunks = append(chunks, s)
		}
	}

	for len(text) > 0 {
		if len(text) <= size {
			push(text)
			break
		}
		cut := runeAlignedCut(text, size)
		if cut == 0 {
			cut = size
		}
		if idx := strings.LastIndex(text[:size], "\n"); idx >= int(float64(size)*minBoundaryRatio) {
			cut = idx + 1
		}
		push(text[:cut])
		text = text[cut:]
	}
	return chunks
}

// runeAlignedCut backs a byte offset off to the nearest rune start so a hard
// split never produces invalid UTF-8.
func runeAlignedCut(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// truncateRunes caps s at n runes. Length caps in this package are platform
// contracts counted in characters, not bytes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
