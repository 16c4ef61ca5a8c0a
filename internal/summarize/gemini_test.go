package summarize

import (
	"errors"
	"strings"
	"testing"

	"esabot/internal/domain"
)

var testLengths = map[string]string{
	"short":  "3-5 sentences",
	"medium": "about 10 sentences",
	"long":   "20+ sentences",
}

var testStyles = map[string]string{
	"bullet":    "bullet points",
	"paragraph": "paragraphs",
}

func TestBuildPrompt_IncludesPostAndInstructions(t *testing.T) {
	post := &domain.Post{Title: "Design Doc", BodyMD: "the body text", Category: "dev/docs"}
	opts := domain.SummaryOptions{Length: domain.LengthShort, Style: domain.StyleParagraph}

	prompt := buildPrompt(post, opts, testLengths, testStyles)

	for _, want := range []string{"Design Doc", "the body text", "dev/docs", "3-5 sentences", "paragraphs"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_EmptyCategoryPlaceholder(t *testing.T) {
	post := &domain.Post{Title: "T", BodyMD: "b"}
	prompt := buildPrompt(post, domain.DefaultOptions(), testLengths, testStyles)
	if !strings.Contains(prompt, "[Category]\nnone") {
		t.Error("empty category should render as the placeholder")
	}
}

func TestBuildPrompt_UnknownOptionFallsBack(t *testing.T) {
	post := &domain.Post{Title: "T", BodyMD: "b"}
	opts := domain.SummaryOptions{Length: "huge", Style: "interpretive_dance"}
	prompt := buildPrompt(post, opts, testLengths, testStyles)
	if !strings.Contains(prompt, "about 10 sentences") {
		t.Error("unknown length should fall back to medium")
	}
	if !strings.Contains(prompt, "bullet points") {
		t.Error("unknown style should fall back to bullet")
	}
}

func TestRetriableModelError(t *testing.T) {
	cases := map[string]bool{
		"googleapi: Error 429: rate limit exceeded": true,
		"resource exhausted":                        true,
		"model not found":                           true,
		"invalid api key":                           false,
		"context canceled":                          false,
	}
	for msg, want := range cases {
		if got := retriableModelError(errors.New(msg)); got != want {
			t.Errorf("retriableModelError(%q) = %v, want %v", msg, got, want)
		}
	}
}
