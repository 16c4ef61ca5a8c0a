// Package summarize implements the Summarizer capability on top of the
// Gemini API.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"esabot/internal/domain"
)

// Gemini summarizes posts with the Gemini API, trying each configured model
// in order when one is rate-limited or unavailable.
type Gemini struct {
	client  *genai.Client
	models  []string
	lengths map[string]string
	styles  map[string]string
	logger  *slog.Logger
}

// Config configures a Gemini summarizer. Lengths and Styles are the
// instruction tables keyed by the SummaryLength/SummaryStyle values; they
// feed the prompt and must stay consistent with the parsed option sets.
type Config struct {
	APIKey  string
	Models  []string
	Lengths map[string]string
	Styles  map[string]string
	Logger  *slog.Logger
}

// New creates a Gemini summarizer.
func New(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarize: api key is required")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("summarize: at least one model is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("summarize: create client: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{
		client:  client,
		models:  cfg.Models,
		lengths: cfg.Lengths,
		styles:  cfg.Styles,
		logger:  logger,
	}, nil
}

// Summarize implements domain.Summarizer.
func (g *Gemini) Summarize(ctx context.Context, post *domain.Post, opts domain.SummaryOptions) (string, error) {
	prompt := buildPrompt(post, opts, g.lengths, g.styles)

	var lastErr error
	for _, model := range g.models {
		result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			lastErr = err
			if retriableModelError(err) {
				g.logger.Warn("model unavailable, trying next", "model", model, "err", err)
				continue
			}
			return "", fmt.Errorf("summarize %q with %s: %w", post.Title, model, err)
		}
		if result == nil || len(result.Candidates) == 0 ||
			result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from %s", model)
			continue
		}
		g.logger.Info("summary generated", "title", post.Title, "model", model,
			"length", opts.Length, "style", opts.Style)
		return result.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("summarize %q: all models failed: %w", post.Title, lastErr)
}

// retriableModelError matches rate-limit and availability errors that are
// worth retrying on the next model in the fallback chain.
func retriableModelError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "exhausted") ||
		strings.Contains(s, "404") ||
		strings.Contains(s, "not found") ||
		strings.Contains(s, "unavailable")
}

// buildPrompt assembles the summarization prompt from the post and the
// configured instruction tables. Unknown option values already fell back to
// the defaults during parsing, but the lookup guards anyway.
func buildPrompt(post *domain.Post, opts domain.SummaryOptions, lengths, styles map[string]string) string {
	lengthInstr, ok := lengths[string(opts.Length)]
	if !ok {
		lengthInstr = lengths[string(domain.LengthMedium)]
	}
	styleInstr, ok := styles[string(opts.Style)]
	if !ok {
		styleInstr = styles[string(domain.StyleBullet)]
	}
	category := post.Category
	if category == "" {
		category = "none"
	}

	var sb strings.Builder
	sb.WriteString(`# Persona
You are a capable research assistant in an AI lab.

# Task
Summarize the technical document below for newly assigned undergraduate lab members, so they can grasp it quickly.

# Instructions
1. Keep the technical core: proposed method, experimental setup, and key results (including important numbers and trends).
2. Make the document's main contribution and its difference from prior work explicit.
3. Keep domain terms as-is; expand an acronym with its full name in parentheses on first use when it matters.
4. Extract the conclusion and any action items or open problems.
5. Follow the document's own structure (background, method, results, discussion) where possible.

# Output format
`)
	fmt.Fprintf(&sb, "* Length: %s\n", lengthInstr)
	fmt.Fprintf(&sb, "* Style: %s\n\n", styleInstr)
	fmt.Fprintf(&sb, "[Title]\n%s\n\n", post.Title)
	fmt.Fprintf(&sb, "[Category]\n%s\n\n", category)
	fmt.Fprintf(&sb, "[Body]\n%s\n\n", post.BodyMD)
	fmt.Fprintf(&sb, "Summarize the above as %s:\n", styleInstr)
	return sb.String()
}
