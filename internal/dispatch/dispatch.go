// Package dispatch orchestrates the pipeline: classify an inbound event,
// then per URL fetch, summarize, format, and deliver to every destination
// channel. Failures are contained at the narrowest scope — one URL, one
// destination, one invocation — and never stop siblings.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"esabot/internal/classify"
	"esabot/internal/domain"
	"esabot/internal/format"
	"esabot/internal/metrics"
)

// Poster delivers a formatted message to one channel and returns the
// platform's message identifier.
type Poster interface {
	Post(ctx context.Context, channelID string, msg format.Message) (string, error)
}

// Dispatcher wires the pipeline stages together.
type Dispatcher struct {
	classifier   *classify.Classifier
	fetcher      domain.Fetcher
	summarizer   domain.Summarizer
	poster       Poster
	destinations []string
	chunkSize    int
	logger       *slog.Logger
	metrics      *metrics.Pipeline
}

// Config configures a Dispatcher.
type Config struct {
	Classifier *classify.Classifier
	Fetcher    domain.Fetcher
	Summarizer domain.Summarizer
	Poster     Poster
	// Destinations receive every automatic summary. Empty falls back to the
	// event's origin channel.
	Destinations []string
	ChunkSize    int
	Logger       *slog.Logger
	Metrics      *metrics.Pipeline
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewPipeline()
	}
	return &Dispatcher{
		classifier:   cfg.Classifier,
		fetcher:      cfg.Fetcher,
		summarizer:   cfg.Summarizer,
		poster:       cfg.Poster,
		destinations: cfg.Destinations,
		chunkSize:    cfg.ChunkSize,
		logger:       logger,
		metrics:      m,
	}
}

// HandleEvent runs the automatic watch-channel path for one inbound event.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev domain.InboundEvent) {
	d.metrics.EventsSeen.Inc()

	verdict := d.classifier.Classify(ev)
	if !verdict.Accepted {
		d.logger.Debug("event rejected", "reason", verdict.Reason, "ts", ev.Timestamp)
		return
	}
	d.metrics.EventsAccepted.Inc()

	for _, url := range verdict.URLs {
		d.processURL(ctx, url, verdict.Channel)
	}
}

// processURL runs fetch → summarize → format → deliver for one URL. Any
// failure abandons this URL only.
func (d *Dispatcher) processURL(ctx context.Context, url, origin string) {
	destinations := d.destinations
	if len(destinations) == 0 {
		d.logger.Warn("no destination channels configured, falling back to origin", "channel", origin)
		destinations = []string{origin}
	}

	post, err := d.fetcher.FetchPost(ctx, url)
	if err != nil {
		d.metrics.FetchFailures.Inc()
		d.logger.Error("post fetch failed", "url", url, "err", err)
		return
	}
	if strings.TrimSpace(post.BodyMD) == "" {
		d.metrics.FetchFailures.Inc()
		d.logger.Warn("post body is empty", "url", url, "title", post.Title)
		return
	}

	opts := domain.DefaultOptions()
	summary := d.summarize(ctx, post, opts)
	msg := format.Build(format.BuildInput{
		Summary:    summary,
		Title:      post.Title,
		Category:   post.Category,
		UpdatedAt:  post.UpdatedAt,
		URL:        url,
		Options:    opts,
		PostNumber: post.Number,
		BodyLength: len([]rune(post.BodyMD)),
		ChunkSize:  d.chunkSize,
	})

	for _, dest := range destinations {
		if _, err := d.poster.Post(ctx, dest, msg); err != nil {
			d.metrics.PostFailures.Inc()
			d.logger.Error("delivery failed", "channel", dest, "url", url, "title", post.Title, "err", err)
			continue
		}
		d.metrics.SummariesPosted.Inc()
		d.logger.Info("summary delivered", "channel", dest, "url", url, "title", post.Title)
	}
}

// summarize degrades a summarizer error into visible error text so the
// format/deliver path still runs and the channel sees something instead of
// silence.
func (d *Dispatcher) summarize(ctx context.Context, post *domain.Post, opts domain.SummaryOptions) string {
	summary, err := d.summarizer.Summarize(ctx, post, opts)
	if err != nil {
		d.metrics.SummaryFailures.Inc()
		d.logger.Error("summarization failed", "title", post.Title, "err", err)
		return fmt.Sprintf("⚠️ Summary generation failed: %v", err)
	}
	return summary
}
