// Package classify decides whether an inbound Slack event is a new,
// bot-authored notification on the watch channel that carries esa post links
// worth summarizing.
package classify

import (
	"log/slog"
	"strings"

	"esabot/internal/domain"
	"esabot/internal/extract"
)

// RejectReason says why an event was filtered out. Rejection is an expected
// outcome, not an error; it is logged at debug level only.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectDuplicate      RejectReason = "duplicate_event"
	RejectSubtype        RejectReason = "unsupported_subtype"
	RejectNoWatchChannel RejectReason = "watch_channel_unset"
	RejectChannel        RejectReason = "channel_not_watched"
	RejectHuman          RejectReason = "human_sender"
	RejectNoURL          RejectReason = "no_post_url"
)

// Verdict is the classifier's output: either an acceptance carrying the
// origin channel and the deduplicated URL set, or a rejection with a reason.
type Verdict struct {
	Accepted bool
	Reason   RejectReason
	Channel  string
	URLs     []string
}

// Classifier filters events against a single configured watch channel and
// suppresses replays of already-accepted events by their timestamp identity.
type Classifier struct {
	watchChannel string
	seen         *SeenSet
	logger       *slog.Logger
}

// Config configures a Classifier.
type Config struct {
	WatchChannel string
	Seen         *SeenSet // optional; a default-sized set is created when nil
	Logger       *slog.Logger
}

// New creates a Classifier.
func New(cfg Config) *Classifier {
	seen := cfg.Seen
	if seen == nil {
		seen = NewSeenSet(0, 0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		watchChannel: cfg.WatchChannel,
		seen:         seen,
		logger:       logger,
	}
}

func reject(reason RejectReason) Verdict {
	return Verdict{Reason: reason}
}

// Classify runs the filter chain, terminal on first rejection. The same
// logical post notification typically arrives twice (the original bot
// message, then a message_changed replay once Slack attaches the link
// preview), so the duplicate check on the event timestamp runs before
// anything else.
func (c *Classifier) Classify(ev domain.InboundEvent) Verdict {
	if c.seen.Seen(ev.Timestamp) {
		c.logger.Debug("event already processed", "ts", ev.Timestamp, "channel", ev.Channel)
		return reject(RejectDuplicate)
	}

	if ev.Subtype != "" &&
		ev.Subtype != domain.SubtypeBotMessage &&
		ev.Subtype != domain.SubtypeMessageChanged {
		return reject(RejectSubtype)
	}

	body := ev.Body()
	text := body.Text
	if strings.TrimSpace(text) == "" {
		text = textFromBlocks(body.Blocks)
	}

	if c.watchChannel == "" {
		return reject(RejectNoWatchChannel)
	}
	if ev.Channel != c.watchChannel {
		return reject(RejectChannel)
	}

	if !body.IsBot() {
		c.logger.Debug("ignoring human message", "channel", ev.Channel)
		return reject(RejectHuman)
	}

	urls := extract.Extract(text, body.Blocks, body.Attachments)
	if len(urls) == 0 {
		return reject(RejectNoURL)
	}

	// Only accepted identities suppress replays. A rejected first delivery
	// (say, the URL arrives only with the unfurl replay) must leave the key
	// free for the replay to claim.
	c.seen.Mark(ev.Timestamp)

	c.logger.Info("event accepted",
		"channel", ev.Channel,
		"bot_id", body.BotID,
		"urls", len(urls),
	)
	return Verdict{Accepted: true, Channel: ev.Channel, URLs: urls}
}

// textFromBlocks reconstructs plain text from structured blocks for events
// whose text field is empty.
func textFromBlocks(blocks []domain.Block) string {
	var sb strings.Builder
	var walk func(b domain.Block)
	walk = func(b domain.Block) {
		switch b.Type {
		case domain.BlockText, domain.BlockSection:
			sb.WriteString(b.Text)
		case domain.BlockLink:
			sb.WriteString(b.URL)
		}
		for _, el := range b.Elements {
			walk(el)
		}
	}
	for _, b := range blocks {
		walk(b)
		sb.WriteString("\n")
	}
	return sb.String()
}
