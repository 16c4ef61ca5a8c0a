package dispatch

import (
	"context"
	"regexp"
	"strings"

	"esabot/internal/domain"
	"esabot/internal/extract"
	"esabot/internal/format"
)

var (
	mentionToken = regexp.MustCompile(`<@[A-Z0-9]+>`)
	lengthFlag   = regexp.MustCompile(`--length\s+(\S+)`)
	styleFlag    = regexp.MustCompile(`--style\s+(\S+)`)
)

const helpText = "*esa document summarizer* :books:\n\n" +
	"*Basic usage:*\n" +
	"```\n@esa-summarizer https://your-team.esa.io/posts/123\n```\n\n" +
	"*With options:*\n" +
	"```\n@esa-summarizer https://your-team.esa.io/posts/123 --length short --style paragraph\n```\n\n" +
	"*Options:*\n" +
	"• `--length short` : brief summary (3-5 sentences)\n" +
	"• `--length medium` : standard summary (default)\n" +
	"• `--length long` : detailed summary (20+ sentences)\n" +
	"• `--style bullet` : bullet points (default)\n" +
	"• `--style paragraph` : prose paragraphs\n"

// ParseOptionFlags pulls --length/--style tokens out of free text and
// returns the options plus the text with the tokens stripped. Unrecognized
// values fall back to the defaults, never error.
func ParseOptionFlags(text string) (domain.SummaryOptions, string) {
	opts := domain.DefaultOptions()

	if m := lengthFlag.FindStringSubmatch(text); m != nil {
		opts.Length = domain.ParseLength(m[1])
		text = lengthFlag.ReplaceAllString(text, "")
	}
	if m := styleFlag.FindStringSubmatch(text); m != nil {
		opts.Style = domain.ParseStyle(m[1])
		text = styleFlag.ReplaceAllString(text, "")
	}
	return opts, strings.TrimSpace(text)
}

// HandleMention runs the on-demand path for a direct @-mention: help text
// for empty requests, otherwise fetch/summarize the single referenced post
// and reply in the requesting channel. Each failure mode gets its own
// user-visible reply and halts the invocation; there are no retries.
func (d *Dispatcher) HandleMention(ctx context.Context, ev domain.InboundEvent) {
	text := strings.TrimSpace(mentionToken.ReplaceAllString(ev.Text, ""))

	prefix := ""
	if ev.User != "" {
		prefix = "<@" + ev.User + "> "
	}
	reply := func(body string) {
		if _, err := d.poster.Post(ctx, ev.Channel, format.TextOnly(prefix+body)); err != nil {
			d.metrics.PostFailures.Inc()
			d.logger.Error("reply failed", "channel", ev.Channel, "err", err)
		}
	}

	if text == "" || strings.Contains(strings.ToLower(text), "help") {
		reply("\n" + helpText)
		return
	}

	opts, rest := ParseOptionFlags(text)

	urls := extract.Extract(rest, ev.Blocks, ev.Attachments)
	if len(urls) == 0 {
		reply(":x: Error: please provide an esa post URL.\n\n" + helpText)
		return
	}
	url := urls[0]

	reply(":memo: Generating the summary... (length: " + string(opts.Length) + ", style: " + string(opts.Style) + ")")

	post, err := d.fetcher.FetchPost(ctx, url)
	if err != nil {
		d.metrics.FetchFailures.Inc()
		d.logger.Error("mention fetch failed", "url", url, "err", err)
		reply(":x: Could not fetch the post. Please check the URL.")
		return
	}
	if strings.TrimSpace(post.BodyMD) == "" {
		d.metrics.FetchFailures.Inc()
		reply(":x: The post body is empty.")
		return
	}

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

	if _, err := d.poster.Post(ctx, ev.Channel, msg); err != nil {
		d.metrics.PostFailures.Inc()
		d.logger.Error("mention delivery failed", "channel", ev.Channel, "url", url, "err", err)
		return
	}
	d.metrics.SummariesPosted.Inc()
}
