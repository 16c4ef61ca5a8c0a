package format

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/slack-go/slack"

	"esabot/internal/domain"
)

// Hard caps enforced by Slack at delivery time. Violating them fails the
// post, so they are contracts here, not choices.
const (
	maxTitleRunes    = 140
	maxFallbackRunes = 3000
)

// Message is one fully assembled summary post, built once per document and
// reused verbatim for every destination channel.
type Message struct {
	// Text is the plain-text fallback shown in notifications.
	Text   string
	Blocks []slack.Block
	// SuppressUnfurl disables link previews on delivery; the summary already
	// links the post and a second preview would re-trigger the watch loop's
	// message_changed replay.
	SuppressUnfurl bool
}

// BuildInput carries everything the assembler needs for one summary message.
type BuildInput struct {
	Summary    string // raw summarizer output
	Title      string
	Category   string
	UpdatedAt  string
	URL        string
	Options    domain.SummaryOptions
	PostNumber int
	BodyLength int // character count of the source body
	ChunkSize  int // 0 selects DefaultChunkSize
}

// Build repairs, translates, chunks and assembles the summary into a Block
// Kit message with a length-capped plain-text fallback.
func Build(in BuildInput) Message {
	title := in.Title
	if title == "" {
		title = "untitled"
	}

	translated := ToMrkdwn(RepairNumbering(in.Summary))
	chunks := Chunk(translated, in.ChunkSize)

	blocks := make([]slack.Block, 0, len(chunks)+5)
	blocks = append(blocks, slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, truncateRunes(title, maxTitleRunes), true, false),
	))
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, sourceLine(in.URL, in.PostNumber), false, false),
	))
	blocks = append(blocks, slack.NewSectionBlock(nil, metadataFields(in), nil))
	blocks = append(blocks, slack.NewDividerBlock())
	for _, chunk := range chunks {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, chunk, false, false), nil, nil,
		))
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("<%s|Open the full post>", in.URL), false, false),
	))

	return Message{
		Text:           fallbackText(title, in, translated),
		Blocks:         blocks,
		SuppressUnfurl: true,
	}
}

// TextOnly wraps a plain reply (help text, user-facing errors) in a Message.
func TextOnly(text string) Message {
	return Message{Text: text}
}

func sourceLine(url string, number int) string {
	if number > 0 {
		return fmt.Sprintf("<%s|post #%d>", url, number)
	}
	return url
}

func metadataFields(in BuildInput) []*slack.TextBlockObject {
	category := in.Category
	if category == "" {
		category = "-"
	}
	updated := in.UpdatedAt
	if updated == "" {
		updated = "-"
	}
	return []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Category*\n"+category, false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Updated*\n"+updated, false, false),
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Length*\n%s chars", humanize.Comma(int64(in.BodyLength))), false, false),
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Summary*\n%s / %s", in.Options.Length, in.Options.Style), false, false),
	}
}

func fallbackText(title string, in BuildInput, translated string) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	if in.Category != "" {
		sb.WriteString(in.Category)
		if in.UpdatedAt != "" {
			sb.WriteString(" · ")
		}
	}
	if in.UpdatedAt != "" {
		sb.WriteString(in.UpdatedAt)
	}
	sb.WriteString("\n")
	sb.WriteString(in.URL)
	sb.WriteString("\n\n")
	sb.WriteString(translated)
	return truncateRunes(sb.String(), maxFallbackRunes)
}
