package domain

import "encoding/json"

// EventKind distinguishes a fresh message from an edit of an earlier one.
type EventKind string

const (
	EventNewMessage    EventKind = "message"
	EventEditedMessage EventKind = "edited_message"
	EventAppMention    EventKind = "app_mention"
)

// Recognized message subtypes. Everything else (deletions, joins, ...) is
// filtered out by the classifier.
const (
	SubtypeBotMessage     = "bot_message"
	SubtypeMessageChanged = "message_changed"
)

// MessageBody is the content-bearing part of an event: the text, the sender's
// bot markers, and the structured payloads the text may be duplicated into.
// It is built by the channel adapter, not decoded from the wire; BotProfile
// holds the profile's display name (or id) flattened from the wire object.
type MessageBody struct {
	Text        string
	BotID       string
	BotProfile  string
	Blocks      []Block
	Attachments []Attachment
}

// IsBot reports whether the body carries any bot identity marker. Events
// without one are human-authored and never summarized.
func (b MessageBody) IsBot() bool {
	return b.BotID != "" || b.BotProfile != ""
}

// InboundEvent is one Slack notification, decoded into a shape the pipeline
// owns. It is consumed synchronously; only Timestamp survives the call, as
// the identity key in the classifier's seen-set.
type InboundEvent struct {
	Kind    EventKind
	Subtype string
	MessageBody
	Channel   string
	User      string
	Timestamp string
	// Message holds the current message payload for message_changed events.
	// Text and bot markers must be read from here, not the envelope.
	Message *MessageBody
}

// Body returns the content-bearing payload: the nested message for edits,
// the envelope otherwise.
func (e InboundEvent) Body() MessageBody {
	if e.Subtype == SubtypeMessageChanged && e.Message != nil {
		return *e.Message
	}
	return e.MessageBody
}

// Block is one node of Slack's structured rich-text payload, reduced to the
// closed set of shapes the extractor walks: rich-text containers, text runs,
// link runs, and sections. Unrecognized types keep their Type tag and are
// skipped by traversal.
type Block struct {
	Type     string  `json:"type"`
	URL      string  `json:"url,omitempty"`
	Text     string  `json:"-"`
	Elements []Block `json:"elements,omitempty"`
}

// Known block node types.
const (
	BlockRichText        = "rich_text"
	BlockRichTextSection = "rich_text_section"
	BlockLink            = "link"
	BlockText            = "text"
	BlockSection         = "section"
)

// UnmarshalJSON accepts both wire shapes of the "text" field: a bare string
// (rich-text runs) and a {"type","text"} object (section blocks).
func (b *Block) UnmarshalJSON(data []byte) error {
	type alias struct {
		Type     string          `json:"type"`
		URL      string          `json:"url"`
		Text     json.RawMessage `json:"text"`
		Elements []Block         `json:"elements"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	b.Type = a.Type
	b.URL = a.URL
	b.Elements = a.Elements
	if len(a.Text) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(a.Text, &s); err == nil {
		b.Text = s
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(a.Text, &obj); err == nil {
		b.Text = obj.Text
	}
	return nil
}

// Attachment carries the link-preview fields Slack attaches to unfurled
// messages. Only the fields the extractor scans are kept.
type Attachment struct {
	Fallback    string `json:"fallback,omitempty"`
	Text        string `json:"text,omitempty"`
	TitleLink   string `json:"title_link,omitempty"`
	FromURL     string `json:"from_url,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
}
