package domain

import "context"

// Fetcher retrieves a document behind a canonical post URL.
type Fetcher interface {
	FetchPost(ctx context.Context, url string) (*Post, error)
}

// Summarizer turns a fetched post into summary text.
type Summarizer interface {
	Summarize(ctx context.Context, post *Post, opts SummaryOptions) (string, error)
}

// EventBus routes inbound events from the transport adapter to the
// dispatcher.
type EventBus interface {
	Publish(ev InboundEvent)
	Subscribe() <-chan InboundEvent
	Close()
}
