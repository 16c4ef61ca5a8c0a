// Package channel adapts Slack's Socket Mode transport to the pipeline: raw
// event payloads are decoded into domain events and published on the bus,
// and formatted messages are posted back. The core never sees the transport.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"esabot/internal/domain"
	"esabot/internal/format"
)

// Slack connects to Slack via Socket Mode.
type Slack struct {
	botToken string
	appToken string
	client   *slack.Client
	socket   *socketmode.Client
	bus      domain.EventBus
	logger   *slog.Logger
	botID    string // the bot's own bot_id, to avoid re-processing its own posts
	botUID   string
}

// Config configures the Slack channel.
type Config struct {
	BotToken string
	AppToken string
	Logger   *slog.Logger
}

// New creates a Slack channel adapter.
func New(cfg Config) *Slack {
	return &Slack{
		botToken: cfg.BotToken,
		appToken: cfg.AppToken,
		logger:   cfg.Logger,
	}
}

func (s *Slack) Name() string { return "slack" }

// Start connects via Socket Mode and publishes decoded events to the bus
// until the context is done.
func (s *Slack) Start(ctx context.Context, bus domain.EventBus) error {
	s.bus = bus

	api := slack.New(
		s.botToken,
		slack.OptionAppLevelToken(s.appToken),
	)
	s.client = api

	authResp, err := api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.botUID = authResp.UserID
	s.botID = authResp.BotID
	s.logger.Info("slack bot connected", "user", authResp.User, "user_id", authResp.UserID)

	socketClient := socketmode.New(api)
	s.socket = socketClient

	go func() {
		for evt := range socketClient.Events {
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				if evt.Request != nil {
					socketClient.Ack(*evt.Request)
					s.handlePayload(evt.Request.Payload)
				}
			default:
				// Acknowledge everything else to keep the socket healthy.
				if evt.Request != nil {
					socketClient.Ack(*evt.Request)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- socketClient.RunContext(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("slack bot disconnecting")
		return nil
	case err := <-errCh:
		return fmt.Errorf("slack socket mode: %w", err)
	}
}

func (s *Slack) handlePayload(payload json.RawMessage) {
	ev, ok := decodeInboundEvent(payload)
	if !ok {
		return
	}
	if s.ownMessage(ev) {
		return
	}
	s.logger.Info("slack event received",
		"kind", ev.Kind,
		"subtype", ev.Subtype,
		"channel", ev.Channel,
		"ts", ev.Timestamp,
	)
	s.bus.Publish(ev)
}

// ownMessage reports whether the event is one of the bot's own posts, which
// must never feed back into the pipeline.
func (s *Slack) ownMessage(ev domain.InboundEvent) bool {
	body := ev.Body()
	if s.botID != "" && body.BotID == s.botID {
		return true
	}
	return ev.User != "" && ev.User == s.botUID
}

// Post implements dispatch.Poster: it delivers one formatted message to one
// channel and returns the message timestamp.
func (s *Slack) Post(ctx context.Context, channelID string, msg format.Message) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}
	if msg.SuppressUnfurl {
		opts = append(opts, slack.MsgOptionDisableLinkUnfurl(), slack.MsgOptionDisableMediaUnfurl())
	}
	_, ts, err := s.client.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack post to %s: %w", channelID, err)
	}
	return ts, nil
}

// Delete removes a previously posted message.
func (s *Slack) Delete(ctx context.Context, channelID, ts string) error {
	_, _, err := s.client.DeleteMessageContext(ctx, channelID, ts)
	if err != nil {
		return fmt.Errorf("slack delete %s@%s: %w", channelID, ts, err)
	}
	return nil
}

// wireMessage is the subset of a Slack message event the pipeline reads.
// Decoding it here, straight from the envelope, keeps the heterogeneous
// payload shapes (nested message, string-or-object block text) in one place.
type wireMessage struct {
	Type       string `json:"type"`
	Subtype    string `json:"subtype"`
	Text       string `json:"text"`
	User       string `json:"user"`
	BotID      string `json:"bot_id"`
	BotProfile *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"bot_profile"`
	Channel     string              `json:"channel"`
	TS          string              `json:"ts"`
	EventTS     string              `json:"event_ts"`
	Blocks      []domain.Block      `json:"blocks"`
	Attachments []domain.Attachment `json:"attachments"`
	Message     *wireMessage        `json:"message"`
}

// identity returns the event's timestamp identity, falling back to event_ts
// for payloads that omit ts.
func (w *wireMessage) identity() string {
	if w.TS != "" {
		return w.TS
	}
	return w.EventTS
}

func (w *wireMessage) body() domain.MessageBody {
	body := domain.MessageBody{
		Text:        w.Text,
		BotID:       w.BotID,
		Blocks:      w.Blocks,
		Attachments: w.Attachments,
	}
	if w.BotProfile != nil {
		body.BotProfile = w.BotProfile.Name
		if body.BotProfile == "" {
			body.BotProfile = w.BotProfile.ID
		}
	}
	return body
}

// decodeInboundEvent unwraps an Events API envelope into a domain event.
// Only message and app_mention events are of interest; everything else
// returns ok=false.
func decodeInboundEvent(payload json.RawMessage) (domain.InboundEvent, bool) {
	var envelope struct {
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || len(envelope.Event) == 0 {
		return domain.InboundEvent{}, false
	}
	var w wireMessage
	if err := json.Unmarshal(envelope.Event, &w); err != nil {
		return domain.InboundEvent{}, false
	}

	switch w.Type {
	case "message":
		ev := domain.InboundEvent{
			Kind:        domain.EventNewMessage,
			Subtype:     w.Subtype,
			MessageBody: w.body(),
			Channel:     w.Channel,
			User:        w.User,
			Timestamp:   w.identity(),
		}
		if w.Message != nil {
			nested := w.Message.body()
			ev.Message = &nested
			ev.Kind = domain.EventEditedMessage
			// the original message's ts is the stable identity shared by the
			// first delivery and its link-preview replay
			if w.Message.TS != "" {
				ev.Timestamp = w.Message.TS
			}
		}
		return ev, true
	case "app_mention":
		return domain.InboundEvent{
			Kind:        domain.EventAppMention,
			MessageBody: w.body(),
			Channel:     w.Channel,
			User:        w.User,
			Timestamp:   w.identity(),
		}, true
	}
	return domain.InboundEvent{}, false
}
