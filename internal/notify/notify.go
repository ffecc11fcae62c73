// Package notify posts operational alerts to Slack and Discord. Every
// send is best effort: a failed post is logged and never fails the
// scheduling operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"

	"github.com/siteboard/siteboard/internal/board"
	"github.com/siteboard/siteboard/internal/config"
	"github.com/siteboard/siteboard/internal/models"
)

// Sender delivers one alert to one backend.
type Sender interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackSender posts alerts to a Slack channel.
type SlackSender struct {
	client    slackClient
	channelID string
}

// NewSlackSender creates a SlackSender from a bot token (xoxb-...).
func NewSlackSender(token, channelID string) *SlackSender {
	return &SlackSender{client: slackapi.New(token), channelID: channelID}
}

func (s *SlackSender) Name() string { return "slack" }

func (s *SlackSender) Send(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessage(s.channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}

// discordSession abstracts the Discord session methods we use.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSender posts alerts to a Discord channel over the REST API.
// No gateway connection is opened; sends work without one.
type DiscordSender struct {
	sess      discordSession
	channelID string
}

// NewDiscordSender creates a DiscordSender from a bot token.
func NewDiscordSender(token, channelID string) (*DiscordSender, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &DiscordSender{sess: dg, channelID: channelID}, nil
}

func (d *DiscordSender) Name() string { return "discord" }

func (d *DiscordSender) Send(ctx context.Context, text string) error {
	if _, err := d.sess.ChannelMessageSend(d.channelID, text); err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}

// Notifier fans one alert out to every configured backend.
type Notifier struct {
	senders []Sender
}

// New builds a Notifier from config. Backends with empty tokens are
// skipped; a Notifier with no backends swallows everything silently.
func New(cfg config.NotifyConfig) (*Notifier, error) {
	var senders []Sender
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		senders = append(senders, NewSlackSender(cfg.SlackToken, cfg.SlackChannel))
	}
	if cfg.DiscordToken != "" && cfg.DiscordChannel != "" {
		ds, err := NewDiscordSender(cfg.DiscordToken, cfg.DiscordChannel)
		if err != nil {
			return nil, err
		}
		senders = append(senders, ds)
	}
	return &Notifier{senders: senders}, nil
}

// NewWithSenders creates a Notifier with explicit backends.
func NewWithSenders(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

// Enabled reports whether any backend is configured.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

func (n *Notifier) post(ctx context.Context, text string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, text); err != nil {
			log.Printf("notify: %s delivery failed: %v", s.Name(), err)
		}
	}
}

// DoubleShift alerts that a resource now holds both a day and a night
// assignment.
func (n *Notifier) DoubleShift(ctx context.Context, r models.Resource, ds board.DoubleShift) {
	day, night := "?", "?"
	if ds.DayJob != nil {
		day = ds.DayJob.Name
	}
	if ds.NightJob != nil {
		night = ds.NightJob.Name
	}
	n.post(ctx, fmt.Sprintf(":warning: %s is scheduled for a double shift: %s (day) and %s (night)", r.Name, day, night))
}

// Rollback alerts that an optimistic scheduling change failed to
// persist and was rolled back.
func (n *Notifier) Rollback(ctx context.Context, op string, cause error) {
	n.post(ctx, fmt.Sprintf(":x: %s was rolled back: %v", op, cause))
}
