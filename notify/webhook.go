// Package notify posts market announcements to a Discord channel webhook.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"wingman/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// WebhookExecutor is the subset of discordgo.Session used to post messages
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts market lifecycle messages to a single webhook
type Announcer struct {
	session   WebhookExecutor
	webhookID string
	token     string
}

// NewAnnouncer parses a webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>
func NewAnnouncer(webhookURL string) (*Announcer, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// webhooks carry their own token, the session needs none
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &Announcer{session: session, webhookID: id, token: token}, nil
}

func ParseWebhookURL(webhookURL string) (id, token string, err error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook URL %q has no webhook id and token", webhookURL)
}

// Register announces market creation and resolution
func (a *Announcer) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeMarketCreated, a.handle)
	bus.Subscribe(events.EventTypeMarketResolved, a.handle)
}

func (a *Announcer) handle(ctx context.Context, event events.Event) {
	var embed *discordgo.MessageEmbed
	switch e := event.(type) {
	case events.MarketCreatedEvent:
		embed = buildMarketCreatedEmbed(e)
	case events.MarketResolvedEvent:
		embed = buildMarketResolvedEmbed(e)
	default:
		return
	}

	if err := a.Post(ctx, embed); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to post Discord announcement")
	}
}

// Post sends one embed through the webhook
func (a *Announcer) Post(ctx context.Context, embed *discordgo.MessageEmbed) error {
	_, err := a.session.WebhookExecute(a.webhookID, a.token, false, &discordgo.WebhookParams{
		Username: "Wingman",
		Embeds:   []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to execute webhook: %w", err)
	}
	return nil
}
