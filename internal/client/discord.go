package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/pkg/config"
)

const discordBlurple = 0x5865F2

// DiscordClient posts enrollment leads to a Discord channel webhook.
type DiscordClient struct {
	webhookURL string
	http       *http.Client
	now        func() time.Time
}

// NewDiscordClient returns nil without a webhook URL.
func NewDiscordClient(cfg config.DiscordConfig, hc *http.Client) *DiscordClient {
	if cfg.WebhookURL == "" {
		return nil
	}
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	return &DiscordClient{webhookURL: cfg.WebhookURL, http: hc, now: time.Now}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

// PublishLead sends the lead as a single embed.
func (c *DiscordClient) PublishLead(ctx context.Context, lead models.Lead) error {
	if c == nil {
		return ErrNotConfigured
	}
	description := fmt.Sprintf(
		"``Full name:`` **%s**\n\n``Email:`` **%s**\n\n``Age:`` **%d**\n\n``Budget:`` **%s**\n\n"+
			"``WhatsApp:`` ```%s %s```\n``Ambitions:`` ```%s```\n``Experience:`` ```%s```",
		lead.FullName, lead.Email, lead.Age, lead.BudgetLabel(),
		lead.CountryCode, lead.WhatsApp, lead.Ambitions, lead.Experience,
	)

	return do(ctx, c.http, request{
		service: "discord",
		method:  http.MethodPost,
		url:     c.webhookURL,
		body: discordMessage{Embeds: []discordEmbed{{
			Title:       "**New Enrollment**",
			Description: description,
			Color:       discordBlurple,
			Timestamp:   c.now().UTC().Format(time.RFC3339),
		}}},
	}, nil)
}
