package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const webhookBotName = "Collection Watcher"

// DiscordWebhook posts announcements as embeds to a Discord-compatible
// webhook URL.
type DiscordWebhook struct {
	url        string
	httpClient *http.Client
}

func NewDiscordWebhook(url string) *DiscordWebhook {
	return &DiscordWebhook{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordWebhook) Name() string {
	return "discord"
}

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Image       *discordImage  `json:"image,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordImage struct {
	URL string `json:"url"`
}

func (d *DiscordWebhook) Deliver(ctx context.Context, a Announcement) error {
	embed := discordEmbed{
		Title:       a.Title,
		Description: a.Body,
		URL:         a.MarketplaceURL,
		Color:       a.Color,
	}
	if a.Marketplace != "" {
		embed.Fields = append(embed.Fields, discordField{
			Name:   "Marketplace",
			Value:  fmt.Sprintf("[%s](%s)", a.Marketplace, a.MarketplaceURL),
			Inline: true,
		})
	}
	if a.ExplorerURL != "" {
		embed.Fields = append(embed.Fields, discordField{
			Name:   "Transaction",
			Value:  fmt.Sprintf("[Etherscan](%s)", a.ExplorerURL),
			Inline: true,
		})
	}
	if a.ImageURL != "" {
		embed.Image = &discordImage{URL: a.ImageURL}
	}

	body, err := json.Marshal(discordPayload{
		Username: webhookBotName,
		Embeds:   []discordEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
