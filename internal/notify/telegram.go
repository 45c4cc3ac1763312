package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Telegram delivers announcements to a Telegram chat.
type Telegram struct {
	bot    *tgbot.Bot
	chatID string
}

func NewTelegram(token, chatID string) (*Telegram, error) {
	b, err := tgbot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Deliver(ctx context.Context, a Announcement) error {
	text := fmt.Sprintf("<b>%s</b>\n%s", a.Title, a.Body)
	if a.MarketplaceURL != "" {
		text += fmt.Sprintf("\n<a href=\"%s\">%s</a>", a.MarketplaceURL, a.Marketplace)
	}
	if a.ExplorerURL != "" {
		text += fmt.Sprintf("\n<a href=\"%s\">Etherscan</a>", a.ExplorerURL)
	}

	if a.ImageURL != "" {
		_, err := t.bot.SendPhoto(ctx, &tgbot.SendPhotoParams{
			ChatID:    t.chatID,
			Photo:     &models.InputFileString{Data: a.ImageURL},
			Caption:   text,
			ParseMode: models.ParseModeHTML,
		})
		return err
	}

	_, err := t.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	return err
}
