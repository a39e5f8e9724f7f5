package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"mail-courier/internal/config"
)

// Bot sends PDF artifacts to a single fixed chat.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New authorizes the bot against the Telegram API.
func New(cfg config.TelegramConfig) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	logrus.Infof("Telegram bot authorized as %s", api.Self.UserName)

	return &Bot{
		api:    api,
		chatID: cfg.ChatID,
	}, nil
}

// SendDocument uploads the file at path as a document with the given display
// name. The .pdf extension is kept so chat clients preview it properly.
func (b *Bot) SendDocument(ctx context.Context, path, displayName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := displayName
	if name == "" {
		name = filepath.Base(path)
	}
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}

	doc := tgbotapi.NewDocument(b.chatID, tgbotapi.FileReader{Name: name, Reader: f})
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send document %s: %w", path, err)
	}
	return nil
}
