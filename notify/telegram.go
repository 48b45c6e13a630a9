package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/match-arena/repositories"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramSink pushes notifications through a Telegram bot. Users opt in by
// linking a chat id to their account; unlinked users are silently skipped.
type telegramSink struct {
	bot      *tgbotapi.BotAPI
	userRepo repositories.UserRepository
}

func NewTelegramSink(token string, userRepo repositories.UserRepository) (Sink, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return &telegramSink{bot: bot, userRepo: userRepo}, nil
}

func (s *telegramSink) Notify(ctx context.Context, userID int, title, body string, payload map[string]interface{}) error {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve user %d for telegram delivery: %w", userID, err)
	}
	if user.TelegramChatID == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(*user.TelegramChatID, fmt.Sprintf("%s\n\n%s", title, body))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message to user %d: %w", userID, err)
	}
	return nil
}
