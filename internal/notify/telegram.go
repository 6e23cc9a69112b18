// Package notify pushes staff notifications about new reservations.
package notify

import (
	"context"
	"fmt"

	"amaze/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram sends a message to the staff chat for every new reservation.
// Delivery is best effort; a failed send is logged and never fails the
// booking.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

// NewTelegram authenticates the bot and binds it to the staff chat.
func NewTelegram(token string, chatID int64, logger *zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info().Str("bot", api.Self.UserName).Msg("telegram notifier ready")
	return &Telegram{bot: api, chatID: chatID, log: logger}, nil
}

// NotifyReservation announces a new booking to the staff chat.
func (t *Telegram) NotifyReservation(ctx context.Context, res *models.Reservation) {
	text := fmt.Sprintf("New reservation\n%s %s\n%s, %s", res.Date, res.Time, res.Name, models.MaskPhone(res.Phone))
	if res.Note != "" {
		text += "\nNote: " + res.Note
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warn().Err(err).Str("booking_id", res.ID).Msg("telegram notification failed")
	}
}
