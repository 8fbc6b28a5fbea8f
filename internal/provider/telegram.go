package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
	tele "gopkg.in/telebot.v4"
)

const (
	defaultTelegramURL = "https://api.telegram.org"
	telegramMaxText    = 4096
)

// chatRecipient accepts numeric ids as well as @channel usernames.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// TelegramAdapter sends plain text through the Bot API.
type TelegramAdapter struct {
	timeout time.Duration
	// newBot is swapped in tests.
	newBot func(tele.Settings) (*tele.Bot, error)
}

func NewTelegramAdapter(timeout time.Duration) *TelegramAdapter {
	return &TelegramAdapter{
		timeout: NormalizeTimeout(timeout),
		newBot:  tele.NewBot,
	}
}

func (a *TelegramAdapter) Type() domain.ChannelType { return domain.ChannelTelegram }

func (a *TelegramAdapter) Shape() message.Shape { return message.ShapeText }

func (a *TelegramAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	token, err := requireValue(config, "botToken", "Telegram bot token")
	if err != nil {
		return err
	}
	chatID, err := requireValue(config, "chatId", "Telegram chat id")
	if err != nil {
		return err
	}
	apiURL, err := optionalURL(config, "apiUrl", "Telegram API URL", defaultTelegramURL)
	if err != nil {
		return err
	}

	timeout := a.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return &ProviderError{Message: "request timed out", Cause: context.DeadlineExceeded}
	}

	bot, err := a.newBot(tele.Settings{
		URL:     strings.TrimRight(apiURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return Skip("Telegram bot could not be initialised", err)
	}

	_, err = bot.Send(chatRecipient(chatID), message.Clamp(msg.Text, telegramMaxText), &tele.SendOptions{
		DisableNotification:   optionalBool(config, "sendSilently"),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return telegramError(err)
	}
	return nil
}

func telegramError(err error) error {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Description, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return &ProviderError{Message: "request timed out", Cause: err}
	}
	return &ProviderError{Message: "request failed", Cause: err}
}
