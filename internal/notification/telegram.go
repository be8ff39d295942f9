package notification

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"golang.org/x/time/rate"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/errors"
)

const (
	defaultTelegramTimeout = 10 * time.Second
	// Bot API allows about 30 messages per second across all chats.
	defaultTelegramRate = 25
	// Longer texts are rejected by the Bot API.
	maxTelegramMessage = 4096
)

// TelegramSender delivers messages through the shoutrrr telegram service.
type TelegramSender struct {
	settings conf.TelegramSettings
	send     sendFunc
	limiter  *rate.Limiter
}

// NewTelegramSender creates a TelegramSender from bot settings.
func NewTelegramSender(settings conf.TelegramSettings) *TelegramSender {
	if settings.Timeout.Std() <= 0 {
		settings.Timeout = conf.Duration(defaultTelegramTimeout)
	}
	perSecond := settings.RateLimit
	if perSecond <= 0 {
		perSecond = defaultTelegramRate
	}
	return &TelegramSender{
		settings: settings,
		send:     shoutrrrSend,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// SendTelegram delivers text to chatID, which is either a numeric chat id
// or an @channel handle.
func (s *TelegramSender) SendTelegram(ctx context.Context, chatID, text string) error {
	if !s.settings.Enabled {
		return ErrChannelDisabled
	}
	if s.settings.BotToken == "" {
		return errors.Newf("telegram bot token is not configured").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout.Std())
	defer cancel()

	rawURL := s.serviceURL(chatID)
	message := truncate(text, maxTelegramMessage)

	done := make(chan error, 1)
	go func() { done <- s.send(rawURL, message, types.Params{}) }()

	select {
	case err := <-done:
		if err != nil {
			return s.deliveryError(chatID, redactToken(err, s.settings.BotToken))
		}
		return nil
	case <-ctx.Done():
		return s.deliveryError(chatID, ctx.Err())
	}
}

// serviceURL renders telegram://<bot id>:<secret>@telegram?chats=<chat>.
// The bot token already has the user:password shape shoutrrr expects.
func (s *TelegramSender) serviceURL(chatID string) string {
	botID, secret, _ := strings.Cut(s.settings.BotToken, ":")
	q := url.Values{}
	q.Set("chats", chatID)
	q.Set("preview", "No")
	u := url.URL{
		Scheme:   "telegram",
		User:     url.UserPassword(botID, secret),
		Host:     "telegram",
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (s *TelegramSender) deliveryError(chatID string, err error) error {
	return errors.New(err).
		Component("notification").
		Category(errors.CategoryNotification).
		Context("channel", "telegram").
		Context("chat_id", chatID).
		Build()
}

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return errors.NewStd(strings.ReplaceAll(msg, token, "<redacted>"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
