package alerting

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/notification"
	"github.com/smartalerte/smartalerte/internal/observability/metrics"
)

const defaultDispatchTimeout = 10 * time.Second

// EmailSender delivers one message to several addresses.
type EmailSender interface {
	SendEmail(ctx context.Context, addresses []string, subject, body string) (int, error)
}

// TelegramSender delivers one message to one chat.
type TelegramSender interface {
	SendTelegram(ctx context.Context, chatID, text string) error
}

// EventPublisher publishes machine-readable alert events.
type EventPublisher interface {
	Publish(ctx context.Context, event notification.AlertEvent) error
}

// Channels holds the configured senders. Nil senders are skipped.
type Channels struct {
	Email    EmailSender
	Telegram TelegramSender
	Events   EventPublisher
}

// ChannelsFromService adapts the notification service to Channels.
func ChannelsFromService(svc *notification.Service) Channels {
	var ch Channels
	if svc == nil {
		return ch
	}
	if svc.Email != nil {
		ch.Email = svc.Email
	}
	if svc.Telegram != nil {
		ch.Telegram = svc.Telegram
	}
	if svc.Events != nil {
		ch.Events = svc.Events
	}
	return ch
}

// DispatchReport summarises one fan-out.
type DispatchReport struct {
	Delivered int
	Failed    int
}

// Dispatcher fans a trigger out to the alert's channels. Delivery is best
// effort: failures are logged and counted, never returned.
type Dispatcher struct {
	channels Channels
	timeout  time.Duration
	metrics  *metrics.AlertingMetrics
	log      logger.Logger
}

// NewDispatcher creates a Dispatcher. A non-positive timeout defaults to 10s.
func NewDispatcher(channels Channels, timeout time.Duration, m *metrics.AlertingMetrics, log logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{channels: channels, timeout: timeout, metrics: m, log: log}
}

// Dispatch sends n to every channel listed on alert. Channels run
// concurrently and are joined before returning.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *entities.Alert, product *entities.Product, n *entities.Notification) DispatchReport {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		channel   string
		delivered int
		err       error
	}
	var tasks []func() outcome

	for _, ch := range distinctChannels(alert.NotificationChannels) {
		switch ch {
		case ChannelEmail:
			addresses := EmailRecipients(alert)
			if d.channels.Email == nil || len(addresses) == 0 {
				d.skip(alert, ch)
				continue
			}
			tasks = append(tasks, func() outcome {
				sent, err := d.channels.Email.SendEmail(ctx, addresses, emailSubject(alert), n.Message)
				return outcome{channel: ch, delivered: sent, err: err}
			})
		case ChannelTelegram:
			chats := TelegramRecipients(alert)
			if d.channels.Telegram == nil || len(chats) == 0 {
				d.skip(alert, ch)
				continue
			}
			for _, chat := range chats {
				tasks = append(tasks, func() outcome {
					err := d.channels.Telegram.SendTelegram(ctx, chat, n.Title+"\n\n"+n.Message)
					return outcome{channel: ch, delivered: boolToInt(err == nil), err: err}
				})
			}
		case ChannelMQTT:
			if d.channels.Events == nil {
				d.skip(alert, ch)
				continue
			}
			event := alertEvent(alert, product, n)
			tasks = append(tasks, func() outcome {
				err := d.channels.Events.Publish(ctx, event)
				return outcome{channel: ch, delivered: boolToInt(err == nil), err: err}
			})
		default:
			d.log.Debug("ignoring unknown notification channel",
				logger.String("channel", ch),
				logger.Uint64("alert_id", uint64(alert.ID)))
		}
	}

	results := make([]outcome, len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = task()
			return nil
		})
	}
	_ = g.Wait()

	var report DispatchReport
	for _, r := range results {
		d.metrics.RecordDispatch(r.channel, r.err)
		if r.err != nil {
			report.Failed++
			d.log.Warn("alert dispatch failed",
				logger.String("channel", r.channel),
				logger.Uint64("alert_id", uint64(alert.ID)),
				logger.Uint64("product_id", uint64(product.ID)),
				logger.Error(r.err))
			continue
		}
		report.Delivered += r.delivered
	}
	return report
}

// SendCreationConfirmation emails the owner that alert was created. It is a
// no-op without an email sender, an owner address or an enabled channel.
func (d *Dispatcher) SendCreationConfirmation(ctx context.Context, alert *entities.Alert, owner *entities.User) error {
	if owner == nil || strings.TrimSpace(owner.Email) == "" || d.channels.Email == nil {
		d.metrics.RecordDispatchSkipped(ChannelEmail)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.channels.Email.SendEmail(ctx, []string{strings.TrimSpace(owner.Email)},
		creationSubject, buildCreationMessage(alert, owner))
	if errors.Is(err, notification.ErrChannelDisabled) {
		d.metrics.RecordDispatchSkipped(ChannelEmail)
		return nil
	}
	d.metrics.RecordDispatch(ChannelEmail, err)
	return err
}

func (d *Dispatcher) skip(alert *entities.Alert, channel string) {
	d.metrics.RecordDispatchSkipped(channel)
	d.log.Debug("channel has no sender or recipients",
		logger.String("channel", channel),
		logger.Uint64("alert_id", uint64(alert.ID)))
}

func distinctChannels(channels []string) []string {
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		if ch = normalizeChannel(ch); ch != "" && !slices.Contains(out, ch) {
			out = append(out, ch)
		}
	}
	return out
}

var telegramChatID = regexp.MustCompile(`^-?[0-9]+$`)

func isTelegramHandle(r string) bool {
	return strings.HasPrefix(r, "@") && len(r) > 1
}

// EmailRecipients returns the alert's email addresses plus the owner's,
// de-duplicated and sorted. Telegram @handles are excluded.
func EmailRecipients(alert *entities.Alert) []string {
	var out []string
	for _, r := range alert.Recipients {
		r = strings.TrimSpace(r)
		if strings.Contains(r, "@") && !isTelegramHandle(r) {
			out = append(out, r)
		}
	}
	if email := strings.TrimSpace(alert.OwnerEmail()); email != "" {
		out = append(out, email)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// TelegramRecipients returns @handles and numeric chat ids from the
// recipients plus the owner's chat id, de-duplicated and sorted.
func TelegramRecipients(alert *entities.Alert) []string {
	var out []string
	for _, r := range alert.Recipients {
		r = strings.TrimSpace(r)
		if (isTelegramHandle(r) && !strings.Contains(r[1:], "@")) || telegramChatID.MatchString(r) {
			out = append(out, r)
		}
	}
	if alert.User != nil {
		if chat := strings.TrimSpace(alert.User.TelegramChatID); chat != "" {
			out = append(out, chat)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func alertEvent(alert *entities.Alert, product *entities.Product, n *entities.Notification) notification.AlertEvent {
	return notification.AlertEvent{
		ID:             uuid.NewString(),
		Kind:           notification.EventTriggered,
		AlertID:        alert.ID,
		AlertName:      alert.Name,
		Severity:       alert.Severity,
		ProductID:      product.ID,
		ProductName:    product.Name,
		SKU:            product.SKU,
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		OccurredAt:     n.CreatedAt,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
