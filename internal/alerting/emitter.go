package alerting

import (
	"context"
	"time"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/observability/metrics"
)

// Emitter persists trigger and resolution notifications together with the
// pair state they imply, then hands triggers to the dispatcher.
type Emitter struct {
	notifications repository.NotificationRepository
	tracker       *StateTracker
	policy        *RepeatPolicy
	dispatcher    *Dispatcher
	metrics       *metrics.AlertingMetrics
	now           func() time.Time
	log           logger.Logger
}

// NewEmitter creates an Emitter. now may be nil.
func NewEmitter(
	notifications repository.NotificationRepository,
	tracker *StateTracker,
	dispatcher *Dispatcher,
	m *metrics.AlertingMetrics,
	now func() time.Time,
	log logger.Logger,
) *Emitter {
	if now == nil {
		now = time.Now
	}
	return &Emitter{
		notifications: notifications,
		tracker:       tracker,
		policy:        NewRepeatPolicy(tracker, now),
		dispatcher:    dispatcher,
		metrics:       m,
		now:           now,
		log:           log,
	}
}

// CreateTriggerNotification records a trigger when the repeat policy allows
// it and fans it out. It reports whether a notification was created. Only
// store failures are returned.
func (e *Emitter) CreateTriggerNotification(ctx context.Context, alert *entities.Alert, product *entities.Product, message string) (bool, error) {
	allowed, err := e.policy.ShouldCreateTrigger(ctx, alert, product)
	if err != nil {
		e.metrics.RecordStoreError("read_state")
		return false, err
	}
	if !allowed {
		return false, nil
	}

	n := e.pairNotification(alert, product, triggerTitle(alert, product), message, entities.NotificationTypeAlertTriggered)
	if err := e.notifications.RecordTransition(ctx, n, entities.AlertStatusUnresolved); err != nil {
		e.metrics.RecordStoreError("record_trigger")
		return false, storeError(err, "record_trigger", alert, product)
	}
	e.metrics.RecordTrigger(alert.Severity)
	e.log.Info("alert triggered",
		logger.Uint64("alert_id", uint64(alert.ID)),
		logger.Uint64("product_id", uint64(product.ID)),
		logger.Uint64("notification_id", uint64(n.ID)),
		logger.String("severity", alert.Severity))

	if e.dispatcher != nil {
		e.dispatcher.Dispatch(ctx, alert, product, n)
	}
	return true, nil
}

// CreateResolvedNotification closes an open pair. It is a no-op for pairs
// that are not currently unresolved. Resolutions are not sent to channels.
func (e *Emitter) CreateResolvedNotification(ctx context.Context, alert *entities.Alert, product *entities.Product) (bool, error) {
	open, err := e.tracker.IsCurrentlyUnresolved(ctx, alert, product)
	if err != nil {
		e.metrics.RecordStoreError("read_state")
		return false, err
	}
	if !open {
		return false, nil
	}

	n := e.pairNotification(alert, product, resolvedTitle(alert, product), buildResolvedMessage(alert, product), entities.NotificationTypeSystem)
	if err := e.notifications.RecordTransition(ctx, n, entities.AlertStatusResolved); err != nil {
		e.metrics.RecordStoreError("record_resolution")
		return false, storeError(err, "record_resolution", alert, product)
	}
	e.metrics.RecordResolution()
	e.log.Info("alert resolved",
		logger.Uint64("alert_id", uint64(alert.ID)),
		logger.Uint64("product_id", uint64(product.ID)))
	return true, nil
}

func (e *Emitter) pairNotification(alert *entities.Alert, product *entities.Product, title, message, kind string) *entities.Notification {
	alertID, productID := alert.ID, product.ID
	return &entities.Notification{
		UserID:           alert.UserID,
		AlertID:          &alertID,
		ProductID:        &productID,
		Title:            title,
		Message:          message,
		NotificationType: kind,
		CreatedAt:        e.now().UTC(),
	}
}
