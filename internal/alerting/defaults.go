package alerting

import (
	"context"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

// DefaultStockAlert returns the automatic low-stock rule owned by admin:
// quantity below min_quantity on any product, emailed immediately.
func DefaultStockAlert(admin *entities.User) *entities.Alert {
	recipients := []string{}
	if admin.Email != "" {
		recipients = append(recipients, admin.Email)
	}
	return &entities.Alert{
		UserID:               admin.ID,
		Name:                 DefaultAlertName,
		Description:          "Alerte automatique déclenchée quand un produit a une quantité inférieure au minimum",
		Module:               ModuleStock,
		Severity:             SeverityHigh,
		ConditionType:        ConditionThreshold,
		ConditionField:       string(FieldQuantity),
		ComparisonOperator:   OperatorLessThan,
		CompareTo:            CompareToMinStock,
		Categories:           []string{},
		NotificationChannels: []string{ChannelEmail},
		Recipients:           recipients,
		Schedule:             ScheduleImmediate,
		RepeatUntilResolved:  false,
		IsActive:             true,
		Tags:                 []string{},
	}
}

// EnsureDefaultStockAlert creates the automatic low-stock alert for the
// first staff superuser (else the first staff user) unless it already
// exists. Without such a user nothing is created and nil is returned.
func (e *Engine) EnsureDefaultStockAlert(ctx context.Context) (*entities.Alert, error) {
	admin, err := e.users.FindAdmin(ctx)
	if errors.Is(err, repository.ErrUserNotFound) {
		e.log.Warn("no staff user found, default stock alert not created")
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("operation", "find_admin").
			Build()
	}

	alert, created, err := e.alerts.GetOrCreateAlert(ctx, DefaultStockAlert(admin))
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("operation", "ensure_default_alert").
			Context("user_id", admin.ID).
			Build()
	}
	if created {
		e.InvalidateRules()
		e.log.Info("created default stock alert",
			logger.Uint64("alert_id", uint64(alert.ID)),
			logger.Uint64("user_id", uint64(admin.ID)))
	}
	if alert.User == nil {
		alert.User = admin
	}
	return alert, nil
}
