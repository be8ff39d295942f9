package repository

import (
	"context"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// AlertRepository handles alert rule persistence.
type AlertRepository interface {
	ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.Alert, error)
	GetAlert(ctx context.Context, id uint) (*entities.Alert, error)
	CreateAlert(ctx context.Context, alert *entities.Alert) error
	UpdateAlert(ctx context.Context, alert *entities.Alert) error
	DeleteAlert(ctx context.Context, id uint) error
	// ToggleAlert flips is_active and returns the updated alert.
	ToggleAlert(ctx context.Context, id uint) (*entities.Alert, error)

	// GetActiveStockAlerts returns active alerts of the stock module with owners loaded.
	GetActiveStockAlerts(ctx context.Context) ([]entities.Alert, error)
	// GetOrCreateAlert looks up an alert by (name, user, module) and creates
	// it from the given template when missing. The bool reports creation.
	GetOrCreateAlert(ctx context.Context, alert *entities.Alert) (*entities.Alert, bool, error)
}

// AlertFilter controls alert listing queries. Zero values mean "any".
type AlertFilter struct {
	UserID    uint
	Module    string
	Severity  string
	ProductID *uint
	IsActive  *bool
}
