package repository

import (
	"context"
	"time"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// NotificationRepository stores notifications and the alert state transitions
// they describe.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *entities.Notification) error
	// RecordTransition appends n and moves the (n.AlertID, n.ProductID) state
	// to status in one transaction. n.AlertID and n.ProductID must be set.
	RecordTransition(ctx context.Context, n *entities.Notification, status string) error
	// LatestForPair returns the newest notification matching q, or
	// ErrNotificationNotFound.
	LatestForPair(ctx context.Context, q PairQuery) (*entities.Notification, error)

	GetNotification(ctx context.Context, id uint) (*entities.Notification, error)
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]entities.Notification, int64, error)
	MarkAsRead(ctx context.Context, id uint) error
	MarkAsUnread(ctx context.Context, id uint) error
	MarkAllAsRead(ctx context.Context, userID uint) (int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	DeleteNotification(ctx context.Context, id uint) error
	// DeleteReadBefore removes notifications read before the cutoff.
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// PairQuery selects notifications for one (alert, product) pair. Rows written
// before product_id was recorded are matched through ProductToken in the
// message body.
type PairQuery struct {
	AlertID      uint
	ProductID    uint
	Type         string
	ProductToken string
	// Marker, when set, must appear in the message.
	Marker string
}

// NotificationFilter controls inbox listings.
type NotificationFilter struct {
	UserID  uint
	AlertID uint
	IsRead  *bool
	Type    string
	Limit   int
	Offset  int
}

// AlertStateRepository reads per-pair alert state.
type AlertStateRepository interface {
	// GetState returns ErrAlertStateNotFound when the pair never triggered.
	GetState(ctx context.Context, alertID, productID uint) (*entities.AlertState, error)
	ListStates(ctx context.Context, alertID uint) ([]entities.AlertState, error)
}
