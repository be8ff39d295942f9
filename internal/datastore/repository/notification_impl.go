package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/errors"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *entities.Notification) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) RecordTransition(ctx context.Context, n *entities.Notification, status string) error {
	if n.AlertID == nil || n.ProductID == nil {
		return fmt.Errorf("failed to record transition: notification has no alert/product pair")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(n).Error; err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		at := n.CreatedAt
		state := entities.AlertState{
			AlertID:   *n.AlertID,
			ProductID: *n.ProductID,
			Status:    status,
		}
		columns := []string{"status", "updated_at"}
		switch status {
		case entities.AlertStatusUnresolved:
			state.LastTriggerAt = &at
			columns = append(columns, "last_trigger_at")
		case entities.AlertStatusResolved:
			state.LastResolvedAt = &at
			columns = append(columns, "last_resolved_at")
		default:
			return fmt.Errorf("failed to record transition: unknown status %q", status)
		}

		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alert_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(&state).Error
		if err != nil {
			return fmt.Errorf("failed to upsert alert state (%d, %d): %w", state.AlertID, state.ProductID, err)
		}
		return nil
	})
}

func (r *notificationRepository) LatestForPair(ctx context.Context, q PairQuery) (*entities.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("alert_id = ? AND notification_type = ?", q.AlertID, q.Type)
	if q.ProductToken != "" {
		query = query.Where("(product_id = ? OR (product_id IS NULL AND message LIKE ?))",
			q.ProductID, "%"+q.ProductToken+"%")
	} else {
		query = query.Where("product_id = ?", q.ProductID)
	}
	if q.Marker != "" {
		query = query.Where("message LIKE ?", "%"+q.Marker+"%")
	}

	var n entities.Notification
	if err := query.Order("created_at DESC").Order("id DESC").First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get latest notification for alert %d: %w", q.AlertID, err)
	}
	return &n, nil
}

func (r *notificationRepository) GetNotification(ctx context.Context, id uint) (*entities.Notification, error) {
	var n entities.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification %d: %w", id, err)
	}
	return &n, nil
}

// ListNotifications returns matching notifications newest first with the total count.
func (r *notificationRepository) ListNotifications(ctx context.Context, filter NotificationFilter) ([]entities.Notification, int64, error) {
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.UserID != 0 {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.AlertID != 0 {
			q = q.Where("alert_id = ?", filter.AlertID)
		}
		if filter.IsRead != nil {
			q = q.Where("is_read = ?", *filter.IsRead)
		}
		if filter.Type != "" {
			q = q.Where("notification_type = ?", filter.Type)
		}
		return q
	}

	var total int64
	if err := apply(r.db.WithContext(ctx).Model(&entities.Notification{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := apply(r.db.WithContext(ctx)).Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var items []entities.Notification
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, total, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id uint) error {
	now := time.Now()
	return r.setRead(ctx, id, map[string]any{"is_read": true, "read_at": &now})
}

func (r *notificationRepository) MarkAsUnread(ctx context.Context, id uint) error {
	return r.setRead(ctx, id, map[string]any{"is_read": false, "read_at": nil})
}

func (r *notificationRepository) setRead(ctx context.Context, id uint, values map[string]any) error {
	result := r.db.WithContext(ctx).Model(&entities.Notification{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update notification %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entities.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read for user %d: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications for user %d: %w", userID, err)
	}
	return count, nil
}

func (r *notificationRepository) DeleteNotification(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Notification{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("is_read = ? AND read_at < ?", true, before).Delete(&entities.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete notifications before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}

type alertStateRepository struct {
	db *gorm.DB
}

// NewAlertStateRepository creates a new AlertStateRepository.
func NewAlertStateRepository(db *gorm.DB) AlertStateRepository {
	return &alertStateRepository{db: db}
}

func (r *alertStateRepository) GetState(ctx context.Context, alertID, productID uint) (*entities.AlertState, error) {
	var state entities.AlertState
	err := r.db.WithContext(ctx).Where("alert_id = ? AND product_id = ?", alertID, productID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertStateNotFound
		}
		return nil, fmt.Errorf("failed to get alert state (%d, %d): %w", alertID, productID, err)
	}
	return &state, nil
}

func (r *alertStateRepository) ListStates(ctx context.Context, alertID uint) ([]entities.AlertState, error) {
	var states []entities.AlertState
	if err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).Order("product_id ASC").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert states for alert %d: %w", alertID, err)
	}
	return states, nil
}
