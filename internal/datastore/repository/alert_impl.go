package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/errors"
)

// moduleStock is the only module whose alerts the engine evaluates.
const moduleStock = "stock"

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// ListAlerts returns alerts matching the filter, oldest first.
func (r *alertRepository) ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.Alert, error) {
	var alerts []entities.Alert
	query := r.db.WithContext(ctx).Preload("User")

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Module != "" {
		query = query.Where("module = ?", filter.Module)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if err := query.Order("id ASC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// GetAlert returns a single alert with its owner.
// Returns ErrAlertNotFound if the alert does not exist.
func (r *alertRepository) GetAlert(ctx context.Context, id uint) (*entities.Alert, error) {
	var alert entities.Alert
	if err := r.db.WithContext(ctx).Preload("User").First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return &alert, nil
}

// CreateAlert inserts a new alert. The owner association is never written.
func (r *alertRepository) CreateAlert(ctx context.Context, alert *entities.Alert) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// UpdateAlert replaces every column of an existing alert.
func (r *alertRepository) UpdateAlert(ctx context.Context, alert *entities.Alert) error {
	if alert.ID == 0 {
		return fmt.Errorf("failed to update alert: missing alert ID")
	}
	result := r.db.WithContext(ctx).Select("*").Omit("created_at", clause.Associations).
		Where("id = ?", alert.ID).Updates(alert)
	if result.Error != nil {
		return fmt.Errorf("failed to update alert %d: %w", alert.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// DeleteAlert deletes an alert; notifications and states cascade.
func (r *alertRepository) DeleteAlert(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *alertRepository) ToggleAlert(ctx context.Context, id uint) (*entities.Alert, error) {
	var alert entities.Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&alert, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return fmt.Errorf("failed to load alert %d: %w", id, err)
		}
		alert.IsActive = !alert.IsActive
		if err := tx.Model(&alert).Update("is_active", alert.IsActive).Error; err != nil {
			return fmt.Errorf("failed to toggle alert %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) GetActiveStockAlerts(ctx context.Context) ([]entities.Alert, error) {
	active := true
	return r.ListAlerts(ctx, AlertFilter{Module: moduleStock, IsActive: &active})
}

func (r *alertRepository) GetOrCreateAlert(ctx context.Context, alert *entities.Alert) (*entities.Alert, bool, error) {
	var existing entities.Alert
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("name = ? AND user_id = ? AND module = ?", alert.Name, alert.UserID, alert.Module).
			Order("id ASC").First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up alert %q: %w", alert.Name, err)
		}
		if err := tx.Omit(clause.Associations).Create(alert).Error; err != nil {
			return fmt.Errorf("failed to create alert %q: %w", alert.Name, err)
		}
		existing = *alert
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &existing, created, nil
}
