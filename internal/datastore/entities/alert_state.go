package entities

import "time"

// Alert state values for an (alert, product) pair.
const (
	AlertStatusUnresolved = "unresolved"
	AlertStatusResolved   = "resolved"
)

// AlertState is the current condition state of one (alert, product) pair.
// It is written in the same transaction as the notification describing the
// transition. A missing row means the pair never triggered.
type AlertState struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AlertID        uint       `gorm:"not null;uniqueIndex:idx_alert_states_pair,priority:1" json:"alert_id"`
	ProductID      uint       `gorm:"not null;uniqueIndex:idx_alert_states_pair,priority:2;index" json:"product_id"`
	Status         string     `gorm:"size:20;not null" json:"status"`
	LastTriggerAt  *time.Time `json:"last_trigger_at"`
	LastResolvedAt *time.Time `json:"last_resolved_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Alert          *Alert     `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE" json:"-"`
	Product        *Product   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (AlertState) TableName() string {
	return "alert_states"
}

// IsUnresolved reports whether the pair is currently triggered.
func (s *AlertState) IsUnresolved() bool {
	return s != nil && s.Status == AlertStatusUnresolved
}
