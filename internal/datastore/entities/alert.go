package entities

import "time"

// Alert is a user-defined rule evaluated against stock levels.
// A rule with ProductID set only ever concerns that product; Categories and
// ProductID filters are ANDed. Empty Categories means no category filter.
type Alert struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;index" json:"user_id"`
	User                 *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Name                 string    `gorm:"size:255;not null;index" json:"name"`
	Description          string    `gorm:"type:text" json:"description"`
	Module               string    `gorm:"size:20;not null;index" json:"module"`
	Severity             string    `gorm:"size:20;not null;index" json:"severity"`
	ConditionType        string    `gorm:"size:50;not null" json:"condition_type"`
	ConditionField       string    `gorm:"size:50;not null" json:"condition_field"`
	ComparisonOperator   string    `gorm:"size:20;not null" json:"comparison_operator"`
	ThresholdValue       *string   `gorm:"size:255" json:"threshold_value"`
	CompareTo            string    `gorm:"size:50" json:"compare_to"`
	Categories           []string  `gorm:"serializer:json;type:text" json:"categories"`
	ProductID            *uint     `gorm:"index" json:"product_id"`
	NotificationChannels []string  `gorm:"serializer:json;type:text" json:"notification_channels"`
	Recipients           []string  `gorm:"serializer:json;type:text" json:"recipients"`
	Schedule             string    `gorm:"size:20;not null" json:"schedule"`
	CustomSchedule       string    `gorm:"size:255" json:"custom_schedule"`
	RepeatUntilResolved  bool      `gorm:"not null" json:"repeat_until_resolved"`
	IsActive             bool      `gorm:"not null;index" json:"is_active"`
	Tags                 []string  `gorm:"serializer:json;type:text" json:"tags"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Alert) TableName() string {
	return "alerts"
}

// Threshold returns the literal threshold or "" when unset.
func (a *Alert) Threshold() string {
	if a.ThresholdValue == nil {
		return ""
	}
	return *a.ThresholdValue
}

// OwnerEmail returns the owning user's email when the association is loaded.
func (a *Alert) OwnerEmail() string {
	if a.User == nil {
		return ""
	}
	return a.User.Email
}
