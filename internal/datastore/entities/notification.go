package entities

import "time"

// Notification types.
const (
	NotificationTypeAlertTriggered = "alert_triggered"
	NotificationTypeAlertUpdated   = "alert_updated"
	NotificationTypeSystem         = "system"
)

// Notification is an in-app message. The engine only appends; users flip IsRead.
// AlertID and ProductID identify the (alert, product) pair the message is about.
type Notification struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	AlertID          *uint      `gorm:"index:idx_notifications_pair,priority:1" json:"alert_id"`
	ProductID        *uint      `gorm:"index:idx_notifications_pair,priority:2" json:"product_id"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Message          string     `gorm:"type:text;not null" json:"message"`
	NotificationType string     `gorm:"size:50;not null;index:idx_notifications_pair,priority:3" json:"notification_type"`
	IsRead           bool       `gorm:"not null;index:idx_notifications_user_read,priority:2" json:"is_read"`
	ReadAt           *time.Time `json:"read_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index:idx_notifications_pair,priority:4" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	User             *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Alert            *Alert     `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE" json:"alert,omitempty"`
}

// TableName returns the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}
