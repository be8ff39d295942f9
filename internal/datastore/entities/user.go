package entities

import "time"

// User owns alerts and receives notifications. Account lifecycle is managed elsewhere.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email          string    `gorm:"size:254" json:"email"`
	IsStaff        bool      `gorm:"not null" json:"is_staff"`
	IsSuperuser    bool      `gorm:"not null" json:"is_superuser"`
	TelegramChatID string    `gorm:"size:64" json:"telegram_chat_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}
