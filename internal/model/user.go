package model

import "time"

// User owns tasks and categories. Created on first login, never deleted.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email      *string   `gorm:"size:120;uniqueIndex" json:"email,omitempty"`
	TelegramID *int64    `gorm:"uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}
