package model

import "time"

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#808080"

// Category groups tasks by area (work, shopping, health, etc.).
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_user_category_name,unique;not null" json:"-"`
	Name      string    `gorm:"size:100;index:idx_user_category_name,unique;not null" json:"name"`
	Color     string    `gorm:"size:7;not null;default:'#808080'" json:"color"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
