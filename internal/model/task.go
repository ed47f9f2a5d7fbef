package model

import "time"

const (
	// DateLayout is the only accepted due_date format.
	DateLayout = "2006-01-02"
	// DefaultEstimatedTime is stored when a task has no estimate.
	DefaultEstimatedTime = "30 minutes"
	// MaxProgress marks a task as complete.
	MaxProgress = 100
)

// Task represents a single item in the user's list.
type Task struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"-"`
	CategoryID    *uint     `gorm:"index" json:"-"`
	Category      *Category `gorm:"foreignKey:CategoryID" json:"category"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	EstimatedTime string    `gorm:"size:50" json:"estimated_time"`
	DueDate       string    `gorm:"size:10;index" json:"due_date"`
	Progress      int       `gorm:"default:0" json:"progress"`
	IsDeleted     bool      `gorm:"default:false" json:"is_deleted"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// IsActive reports whether the task shows up in the active list.
func (t Task) IsActive() bool {
	return !t.IsDeleted && t.Progress < MaxProgress
}

// ClampProgress bounds p to [0, MaxProgress].
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > MaxProgress:
		return MaxProgress
	default:
		return p
	}
}

// NormalizeDueDate returns raw when it is a valid YYYY-MM-DD date and today's
// date (in now's location) otherwise.
func NormalizeDueDate(raw string, now time.Time) string {
	if _, err := time.Parse(DateLayout, raw); err == nil {
		return raw
	}
	return now.Format(DateLayout)
}
