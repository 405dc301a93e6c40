package models

import (
	"time"
)

// CompletionStatus enumeration for per-module progress.
type CompletionStatus string

const (
	ProgressNotStarted CompletionStatus = "NOT_STARTED"
	ProgressInProgress CompletionStatus = "IN_PROGRESS"
	ProgressCompleted  CompletionStatus = "COMPLETED"
)

func (cs CompletionStatus) IsValid() bool {
	switch cs {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	}
	return false
}

// UserProgress tracks a user's completion state for a module. Unique per
// (user, module); mutated in place as the user progresses. A passing
// assessment submission jumps it straight to COMPLETED regardless of the
// prior state.
type UserProgress struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"size:100;not null;uniqueIndex:idx_progress_user_module" validate:"required"`
	ModuleID uint   `json:"module_id" gorm:"not null;uniqueIndex:idx_progress_user_module" validate:"required"`

	CompletionStatus   CompletionStatus `json:"completion_status" gorm:"size:16;not null;default:'NOT_STARTED'"`
	ProgressPercentage float64          `json:"progress_percentage" gorm:"not null;default:0" validate:"min=0,max=100"`
	PointsEarned       int              `json:"points_earned" gorm:"not null;default:0"`

	LastAccessedAt time.Time  `json:"last_accessed_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Module *Module `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
