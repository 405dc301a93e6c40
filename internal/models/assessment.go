package models

import (
	"time"
)

// Module represents a learning module that assessments belong to.
// Modules are owned by the wider platform; this service reads them and
// writes per-user progress against them.
type Module struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null" validate:"required,min=1,max=255"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Assessments []Assessment `json:"assessments,omitempty" gorm:"foreignKey:ModuleID"`
}

func (Module) TableName() string {
	return "modules"
}

// Assessment is a named, gradable set of questions tied to a module.
type Assessment struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"size:255;not null" validate:"required,min=1,max=255"`
	Description string `json:"description" gorm:"type:text" validate:"max=2000"`

	// TimeLimit is in minutes; nil means unlimited.
	TimeLimit *int `json:"time_limit" gorm:"default:null" validate:"omitempty,min=1,max=300"`

	// PassThreshold is the minimum percentage score for an attempt to pass.
	PassThreshold int `json:"pass_threshold" gorm:"not null;default:70" validate:"min=0,max=100"`

	IsActive           bool `json:"is_active" gorm:"not null;default:true;index"`
	RandomizeQuestions bool `json:"randomize_questions" gorm:"not null;default:false"`

	ModuleID  uint    `json:"module_id" gorm:"not null;index" validate:"required"`
	CreatedBy *string `json:"created_by" gorm:"size:100;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Module    *Module    `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE"`

	// Computed fields (not persisted)
	QuestionCount int `json:"question_count,omitempty" gorm:"-"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// HasTimeLimit reports whether submissions against this assessment are
// bounded in time.
func (a *Assessment) HasTimeLimit() bool {
	return a.TimeLimit != nil && *a.TimeLimit > 0
}
