package models

import (
	"time"
)

// UserAssessmentAttempt is one immutable record of a user's submission
// against an assessment. A new submission always creates a new attempt;
// prior attempts are never mutated.
type UserAssessmentAttempt struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	UserID       string `json:"user_id" gorm:"size:100;not null;index:idx_attempts_user" validate:"required"`
	AssessmentID uint   `json:"assessment_id" gorm:"not null;index" validate:"required"`

	StartedAt   time.Time `json:"started_at" gorm:"not null"`
	CompletedAt time.Time `json:"completed_at" gorm:"not null;index:idx_attempts_completed"`

	// Score is a percentage in [0,100].
	Score    float64 `json:"score" gorm:"not null;default:0"`
	IsPassed bool    `json:"is_passed" gorm:"not null;default:false"`

	// AttemptNumber is 1-based per (user, assessment).
	AttemptNumber    int `json:"attempt_number" gorm:"not null;default:1"`
	TimeSpentSeconds int `json:"time_spent_seconds" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Assessment *Assessment  `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	Answers    []UserAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (UserAssessmentAttempt) TableName() string {
	return "user_assessment_attempts"
}

// UserAnswer records one submitted answer within an attempt. AnswerID is nil
// for free-text submissions; TextAnswer is nil for choice selections.
type UserAnswer struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	AttemptID  uint    `json:"attempt_id" gorm:"not null;index" validate:"required"`
	UserID     string  `json:"user_id" gorm:"size:100;not null;index" validate:"required"`
	QuestionID uint    `json:"question_id" gorm:"not null;index" validate:"required"`
	AnswerID   *uint   `json:"answer_id,omitempty" gorm:"index"`
	TextAnswer *string `json:"text_answer,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	Answer   *Answer   `json:"answer,omitempty" gorm:"foreignKey:AnswerID"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}
