package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionType enumeration
type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	FillBlank      QuestionType = "FILL_BLANK"
)

func (qt QuestionType) IsValid() bool {
	switch qt {
	case MultipleChoice, SingleChoice, TrueFalse, FillBlank:
		return true
	}
	return false
}

// IsChoiceType reports whether the question is answered by selecting one of
// its stored answers rather than entering free text.
func (qt QuestionType) IsChoiceType() bool {
	switch qt {
	case MultipleChoice, SingleChoice, TrueFalse:
		return true
	}
	return false
}

// DifficultyLevel enumeration, totally ordered BEGINNER < INTERMEDIATE < ADVANCED < EXPERT.
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "BEGINNER"
	DifficultyIntermediate DifficultyLevel = "INTERMEDIATE"
	DifficultyAdvanced     DifficultyLevel = "ADVANCED"
	DifficultyExpert       DifficultyLevel = "EXPERT"
)

var difficultyRank = map[DifficultyLevel]int{
	DifficultyBeginner:     0,
	DifficultyIntermediate: 1,
	DifficultyAdvanced:     2,
	DifficultyExpert:       3,
}

var difficultyPoints = map[DifficultyLevel]int{
	DifficultyBeginner:     5,
	DifficultyIntermediate: 10,
	DifficultyAdvanced:     15,
	DifficultyExpert:       20,
}

func (dl DifficultyLevel) IsValid() bool {
	_, ok := difficultyRank[dl]
	return ok
}

// Rank returns the position of the level in the difficulty ordering.
func (dl DifficultyLevel) Rank() int {
	return difficultyRank[dl]
}

// DefaultPoints returns the point value assigned to generated questions of
// this difficulty.
func (dl DifficultyLevel) DefaultPoints() int {
	if p, ok := difficultyPoints[dl]; ok {
		return p
	}
	return difficultyPoints[DifficultyBeginner]
}

// Question belongs to an assessment and owns an ordered set of answers.
type Question struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	QuestionText    string          `json:"question_text" gorm:"type:text;not null" validate:"required,min=1"`
	QuestionType    QuestionType    `json:"question_type" gorm:"size:32;not null;index" validate:"required,question_type"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level" gorm:"size:16;not null;index" validate:"required,difficulty_level"`
	Points          int             `json:"points" gorm:"not null;default:1" validate:"min=1,max=100"`

	// OrderIndex defines display and grading order within the assessment.
	OrderIndex int `json:"order_index" gorm:"not null;default:0"`

	AssessmentID uint `json:"assessment_id" gorm:"not null;index" validate:"required"`

	// Metadata holds optional authoring data (tags, source reference).
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment *Assessment `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	Answers    []Answer    `json:"answers,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}

// Answer is one selectable option belonging to a question.
// Choice-type questions must carry at least two answers with at least one
// marked correct; TRUE_FALSE carries exactly two.
type Answer struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	AnswerText  string  `json:"answer_text" gorm:"type:text;not null" validate:"required,min=1"`
	IsCorrect   bool    `json:"is_correct" gorm:"not null;default:false"`
	Explanation *string `json:"explanation,omitempty" gorm:"type:text"`
	OrderIndex  int     `json:"order_index" gorm:"not null;default:0"`
	QuestionID  uint    `json:"question_id" gorm:"not null;index" validate:"required"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}
