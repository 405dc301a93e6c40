package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/learnhub/assessment-service/internal/models"
)

// New returns a validator with the service's custom rules registered.
func New() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).IsValid()
	})

	v.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.DifficultyLevel(fl.Field().String()).IsValid()
	})

	v.RegisterValidation("completion_status", func(fl validator.FieldLevel) bool {
		return models.CompletionStatus(fl.Field().String()).IsValid()
	})

	return v
}
