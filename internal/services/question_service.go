package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validate
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validate) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *questionService) Create(ctx context.Context, userID string, assessmentID uint, req CreateQuestionRequest) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("request", err.Error(), nil)
	}
	if errs := validateQuestionInvariants(req); len(errs) > 0 {
		return nil, errs
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if err := s.checkAuthorPermission(ctx, userID, assessment, "add_question"); err != nil {
		return nil, err
	}

	question := buildQuestionFromRequest(req, assessmentID, req.OrderIndex)
	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created",
		"question_id", question.ID, "assessment_id", assessmentID, "user_id", userID)
	return question, nil
}

func (s *questionService) Update(ctx context.Context, userID string, id uint, req UpdateQuestionRequest) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("request", err.Error(), nil)
	}

	question, err := s.repo.Question().GetByIDWithAnswers(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, question.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkAuthorPermission(ctx, userID, assessment, "update_question"); err != nil {
		return nil, err
	}

	if req.QuestionText != nil {
		question.QuestionText = *req.QuestionText
	}
	if req.DifficultyLevel != nil {
		question.DifficultyLevel = *req.DifficultyLevel
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.OrderIndex != nil {
		question.OrderIndex = *req.OrderIndex
	}

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated", "question_id", id, "user_id", userID)
	return question, nil
}

func (s *questionService) Delete(ctx context.Context, userID string, id uint) error {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, question.AssessmentID)
	if err != nil {
		return fmt.Errorf("failed to get assessment: %w", err)
	}
	if err := s.checkAuthorPermission(ctx, userID, assessment, "delete_question"); err != nil {
		return err
	}

	if err := s.repo.Question().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted", "question_id", id, "user_id", userID)
	return nil
}

func (s *questionService) GetByAssessment(ctx context.Context, assessmentID uint) ([]*models.Question, error) {
	questions, err := s.repo.Question().GetByAssessment(ctx, nil, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

func (s *questionService) checkAuthorPermission(ctx context.Context, userID string, assessment *models.Assessment, operation string) error {
	if assessment.CreatedBy != nil && *assessment.CreatedBy == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	if !user.Role.CanAuthor() {
		return NewPermissionError(userID, "question", operation, "not owner or insufficient role")
	}

	return nil
}

// validateQuestionInvariants enforces answer-shape rules: choice questions
// need at least two answers with at least one correct, TRUE_FALSE exactly
// two.
func validateQuestionInvariants(req CreateQuestionRequest) ValidationErrors {
	var errs ValidationErrors

	if req.QuestionType.IsChoiceType() {
		if len(req.Answers) < 2 {
			errs = append(errs, ValidationError{
				Field:   "answers",
				Message: "choice questions require at least 2 answers",
				Value:   len(req.Answers),
			})
		}

		correct := 0
		for _, a := range req.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		if correct < 1 {
			errs = append(errs, ValidationError{
				Field:   "answers",
				Message: "choice questions require at least 1 correct answer",
				Value:   correct,
			})
		}
	}

	if req.QuestionType == models.TrueFalse && len(req.Answers) != 2 {
		errs = append(errs, ValidationError{
			Field:   "answers",
			Message: "true/false questions require exactly 2 answers",
			Value:   len(req.Answers),
		})
	}

	return errs
}

func buildQuestionFromRequest(req CreateQuestionRequest, assessmentID uint, orderIndex int) *models.Question {
	question := &models.Question{
		QuestionText:    req.QuestionText,
		QuestionType:    req.QuestionType,
		DifficultyLevel: req.DifficultyLevel,
		Points:          req.Points,
		OrderIndex:      orderIndex,
		AssessmentID:    assessmentID,
	}

	question.Answers = make([]models.Answer, len(req.Answers))
	for i, a := range req.Answers {
		question.Answers[i] = models.Answer{
			AnswerText:  a.AnswerText,
			IsCorrect:   a.IsCorrect,
			Explanation: a.Explanation,
			OrderIndex:  a.OrderIndex,
		}
	}

	return question
}
