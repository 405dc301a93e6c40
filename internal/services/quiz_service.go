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

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validate
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validate) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// GenerateQuiz assembles a quiz for the user in three tiers: reuse an
// existing assessment that has enough questions at the requested difficulty,
// otherwise clone a random subset from the module-wide question pool into a
// new assessment, otherwise fabricate placeholder content.
func (s *quizService) GenerateQuiz(ctx context.Context, userID string, req GenerateQuizRequest) (*QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("request", err.Error(), nil)
	}

	s.logger.Info("Generating quiz",
		"user_id", userID,
		"module_id", req.ModuleID,
		"difficulty", req.DifficultyLevel,
		"question_count", req.QuestionCount)

	exists, err := s.repo.Module().Exists(ctx, nil, req.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check module: %w", err)
	}
	if !exists {
		return nil, ErrModuleNotFound
	}

	// Tier 1: an existing active assessment with enough questions at the
	// requested difficulty.
	quiz, err := s.generateFromExistingAssessment(ctx, req)
	if err != nil {
		return nil, err
	}
	if quiz != nil {
		s.logger.Info("Quiz served from existing assessment",
			"assessment_id", quiz.AssessmentID, "questions", len(quiz.Questions))
		return quiz, nil
	}

	// Tier 2: clone a random subset of the module-wide pool into a new
	// assessment.
	quiz, err = s.generateFromModulePool(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if quiz != nil {
		s.logger.Info("Quiz generated from module pool",
			"assessment_id", quiz.AssessmentID, "questions", len(quiz.Questions))
		return quiz, nil
	}

	// Tier 3: not enough real content anywhere, fabricate placeholders.
	quiz, err = s.generatePlaceholderQuiz(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Placeholder quiz generated",
		"assessment_id", quiz.AssessmentID, "questions", len(quiz.Questions))
	return quiz, nil
}

func (s *quizService) generateFromExistingAssessment(ctx context.Context, req GenerateQuizRequest) (*QuizResponse, error) {
	isActive := true
	assessments, _, err := s.repo.Assessment().GetByModule(ctx, nil, req.ModuleID, repositories.AssessmentFilters{
		IsActive: &isActive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list module assessments: %w", err)
	}

	for _, assessment := range assessments {
		count, err := s.repo.Question().CountByAssessmentAndDifficulty(ctx, nil, assessment.ID, req.DifficultyLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to count assessment questions: %w", err)
		}
		if count < int64(req.QuestionCount) {
			continue
		}

		questions, err := s.repo.Question().GetByAssessmentAndDifficulty(ctx, nil, assessment.ID, req.DifficultyLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to load assessment questions: %w", err)
		}

		var selected []*models.Question
		if assessment.RandomizeQuestions {
			selected = shuffleQuestions(questions)[:req.QuestionCount]
		} else {
			// Questions arrive ordered by order_index.
			selected = questions[:req.QuestionCount]
		}

		return buildQuizResponse(assessment, selected), nil
	}

	return nil, nil
}

func (s *quizService) generateFromModulePool(ctx context.Context, userID string, req GenerateQuizRequest) (*QuizResponse, error) {
	pool, err := s.repo.Question().GetModulePool(ctx, nil, req.ModuleID, req.DifficultyLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to load module question pool: %w", err)
	}
	if len(pool) < req.QuestionCount {
		return nil, nil
	}

	module, err := s.repo.Module().GetByID(ctx, nil, req.ModuleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	selected := shuffleQuestions(pool)[:req.QuestionCount]

	timeLimit := 15
	assessment := &models.Assessment{
		Title:              fmt.Sprintf("%s Quiz: %s", req.DifficultyLevel, module.Title),
		Description:        fmt.Sprintf("Generated quiz for module %q at %s difficulty", module.Title, req.DifficultyLevel),
		TimeLimit:          &timeLimit,
		PassThreshold:      70,
		IsActive:           true,
		RandomizeQuestions: true,
		ModuleID:           req.ModuleID,
		CreatedBy:          &userID,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Assessment().Create(ctx, nil, assessment); err != nil {
			return err
		}

		clones := make([]*models.Question, len(selected))
		for i, source := range selected {
			clones[i] = cloneQuestion(source, assessment.ID, i)
		}

		if err := txRepo.Question().CreateBatch(ctx, nil, clones); err != nil {
			return err
		}

		assessment.Questions = dereferenceQuestions(clones)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generated assessment: %w", err)
	}

	questions := make([]*models.Question, len(assessment.Questions))
	for i := range assessment.Questions {
		questions[i] = &assessment.Questions[i]
	}

	return buildQuizResponse(assessment, questions), nil
}

func (s *quizService) generatePlaceholderQuiz(ctx context.Context, userID string, req GenerateQuizRequest) (*QuizResponse, error) {
	module, err := s.repo.Module().GetByID(ctx, nil, req.ModuleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	timeLimit := placeholderTimeLimit(req.QuestionCount)
	assessment := &models.Assessment{
		Title:              fmt.Sprintf("%s Practice Quiz: %s", req.DifficultyLevel, module.Title),
		Description:        fmt.Sprintf("Practice quiz for module %q at %s difficulty", module.Title, req.DifficultyLevel),
		TimeLimit:          &timeLimit,
		PassThreshold:      70,
		IsActive:           true,
		RandomizeQuestions: true,
		ModuleID:           req.ModuleID,
		CreatedBy:          &userID,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Assessment().Create(ctx, nil, assessment); err != nil {
			return err
		}

		questions := fabricatePlaceholderQuestions(assessment.ID, module.Title, req.DifficultyLevel, req.QuestionCount)
		if err := txRepo.Question().CreateBatch(ctx, nil, questions); err != nil {
			return err
		}

		assessment.Questions = dereferenceQuestions(questions)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder assessment: %w", err)
	}

	questions := make([]*models.Question, len(assessment.Questions))
	for i := range assessment.Questions {
		questions[i] = &assessment.Questions[i]
	}

	return buildQuizResponse(assessment, questions), nil
}
