package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/events"
	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

// DefaultFillBlankCreditRatio is the automatic partial credit granted to a
// non-empty free-text answer pending manual review.
const DefaultFillBlankCreditRatio = 0.5

// ScoringConfig tunes grading policy.
type ScoringConfig struct {
	FillBlankCreditRatio float64
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		FillBlankCreditRatio: DefaultFillBlankCreditRatio,
	}
}

type scoringService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validate
	eventPublisher events.EventPublisher
	config         ScoringConfig
}

func NewScoringService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validate, eventPublisher events.EventPublisher) ScoringService {
	return NewScoringServiceWithConfig(repo, db, logger, validator, eventPublisher, DefaultScoringConfig())
}

func NewScoringServiceWithConfig(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validate, eventPublisher events.EventPublisher, config ScoringConfig) ScoringService {
	if config.FillBlankCreditRatio <= 0 || config.FillBlankCreditRatio > 1 {
		config.FillBlankCreditRatio = DefaultFillBlankCreditRatio
	}
	return &scoringService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// SubmitAssessment grades a submission and records it as a new immutable
// attempt. The attempt insert, its answer rows, and the progress upsert all
// run in one transaction; a failure anywhere rolls everything back.
func (s *scoringService) SubmitAssessment(ctx context.Context, userID string, assessmentID uint, req SubmitAssessmentRequest) (*SubmitAssessmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("request", err.Error(), nil)
	}

	s.logger.Info("Submitting assessment",
		"user_id", userID,
		"assessment_id", assessmentID,
		"answers", len(req.Answers),
		"time_spent", req.TimeSpentSeconds)

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}

	outcome := s.gradeSubmission(assessment, req.Answers)

	score := 0.0
	if outcome.totalPoints > 0 {
		score = outcome.earnedPoints / outcome.totalPoints * 100
	}

	withinTimeLimit := true
	if assessment.HasTimeLimit() {
		withinTimeLimit = float64(req.TimeSpentSeconds)/60.0 <= float64(*assessment.TimeLimit)
	}

	// An overtime submission is recorded as failed regardless of score.
	isPassed := score >= float64(assessment.PassThreshold) && withinTimeLimit

	now := time.Now()
	attempt := &models.UserAssessmentAttempt{
		UserID:           userID,
		AssessmentID:     assessment.ID,
		StartedAt:        now.Add(-time.Duration(req.TimeSpentSeconds) * time.Second),
		CompletedAt:      now,
		Score:            score,
		IsPassed:         isPassed,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Answers:          s.buildUserAnswers(userID, assessment, req.Answers),
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		priorCount, err := txRepo.Attempt().CountByUserAndAssessment(ctx, nil, userID, assessment.ID)
		if err != nil {
			return err
		}
		attempt.AttemptNumber = int(priorCount) + 1

		if err := txRepo.Attempt().Create(ctx, nil, attempt); err != nil {
			return err
		}

		if isPassed {
			if err := s.upsertProgress(ctx, txRepo, userID, assessment.ModuleID, outcome.earnedPoints, now); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	s.publishSubmissionEvents(ctx, attempt, assessment, outcome.earnedPoints)

	s.logger.Info("Assessment submitted",
		"user_id", userID,
		"assessment_id", assessment.ID,
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber,
		"score", score,
		"is_passed", isPassed)

	return &SubmitAssessmentResponse{
		Attempt: AttemptSummary{
			ID:            attempt.ID,
			Score:         score,
			IsPassed:      isPassed,
			PointsEarned:  outcome.earnedPoints,
			AttemptNumber: attempt.AttemptNumber,
		},
		Feedback: SubmissionFeedback{
			TotalQuestions:  len(assessment.Questions),
			CorrectAnswers:  outcome.correctAnswers,
			TimeSpent:       req.TimeSpentSeconds,
			WithinTimeLimit: withinTimeLimit,
		},
	}, nil
}

// GetAttemptDetails returns the question-by-question breakdown of one
// attempt. Attempts are immutable, so repeated reads return identical data.
func (s *scoringService) GetAttemptDetails(ctx context.Context, attemptID uint, userID string) (*AttemptDetailsResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	if attempt.UserID != userID {
		user, err := s.repo.User().GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user: %w", err)
		}
		if user.Role != models.RoleAdmin {
			return nil, NewPermissionError(userID, "attempt", "view", "attempt belongs to another user")
		}
	}

	resp := &AttemptDetailsResponse{
		AttemptID:        attempt.ID,
		AssessmentID:     attempt.AssessmentID,
		Score:            attempt.Score,
		IsPassed:         attempt.IsPassed,
		AttemptNumber:    attempt.AttemptNumber,
		StartedAt:        attempt.StartedAt,
		CompletedAt:      attempt.CompletedAt,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
		Questions:        make([]QuestionResult, 0, len(attempt.Answers)),
	}

	if attempt.Assessment != nil {
		resp.AssessmentTitle = attempt.Assessment.Title
		if attempt.Assessment.Module != nil {
			resp.ModuleTitle = attempt.Assessment.Module.Title
		}
	}

	for _, userAnswer := range attempt.Answers {
		if userAnswer.Question == nil {
			continue
		}
		resp.Questions = append(resp.Questions, s.buildQuestionResult(userAnswer))
	}

	return resp, nil
}
