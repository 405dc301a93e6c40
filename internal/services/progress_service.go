package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

const recentAttemptsLimit = 5

type progressService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validate
}

func NewProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validate) ProgressService {
	return &progressService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// GetUserAssessmentHistory returns one page of the user's attempts, most
// recently completed first (equal timestamps break on attempt id).
func (s *progressService) GetUserAssessmentHistory(ctx context.Context, userID string, page, limit int) (*AssessmentHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	attempts, total, err := s.repo.Attempt().GetByUser(ctx, nil, userID, repositories.AttemptFilters{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt history: %w", err)
	}

	entries := make([]HistoryEntry, len(attempts))
	for i, attempt := range attempts {
		entries[i] = buildHistoryEntry(attempt)
	}

	return &AssessmentHistoryResponse{
		Attempts:   entries,
		Pagination: models.NewPaginationMeta(total, page, limit),
	}, nil
}

// GetUserAssessmentProgress computes the user's aggregate statistics in one
// pass over all attempts. A user with no attempts gets a fully zero-shaped
// summary, never nulls.
func (s *progressService) GetUserAssessmentProgress(ctx context.Context, userID string) (*ProgressSummary, error) {
	s.logger.Info("Computing assessment progress", "user_id", userID)

	attempts, err := s.repo.Attempt().GetAllByUserWithDetails(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	summary := &ProgressSummary{
		ByModule:       make([]ModuleProgressStats, 0),
		RecentAttempts: make([]HistoryEntry, 0),
	}

	if len(attempts) == 0 {
		return summary, nil
	}

	var (
		passedCount      int
		scoreSum         float64
		totalAnswers     int
		correctAnswers   int
		totalTimeSeconds int
	)

	type moduleAgg struct {
		moduleID uint
		title    string
		attempts int
		passed   int
		scoreSum float64
	}
	byModule := make(map[uint]*moduleAgg)

	for _, attempt := range attempts {
		if attempt.IsPassed {
			passedCount++
		}
		scoreSum += attempt.Score
		totalTimeSeconds += attempt.TimeSpentSeconds

		// A free-text answer has no linked option: it counts toward the
		// denominator but never the numerator.
		for _, answer := range attempt.Answers {
			totalAnswers++
			if answer.Answer != nil && answer.Answer.IsCorrect {
				correctAnswers++
			}
		}

		if attempt.Assessment != nil {
			agg, ok := byModule[attempt.Assessment.ModuleID]
			if !ok {
				agg = &moduleAgg{moduleID: attempt.Assessment.ModuleID}
				if attempt.Assessment.Module != nil {
					agg.title = attempt.Assessment.Module.Title
				}
				byModule[attempt.Assessment.ModuleID] = agg
			}
			agg.attempts++
			if attempt.IsPassed {
				agg.passed++
			}
			agg.scoreSum += attempt.Score
		}
	}

	summary.TotalAttempts = len(attempts)
	summary.PassRate = float64(passedCount) / float64(len(attempts)) * 100
	summary.AverageScore = scoreSum / float64(len(attempts))

	if totalAnswers > 0 {
		summary.Accuracy = float64(correctAnswers) / float64(totalAnswers) * 100
		summary.TimePerQuestion = float64(totalTimeSeconds) / float64(totalAnswers)
	}

	for _, agg := range byModule {
		summary.ByModule = append(summary.ByModule, ModuleProgressStats{
			ModuleID:     agg.moduleID,
			ModuleTitle:  agg.title,
			Attempts:     agg.attempts,
			PassRate:     float64(agg.passed) / float64(agg.attempts) * 100,
			AverageScore: agg.scoreSum / float64(agg.attempts),
		})
	}
	sort.Slice(summary.ByModule, func(i, j int) bool {
		return summary.ByModule[i].ModuleID < summary.ByModule[j].ModuleID
	})

	// Attempts arrive sorted most recent first.
	recent := attempts
	if len(recent) > recentAttemptsLimit {
		recent = recent[:recentAttemptsLimit]
	}
	for _, attempt := range recent {
		summary.RecentAttempts = append(summary.RecentAttempts, buildHistoryEntry(attempt))
	}

	return summary, nil
}

func buildHistoryEntry(attempt *models.UserAssessmentAttempt) HistoryEntry {
	entry := HistoryEntry{
		AttemptID:        attempt.ID,
		AssessmentID:     attempt.AssessmentID,
		Score:            attempt.Score,
		IsPassed:         attempt.IsPassed,
		AttemptNumber:    attempt.AttemptNumber,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
		CompletedAt:      attempt.CompletedAt,
	}

	if attempt.Assessment != nil {
		entry.AssessmentTitle = attempt.Assessment.Title
		entry.ModuleID = attempt.Assessment.ModuleID
		if attempt.Assessment.Module != nil {
			entry.ModuleTitle = attempt.Assessment.Module.Title
		}
	}

	return entry
}
