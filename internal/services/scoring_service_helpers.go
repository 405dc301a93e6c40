package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/learnhub/assessment-service/internal/events"
	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

type gradingOutcome struct {
	totalPoints    float64
	earnedPoints   float64
	correctAnswers float64
}

// gradeSubmission walks the assessment's questions in stored order. A
// question with no submission is skipped entirely: it contributes neither to
// earned nor to total points. Submissions referencing unknown questions are
// ignored.
func (s *scoringService) gradeSubmission(assessment *models.Assessment, answers []SubmittedAnswer) gradingOutcome {
	submitted := make(map[uint]SubmittedAnswer, len(answers))
	for _, a := range answers {
		submitted[a.QuestionID] = a
	}

	var outcome gradingOutcome
	for i := range assessment.Questions {
		question := &assessment.Questions[i]

		submission, ok := submitted[question.ID]
		if !ok {
			continue
		}

		outcome.totalPoints += float64(question.Points)

		earned, correct := s.gradeAnswer(question, submission)
		outcome.earnedPoints += earned
		outcome.correctAnswers += correct
	}

	return outcome
}

// gradeAnswer grades a single submission against its question. Choice types
// award full points when the selected answer is marked correct; a non-empty
// free-text answer to a FILL_BLANK question earns the configured partial
// credit pending manual review; anything else earns nothing.
func (s *scoringService) gradeAnswer(question *models.Question, submission SubmittedAnswer) (earned float64, correct float64) {
	switch {
	case question.QuestionType.IsChoiceType():
		if submission.AnswerID == nil {
			return 0, 0
		}
		for _, answer := range question.Answers {
			if answer.ID == *submission.AnswerID && answer.IsCorrect {
				return float64(question.Points), 1
			}
		}
		return 0, 0

	case question.QuestionType == models.FillBlank:
		if submission.TextAnswer != nil && strings.TrimSpace(*submission.TextAnswer) != "" {
			return float64(question.Points) * s.config.FillBlankCreditRatio, 0.5
		}
		return 0, 0

	default:
		return 0, 0
	}
}

// buildUserAnswers converts the submission list into rows for persistence.
// Only submissions referencing a question of this assessment are stored.
func (s *scoringService) buildUserAnswers(userID string, assessment *models.Assessment, answers []SubmittedAnswer) []models.UserAnswer {
	known := make(map[uint]bool, len(assessment.Questions))
	for i := range assessment.Questions {
		known[assessment.Questions[i].ID] = true
	}

	rows := make([]models.UserAnswer, 0, len(answers))
	for _, a := range answers {
		if !known[a.QuestionID] {
			continue
		}
		rows = append(rows, models.UserAnswer{
			UserID:     userID,
			QuestionID: a.QuestionID,
			AnswerID:   a.AnswerID,
			TextAnswer: a.TextAnswer,
		})
	}

	return rows
}

// upsertProgress marks the module complete for the user and adds the earned
// points. Runs inside the submission transaction.
func (s *scoringService) upsertProgress(ctx context.Context, txRepo repositories.Repository, userID string, moduleID uint, earnedPoints float64, now time.Time) error {
	points := int(math.Round(earnedPoints))

	progress, err := txRepo.Progress().GetByUserAndModule(ctx, nil, userID, moduleID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return err
		}

		progress = &models.UserProgress{
			UserID:             userID,
			ModuleID:           moduleID,
			CompletionStatus:   models.ProgressCompleted,
			ProgressPercentage: 100,
			PointsEarned:       points,
			LastAccessedAt:     now,
			CompletedAt:        &now,
		}
		return txRepo.Progress().Create(ctx, nil, progress)
	}

	progress.CompletionStatus = models.ProgressCompleted
	progress.ProgressPercentage = 100
	progress.PointsEarned += points
	progress.LastAccessedAt = now
	if progress.CompletedAt == nil {
		progress.CompletedAt = &now
	}

	return txRepo.Progress().Update(ctx, nil, progress)
}

// publishSubmissionEvents emits domain events after the transaction commits.
// Event delivery is best-effort: failures are logged, never surfaced.
func (s *scoringService) publishSubmissionEvents(ctx context.Context, attempt *models.UserAssessmentAttempt, assessment *models.Assessment, earnedPoints float64) {
	if s.eventPublisher == nil {
		return
	}

	event := events.NewEvent(events.EventAttemptCompleted, events.AttemptCompletedEvent{
		AttemptID:     attempt.ID,
		UserID:        attempt.UserID,
		AssessmentID:  assessment.ID,
		ModuleID:      assessment.ModuleID,
		Score:         attempt.Score,
		IsPassed:      attempt.IsPassed,
		AttemptNumber: attempt.AttemptNumber,
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt completed event",
			"attempt_id", attempt.ID, "error", err)
	}

	if !attempt.IsPassed {
		return
	}

	event = events.NewEvent(events.EventModuleCompleted, events.ModuleCompletedEvent{
		UserID:       attempt.UserID,
		ModuleID:     assessment.ModuleID,
		PointsEarned: int(math.Round(earnedPoints)),
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish module completed event",
			"module_id", assessment.ModuleID, "error", err)
	}
}

// buildQuestionResult projects one stored user answer into the detailed
// breakdown shape, regrading it against the question's current answers.
func (s *scoringService) buildQuestionResult(userAnswer models.UserAnswer) QuestionResult {
	question := userAnswer.Question

	earned, correctCredit := s.gradeAnswer(question, SubmittedAnswer{
		QuestionID: userAnswer.QuestionID,
		AnswerID:   userAnswer.AnswerID,
		TextAnswer: userAnswer.TextAnswer,
	})

	result := QuestionResult{
		QuestionID:   question.ID,
		QuestionText: question.QuestionText,
		QuestionType: question.QuestionType,
		Points:       question.Points,
		EarnedPoints: earned,
		IsCorrect:    correctCredit >= 1,
		TextAnswer:   userAnswer.TextAnswer,
	}

	if userAnswer.AnswerID != nil {
		result.SelectedAnswerID = userAnswer.AnswerID
		if userAnswer.Answer != nil {
			result.SelectedAnswerText = &userAnswer.Answer.AnswerText
			result.Explanation = userAnswer.Answer.Explanation
		}
	}

	result.CorrectAnswerIDs = make([]uint, 0)
	for _, answer := range question.Answers {
		if answer.IsCorrect {
			result.CorrectAnswerIDs = append(result.CorrectAnswerIDs, answer.ID)
		}
	}

	return result
}
