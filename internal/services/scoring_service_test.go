package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/learnhub/assessment-service/internal/events"
	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

type scoringFixture struct {
	repo      *mockRepository
	publisher *events.MockEventPublisher
	service   ScoringService
}

func newScoringFixture() *scoringFixture {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	service := NewScoringService(repo, nil, testLogger(), validator.New(), publisher)

	return &scoringFixture{repo: repo, publisher: publisher, service: service}
}

// twoChoiceAssessment seeds a module with an assessment of two 10-point
// choice questions and returns it with answers loaded.
func (f *scoringFixture) twoChoiceAssessment(timeLimit *int) *models.Assessment {
	f.repo.addModule(&models.Module{ID: 1, Title: "Sorting Algorithms", IsActive: true})

	assessment := f.repo.addAssessment(&models.Assessment{
		Title:         "Sorting Basics",
		TimeLimit:     timeLimit,
		PassThreshold: 70,
		IsActive:      true,
		ModuleID:      1,
	})

	f.repo.addQuestion(&models.Question{
		QuestionText:    "Which algorithm is stable?",
		QuestionType:    models.MultipleChoice,
		DifficultyLevel: models.DifficultyBeginner,
		Points:          10,
		OrderIndex:      0,
		AssessmentID:    assessment.ID,
		Answers: []models.Answer{
			{AnswerText: "Merge sort", IsCorrect: true, OrderIndex: 0},
			{AnswerText: "Quick sort", IsCorrect: false, OrderIndex: 1},
		},
	})
	f.repo.addQuestion(&models.Question{
		QuestionText:    "Bubble sort is O(n^2) in the worst case.",
		QuestionType:    models.TrueFalse,
		DifficultyLevel: models.DifficultyBeginner,
		Points:          10,
		OrderIndex:      1,
		AssessmentID:    assessment.ID,
		Answers: []models.Answer{
			{AnswerText: "True", IsCorrect: true, OrderIndex: 0},
			{AnswerText: "False", IsCorrect: false, OrderIndex: 1},
		},
	})

	return assessment
}

// correctAnswerID returns the id of the correct answer of a question.
func (f *scoringFixture) correctAnswerID(questionID uint) uint {
	q := f.repo.questions[questionID]
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.ID
		}
	}
	return 0
}

func (f *scoringFixture) wrongAnswerID(questionID uint) uint {
	q := f.repo.questions[questionID]
	for _, a := range q.Answers {
		if !a.IsCorrect {
			return a.ID
		}
	}
	return 0
}

func ptr[T any](v T) *T { return &v }

func TestScoringService_SubmitAssessment_AllCorrect(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(ptr(10))
	ctx := context.Background()

	resp, err := f.service.SubmitAssessment(ctx, "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
			{QuestionID: 2, AnswerID: ptr(f.correctAnswerID(2))},
		},
		TimeSpentSeconds: 300,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if resp.Attempt.Score != 100 {
		t.Errorf("score = %v, want 100", resp.Attempt.Score)
	}
	if !resp.Attempt.IsPassed {
		t.Error("expected attempt to pass")
	}
	if resp.Attempt.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1", resp.Attempt.AttemptNumber)
	}
	if resp.Feedback.CorrectAnswers != 2 {
		t.Errorf("correct answers = %v, want 2", resp.Feedback.CorrectAnswers)
	}
	if !resp.Feedback.WithinTimeLimit {
		t.Error("expected submission within time limit")
	}

	// Passing marks the module complete.
	progress, err := f.repo.Progress().GetByUserAndModule(ctx, nil, "user-1", 1)
	if err != nil {
		t.Fatalf("expected progress row: %v", err)
	}
	if progress.CompletionStatus != models.ProgressCompleted {
		t.Errorf("completion status = %s, want COMPLETED", progress.CompletionStatus)
	}
	if progress.ProgressPercentage != 100 {
		t.Errorf("progress percentage = %v, want 100", progress.ProgressPercentage)
	}
	if progress.PointsEarned != 20 {
		t.Errorf("points earned = %d, want 20", progress.PointsEarned)
	}

	published := f.publisher.GetPublishedEvents()
	if len(published) != 2 {
		t.Fatalf("published events = %d, want 2", len(published))
	}
	if published[0].Type != events.EventAttemptCompleted {
		t.Errorf("first event type = %s, want %s", published[0].Type, events.EventAttemptCompleted)
	}
	if published[1].Type != events.EventModuleCompleted {
		t.Errorf("second event type = %s, want %s", published[1].Type, events.EventModuleCompleted)
	}
}

func TestScoringService_SubmitAssessment_AllWrong(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(nil)
	ctx := context.Background()

	resp, err := f.service.SubmitAssessment(ctx, "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 1, AnswerID: ptr(f.wrongAnswerID(1))},
			{QuestionID: 2, AnswerID: ptr(f.wrongAnswerID(2))},
		},
		TimeSpentSeconds: 60,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if resp.Attempt.Score != 0 {
		t.Errorf("score = %v, want 0", resp.Attempt.Score)
	}
	if resp.Attempt.IsPassed {
		t.Error("expected attempt to fail")
	}

	// A failed attempt never touches progress.
	if _, err := f.repo.Progress().GetByUserAndModule(ctx, nil, "user-1", 1); err == nil {
		t.Error("expected no progress row for a failed attempt")
	}

	published := f.publisher.GetPublishedEvents()
	if len(published) != 1 {
		t.Fatalf("published events = %d, want 1", len(published))
	}
	if published[0].Type != events.EventAttemptCompleted {
		t.Errorf("event type = %s, want %s", published[0].Type, events.EventAttemptCompleted)
	}
}

func TestScoringService_SubmitAssessment_FillBlankPartialCredit(t *testing.T) {
	f := newScoringFixture()
	f.repo.addModule(&models.Module{ID: 1, Title: "Databases", IsActive: true})
	assessment := f.repo.addAssessment(&models.Assessment{
		Title:         "SQL Basics",
		PassThreshold: 70,
		IsActive:      true,
		ModuleID:      1,
	})
	f.repo.addQuestion(&models.Question{
		QuestionText:    "Which join keeps unmatched left rows?",
		QuestionType:    models.SingleChoice,
		DifficultyLevel: models.DifficultyIntermediate,
		Points:          10,
		OrderIndex:      0,
		AssessmentID:    assessment.ID,
		Answers: []models.Answer{
			{AnswerText: "LEFT JOIN", IsCorrect: true, OrderIndex: 0},
			{AnswerText: "INNER JOIN", IsCorrect: false, OrderIndex: 1},
		},
	})
	f.repo.addQuestion(&models.Question{
		QuestionText:    "Name the clause that filters aggregated rows.",
		QuestionType:    models.FillBlank,
		DifficultyLevel: models.DifficultyIntermediate,
		Points:          10,
		OrderIndex:      1,
		AssessmentID:    assessment.ID,
	})

	resp, err := f.service.SubmitAssessment(context.Background(), "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
			{QuestionID: 2, TextAnswer: ptr("HAVING")},
		},
		TimeSpentSeconds: 120,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	// 10 + 10*0.5 of 20 total.
	if resp.Attempt.Score != 75 {
		t.Errorf("score = %v, want 75", resp.Attempt.Score)
	}
	if !resp.Attempt.IsPassed {
		t.Error("expected 75 to pass a 70 threshold")
	}
	if resp.Feedback.CorrectAnswers != 1.5 {
		t.Errorf("correct answers = %v, want 1.5", resp.Feedback.CorrectAnswers)
	}
}

func TestScoringService_SubmitAssessment_BlankFillBlankEarnsNothing(t *testing.T) {
	f := newScoringFixture()
	f.repo.addModule(&models.Module{ID: 1, Title: "Databases", IsActive: true})
	assessment := f.repo.addAssessment(&models.Assessment{
		Title:         "SQL Basics",
		PassThreshold: 70,
		IsActive:      true,
		ModuleID:      1,
	})
	f.repo.addQuestion(&models.Question{
		QuestionText:    "Name the default isolation level in PostgreSQL.",
		QuestionType:    models.FillBlank,
		DifficultyLevel: models.DifficultyAdvanced,
		Points:          10,
		OrderIndex:      0,
		AssessmentID:    assessment.ID,
	})

	resp, err := f.service.SubmitAssessment(context.Background(), "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 1, TextAnswer: ptr("   ")},
		},
		TimeSpentSeconds: 30,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if resp.Attempt.Score != 0 {
		t.Errorf("score = %v, want 0 for whitespace-only text", resp.Attempt.Score)
	}
}

func TestScoringService_SubmitAssessment_OvertimeFailsDespiteScore(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(ptr(1)) // 1 minute limit
	ctx := context.Background()

	resp, err := f.service.SubmitAssessment(ctx, "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
			{QuestionID: 2, AnswerID: ptr(f.correctAnswerID(2))},
		},
		TimeSpentSeconds: 120,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if resp.Attempt.Score != 100 {
		t.Errorf("score = %v, want 100", resp.Attempt.Score)
	}
	if resp.Attempt.IsPassed {
		t.Error("overtime submission must fail regardless of score")
	}
	if resp.Feedback.WithinTimeLimit {
		t.Error("expected WithinTimeLimit=false")
	}

	if _, err := f.repo.Progress().GetByUserAndModule(ctx, nil, "user-1", 1); err == nil {
		t.Error("overtime failure must not update progress")
	}
}

func TestScoringService_SubmitAssessment_SkipsUnsubmittedQuestions(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(nil)

	// Only the first of two questions is submitted; it alone defines the
	// denominator.
	resp, err := f.service.SubmitAssessment(context.Background(), "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
		},
		TimeSpentSeconds: 60,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if resp.Attempt.Score != 100 {
		t.Errorf("score = %v, want 100 over submitted questions only", resp.Attempt.Score)
	}
	if resp.Feedback.TotalQuestions != 2 {
		t.Errorf("total questions = %d, want 2", resp.Feedback.TotalQuestions)
	}
}

func TestScoringService_SubmitAssessment_IgnoresUnknownQuestions(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(nil)
	ctx := context.Background()

	resp, err := f.service.SubmitAssessment(ctx, "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 999, AnswerID: ptr(uint(1))},
			{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
		},
		TimeSpentSeconds: 60,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if resp.Attempt.Score != 100 {
		t.Errorf("score = %v, want 100", resp.Attempt.Score)
	}

	// Only the known question's answer is stored.
	stored := f.repo.attempts[0]
	if len(stored.Answers) != 1 {
		t.Fatalf("stored answers = %d, want 1", len(stored.Answers))
	}
	if stored.Answers[0].QuestionID != 1 {
		t.Errorf("stored question id = %d, want 1", stored.Answers[0].QuestionID)
	}
}

func TestScoringService_SubmitAssessment_AttemptNumbering(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(nil)
	ctx := context.Background()

	submit := func(userID string) *SubmitAssessmentResponse {
		t.Helper()
		resp, err := f.service.SubmitAssessment(ctx, userID, assessment.ID, SubmitAssessmentRequest{
			Answers: []SubmittedAnswer{
				{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
				{QuestionID: 2, AnswerID: ptr(f.correctAnswerID(2))},
			},
			TimeSpentSeconds: 60,
		})
		if err != nil {
			t.Fatalf("SubmitAssessment: %v", err)
		}
		return resp
	}

	if got := submit("user-1").Attempt.AttemptNumber; got != 1 {
		t.Errorf("first attempt number = %d, want 1", got)
	}
	if got := submit("user-1").Attempt.AttemptNumber; got != 2 {
		t.Errorf("second attempt number = %d, want 2", got)
	}

	// Numbering is per user.
	if got := submit("user-2").Attempt.AttemptNumber; got != 1 {
		t.Errorf("other user's attempt number = %d, want 1", got)
	}
}

func TestScoringService_SubmitAssessment_ProgressAccumulatesPoints(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.service.SubmitAssessment(ctx, "user-1", assessment.ID, SubmitAssessmentRequest{
			Answers: []SubmittedAnswer{
				{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
				{QuestionID: 2, AnswerID: ptr(f.correctAnswerID(2))},
			},
			TimeSpentSeconds: 60,
		})
		if err != nil {
			t.Fatalf("SubmitAssessment: %v", err)
		}
	}

	progress, err := f.repo.Progress().GetByUserAndModule(ctx, nil, "user-1", 1)
	if err != nil {
		t.Fatalf("expected progress row: %v", err)
	}
	if progress.PointsEarned != 40 {
		t.Errorf("points earned = %d, want 40 after two passes", progress.PointsEarned)
	}
}

func TestScoringService_SubmitAssessment_UnknownAssessment(t *testing.T) {
	f := newScoringFixture()

	_, err := f.service.SubmitAssessment(context.Background(), "user-1", 42, SubmitAssessmentRequest{
		Answers:          []SubmittedAnswer{{QuestionID: 1}},
		TimeSpentSeconds: 10,
	})
	if err != ErrAssessmentNotFound {
		t.Errorf("err = %v, want ErrAssessmentNotFound", err)
	}
}

func TestScoringService_GetAttemptDetails(t *testing.T) {
	f := newScoringFixture()
	assessment := f.twoChoiceAssessment(nil)
	ctx := context.Background()

	resp, err := f.service.SubmitAssessment(ctx, "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers: []SubmittedAnswer{
			{QuestionID: 1, AnswerID: ptr(f.correctAnswerID(1))},
			{QuestionID: 2, AnswerID: ptr(f.wrongAnswerID(2))},
		},
		TimeSpentSeconds: 90,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	t.Run("owner sees per-question breakdown", func(t *testing.T) {
		details, err := f.service.GetAttemptDetails(ctx, resp.Attempt.ID, "user-1")
		if err != nil {
			t.Fatalf("GetAttemptDetails: %v", err)
		}

		if details.AssessmentTitle != "Sorting Basics" {
			t.Errorf("assessment title = %q", details.AssessmentTitle)
		}
		if len(details.Questions) != 2 {
			t.Fatalf("question results = %d, want 2", len(details.Questions))
		}
		if !details.Questions[0].IsCorrect {
			t.Error("first question should be correct")
		}
		if details.Questions[1].IsCorrect {
			t.Error("second question should be wrong")
		}
		if math.Abs(details.Score-50) > 1e-9 {
			t.Errorf("score = %v, want 50", details.Score)
		}
		if len(details.Questions[1].CorrectAnswerIDs) != 1 {
			t.Errorf("correct answer ids = %v, want one entry", details.Questions[1].CorrectAnswerIDs)
		}
	})

	t.Run("other students are rejected", func(t *testing.T) {
		f.repo.addUser(&models.User{ID: "user-2", Role: models.RoleStudent})

		_, err := f.service.GetAttemptDetails(ctx, resp.Attempt.ID, "user-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("err = %v, want PermissionError", err)
		}
	})

	t.Run("admins may read any attempt", func(t *testing.T) {
		f.repo.addUser(&models.User{ID: "admin-1", Role: models.RoleAdmin})

		if _, err := f.service.GetAttemptDetails(ctx, resp.Attempt.ID, "admin-1"); err != nil {
			t.Errorf("GetAttemptDetails as admin: %v", err)
		}
	})

	t.Run("unknown attempt", func(t *testing.T) {
		_, err := f.service.GetAttemptDetails(ctx, 999, "user-1")
		if err != ErrAttemptNotFound {
			t.Errorf("err = %v, want ErrAttemptNotFound", err)
		}
	})
}

func TestScoringService_ConfigurableFillBlankRatio(t *testing.T) {
	repo := newMockRepository()
	service := NewScoringServiceWithConfig(repo, nil, testLogger(), validator.New(), nil, ScoringConfig{
		FillBlankCreditRatio: 1.0,
	})

	repo.addModule(&models.Module{ID: 1, Title: "Go", IsActive: true})
	assessment := repo.addAssessment(&models.Assessment{
		Title:         "Go Basics",
		PassThreshold: 70,
		IsActive:      true,
		ModuleID:      1,
	})
	repo.addQuestion(&models.Question{
		QuestionText:    "Name the keyword that starts a goroutine.",
		QuestionType:    models.FillBlank,
		DifficultyLevel: models.DifficultyBeginner,
		Points:          10,
		AssessmentID:    assessment.ID,
	})

	resp, err := service.SubmitAssessment(context.Background(), "user-1", assessment.ID, SubmitAssessmentRequest{
		Answers:          []SubmittedAnswer{{QuestionID: 1, TextAnswer: ptr("go")}},
		TimeSpentSeconds: 10,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if resp.Attempt.Score != 100 {
		t.Errorf("score = %v, want 100 with full credit ratio", resp.Attempt.Score)
	}
}
