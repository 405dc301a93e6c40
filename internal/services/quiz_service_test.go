package services

import (
	"context"
	"errors"
	"testing"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/validator"
)

func newQuizFixture() (*mockRepository, QuizService) {
	repo := newMockRepository()
	service := NewQuizService(repo, nil, testLogger(), validator.New())
	return repo, service
}

func seedQuestions(repo *mockRepository, assessmentID uint, difficulty models.DifficultyLevel, count int) {
	for i := 0; i < count; i++ {
		repo.addQuestion(&models.Question{
			QuestionText:    "Seeded question",
			QuestionType:    models.SingleChoice,
			DifficultyLevel: difficulty,
			Points:          difficulty.DefaultPoints(),
			OrderIndex:      i,
			AssessmentID:    assessmentID,
			Answers: []models.Answer{
				{AnswerText: "Right", IsCorrect: true, OrderIndex: 0},
				{AnswerText: "Wrong", IsCorrect: false, OrderIndex: 1},
			},
		})
	}
}

func TestQuizService_GenerateQuiz_FromExistingAssessment(t *testing.T) {
	repo, service := newQuizFixture()
	repo.addModule(&models.Module{ID: 1, Title: "Networking", IsActive: true})
	assessment := repo.addAssessment(&models.Assessment{
		Title:         "TCP Fundamentals",
		PassThreshold: 70,
		IsActive:      true,
		ModuleID:      1,
	})
	seedQuestions(repo, assessment.ID, models.DifficultyBeginner, 5)

	quiz, err := service.GenerateQuiz(context.Background(), "user-1", GenerateQuizRequest{
		ModuleID:        1,
		DifficultyLevel: models.DifficultyBeginner,
		QuestionCount:   3,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	if quiz.AssessmentID != assessment.ID {
		t.Errorf("assessment id = %d, want existing %d", quiz.AssessmentID, assessment.ID)
	}
	if len(quiz.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(quiz.Questions))
	}

	// Without randomization the first N by order index are served.
	for i, q := range quiz.Questions {
		if q.OrderIndex != i {
			t.Errorf("question %d order index = %d, want %d", i, q.OrderIndex, i)
		}
	}

	// No new assessment is created on the reuse path.
	if len(repo.assessments) != 1 {
		t.Errorf("assessments = %d, want 1", len(repo.assessments))
	}
}

func TestQuizService_GenerateQuiz_RandomizedSelection(t *testing.T) {
	repo, service := newQuizFixture()
	repo.addModule(&models.Module{ID: 1, Title: "Networking", IsActive: true})
	assessment := repo.addAssessment(&models.Assessment{
		Title:              "TCP Fundamentals",
		PassThreshold:      70,
		IsActive:           true,
		RandomizeQuestions: true,
		ModuleID:           1,
	})
	seedQuestions(repo, assessment.ID, models.DifficultyBeginner, 10)

	quiz, err := service.GenerateQuiz(context.Background(), "user-1", GenerateQuizRequest{
		ModuleID:        1,
		DifficultyLevel: models.DifficultyBeginner,
		QuestionCount:   4,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	if len(quiz.Questions) != 4 {
		t.Fatalf("questions = %d, want 4", len(quiz.Questions))
	}

	// Every served question belongs to the assessment, with no duplicates.
	seen := make(map[uint]bool)
	for _, q := range quiz.Questions {
		if seen[q.ID] {
			t.Errorf("question %d served twice", q.ID)
		}
		seen[q.ID] = true
		if stored, ok := repo.questions[q.ID]; !ok || stored.AssessmentID != assessment.ID {
			t.Errorf("question %d not part of assessment %d", q.ID, assessment.ID)
		}
	}
}

func TestQuizService_GenerateQuiz_FromModulePool(t *testing.T) {
	repo, service := newQuizFixture()
	repo.addModule(&models.Module{ID: 1, Title: "Operating Systems", IsActive: true})

	// Two small assessments, neither with enough ADVANCED questions alone.
	a1 := repo.addAssessment(&models.Assessment{Title: "Scheduling", PassThreshold: 70, IsActive: true, ModuleID: 1})
	a2 := repo.addAssessment(&models.Assessment{Title: "Memory", PassThreshold: 70, IsActive: true, ModuleID: 1})
	seedQuestions(repo, a1.ID, models.DifficultyAdvanced, 2)
	seedQuestions(repo, a2.ID, models.DifficultyAdvanced, 2)

	quiz, err := service.GenerateQuiz(context.Background(), "user-1", GenerateQuizRequest{
		ModuleID:        1,
		DifficultyLevel: models.DifficultyAdvanced,
		QuestionCount:   3,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	if quiz.AssessmentID == a1.ID || quiz.AssessmentID == a2.ID {
		t.Error("pool generation must create a new assessment")
	}
	if len(quiz.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(quiz.Questions))
	}
	if quiz.TimeLimit == nil || *quiz.TimeLimit != 15 {
		t.Errorf("time limit = %v, want 15", quiz.TimeLimit)
	}
	if quiz.PassThreshold != 70 {
		t.Errorf("pass threshold = %d, want 70", quiz.PassThreshold)
	}
	if !quiz.RandomizeQuestions {
		t.Error("generated assessment should randomize questions")
	}

	created := repo.assessments[quiz.AssessmentID]
	if created == nil {
		t.Fatal("generated assessment not persisted")
	}
	if !created.IsActive {
		t.Error("generated assessment should be active")
	}
	if created.CreatedBy == nil || *created.CreatedBy != "user-1" {
		t.Error("generated assessment should record its creator")
	}

	// Cloned questions are persisted against the new assessment with fresh
	// order indexes.
	clones := repo.questionsByAssessment(quiz.AssessmentID)
	if len(clones) != 3 {
		t.Fatalf("persisted clones = %d, want 3", len(clones))
	}
	for i, q := range clones {
		if q.OrderIndex != i {
			t.Errorf("clone %d order index = %d", i, q.OrderIndex)
		}
		if len(q.Answers) != 2 {
			t.Errorf("clone %d answers = %d, want 2", i, len(q.Answers))
		}
	}
}

func TestQuizService_GenerateQuiz_PlaceholderFallback(t *testing.T) {
	repo, service := newQuizFixture()
	repo.addModule(&models.Module{ID: 7, Title: "Compilers", IsActive: true})

	quiz, err := service.GenerateQuiz(context.Background(), "user-1", GenerateQuizRequest{
		ModuleID:        7,
		DifficultyLevel: models.DifficultyExpert,
		QuestionCount:   5,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	if len(quiz.Questions) != 5 {
		t.Fatalf("questions = %d, want 5", len(quiz.Questions))
	}
	// ceil(1.5 * 5) = 8 minutes.
	if quiz.TimeLimit == nil || *quiz.TimeLimit != 8 {
		t.Errorf("time limit = %v, want 8", quiz.TimeLimit)
	}

	for i, q := range quiz.Questions {
		if q.QuestionType != models.MultipleChoice {
			t.Errorf("question %d type = %s, want MULTIPLE_CHOICE", i, q.QuestionType)
		}
		if q.Points != models.DifficultyExpert.DefaultPoints() {
			t.Errorf("question %d points = %d, want %d", i, q.Points, models.DifficultyExpert.DefaultPoints())
		}
		if len(q.Answers) != 4 {
			t.Errorf("question %d answers = %d, want 4", i, len(q.Answers))
		}
	}

	// Placeholder questions persist with exactly one correct answer each.
	for _, q := range repo.questionsByAssessment(quiz.AssessmentID) {
		correct := 0
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			t.Errorf("question %d has %d correct answers, want 1", q.ID, correct)
		}
	}
}

func TestQuizService_GenerateQuiz_UnknownModule(t *testing.T) {
	_, service := newQuizFixture()

	_, err := service.GenerateQuiz(context.Background(), "user-1", GenerateQuizRequest{
		ModuleID:        99,
		DifficultyLevel: models.DifficultyBeginner,
		QuestionCount:   5,
	})
	if err != ErrModuleNotFound {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
}

func TestQuizService_GenerateQuiz_InvalidRequest(t *testing.T) {
	_, service := newQuizFixture()

	_, err := service.GenerateQuiz(context.Background(), "user-1", GenerateQuizRequest{
		ModuleID:        1,
		DifficultyLevel: "IMPOSSIBLE",
		QuestionCount:   5,
	})
	var validationErrs ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Errorf("err = %v, want ValidationErrors", err)
	}
}

func TestShuffleQuestions(t *testing.T) {
	questions := make([]*models.Question, 20)
	for i := range questions {
		questions[i] = &models.Question{ID: uint(i + 1)}
	}

	shuffled := shuffleQuestions(questions)

	if len(shuffled) != len(questions) {
		t.Fatalf("shuffled length = %d, want %d", len(shuffled), len(questions))
	}

	// The original slice order is untouched.
	for i, q := range questions {
		if q.ID != uint(i+1) {
			t.Fatal("shuffleQuestions mutated its input")
		}
	}

	// The result is a permutation of the input.
	seen := make(map[uint]bool, len(shuffled))
	for _, q := range shuffled {
		if seen[q.ID] {
			t.Fatalf("question %d appears twice", q.ID)
		}
		seen[q.ID] = true
	}
	if len(seen) != len(questions) {
		t.Fatalf("permutation lost elements: %d of %d", len(seen), len(questions))
	}

	// Leading positions vary across repeated shuffles. With 20 elements and
	// 50 runs the chance of a uniform shuffle keeping position 0 fixed every
	// time is (1/20)^50.
	changed := false
	for i := 0; i < 50 && !changed; i++ {
		if shuffleQuestions(questions)[0].ID != questions[0].ID {
			changed = true
		}
	}
	if !changed {
		t.Error("shuffle never moved the first element across 50 runs")
	}
}

func TestShuffleQuestions_Uniformity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping statistical test in short mode")
	}

	const elements = 5
	const runs = 2000
	questions := make([]*models.Question, elements)
	for i := range questions {
		questions[i] = &models.Question{ID: uint(i + 1)}
	}

	// Track where element 1 ends up. Under a uniform shuffle each position
	// gets runs/elements = 400 hits in expectation; the bounds below are
	// over 10 standard deviations out.
	var positions [elements]int
	for i := 0; i < runs; i++ {
		for pos, q := range shuffleQuestions(questions) {
			if q.ID == 1 {
				positions[pos]++
				break
			}
		}
	}

	for pos, count := range positions {
		if count < 200 || count > 600 {
			t.Errorf("element landed in position %d %d times, want near %d", pos, count, runs/elements)
		}
	}
}

func TestPlaceholderTimeLimit(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{1, 2},
		{2, 3},
		{4, 6},
		{5, 8},
		{10, 15},
		{20, 30},
		{21, 30}, // capped
		{50, 30}, // capped
	}
	for _, tt := range tests {
		if got := placeholderTimeLimit(tt.count); got != tt.want {
			t.Errorf("placeholderTimeLimit(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}
