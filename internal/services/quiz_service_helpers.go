package services

import (
	"fmt"
	"math/rand"

	"github.com/learnhub/assessment-service/internal/models"
)

// shuffleQuestions returns a uniformly shuffled copy of questions using the
// Fisher-Yates algorithm; taking the first N of the result yields an
// unbiased random subset.
func shuffleQuestions(questions []*models.Question) []*models.Question {
	shuffled := make([]*models.Question, len(questions))
	copy(shuffled, questions)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

// cloneQuestion copies a pooled question into a new assessment, preserving
// text, correctness, and explanations while reassigning order.
func cloneQuestion(source *models.Question, assessmentID uint, orderIndex int) *models.Question {
	clone := &models.Question{
		QuestionText:    source.QuestionText,
		QuestionType:    source.QuestionType,
		DifficultyLevel: source.DifficultyLevel,
		Points:          source.Points,
		OrderIndex:      orderIndex,
		AssessmentID:    assessmentID,
	}

	clone.Answers = make([]models.Answer, len(source.Answers))
	for i, a := range source.Answers {
		clone.Answers[i] = models.Answer{
			AnswerText:  a.AnswerText,
			IsCorrect:   a.IsCorrect,
			Explanation: a.Explanation,
			OrderIndex:  i,
		}
	}

	return clone
}

// placeholderTimeLimit is 1.5 minutes per question, capped at 30.
func placeholderTimeLimit(questionCount int) int {
	limit := questionCount + questionCount/2
	if questionCount%2 != 0 {
		limit++ // round 1.5*n up for odd counts
	}
	if limit > 30 {
		limit = 30
	}
	return limit
}

// fabricatePlaceholderQuestions builds generic multiple-choice questions for
// modules without enough authored content. Each question carries one correct
// answer and three generic distractors.
func fabricatePlaceholderQuestions(assessmentID uint, moduleTitle string, difficulty models.DifficultyLevel, count int) []*models.Question {
	points := difficulty.DefaultPoints()

	questions := make([]*models.Question, count)
	for i := 0; i < count; i++ {
		q := &models.Question{
			QuestionText:    fmt.Sprintf("Practice question %d for %s (%s)", i+1, moduleTitle, difficulty),
			QuestionType:    models.MultipleChoice,
			DifficultyLevel: difficulty,
			Points:          points,
			OrderIndex:      i,
			AssessmentID:    assessmentID,
		}

		q.Answers = []models.Answer{
			{AnswerText: fmt.Sprintf("Correct answer for practice question %d", i+1), IsCorrect: true, OrderIndex: 0},
			{AnswerText: "Incorrect option A", IsCorrect: false, OrderIndex: 1},
			{AnswerText: "Incorrect option B", IsCorrect: false, OrderIndex: 2},
			{AnswerText: "Incorrect option C", IsCorrect: false, OrderIndex: 3},
		}

		questions[i] = q
	}

	return questions
}

func dereferenceQuestions(questions []*models.Question) []models.Question {
	out := make([]models.Question, len(questions))
	for i, q := range questions {
		out[i] = *q
	}
	return out
}

// buildQuizResponse projects an assessment and its selected questions into
// the student-facing shape, stripping correctness flags and explanations.
func buildQuizResponse(assessment *models.Assessment, questions []*models.Question) *QuizResponse {
	resp := &QuizResponse{
		AssessmentID:       assessment.ID,
		Title:              assessment.Title,
		Description:        assessment.Description,
		ModuleID:           assessment.ModuleID,
		TimeLimit:          assessment.TimeLimit,
		PassThreshold:      assessment.PassThreshold,
		RandomizeQuestions: assessment.RandomizeQuestions,
		Questions:          make([]QuizQuestion, len(questions)),
	}

	for i, q := range questions {
		answers := make([]QuizAnswer, len(q.Answers))
		for j, a := range q.Answers {
			answers[j] = QuizAnswer{
				ID:         a.ID,
				AnswerText: a.AnswerText,
				OrderIndex: a.OrderIndex,
			}
		}

		resp.Questions[i] = QuizQuestion{
			ID:              q.ID,
			QuestionText:    q.QuestionText,
			QuestionType:    q.QuestionType,
			DifficultyLevel: q.DifficultyLevel,
			Points:          q.Points,
			OrderIndex:      q.OrderIndex,
			Answers:         answers,
		}
	}

	return resp
}
