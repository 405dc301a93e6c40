package services

import (
	"context"
	"io"
	"time"

	"github.com/learnhub/assessment-service/internal/models"
)

// ===== QUIZ GENERATION =====

type GenerateQuizRequest struct {
	ModuleID        uint                   `json:"module_id" validate:"required"`
	DifficultyLevel models.DifficultyLevel `json:"difficulty_level" validate:"required,difficulty_level"`
	QuestionCount   int                    `json:"question_count" validate:"required,min=1,max=50"`
}

// QuizAnswer is an answer option with the correctness flag stripped.
type QuizAnswer struct {
	ID         uint   `json:"id"`
	AnswerText string `json:"answer_text"`
	OrderIndex int    `json:"order_index"`
}

type QuizQuestion struct {
	ID              uint                   `json:"id"`
	QuestionText    string                 `json:"question_text"`
	QuestionType    models.QuestionType    `json:"question_type"`
	DifficultyLevel models.DifficultyLevel `json:"difficulty_level"`
	Points          int                    `json:"points"`
	OrderIndex      int                    `json:"order_index"`
	Answers         []QuizAnswer           `json:"answers"`
}

type QuizResponse struct {
	AssessmentID       uint           `json:"assessment_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	ModuleID           uint           `json:"module_id"`
	TimeLimit          *int           `json:"time_limit"`
	PassThreshold      int            `json:"pass_threshold"`
	RandomizeQuestions bool           `json:"randomize_questions"`
	Questions          []QuizQuestion `json:"questions"`
}

// ===== SUBMISSION / SCORING =====

type SubmittedAnswer struct {
	QuestionID uint    `json:"question_id" validate:"required"`
	AnswerID   *uint   `json:"answer_id"`
	TextAnswer *string `json:"text_answer"`
}

type SubmitAssessmentRequest struct {
	Answers          []SubmittedAnswer `json:"answers" validate:"required,min=1,dive"`
	TimeSpentSeconds int               `json:"time_spent_seconds" validate:"min=0"`
}

type AttemptSummary struct {
	ID            uint    `json:"id"`
	Score         float64 `json:"score"`
	IsPassed      bool    `json:"is_passed"`
	PointsEarned  float64 `json:"points_earned"`
	AttemptNumber int     `json:"attempt_number"`
}

type SubmissionFeedback struct {
	TotalQuestions  int     `json:"total_questions"`
	CorrectAnswers  float64 `json:"correct_answers"`
	TimeSpent       int     `json:"time_spent"`
	WithinTimeLimit bool    `json:"within_time_limit"`
}

type SubmitAssessmentResponse struct {
	Attempt  AttemptSummary     `json:"attempt"`
	Feedback SubmissionFeedback `json:"feedback"`
}

// ===== ATTEMPT DETAILS =====

type QuestionResult struct {
	QuestionID         uint                `json:"question_id"`
	QuestionText       string              `json:"question_text"`
	QuestionType       models.QuestionType `json:"question_type"`
	Points             int                 `json:"points"`
	EarnedPoints       float64             `json:"earned_points"`
	IsCorrect          bool                `json:"is_correct"`
	SelectedAnswerID   *uint               `json:"selected_answer_id,omitempty"`
	SelectedAnswerText *string             `json:"selected_answer_text,omitempty"`
	TextAnswer         *string             `json:"text_answer,omitempty"`
	CorrectAnswerIDs   []uint              `json:"correct_answer_ids"`
	Explanation        *string             `json:"explanation,omitempty"`
}

type AttemptDetailsResponse struct {
	AttemptID        uint             `json:"attempt_id"`
	AssessmentID     uint             `json:"assessment_id"`
	AssessmentTitle  string           `json:"assessment_title"`
	ModuleTitle      string           `json:"module_title,omitempty"`
	Score            float64          `json:"score"`
	IsPassed         bool             `json:"is_passed"`
	AttemptNumber    int              `json:"attempt_number"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      time.Time        `json:"completed_at"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
	Questions        []QuestionResult `json:"questions"`
}

// ===== HISTORY / PROGRESS =====

type HistoryEntry struct {
	AttemptID        uint      `json:"attempt_id"`
	AssessmentID     uint      `json:"assessment_id"`
	AssessmentTitle  string    `json:"assessment_title"`
	ModuleID         uint      `json:"module_id"`
	ModuleTitle      string    `json:"module_title,omitempty"`
	Score            float64   `json:"score"`
	IsPassed         bool      `json:"is_passed"`
	AttemptNumber    int       `json:"attempt_number"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
}

type AssessmentHistoryResponse struct {
	Attempts   []HistoryEntry        `json:"attempts"`
	Pagination models.PaginationMeta `json:"pagination"`
}

type ModuleProgressStats struct {
	ModuleID     uint    `json:"module_id"`
	ModuleTitle  string  `json:"module_title"`
	Attempts     int     `json:"attempts"`
	PassRate     float64 `json:"pass_rate"`
	AverageScore float64 `json:"average_score"`
}

// ProgressSummary is always fully populated; a user with no attempts gets
// zeroes and empty slices, never nulls.
type ProgressSummary struct {
	TotalAttempts   int                   `json:"total_attempts"`
	PassRate        float64               `json:"pass_rate"`
	AverageScore    float64               `json:"average_score"`
	Accuracy        float64               `json:"accuracy"`
	TimePerQuestion float64               `json:"time_per_question"`
	ByModule        []ModuleProgressStats `json:"by_module"`
	RecentAttempts  []HistoryEntry        `json:"recent_attempts"`
}

// ===== AUTHORING =====

type CreateAnswerRequest struct {
	AnswerText  string  `json:"answer_text" validate:"required,min=1"`
	IsCorrect   bool    `json:"is_correct"`
	Explanation *string `json:"explanation"`
	OrderIndex  int     `json:"order_index" validate:"min=0"`
}

type CreateQuestionRequest struct {
	QuestionText    string                 `json:"question_text" validate:"required,min=1"`
	QuestionType    models.QuestionType    `json:"question_type" validate:"required,question_type"`
	DifficultyLevel models.DifficultyLevel `json:"difficulty_level" validate:"required,difficulty_level"`
	Points          int                    `json:"points" validate:"required,min=1,max=100"`
	OrderIndex      int                    `json:"order_index" validate:"min=0"`
	Answers         []CreateAnswerRequest  `json:"answers" validate:"dive"`
}

// UpdateQuestionRequest carries one typed field per mutable attribute; nil
// means unchanged.
type UpdateQuestionRequest struct {
	QuestionText    *string                 `json:"question_text" validate:"omitempty,min=1"`
	DifficultyLevel *models.DifficultyLevel `json:"difficulty_level" validate:"omitempty,difficulty_level"`
	Points          *int                    `json:"points" validate:"omitempty,min=1,max=100"`
	OrderIndex      *int                    `json:"order_index" validate:"omitempty,min=0"`
}

type CreateAssessmentRequest struct {
	Title              string                  `json:"title" validate:"required,min=1,max=255"`
	Description        string                  `json:"description" validate:"max=2000"`
	ModuleID           uint                    `json:"module_id" validate:"required"`
	TimeLimit          *int                    `json:"time_limit" validate:"omitempty,min=1,max=300"`
	PassThreshold      int                     `json:"pass_threshold" validate:"min=0,max=100"`
	RandomizeQuestions bool                    `json:"randomize_questions"`
	Questions          []CreateQuestionRequest `json:"questions" validate:"dive"`
}

type UpdateAssessmentRequest struct {
	Title              *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description        *string `json:"description" validate:"omitempty,max=2000"`
	TimeLimit          *int    `json:"time_limit" validate:"omitempty,min=1,max=300"`
	PassThreshold      *int    `json:"pass_threshold" validate:"omitempty,min=0,max=100"`
	IsActive           *bool   `json:"is_active"`
	RandomizeQuestions *bool   `json:"randomize_questions"`
}

type AssessmentListResponse struct {
	Assessments []*models.Assessment  `json:"assessments"`
	Pagination  models.PaginationMeta `json:"pagination"`
}

// ===== IMPORT / EXPORT =====

type ImportResult struct {
	QuestionsCreated int      `json:"questions_created"`
	AnswersCreated   int      `json:"answers_created"`
	Warnings         []string `json:"warnings,omitempty"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	GenerateQuiz(ctx context.Context, userID string, req GenerateQuizRequest) (*QuizResponse, error)
}

type ScoringService interface {
	SubmitAssessment(ctx context.Context, userID string, assessmentID uint, req SubmitAssessmentRequest) (*SubmitAssessmentResponse, error)
	GetAttemptDetails(ctx context.Context, attemptID uint, userID string) (*AttemptDetailsResponse, error)
}

type ProgressService interface {
	GetUserAssessmentHistory(ctx context.Context, userID string, page, limit int) (*AssessmentHistoryResponse, error)
	GetUserAssessmentProgress(ctx context.Context, userID string) (*ProgressSummary, error)
}

type AssessmentService interface {
	Create(ctx context.Context, userID string, req CreateAssessmentRequest) (*models.Assessment, error)
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	List(ctx context.Context, moduleID *uint, page, limit int) (*AssessmentListResponse, error)
	Update(ctx context.Context, userID string, id uint, req UpdateAssessmentRequest) (*models.Assessment, error)
	Delete(ctx context.Context, userID string, id uint) error
}

type QuestionService interface {
	Create(ctx context.Context, userID string, assessmentID uint, req CreateQuestionRequest) (*models.Question, error)
	Update(ctx context.Context, userID string, id uint, req UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, userID string, id uint) error
	GetByAssessment(ctx context.Context, assessmentID uint) ([]*models.Question, error)
}

type ImportExportService interface {
	ImportQuestions(ctx context.Context, userID string, assessmentID uint, r io.Reader) (*ImportResult, error)
	ExportUserHistory(ctx context.Context, userID string, w io.Writer) error
}

// ServiceManager aggregates every service behind one dependency for the
// handler layer.
type ServiceManager interface {
	Quiz() QuizService
	Scoring() ScoringService
	Progress() ProgressService
	Assessment() AssessmentService
	Question() QuestionService
	ImportExport() ImportExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
