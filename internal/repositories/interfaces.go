package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/models"
)

// ===== FILTERS =====

// AssessmentFilters narrows assessment listings. Nil pointer fields are
// ignored.
type AssessmentFilters struct {
	ModuleID  *uint
	IsActive  *bool
	CreatedBy *string
	DateFrom  *time.Time
	DateTo    *time.Time

	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// AttemptFilters narrows attempt listings.
type AttemptFilters struct {
	AssessmentID *uint
	IsPassed     *bool
	DateFrom     *time.Time
	DateTo       *time.Time

	Limit  int
	Offset int
}

// ===== SUB-REPOSITORY INTERFACES =====

// ModuleRepository reads modules owned by the wider platform.
type ModuleRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Module, error)
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	List(ctx context.Context, tx *gorm.DB, activeOnly bool) ([]*models.Module, error)
}

type AssessmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByModule(ctx context.Context, tx *gorm.DB, moduleID uint, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	List(ctx context.Context, tx *gorm.DB, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error)
	GetByAssessmentAndDifficulty(ctx context.Context, tx *gorm.DB, assessmentID uint, difficulty models.DifficultyLevel) ([]*models.Question, error)

	// GetModulePool returns all questions at the given difficulty across
	// every active assessment of the module, answers preloaded.
	GetModulePool(ctx context.Context, tx *gorm.DB, moduleID uint, difficulty models.DifficultyLevel) ([]*models.Question, error)

	CountByAssessmentAndDifficulty(ctx context.Context, tx *gorm.DB, assessmentID uint, difficulty models.DifficultyLevel) (int64, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessmentAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessmentAttempt, error)

	// GetByIDWithDetails preloads the assessment (with module), the submitted
	// answers, and each answer's question and selected option.
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessmentAttempt, error)

	// GetByUser returns a page of the user's attempts ordered by completed_at
	// descending with id descending as a deterministic tie-break, plus the
	// total count before pagination.
	GetByUser(ctx context.Context, tx *gorm.DB, userID string, filters AttemptFilters) ([]*models.UserAssessmentAttempt, int64, error)

	// GetAllByUserWithDetails loads every attempt of the user with nested
	// answer/question data for aggregate reporting. Same ordering as GetByUser.
	GetAllByUserWithDetails(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserAssessmentAttempt, error)

	CountByUserAndAssessment(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (int64, error)
}

type ProgressRepository interface {
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID string, moduleID uint) (*models.UserProgress, error)
	GetByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserProgress, error)
	Create(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error
	Update(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error
}

// UserRepository resolves user identity and role. Backed by Casdoor, not by
// the local database.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
