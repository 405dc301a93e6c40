package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates all sub-repositories behind a single dependency for
// the service layer.
type Repository interface {
	Module() ModuleRepository
	Assessment() AssessmentRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Progress() ProgressRepository
	User() UserRepository

	// WithTransaction runs fn with a repository bound to a single database
	// transaction. Returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err represents a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
