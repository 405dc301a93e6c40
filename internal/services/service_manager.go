package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/events"
	"github.com/learnhub/assessment-service/internal/repositories"
)

// ServiceManagerConfig wires the shared dependencies of every service.
type ServiceManagerConfig struct {
	DB             *gorm.DB
	Repository     repositories.Repository
	Logger         *slog.Logger
	Validator      *validator.Validate
	EventPublisher events.EventPublisher
	Scoring        ScoringConfig
}

type serviceManager struct {
	config ServiceManagerConfig

	mu          sync.RWMutex
	initialized bool

	quiz         QuizService
	scoring      ScoringService
	progress     ProgressService
	assessment   AssessmentService
	question     QuestionService
	importExport ImportExportService
}

// NewServiceManager builds a manager from explicit configuration.
func NewServiceManager(config ServiceManagerConfig) ServiceManager {
	return &serviceManager{config: config}
}

// NewDefaultServiceManager builds a manager with default scoring policy.
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validate, publisher events.EventPublisher) ServiceManager {
	return NewServiceManager(ServiceManagerConfig{
		DB:             db,
		Repository:     repo,
		Logger:         logger,
		Validator:      validator,
		EventPublisher: publisher,
		Scoring:        DefaultScoringConfig(),
	})
}

func (m *serviceManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if m.config.DB == nil {
		return fmt.Errorf("database handle is required")
	}
	if m.config.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if m.config.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if m.config.Validator == nil {
		return fmt.Errorf("validator is required")
	}

	m.quiz = NewQuizService(m.config.Repository, m.config.DB, m.config.Logger, m.config.Validator)
	m.scoring = NewScoringServiceWithConfig(m.config.Repository, m.config.DB, m.config.Logger, m.config.Validator, m.config.EventPublisher, m.config.Scoring)
	m.progress = NewProgressService(m.config.Repository, m.config.DB, m.config.Logger, m.config.Validator)
	m.assessment = NewAssessmentService(m.config.Repository, m.config.DB, m.config.Logger, m.config.Validator)
	m.question = NewQuestionService(m.config.Repository, m.config.DB, m.config.Logger, m.config.Validator)
	m.importExport = NewImportExportService(m.config.Repository, m.config.DB, m.config.Logger, m.config.Validator)

	m.initialized = true
	m.config.Logger.Info("Service manager initialized")
	return nil
}

func (m *serviceManager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	return m.config.Repository.Ping(ctx)
}

func (m *serviceManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}

	if m.config.EventPublisher != nil {
		if err := m.config.EventPublisher.Close(); err != nil {
			m.config.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	m.initialized = false
	m.config.Logger.Info("Service manager shut down")
	return nil
}

func (m *serviceManager) Quiz() QuizService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.quiz == nil {
		panic("service manager not initialized")
	}
	return m.quiz
}

func (m *serviceManager) Scoring() ScoringService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.scoring == nil {
		panic("service manager not initialized")
	}
	return m.scoring
}

func (m *serviceManager) Progress() ProgressService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.progress == nil {
		panic("service manager not initialized")
	}
	return m.progress
}

func (m *serviceManager) Assessment() AssessmentService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.assessment == nil {
		panic("service manager not initialized")
	}
	return m.assessment
}

func (m *serviceManager) Question() QuestionService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.question == nil {
		panic("service manager not initialized")
	}
	return m.question
}

func (m *serviceManager) ImportExport() ImportExportService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.importExport == nil {
		panic("service manager not initialized")
	}
	return m.importExport
}
