package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

type assessmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validate
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validate) AssessmentService {
	return &assessmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *assessmentService) Create(ctx context.Context, userID string, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("request", err.Error(), nil)
	}

	for i, q := range req.Questions {
		if errs := validateQuestionInvariants(q); len(errs) > 0 {
			return nil, NewValidationError(fmt.Sprintf("questions[%d]", i), errs.Error(), nil)
		}
	}

	exists, err := s.repo.Module().Exists(ctx, nil, req.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check module: %w", err)
	}
	if !exists {
		return nil, ErrModuleNotFound
	}

	s.logger.Info("Creating assessment", "user_id", userID, "module_id", req.ModuleID, "title", req.Title)

	passThreshold := req.PassThreshold
	if passThreshold == 0 {
		passThreshold = 70
	}

	assessment := &models.Assessment{
		Title:              req.Title,
		Description:        req.Description,
		TimeLimit:          req.TimeLimit,
		PassThreshold:      passThreshold,
		IsActive:           true,
		RandomizeQuestions: req.RandomizeQuestions,
		ModuleID:           req.ModuleID,
		CreatedBy:          &userID,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Assessment().Create(ctx, nil, assessment); err != nil {
			return err
		}

		if len(req.Questions) == 0 {
			return nil
		}

		questions := make([]*models.Question, len(req.Questions))
		for i, q := range req.Questions {
			questions[i] = buildQuestionFromRequest(q, assessment.ID, i)
		}

		return txRepo.Question().CreateBatch(ctx, nil, questions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	return s.repo.Assessment().GetByIDWithQuestions(ctx, nil, assessment.ID)
}

func (s *assessmentService) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (s *assessmentService) List(ctx context.Context, moduleID *uint, page, limit int) (*AssessmentListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	assessments, total, err := s.repo.Assessment().List(ctx, nil, repositories.AssessmentFilters{
		ModuleID: moduleID,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	return &AssessmentListResponse{
		Assessments: assessments,
		Pagination:  models.NewPaginationMeta(total, page, limit),
	}, nil
}

// Update applies the typed field set to an assessment; nil fields are left
// unchanged.
func (s *assessmentService) Update(ctx context.Context, userID string, id uint, req UpdateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("request", err.Error(), nil)
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if err := s.checkAuthorPermission(ctx, userID, assessment, "update"); err != nil {
		return nil, err
	}

	applyAssessmentUpdates(assessment, req)

	if err := s.repo.Assessment().Update(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.logger.Info("Assessment updated", "assessment_id", id, "user_id", userID)
	return assessment, nil
}

func (s *assessmentService) Delete(ctx context.Context, userID string, id uint) error {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to get assessment: %w", err)
	}

	if err := s.checkAuthorPermission(ctx, userID, assessment, "delete"); err != nil {
		return err
	}

	// Attempt history must survive: refuse to delete an assessment that has
	// been attempted.
	hasAttempts, err := s.assessmentHasAttempts(ctx, id)
	if err != nil {
		return err
	}
	if hasAttempts {
		return ErrAssessmentHasUsage
	}

	if err := s.repo.Assessment().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	s.logger.Info("Assessment deleted", "assessment_id", id, "user_id", userID)
	return nil
}

func (s *assessmentService) assessmentHasAttempts(ctx context.Context, assessmentID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.UserAssessmentAttempt{}).
		Where("assessment_id = ?", assessmentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count > 0, nil
}

// checkAuthorPermission allows the creator, any instructor, or an admin.
func (s *assessmentService) checkAuthorPermission(ctx context.Context, userID string, assessment *models.Assessment, operation string) error {
	if assessment.CreatedBy != nil && *assessment.CreatedBy == userID {
		return nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	if !user.Role.CanAuthor() {
		return NewPermissionError(userID, "assessment", operation, "not owner or insufficient role")
	}

	return nil
}

func applyAssessmentUpdates(assessment *models.Assessment, req UpdateAssessmentRequest) {
	if req.Title != nil {
		assessment.Title = *req.Title
	}
	if req.Description != nil {
		assessment.Description = *req.Description
	}
	if req.TimeLimit != nil {
		assessment.TimeLimit = req.TimeLimit
	}
	if req.PassThreshold != nil {
		assessment.PassThreshold = *req.PassThreshold
	}
	if req.IsActive != nil {
		assessment.IsActive = *req.IsActive
	}
	if req.RandomizeQuestions != nil {
		assessment.RandomizeQuestions = *req.RandomizeQuestions
	}
}
