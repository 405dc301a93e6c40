package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/cache"
	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	helpers      *SharedHelpers
}

func NewAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
		helpers:      NewSharedHelpers(db),
	}
}

func (r *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Assessment, fmt.Sprintf("module:%d:*", assessment.ModuleID))
	return nil
}

func (r *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment

	cacheKey := fmt.Sprintf("id:%d", id)
	err := r.cacheManager.Assessment.CacheOrExecute(ctx, cacheKey, &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var a models.Assessment
		if err := getDB(r.db, tx).WithContext(ctx).First(&a, id).Error; err != nil {
			return nil, err
		}
		return &a, nil
	})
	if err != nil {
		return nil, err
	}

	return &assessment, nil
}

func (r *AssessmentPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	err := getDB(r.db, tx).WithContext(ctx).
		Preload("Module").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.order_index ASC")
		}).
		First(&assessment, id).Error
	if err != nil {
		return nil, err
	}

	assessment.QuestionCount = len(assessment.Questions)
	return &assessment, nil
}

func (r *AssessmentPostgreSQL) GetByModule(ctx context.Context, tx *gorm.DB, moduleID uint, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	filters.ModuleID = &moduleID
	return r.List(ctx, tx, filters)
}

func (r *AssessmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Assessment{})
	query = r.helpers.ApplyAssessmentFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var assessments []*models.Assessment
	if err := query.Preload("Module").Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}

	return assessments, total, nil
}

func (r *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if err := getDB(r.db, tx).WithContext(ctx).Save(assessment).Error; err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}

	r.invalidate(ctx, assessment.ID, assessment.ModuleID)
	return nil
}

func (r *AssessmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	assessment, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := getDB(r.db, tx).WithContext(ctx).Delete(&models.Assessment{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	r.invalidate(ctx, id, assessment.ModuleID)
	return nil
}

func (r *AssessmentPostgreSQL) invalidate(ctx context.Context, id, moduleID uint) {
	cache.SafeDelete(ctx, r.cacheManager.Assessment, fmt.Sprintf("id:%d", id))
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Assessment, fmt.Sprintf("module:%d:*", moduleID))
}
