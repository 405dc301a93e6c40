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

type AttemptPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	helpers      *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
		helpers:      NewSharedHelpers(db),
	}
}

// Create persists the attempt together with its user answers (gorm saves the
// association rows in the same insert batch).
func (r *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessmentAttempt) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Stats, fmt.Sprintf("user:%s:*", attempt.UserID))
	return nil
}

func (r *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessmentAttempt, error) {
	var attempt models.UserAssessmentAttempt
	if err := getDB(r.db, tx).WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessmentAttempt, error) {
	var attempt models.UserAssessmentAttempt
	err := getDB(r.db, tx).WithContext(ctx).
		Preload("Assessment").
		Preload("Assessment.Module").
		Preload("Answers").
		Preload("Answers.Question", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index ASC")
		}).
		Preload("Answers.Question.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.order_index ASC")
		}).
		Preload("Answers.Answer").
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) GetByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.AttemptFilters) ([]*models.UserAssessmentAttempt, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).
		Model(&models.UserAssessmentAttempt{}).
		Where("user_id = ?", userID)
	query = r.helpers.ApplyAttemptFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	// completed_at DESC with id DESC as a deterministic tie-break.
	query = query.Order("completed_at DESC, id DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var attempts []*models.UserAssessmentAttempt
	err := query.
		Preload("Assessment").
		Preload("Assessment.Module").
		Find(&attempts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get user attempts: %w", err)
	}

	return attempts, total, nil
}

func (r *AttemptPostgreSQL) GetAllByUserWithDetails(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserAssessmentAttempt, error) {
	load := func() ([]*models.UserAssessmentAttempt, error) {
		var attempts []*models.UserAssessmentAttempt
		err := getDB(r.db, tx).WithContext(ctx).
			Where("user_id = ?", userID).
			Order("completed_at DESC, id DESC").
			Preload("Assessment").
			Preload("Assessment.Module").
			Preload("Answers").
			Preload("Answers.Answer").
			Find(&attempts).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get user attempts with details: %w", err)
		}
		return attempts, nil
	}

	// Inside a transaction the read must see uncommitted writes, so skip the
	// cache. Invalidation on attempt/progress writes keys off user:<id>:*.
	if tx != nil {
		return load()
	}

	var attempts []*models.UserAssessmentAttempt
	cacheKey := fmt.Sprintf("user:%s:attempts_detailed", userID)
	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &attempts, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *AttemptPostgreSQL) CountByUserAndAssessment(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (int64, error) {
	var count int64
	err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.UserAssessmentAttempt{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count user attempts: %w", err)
	}
	return count, nil
}
