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

type ProgressPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewProgressPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ProgressRepository {
	return &ProgressPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ProgressPostgreSQL) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID string, moduleID uint) (*models.UserProgress, error) {
	var progress models.UserProgress
	err := getDB(r.db, tx).WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressPostgreSQL) GetByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserProgress, error) {
	var progress []*models.UserProgress
	err := getDB(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Module").
		Order("last_accessed_at DESC").
		Find(&progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return progress, nil
}

func (r *ProgressPostgreSQL) Create(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(progress).Error; err != nil {
		return fmt.Errorf("failed to create progress: %w", err)
	}

	r.invalidate(ctx, progress.UserID)
	return nil
}

func (r *ProgressPostgreSQL) Update(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error {
	if err := getDB(r.db, tx).WithContext(ctx).Save(progress).Error; err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	r.invalidate(ctx, progress.UserID)
	return nil
}

func (r *ProgressPostgreSQL) invalidate(ctx context.Context, userID string) {
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Stats, fmt.Sprintf("user:%s:*", userID))
}
