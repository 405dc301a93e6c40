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

type ModulePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewModulePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ModuleRepository {
	return &ModulePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ModulePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Module, error) {
	var module models.Module

	cacheKey := fmt.Sprintf("id:%d", id)
	err := r.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &module, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var m models.Module
		if err := getDB(r.db, tx).WithContext(ctx).First(&m, id).Error; err != nil {
			return nil, err
		}
		return &m, nil
	})
	if err != nil {
		return nil, err
	}

	return &module, nil
}

func (r *ModulePostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Module{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check module existence: %w", err)
	}
	return count > 0, nil
}

func (r *ModulePostgreSQL) List(ctx context.Context, tx *gorm.DB, activeOnly bool) ([]*models.Module, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Module{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var modules []*models.Module
	if err := query.Order("title ASC").Find(&modules).Error; err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}
