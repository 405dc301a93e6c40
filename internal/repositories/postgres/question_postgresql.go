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

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	r.invalidate(ctx, question.AssessmentID)
	return nil
}

// CreateBatch inserts the questions (with their answers) in a single grouped
// write: either every row lands or none do.
func (r *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	db := getDB(r.db, tx)
	run := func(tx *gorm.DB) error {
		for _, q := range questions {
			if err := tx.WithContext(ctx).Create(q).Error; err != nil {
				return fmt.Errorf("failed to create question %q: %w", q.QuestionText, err)
			}
		}
		return nil
	}

	var err error
	if tx != nil {
		// Already inside a caller-owned transaction.
		err = run(db)
	} else {
		err = db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return err
	}

	r.invalidate(ctx, questions[0].AssessmentID)
	return nil
}

func (r *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := getDB(r.db, tx).WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	err := getDB(r.db, tx).WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.order_index ASC")
		}).
		First(&question, id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := getDB(r.db, tx).WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.order_index ASC")
		}).
		Order("order_index ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for assessment: %w", err)
	}
	return questions, nil
}

func (r *QuestionPostgreSQL) GetByAssessmentAndDifficulty(ctx context.Context, tx *gorm.DB, assessmentID uint, difficulty models.DifficultyLevel) ([]*models.Question, error) {
	var questions []*models.Question
	err := getDB(r.db, tx).WithContext(ctx).
		Where("assessment_id = ? AND difficulty_level = ?", assessmentID, difficulty).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.order_index ASC")
		}).
		Order("order_index ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions by difficulty: %w", err)
	}
	return questions, nil
}

func (r *QuestionPostgreSQL) GetModulePool(ctx context.Context, tx *gorm.DB, moduleID uint, difficulty models.DifficultyLevel) ([]*models.Question, error) {
	var questions []*models.Question
	err := getDB(r.db, tx).WithContext(ctx).
		Joins("JOIN assessments ON assessments.id = questions.assessment_id").
		Where("assessments.module_id = ? AND assessments.is_active = ? AND questions.difficulty_level = ?",
			moduleID, true, difficulty).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.order_index ASC")
		}).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get module question pool: %w", err)
	}
	return questions, nil
}

func (r *QuestionPostgreSQL) CountByAssessmentAndDifficulty(ctx context.Context, tx *gorm.DB, assessmentID uint, difficulty models.DifficultyLevel) (int64, error) {
	var count int64
	err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("assessment_id = ? AND difficulty_level = ?", assessmentID, difficulty).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

func (r *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := getDB(r.db, tx).WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	r.invalidate(ctx, question.AssessmentID)
	return nil
}

func (r *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	question, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := getDB(r.db, tx).WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	r.invalidate(ctx, question.AssessmentID)
	return nil
}

func (r *QuestionPostgreSQL) invalidate(ctx context.Context, assessmentID uint) {
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Question, fmt.Sprintf("assessment:%d:*", assessmentID))
	cache.SafeDelete(ctx, r.cacheManager.Assessment, fmt.Sprintf("id:%d", assessmentID))
}
