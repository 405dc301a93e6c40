package services

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

// mockRepository is an in-memory Repository for service tests. Not safe for
// concurrent use.
type mockRepository struct {
	modules     map[uint]*models.Module
	assessments map[uint]*models.Assessment
	questions   map[uint]*models.Question
	attempts    []*models.UserAssessmentAttempt
	progress    []*models.UserProgress
	users       map[string]*models.User

	nextAssessmentID uint
	nextQuestionID   uint
	nextAnswerID     uint
	nextAttemptID    uint
	nextProgressID   uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		modules:     make(map[uint]*models.Module),
		assessments: make(map[uint]*models.Assessment),
		questions:   make(map[uint]*models.Question),
		users:       make(map[string]*models.User),
	}
}

func (m *mockRepository) addModule(module *models.Module) *models.Module {
	m.modules[module.ID] = module
	return module
}

func (m *mockRepository) addAssessment(assessment *models.Assessment) *models.Assessment {
	if assessment.ID == 0 {
		m.nextAssessmentID++
		assessment.ID = m.nextAssessmentID
	} else if assessment.ID > m.nextAssessmentID {
		m.nextAssessmentID = assessment.ID
	}
	m.assessments[assessment.ID] = assessment
	return assessment
}

func (m *mockRepository) addQuestion(question *models.Question) *models.Question {
	if question.ID == 0 {
		m.nextQuestionID++
		question.ID = m.nextQuestionID
	} else if question.ID > m.nextQuestionID {
		m.nextQuestionID = question.ID
	}
	for i := range question.Answers {
		if question.Answers[i].ID == 0 {
			m.nextAnswerID++
			question.Answers[i].ID = m.nextAnswerID
		}
		question.Answers[i].QuestionID = question.ID
	}
	m.questions[question.ID] = question
	return question
}

func (m *mockRepository) addUser(user *models.User) *models.User {
	m.users[user.ID] = user
	return user
}

func (m *mockRepository) Module() repositories.ModuleRepository         { return &mockModuleRepo{m} }
func (m *mockRepository) Assessment() repositories.AssessmentRepository { return &mockAssessmentRepo{m} }
func (m *mockRepository) Question() repositories.QuestionRepository     { return &mockQuestionRepo{m} }
func (m *mockRepository) Attempt() repositories.AttemptRepository       { return &mockAttemptRepo{m} }
func (m *mockRepository) Progress() repositories.ProgressRepository     { return &mockProgressRepo{m} }
func (m *mockRepository) User() repositories.UserRepository             { return &mockUserRepo{m} }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ----- modules -----

type mockModuleRepo struct{ m *mockRepository }

func (r *mockModuleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Module, error) {
	module, ok := r.m.modules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return module, nil
}

func (r *mockModuleRepo) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	_, ok := r.m.modules[id]
	return ok, nil
}

func (r *mockModuleRepo) List(ctx context.Context, tx *gorm.DB, activeOnly bool) ([]*models.Module, error) {
	out := make([]*models.Module, 0, len(r.m.modules))
	for _, module := range r.m.modules {
		if activeOnly && !module.IsActive {
			continue
		}
		out = append(out, module)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- assessments -----

type mockAssessmentRepo struct{ m *mockRepository }

func (r *mockAssessmentRepo) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	r.m.addAssessment(assessment)
	return nil
}

func (r *mockAssessmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	assessment, ok := r.m.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return assessment, nil
}

func (r *mockAssessmentRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	assessment, ok := r.m.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	loaded := *assessment
	loaded.Questions = nil
	for _, q := range r.m.questionsByAssessment(id) {
		loaded.Questions = append(loaded.Questions, *q)
	}
	return &loaded, nil
}

func (r *mockAssessmentRepo) GetByModule(ctx context.Context, tx *gorm.DB, moduleID uint, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	var out []*models.Assessment
	for _, assessment := range r.m.assessments {
		if assessment.ModuleID != moduleID {
			continue
		}
		if filters.IsActive != nil && assessment.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, assessment)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *mockAssessmentRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	var all []*models.Assessment
	for _, assessment := range r.m.assessments {
		if filters.ModuleID != nil && assessment.ModuleID != *filters.ModuleID {
			continue
		}
		if filters.IsActive != nil && assessment.IsActive != *filters.IsActive {
			continue
		}
		all = append(all, assessment)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if filters.Offset > 0 {
		if filters.Offset >= len(all) {
			all = nil
		} else {
			all = all[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(all) > filters.Limit {
		all = all[:filters.Limit]
	}
	return all, total, nil
}

func (r *mockAssessmentRepo) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if _, ok := r.m.assessments[assessment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.assessments[assessment.ID] = assessment
	return nil
}

func (r *mockAssessmentRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := r.m.assessments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.m.assessments, id)
	return nil
}

// ----- questions -----

type mockQuestionRepo struct{ m *mockRepository }

func (m *mockRepository) questionsByAssessment(assessmentID uint) []*models.Question {
	var out []*models.Question
	for _, q := range m.questions {
		if q.AssessmentID == assessmentID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

func (r *mockQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.m.addQuestion(question)
	return nil
}

func (r *mockQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, q := range questions {
		r.m.addQuestion(q)
	}
	return nil
}

func (r *mockQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	question, ok := r.m.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (r *mockQuestionRepo) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *mockQuestionRepo) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	return r.m.questionsByAssessment(assessmentID), nil
}

func (r *mockQuestionRepo) GetByAssessmentAndDifficulty(ctx context.Context, tx *gorm.DB, assessmentID uint, difficulty models.DifficultyLevel) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range r.m.questionsByAssessment(assessmentID) {
		if q.DifficultyLevel == difficulty {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *mockQuestionRepo) GetModulePool(ctx context.Context, tx *gorm.DB, moduleID uint, difficulty models.DifficultyLevel) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range r.m.questions {
		assessment, ok := r.m.assessments[q.AssessmentID]
		if !ok || assessment.ModuleID != moduleID || !assessment.IsActive {
			continue
		}
		if q.DifficultyLevel == difficulty {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockQuestionRepo) CountByAssessmentAndDifficulty(ctx context.Context, tx *gorm.DB, assessmentID uint, difficulty models.DifficultyLevel) (int64, error) {
	questions, _ := r.GetByAssessmentAndDifficulty(ctx, tx, assessmentID, difficulty)
	return int64(len(questions)), nil
}

func (r *mockQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if _, ok := r.m.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.questions[question.ID] = question
	return nil
}

func (r *mockQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := r.m.questions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.m.questions, id)
	return nil
}

// ----- attempts -----

type mockAttemptRepo struct{ m *mockRepository }

func (r *mockAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessmentAttempt) error {
	r.m.nextAttemptID++
	attempt.ID = r.m.nextAttemptID
	for i := range attempt.Answers {
		attempt.Answers[i].AttemptID = attempt.ID
	}
	r.m.attempts = append(r.m.attempts, attempt)
	return nil
}

func (r *mockAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessmentAttempt, error) {
	for _, attempt := range r.m.attempts {
		if attempt.ID == id {
			return attempt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockAttemptRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessmentAttempt, error) {
	attempt, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	loaded := *attempt
	if assessment, ok := r.m.assessments[attempt.AssessmentID]; ok {
		loaded.Assessment = assessment
	}
	loaded.Answers = make([]models.UserAnswer, len(attempt.Answers))
	copy(loaded.Answers, attempt.Answers)
	for i := range loaded.Answers {
		if question, ok := r.m.questions[loaded.Answers[i].QuestionID]; ok {
			loaded.Answers[i].Question = question
			if loaded.Answers[i].AnswerID != nil {
				for j := range question.Answers {
					if question.Answers[j].ID == *loaded.Answers[i].AnswerID {
						loaded.Answers[i].Answer = &question.Answers[j]
					}
				}
			}
		}
	}
	return &loaded, nil
}

func (r *mockAttemptRepo) sortedByUser(userID string) []*models.UserAssessmentAttempt {
	var out []*models.UserAssessmentAttempt
	for _, attempt := range r.m.attempts {
		if attempt.UserID == userID {
			out = append(out, attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *mockAttemptRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.AttemptFilters) ([]*models.UserAssessmentAttempt, int64, error) {
	all := r.sortedByUser(userID)
	total := int64(len(all))

	if filters.Offset > 0 {
		if filters.Offset >= len(all) {
			all = nil
		} else {
			all = all[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(all) > filters.Limit {
		all = all[:filters.Limit]
	}

	out := make([]*models.UserAssessmentAttempt, len(all))
	for i, attempt := range all {
		detailed, _ := r.GetByIDWithDetails(ctx, tx, attempt.ID)
		out[i] = detailed
	}
	return out, total, nil
}

func (r *mockAttemptRepo) GetAllByUserWithDetails(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserAssessmentAttempt, error) {
	all := r.sortedByUser(userID)
	out := make([]*models.UserAssessmentAttempt, len(all))
	for i, attempt := range all {
		detailed, _ := r.GetByIDWithDetails(ctx, tx, attempt.ID)
		out[i] = detailed
	}
	return out, nil
}

func (r *mockAttemptRepo) CountByUserAndAssessment(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (int64, error) {
	var count int64
	for _, attempt := range r.m.attempts {
		if attempt.UserID == userID && attempt.AssessmentID == assessmentID {
			count++
		}
	}
	return count, nil
}

// ----- progress -----

type mockProgressRepo struct{ m *mockRepository }

func (r *mockProgressRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID string, moduleID uint) (*models.UserProgress, error) {
	for _, p := range r.m.progress {
		if p.UserID == userID && p.ModuleID == moduleID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockProgressRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserProgress, error) {
	var out []*models.UserProgress
	for _, p := range r.m.progress {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *mockProgressRepo) Create(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error {
	r.m.nextProgressID++
	progress.ID = r.m.nextProgressID
	r.m.progress = append(r.m.progress, progress)
	return nil
}

func (r *mockProgressRepo) Update(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error {
	for i, p := range r.m.progress {
		if p.ID == progress.ID {
			r.m.progress[i] = progress
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ----- users -----

type mockUserRepo struct{ m *mockRepository }

func (r *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
