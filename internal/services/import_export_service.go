package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
)

// Expected import sheet layout, one question per row:
//   A: question text
//   B: question type (MULTIPLE_CHOICE, SINGLE_CHOICE, TRUE_FALSE, FILL_BLANK)
//   C: difficulty level (BEGINNER, INTERMEDIATE, ADVANCED, EXPERT)
//   D: points
//   E-H: answer options (blank cells skipped; unused for FILL_BLANK)
//   I: 1-based indexes of correct options, comma separated
//   J: optional explanation attached to the correct options
const importSheetName = "Questions"

type importExportService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validate
}

func NewImportExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validate) ImportExportService {
	return &importExportService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ImportQuestions loads questions from an .xlsx workbook into an assessment.
// The whole import is one grouped write: a bad row rejects the entire file.
func (s *importExportService) ImportQuestions(ctx context.Context, userID string, assessmentID uint, r io.Reader) (*ImportResult, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.CreatedBy == nil || *assessment.CreatedBy != userID {
		user, err := s.repo.User().GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user: %w", err)
		}
		if !user.Role.CanAuthor() {
			return nil, NewPermissionError(userID, "assessment", "import_questions", "not owner or insufficient role")
		}
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewValidationError("file", "not a valid xlsx workbook", nil)
	}
	defer f.Close()

	rows, err := f.GetRows(importSheetName)
	if err != nil {
		return nil, NewValidationError("file", fmt.Sprintf("missing sheet %q", importSheetName), nil)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "no question rows found", nil)
	}

	existing, err := s.repo.Question().GetByAssessment(ctx, nil, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing questions: %w", err)
	}
	nextOrder := len(existing)

	result := &ImportResult{}
	var questions []*models.Question

	// Row 1 is the header.
	for i, row := range rows[1:] {
		rowNum := i + 2

		if isBlankRow(row) {
			continue
		}

		req, warn, err := parseQuestionRow(row)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("row %d", rowNum), err.Error(), nil)
		}
		if warn != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %s", rowNum, warn))
		}

		if errs := validateQuestionInvariants(*req); len(errs) > 0 {
			return nil, NewValidationError(fmt.Sprintf("row %d", rowNum), errs.Error(), nil)
		}

		questions = append(questions, buildQuestionFromRequest(*req, assessmentID, nextOrder))
		nextOrder++
	}

	if len(questions) == 0 {
		return nil, NewValidationError("file", "no question rows found", nil)
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.Question().CreateBatch(ctx, nil, questions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import questions: %w", err)
	}

	result.QuestionsCreated = len(questions)
	for _, q := range questions {
		result.AnswersCreated += len(q.Answers)
	}

	s.logger.Info("Questions imported",
		"assessment_id", assessmentID,
		"user_id", userID,
		"questions", result.QuestionsCreated,
		"answers", result.AnswersCreated)

	return result, nil
}

// ExportUserHistory writes the user's full attempt history as an .xlsx
// workbook.
func (s *importExportService) ExportUserHistory(ctx context.Context, userID string, w io.Writer) error {
	attempts, err := s.repo.Attempt().GetAllByUserWithDetails(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("failed to load attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "History"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Attempt", "Assessment", "Module", "Score", "Passed", "Attempt Number", "Time Spent (s)", "Completed At"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, attempt := range attempts {
		entry := buildHistoryEntry(attempt)
		values := []any{
			entry.AttemptID,
			entry.AssessmentTitle,
			entry.ModuleTitle,
			entry.Score,
			entry.IsPassed,
			entry.AttemptNumber,
			entry.TimeSpentSeconds,
			entry.CompletedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("History exported", "user_id", userID, "attempts", len(attempts))
	return nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func parseQuestionRow(row []string) (*CreateQuestionRequest, string, error) {
	text := cellAt(row, 0)
	if text == "" {
		return nil, "", fmt.Errorf("question text is required")
	}

	qType := models.QuestionType(strings.ToUpper(cellAt(row, 1)))
	if !qType.IsValid() {
		return nil, "", fmt.Errorf("invalid question type %q", cellAt(row, 1))
	}

	difficulty := models.DifficultyLevel(strings.ToUpper(cellAt(row, 2)))
	if !difficulty.IsValid() {
		return nil, "", fmt.Errorf("invalid difficulty level %q", cellAt(row, 2))
	}

	var warn string
	points := difficulty.DefaultPoints()
	if raw := cellAt(row, 3); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return nil, "", fmt.Errorf("invalid points value %q", raw)
		}
		points = parsed
	} else {
		warn = fmt.Sprintf("points missing, defaulted to %d", points)
	}

	req := &CreateQuestionRequest{
		QuestionText:    text,
		QuestionType:    qType,
		DifficultyLevel: difficulty,
		Points:          points,
	}

	if qType == models.FillBlank {
		return req, warn, nil
	}

	correctSet := make(map[int]bool)
	for _, part := range strings.Split(cellAt(row, 8), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 1 {
			return nil, "", fmt.Errorf("invalid correct answer index %q", part)
		}
		correctSet[idx] = true
	}

	explanation := cellAt(row, 9)

	option := 0
	for col := 4; col <= 7; col++ {
		answerText := cellAt(row, col)
		if answerText == "" {
			continue
		}
		option++

		answer := CreateAnswerRequest{
			AnswerText: answerText,
			IsCorrect:  correctSet[option],
			OrderIndex: option - 1,
		}
		if answer.IsCorrect && explanation != "" {
			answer.Explanation = &explanation
		}
		req.Answers = append(req.Answers, answer)
	}

	return req, warn, nil
}
