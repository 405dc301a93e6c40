package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/services"
)

// QuizHandler serves the learner-facing surface: quiz generation, submission,
// attempt review, history and progress.
type QuizHandler struct {
	BaseHandler
	quizService     services.QuizService
	scoringService  services.ScoringService
	progressService services.ProgressService
	exportService   services.ImportExportService
}

func NewQuizHandler(
	quizService services.QuizService,
	scoringService services.ScoringService,
	progressService services.ProgressService,
	exportService services.ImportExportService,
	logger *slog.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler:     NewBaseHandler(logger),
		quizService:     quizService,
		scoringService:  scoringService,
		progressService: progressService,
		exportService:   exportService,
	}
}

// GenerateQuiz builds a quiz for a module and difficulty
// @Summary Generate quiz
// @Description Returns an assessment for the module at the requested difficulty, creating one when none exists
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body services.GenerateQuizRequest true "Quiz parameters"
// @Success 200 {object} services.QuizResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /assessments/generate [post]
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	var req services.GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Generating quiz",
		"module_id", req.ModuleID,
		"difficulty", req.DifficultyLevel,
		"question_count", req.QuestionCount)

	quiz, err := h.quizService.GenerateQuiz(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// SubmitAssessment grades a completed attempt
// @Summary Submit assessment
// @Description Grades the submitted answers, records the attempt and updates module progress
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param request body services.SubmitAssessmentRequest true "Submitted answers"
// @Success 200 {object} services.SubmitAssessmentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /assessments/{id}/submit [post]
func (h *QuizHandler) SubmitAssessment(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}

	var req services.SubmitAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting assessment",
		"assessment_id", assessmentID,
		"answer_count", len(req.Answers))

	result, err := h.scoringService.SubmitAssessment(c.Request.Context(), userID, assessmentID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAttemptDetails returns a graded attempt with per-question results
// @Summary Get attempt details
// @Description Returns an attempt with per-question grading; only the owner or an admin may read it
// @Tags quiz
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptDetailsResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /assessments/attempts/{id} [get]
func (h *QuizHandler) GetAttemptDetails(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	details, err := h.scoringService.GetAttemptDetails(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// GetUserHistory returns the caller's paginated attempt history
// @Summary Get assessment history
// @Description Returns the caller's attempts, newest first, paginated
// @Tags quiz
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} services.AssessmentHistoryResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /assessments/user/history [get]
func (h *QuizHandler) GetUserHistory(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	history, err := h.progressService.GetUserAssessmentHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetUserProgress returns the caller's aggregate progress statistics
// @Summary Get progress summary
// @Description Returns aggregate statistics across all of the caller's attempts
// @Tags quiz
// @Produce json
// @Success 200 {object} services.ProgressSummary
// @Failure 401 {object} models.ErrorResponse
// @Router /assessments/user/progress [get]
func (h *QuizHandler) GetUserProgress(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	summary, err := h.progressService.GetUserAssessmentProgress(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportUserHistory streams the caller's attempt history as an xlsx workbook
// @Summary Export assessment history
// @Description Downloads the caller's attempt history as an Excel workbook
// @Tags quiz
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 401 {object} models.ErrorResponse
// @Router /assessments/user/history/export [get]
func (h *QuizHandler) ExportUserHistory(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.ExportUserHistory(c.Request.Context(), userID, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="assessment-history.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
