package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/assessment-service/internal/config"
	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/repositories"
	"github.com/learnhub/assessment-service/internal/services"
)

type HandlerManager struct {
	quizHandler       *QuizHandler
	assessmentHandler *AssessmentHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger *slog.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		quizHandler: NewQuizHandler(
			serviceManager.Quiz(),
			serviceManager.Scoring(),
			serviceManager.Progress(),
			serviceManager.ImportExport(),
			logger,
		),
		assessmentHandler: NewAssessmentHandler(
			serviceManager.Assessment(),
			serviceManager.Question(),
			serviceManager.ImportExport(),
			logger,
		),
		authMiddleware: authMiddleware,
		serviceManager: serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		assessments := v1.Group("/assessments")
		{
			// Learner surface - all authenticated users
			assessments.POST("/generate", hm.quizHandler.GenerateQuiz)
			assessments.POST("/:id/submit", hm.quizHandler.SubmitAssessment)
			assessments.GET("/attempts/:id", hm.quizHandler.GetAttemptDetails)
			assessments.GET("/user/history", hm.quizHandler.GetUserHistory)
			assessments.GET("/user/history/export", hm.quizHandler.ExportUserHistory)
			assessments.GET("/user/progress", hm.quizHandler.GetUserProgress)

			// Browsing - all authenticated users
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.GET("/:id/questions", hm.assessmentHandler.ListQuestions)

			// Authoring - instructors and admins only
			authoring := hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin)
			assessments.POST("", authoring, hm.assessmentHandler.CreateAssessment)
			assessments.PUT("/:id", authoring, hm.assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", authoring, hm.assessmentHandler.DeleteAssessment)
			assessments.POST("/:id/questions", authoring, hm.assessmentHandler.CreateQuestion)
			assessments.POST("/:id/questions/import", authoring, hm.assessmentHandler.ImportQuestions)
		}

		questions := v1.Group("/questions")
		questions.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin))
		{
			questions.PUT("/:question_id", hm.assessmentHandler.UpdateQuestion)
			questions.DELETE("/:question_id", hm.assessmentHandler.DeleteQuestion)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "assessment-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "assessment-service",
		})
	})
}
