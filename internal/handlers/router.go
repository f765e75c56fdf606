package handlers

import (
	"net/http"

	"github.com/anis2566/monorepo-new-sub002/internal/auth"
	"github.com/anis2566/monorepo-new-sub002/internal/metrics"
	"github.com/anis2566/monorepo-new-sub002/internal/middleware"
	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	otpHandler         *OtpHandler
	participantHandler *ParticipantHandler
	attemptHandler     *AttemptHandler
	rankingHandler     *RankingHandler
	catalogHandler     *CatalogHandler

	verifier   auth.TokenVerifier
	otpLimiter *middleware.IPRateLimiter
}

// NewHandlerManager wires handlers to services. verifier may be nil when student
// authentication is disabled; student routes then answer 503.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	verifier auth.TokenVerifier,
	otpLimiter *middleware.IPRateLimiter,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		otpHandler:         NewOtpHandler(serviceManager.Otp(), logger),
		participantHandler: NewParticipantHandler(serviceManager.Participant(), logger),
		attemptHandler:     NewAttemptHandler(serviceManager.Attempt(), logger),
		rankingHandler:     NewRankingHandler(serviceManager.Ranking(), serviceManager.Export(), logger),
		catalogHandler:     NewCatalogHandler(serviceManager.Catalog(), logger),
		verifier:           verifier,
		otpLimiter:         otpLimiter,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)
	router.GET("/metrics", metrics.PrometheusHandler())

	v1 := router.Group("/api/v1")
	{
		otp := v1.Group("/otp", middleware.RateLimit(hm.otpLimiter))
		{
			otp.POST("/send", hm.otpHandler.SendOtp)
			otp.POST("/verify", hm.otpHandler.VerifyOtp)
		}

		exams := v1.Group("/exams")
		{
			exams.GET("/:id", hm.catalogHandler.GetExam)
			exams.POST("/:id/participants", hm.participantHandler.Register)
			exams.GET("/:id/merit-list", hm.rankingHandler.GetMeritList)
			exams.GET("/:id/merit-list/export", hm.rankingHandler.ExportMeritList)
			exams.POST("/:id/merit-list/archive", hm.rankingHandler.ArchiveMeritList)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/tab-switch", hm.attemptHandler.RecordTabSwitch)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetResult)
		}

		v1.GET("/leaderboard", hm.rankingHandler.GetLeaderboard)
		v1.GET("/classes", hm.catalogHandler.ListClasses)

		// Students act on the same attempt operations under their verified identity.
		student := v1.Group("/student", middleware.StudentAuth(hm.verifier))
		{
			student.POST("/exams/:id/attempts", hm.attemptHandler.StartStudentAttempt)
			student.GET("/attempts/:id", hm.attemptHandler.GetAttempt)
			student.POST("/attempts/:id/answers", hm.attemptHandler.SubmitAnswer)
			student.POST("/attempts/:id/tab-switch", hm.attemptHandler.RecordTabSwitch)
			student.POST("/attempts/:id/submit", hm.attemptHandler.SubmitAttempt)
			student.GET("/attempts/:id/result", hm.attemptHandler.GetResult)
		}
	}
}

// NewRouter builds the engine with the shared middleware chain and all routes.
func NewRouter(hm *HandlerManager, logger utils.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		utils.LoggerMiddleware(logger),
		utils.ContextLogger(logger),
		metrics.MetricsMiddleware(),
	)
	hm.SetupRoutes(router)
	return router
}

// HealthCheck godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "exam-service",
	})
}
