package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/satfergana/bluebook-gateway/internal/auth"
	"github.com/satfergana/bluebook-gateway/internal/config"
	"github.com/satfergana/bluebook-gateway/internal/handler"
	"github.com/satfergana/bluebook-gateway/internal/middleware"
	"github.com/satfergana/bluebook-gateway/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam *handler.ExamHandler
	WS   *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(validator *auth.Validator, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for attempt creation (30 requests per minute per IP):
	// the begin route fans out to upstream create/start calls.
	beginLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── Student Group (JWT) ───────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(validator))
	{
		studentAPI.POST("/exams/:exam_id/attempt", beginLimiter.Middleware(), handlers.Exam.BeginAttempt)
		studentAPI.GET("/exams/:exam_id/state", handlers.Exam.GetState)
		studentAPI.POST("/exams/:exam_id/answers", handlers.Exam.SetAnswer)
		studentAPI.POST("/exams/:exam_id/flags", handlers.Exam.ToggleFlag)
		studentAPI.POST("/exams/:exam_id/position", handlers.Exam.SetPosition)
		studentAPI.POST("/exams/:exam_id/submit-module", handlers.Exam.SubmitModule)
		studentAPI.POST("/exams/:exam_id/resume", handlers.Exam.ResumeBreak)
		studentAPI.POST("/exams/:exam_id/exit", handlers.Exam.ExitAttempt)
		studentAPI.GET("/exams/:exam_id/results", handlers.Exam.GetResults)
	}

	// ─── WebSocket Group (Student WS Auth) ─────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(validator))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.SessionStream)
	}

	return router
}
