package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/trainingportal-backend/internal/http/handlers"
	httpMW "github.com/yungbote/trainingportal-backend/internal/http/middleware"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string

	AuthMiddleware    *httpMW.AuthMiddleware
	HealthHandler     *httpH.HealthHandler
	MetricsHandler    *httpH.MetricsHandler
	RealtimeHandler   *httpH.RealtimeHandler
	ProgressHandler   *httpH.ProgressHandler
	AssessmentHandler *httpH.AssessmentHandler
	EnrollmentHandler *httpH.EnrollmentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "trainingportal"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.MetricsHandler != nil && cfg.Metrics != nil {
		r.GET("/metrics", cfg.MetricsHandler.Scrape)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
	}

	// Enrollment
	if cfg.EnrollmentHandler != nil {
		protected.POST("/courses/:id/enroll", cfg.EnrollmentHandler.Enroll)
		protected.GET("/courses/:id/enrollment", cfg.EnrollmentHandler.GetEnrollment)
	}

	// Lesson progress
	if cfg.ProgressHandler != nil {
		protected.GET("/courses/:id/progress", cfg.ProgressHandler.GetCourseProgress)
		protected.POST("/courses/:id/lessons/:lessonId/select", cfg.ProgressHandler.SelectLesson)
		protected.POST("/courses/:id/lessons/:lessonId/time", cfg.ProgressHandler.ReportTime)
		protected.POST("/courses/:id/lessons/:lessonId/ended", cfg.ProgressHandler.ReportEnded)
		protected.GET("/courses/:id/lessons/:lessonId/media", cfg.ProgressHandler.GetLessonMedia)
	}

	// Assessments
	if cfg.AssessmentHandler != nil {
		protected.GET("/assessments/:id/eligibility", cfg.AssessmentHandler.GetEligibility)
		protected.POST("/assessments/:id/attempts", cfg.AssessmentHandler.StartAttempt)
		protected.GET("/attempts/:id", cfg.AssessmentHandler.GetAttempt)
		protected.POST("/attempts/:id/answer", cfg.AssessmentHandler.Answer)
		protected.POST("/attempts/:id/advance", cfg.AssessmentHandler.Advance)
		protected.DELETE("/attempts/:id", cfg.AssessmentHandler.Abandon)
	}

	return r
}
