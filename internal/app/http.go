package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/trainingportal-backend/internal/http"
	httpH "github.com/yungbote/trainingportal-backend/internal/http/handlers"
	httpMW "github.com/yungbote/trainingportal-backend/internal/http/middleware"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/envutil"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
	"github.com/yungbote/trainingportal-backend/internal/realtime"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Metrics    *httpH.MetricsHandler
	Realtime   *httpH.RealtimeHandler
	Progress   *httpH.ProgressHandler
	Assessment *httpH.AssessmentHandler
	Enrollment *httpH.EnrollmentHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, hub *realtime.SSEHub, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Metrics:    httpH.NewMetricsHandler(metrics),
		Realtime:   httpH.NewRealtimeHandler(log, hub),
		Progress:   httpH.NewProgressHandler(services.Progress),
		Assessment: httpH.NewAssessmentHandler(services.Assessment),
		Enrollment: httpH.NewEnrollmentHandler(services.Enrollment),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       envutil.String("OTEL_SERVICE_NAME", "trainingportal"),
		TracingEnabled:    envutil.Bool("OTEL_ENABLED", false),
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		MetricsHandler:    handlers.Metrics,
		RealtimeHandler:   handlers.Realtime,
		ProgressHandler:   handlers.Progress,
		AssessmentHandler: handlers.Assessment,
		EnrollmentHandler: handlers.Enrollment,
	})
}
