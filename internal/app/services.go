package app

import (
	"context"
	"fmt"

	"github.com/facebookgo/clock"

	"github.com/yungbote/trainingportal-backend/internal/jobs/worker"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/completion"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
	"github.com/yungbote/trainingportal-backend/internal/realtime"
	"github.com/yungbote/trainingportal-backend/internal/services"
	"github.com/yungbote/trainingportal-backend/internal/temporalx/certflow"
	"github.com/yungbote/trainingportal-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Queue        *worker.Queue
	Writer       *services.Writer
	Notifier     services.Notifier
	Orchestrator *completion.Orchestrator

	Auth        services.AuthService
	Progress    services.ProgressService
	Assessment  services.AssessmentService
	Enrollment  services.EnrollmentService
	Certificate services.CertificateService

	// TemporalWorker is nil when completions run inline.
	TemporalWorker *temporalworker.Runner
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	clk := clock.New()

	auth, err := services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer)
	if err != nil {
		return Services{}, err
	}

	emitter := realtime.EmitterFunc(func(ctx context.Context, msg realtime.SSEMessage) {
		if err := clients.Bus.Publish(ctx, msg); err != nil {
			log.Warn("SSE publish failed", "channel", msg.Channel, "event", msg.Event, "error", err)
		}
	})
	notify := services.NewNotifier(log, emitter)

	queue := worker.NewQueue(log, clk, services.WriteQueueConfig(worker.Config{
		Shards:      cfg.WriteShards,
		Buffer:      cfg.WriteBuffer,
		MaxAttempts: cfg.WriteMaxAttempts,
		JobTimeout:  cfg.WriteJobTimeout,
	}, metrics, notify))
	writer := services.NewWriter(log, queue)

	certs := services.NewCertificateService(log, repos.Enrollment, repos.Certificate, metrics, clk)

	var (
		trigger certflow.Trigger
		runner  *temporalworker.Runner
	)
	if clients.Temporal != nil {
		trigger = certflow.NewWorkflowTrigger(log, clients.Temporal, cfg.Temporal.TaskQueue)
		runner, err = temporalworker.NewRunner(log, clients.Temporal, cfg.Temporal, certs)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
	} else {
		trigger = certflow.NewInlineTrigger(log, certs)
	}

	store := services.NewCompletionStore(repos.Course, repos.LessonProgress, repos.Assessment, repos.Attempt, repos.Enrollment)
	listener := services.NewCompletionListener(log, notify, metrics, trigger)
	orchestrator := completion.NewOrchestrator(log, store, listener, clk)

	progress := services.NewProgressService(log, services.ProgressConfig{
		PersistEvery: cfg.ProgressPersistEvery,
		IdleTTL:      cfg.TrackerIdleTTL,
	}, clk, repos.Course, repos.LessonProgress, writer, orchestrator, clients.Media, notify, metrics)

	assessments := services.NewAssessmentService(log, services.AssessmentConfig{
		QuestionBudget: cfg.QuestionBudget,
		PassThreshold:  cfg.PassThreshold,
		LockoutWindow:  cfg.LockoutWindow,
		AttemptTTL:     cfg.AttemptTTL,
		SweepInterval:  cfg.SweepInterval,
	}, clk, repos.Assessment, repos.Attempt, writer, orchestrator, notify, metrics)

	enrollments := services.NewEnrollmentService(log, repos.Course, repos.Enrollment, repos.Certificate, store, orchestrator, writer)

	return Services{
		Queue:          queue,
		Writer:         writer,
		Notifier:       notify,
		Orchestrator:   orchestrator,
		Auth:           auth,
		Progress:       progress,
		Assessment:     assessments,
		Enrollment:     enrollments,
		Certificate:    certs,
		TemporalWorker: runner,
	}, nil
}
