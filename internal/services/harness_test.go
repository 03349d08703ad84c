package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"gorm.io/gorm"

	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/data/repos/testutil"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/jobs/worker"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/assessment"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/completion"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/progress"
	"github.com/yungbote/trainingportal-backend/internal/platform/gcp"
	"github.com/yungbote/trainingportal-backend/internal/temporalx/certflow"
)

type recordingNotifier struct {
	mu          sync.Mutex
	progress    int
	advanced    []bool
	finished    []assessment.View
	enrollments []learning.Enrollment
	warnings    []string
}

func (n *recordingNotifier) LessonProgressChanged(_ context.Context, _ uuid.UUID, _ progress.CourseView) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress++
}

func (n *recordingNotifier) QuestionAdvanced(_ context.Context, _ uuid.UUID, _ assessment.View, timedOut bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.advanced = append(n.advanced, timedOut)
}

func (n *recordingNotifier) AssessmentFinished(_ context.Context, _ uuid.UUID, v assessment.View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, v)
}

func (n *recordingNotifier) EnrollmentChanged(_ context.Context, e learning.Enrollment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enrollments = append(n.enrollments, e)
}

func (n *recordingNotifier) PersistenceWarning(_ context.Context, _ uuid.UUID, kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, kind)
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	clk    *clock.Mock
	notify *recordingNotifier
	writer *Writer

	courses      learningrepo.CourseRepo
	progressRepo learningrepo.LessonProgressRepo
	assessRepo   learningrepo.AssessmentRepo
	attempts     learningrepo.AttemptRepo
	enrollRepo   learningrepo.EnrollmentRepo
	certRepo     learningrepo.CertificateRepo
	orchestrator *completion.Orchestrator

	progress    ProgressService
	assessments AssessmentService
	enrollments EnrollmentService
	certs       CertificateService

	ticksMu sync.Mutex
	ticks   []*assessment.ManualTicks
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	clk := clock.NewMock()
	clk.Add(time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC).Sub(clk.Now()))

	h := &harness{
		t:            t,
		ctx:          context.Background(),
		db:           db,
		clk:          clk,
		notify:       &recordingNotifier{},
		courses:      learningrepo.NewCourseRepo(db, log),
		progressRepo: learningrepo.NewLessonProgressRepo(db, log),
		assessRepo:   learningrepo.NewAssessmentRepo(db, log),
		attempts:     learningrepo.NewAttemptRepo(db, log),
		enrollRepo:   learningrepo.NewEnrollmentRepo(db, log),
		certRepo:     learningrepo.NewCertificateRepo(db, log),
	}

	// The queue retries on a real clock; everything observable runs on the mock.
	queue := worker.NewQueue(log, clock.New(), WriteQueueConfig(worker.Config{
		Shards:      2,
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
	}, nil, h.notify))
	ctx, cancel := context.WithCancel(context.Background())
	queue.Start(ctx)
	t.Cleanup(func() {
		queue.Close()
		cancel()
	})
	h.writer = NewWriter(log, queue)

	h.certs = NewCertificateService(log, h.enrollRepo, h.certRepo, nil, clk)
	store := NewCompletionStore(h.courses, h.progressRepo, h.assessRepo, h.attempts, h.enrollRepo)
	listener := NewCompletionListener(log, h.notify, nil, certflow.NewInlineTrigger(log, h.certs))
	h.orchestrator = completion.NewOrchestrator(log, store, listener, clk)

	h.progress = h.newProgressService()
	h.assessments = NewAssessmentService(log, AssessmentConfig{
		QuestionBudget: 120 * time.Second,
		NewTicks: func() assessment.TickSource {
			m := &assessment.ManualTicks{}
			h.ticksMu.Lock()
			h.ticks = append(h.ticks, m)
			h.ticksMu.Unlock()
			return m
		},
	}, clk, h.assessRepo, h.attempts, h.writer, h.orchestrator, h.notify, nil)
	h.enrollments = NewEnrollmentService(log, h.courses, h.enrollRepo, h.certRepo, store, h.orchestrator, h.writer)
	return h
}

// newProgressService builds a second service over the same storage, as after a restart.
func (h *harness) newProgressService() ProgressService {
	log := testutil.Logger(h.t)
	media, err := gcp.NewMediaResolver(h.ctx, log, h.clk, gcp.MediaConfig{})
	if err != nil {
		h.t.Fatalf("media resolver: %v", err)
	}
	return NewProgressService(log, ProgressConfig{}, h.clk, h.courses, h.progressRepo, h.writer, h.orchestrator, media, h.notify, nil)
}

func (h *harness) lastTicks() *assessment.ManualTicks {
	h.ticksMu.Lock()
	defer h.ticksMu.Unlock()
	if len(h.ticks) == 0 {
		h.t.Fatalf("no countdown started")
	}
	return h.ticks[len(h.ticks)-1]
}

func (h *harness) flush(userID uuid.UUID) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	if err := h.writer.Flush(ctx, userID); err != nil {
		h.t.Fatalf("flush: %v", err)
	}
}

func (h *harness) enrollment(userID, courseID uuid.UUID) *learning.Enrollment {
	h.t.Helper()
	v, err := h.enrollments.Get(h.ctx, userID, courseID)
	if err != nil {
		h.t.Fatalf("get enrollment: %v", err)
	}
	return v.Enrollment
}

func (h *harness) finishLessons(userID uuid.UUID, course *learning.Course) {
	h.t.Helper()
	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			if _, err := h.progress.ReportEnded(h.ctx, userID, course.ID, l.ID); err != nil {
				h.t.Fatalf("ReportEnded %s: %v", l.Title, err)
			}
		}
	}
}
