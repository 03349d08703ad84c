package completion

import (
	"context"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type memStore struct {
	linked      map[uuid.UUID][]uuid.UUID
	attempts    map[uuid.UUID]*learning.AssessmentAttempt
	completed   int
	total       int
	enrollments map[uuid.UUID]*learning.Enrollment
	saves       int
}

func newMemStore() *memStore {
	return &memStore{
		linked:      map[uuid.UUID][]uuid.UUID{},
		attempts:    map[uuid.UUID]*learning.AssessmentAttempt{},
		enrollments: map[uuid.UUID]*learning.Enrollment{},
	}
}

func (m *memStore) LinkedAssessments(_ context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	return m.linked[courseID], nil
}

func (m *memStore) LatestFinishedAttempt(_ context.Context, _ uuid.UUID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error) {
	return m.attempts[assessmentID], nil
}

func (m *memStore) LessonCounts(context.Context, uuid.UUID, uuid.UUID) (int, int, error) {
	return m.completed, m.total, nil
}

func (m *memStore) GetEnrollment(_ context.Context, _ uuid.UUID, courseID uuid.UUID) (*learning.Enrollment, error) {
	if e, ok := m.enrollments[courseID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) SaveEnrollment(_ context.Context, e *learning.Enrollment) error {
	cp := *e
	m.enrollments[e.CourseID] = &cp
	m.saves++
	return nil
}

type listenerSpy struct {
	changed   int
	completed []learning.Enrollment
}

func (l *listenerSpy) EnrollmentChanged(context.Context, learning.Enrollment) { l.changed++ }
func (l *listenerSpy) EnrollmentCompleted(_ context.Context, e learning.Enrollment) {
	l.completed = append(l.completed, e)
}

func setup() (*Orchestrator, *memStore, *listenerSpy, *clock.Mock) {
	clk := clock.NewMock()
	clk.Add(time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC).Sub(clk.Now()))
	store := newMemStore()
	spy := &listenerSpy{}
	return NewOrchestrator(logger.Nop(), store, spy, clk), store, spy, clk
}

func TestProgressWithoutAssessments(t *testing.T) {
	o, _, spy, _ := setup()
	ctx := context.Background()
	user, course := uuid.New(), uuid.New()

	steps := []struct {
		completed int
		pct       int
		status    learning.EnrollmentStatus
	}{
		{0, 0, learning.EnrollmentNotStarted},
		{1, 33, learning.EnrollmentInProgress},
		{2, 67, learning.EnrollmentInProgress},
		{3, 100, learning.EnrollmentCompleted},
	}
	for _, s := range steps {
		e, err := o.OnProgressChanged(ctx, user, course, s.completed, 3)
		if err != nil {
			t.Fatalf("OnProgressChanged(%d): %v", s.completed, err)
		}
		if e.ProgressPercent != s.pct || e.Status != s.status {
			t.Fatalf("after %d: want=(%d,%s) got=(%d,%s)", s.completed, s.pct, s.status, e.ProgressPercent, e.Status)
		}
	}
	if len(spy.completed) != 1 || spy.completed[0].CompletionDate == nil {
		t.Fatalf("completion events: %+v", spy.completed)
	}
}

func TestCompletionIsOneWay(t *testing.T) {
	o, store, spy, _ := setup()
	ctx := context.Background()
	user, course := uuid.New(), uuid.New()

	_, _ = o.OnProgressChanged(ctx, user, course, 2, 2)
	e, err := o.OnProgressChanged(ctx, user, course, 2, 3) // a lesson was added later
	if err != nil {
		t.Fatalf("OnProgressChanged: %v", err)
	}
	if e.Status != learning.EnrollmentCompleted || e.ProgressPercent != 100 {
		t.Fatalf("completed enrollment regressed: %+v", e)
	}
	if store.saves != 1 || len(spy.completed) != 1 {
		t.Fatalf("saves=%d completions=%d", store.saves, len(spy.completed))
	}
}

func TestLinkedAssessmentGatesCompletion(t *testing.T) {
	o, store, spy, clk := setup()
	ctx := context.Background()
	user, course, assessment := uuid.New(), uuid.New(), uuid.New()
	store.linked[course] = []uuid.UUID{assessment}
	store.completed, store.total = 4, 4

	e, _ := o.OnProgressChanged(ctx, user, course, 4, 4)
	if e.Status != learning.EnrollmentInProgress || e.ProgressPercent != 100 {
		t.Fatalf("watched but not passed: %+v", e)
	}

	// Failing leaves status alone.
	out := AssessmentOutcome{UserID: user, AssessmentID: assessment, CourseID: &course, Passed: false}
	if e, err := o.OnAssessmentFinished(ctx, out); err != nil || e != nil {
		t.Fatalf("failed outcome: e=%v err=%v", e, err)
	}
	if store.enrollments[course].Status != learning.EnrollmentInProgress {
		t.Fatalf("status changed on fail")
	}

	// Passing completes even though the attempt row has not been written yet.
	clk.Add(25 * time.Hour)
	out.Passed = true
	e, err := o.OnAssessmentFinished(ctx, out)
	if err != nil || e == nil || e.Status != learning.EnrollmentCompleted {
		t.Fatalf("pass: e=%+v err=%v", e, err)
	}
	if !e.CompletionDate.Equal(clk.Now()) {
		t.Fatalf("completion date: want=%v got=%v", clk.Now(), e.CompletionDate)
	}
	if len(spy.completed) != 1 {
		t.Fatalf("completion events: want=1 got=%d", len(spy.completed))
	}
}

func TestPassBeforeLessonsFinishedCompletesOnLastLesson(t *testing.T) {
	o, store, _, _ := setup()
	ctx := context.Background()
	user, course, assessment := uuid.New(), uuid.New(), uuid.New()
	store.linked[course] = []uuid.UUID{assessment}
	store.completed, store.total = 1, 2

	if e, _ := o.OnAssessmentFinished(ctx, AssessmentOutcome{UserID: user, AssessmentID: assessment, CourseID: &course, Passed: true}); e != nil {
		t.Fatalf("pass with unwatched lessons should not touch enrollment: %+v", e)
	}
	store.attempts[assessment] = &learning.AssessmentAttempt{Passed: true}
	e, _ := o.OnProgressChanged(ctx, user, course, 2, 2)
	if e.Status != learning.EnrollmentCompleted {
		t.Fatalf("want completed once lessons are done: %+v", e)
	}
}

func TestEveryLinkedAssessmentMustPass(t *testing.T) {
	o, store, _, _ := setup()
	ctx := context.Background()
	user, course := uuid.New(), uuid.New()
	a1, a2 := uuid.New(), uuid.New()
	store.linked[course] = []uuid.UUID{a1, a2}
	store.completed, store.total = 3, 3
	store.attempts[a2] = &learning.AssessmentAttempt{Passed: false}

	if e, _ := o.OnAssessmentFinished(ctx, AssessmentOutcome{UserID: user, AssessmentID: a1, CourseID: &course, Passed: true}); e != nil {
		t.Fatalf("a2 not passed yet: %+v", e)
	}
	store.attempts[a1] = &learning.AssessmentAttempt{Passed: true}
	e, _ := o.OnAssessmentFinished(ctx, AssessmentOutcome{UserID: user, AssessmentID: a2, CourseID: &course, Passed: true})
	if e == nil || e.Status != learning.EnrollmentCompleted {
		t.Fatalf("both passed: %+v", e)
	}
}

func TestUnlinkedAssessmentIgnored(t *testing.T) {
	o, store, _, _ := setup()
	e, err := o.OnAssessmentFinished(context.Background(), AssessmentOutcome{UserID: uuid.New(), AssessmentID: uuid.New(), Passed: true})
	if e != nil || err != nil || store.saves != 0 {
		t.Fatalf("unlinked: e=%v err=%v saves=%d", e, err, store.saves)
	}
}

func TestRoundedHundredWithOpenLessonDoesNotComplete(t *testing.T) {
	o, store, spy, _ := setup()
	ctx := context.Background()
	user, course := uuid.New(), uuid.New()

	e, err := o.OnProgressChanged(ctx, user, course, 199, 200)
	if err != nil {
		t.Fatalf("OnProgressChanged: %v", err)
	}
	if e.ProgressPercent != 100 || e.Status != learning.EnrollmentInProgress {
		t.Fatalf("199 of 200: want=(100,%s) got=(%d,%s)", learning.EnrollmentInProgress, e.ProgressPercent, e.Status)
	}

	assessment := uuid.New()
	store.linked[course] = []uuid.UUID{assessment}
	store.completed, store.total = 199, 200
	if e, err := o.OnAssessmentFinished(ctx, AssessmentOutcome{UserID: user, AssessmentID: assessment, CourseID: &course, Passed: true}); e != nil || err != nil {
		t.Fatalf("pass with one lesson open: e=%+v err=%v", e, err)
	}
	if len(spy.completed) != 0 {
		t.Fatalf("completion events: want=0 got=%d", len(spy.completed))
	}
}
