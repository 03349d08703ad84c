package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/data/dberr"
	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/assessment"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/completion"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type AssessmentConfig struct {
	QuestionBudget time.Duration
	PassThreshold  int
	LockoutWindow  time.Duration
	// AttemptTTL abandons in-flight attempts older than this, in memory and in storage.
	AttemptTTL time.Duration
	// Retention keeps finished sessions readable from memory after they end.
	Retention     time.Duration
	SweepInterval time.Duration
	// NewTicks builds the countdown source for each session. Nil uses the clock.
	NewTicks func() assessment.TickSource
}

type AssessmentService interface {
	Eligibility(ctx context.Context, userID, assessmentID uuid.UUID) (assessment.Eligibility, error)
	Start(ctx context.Context, userID, assessmentID uuid.UUID) (assessment.View, error)
	Get(ctx context.Context, userID, attemptID uuid.UUID) (assessment.View, error)
	Answer(ctx context.Context, userID, attemptID, questionID uuid.UUID, value string) (assessment.View, error)
	// Advance moves past question from; advanced is false when the session had already left it.
	Advance(ctx context.Context, userID, attemptID, from uuid.UUID) (view assessment.View, advanced bool, err error)
	Abandon(ctx context.Context, userID, attemptID uuid.UUID) error
	StartSweeper(ctx context.Context)
}

type liveSession struct {
	session    *assessment.Session
	assessment *learning.Assessment
	endedAt    time.Time
}

type assessmentService struct {
	log          *logger.Logger
	cfg          AssessmentConfig
	clk          clock.Clock
	assessments  learningrepo.AssessmentRepo
	attempts     learningrepo.AttemptRepo
	writer       *Writer
	orchestrator *completion.Orchestrator
	notify       Notifier
	metrics      *observability.Metrics
	lockout      assessment.LockoutPolicy

	mu       sync.Mutex
	sessions map[uuid.UUID]*liveSession
	active   map[string]uuid.UUID
	starting map[string]*startLock
}

type startLock struct {
	mu   sync.Mutex
	refs int
}

func NewAssessmentService(
	baseLog *logger.Logger,
	cfg AssessmentConfig,
	clk clock.Clock,
	assessments learningrepo.AssessmentRepo,
	attempts learningrepo.AttemptRepo,
	writer *Writer,
	orchestrator *completion.Orchestrator,
	notify Notifier,
	metrics *observability.Metrics,
) AssessmentService {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.NewTicks == nil {
		cfg.NewTicks = func() assessment.TickSource { return assessment.ClockTicks{Clock: clk} }
	}
	return &assessmentService{
		log:          baseLog.With("service", "AssessmentService"),
		cfg:          cfg,
		clk:          clk,
		assessments:  assessments,
		attempts:     attempts,
		writer:       writer,
		orchestrator: orchestrator,
		notify:       notify,
		metrics:      metrics,
		lockout:      assessment.LockoutPolicy{Window: cfg.LockoutWindow},
		sessions:     map[uuid.UUID]*liveSession{},
		active:       map[string]uuid.UUID{},
		starting:     map[string]*startLock{},
	}
}

func activeKey(userID, assessmentID uuid.UUID) string {
	return userID.String() + ":" + assessmentID.String()
}

// lockStart serializes starts for one (user, assessment) pair. The returned func releases it.
func (s *assessmentService) lockStart(key string) func() {
	s.mu.Lock()
	l, ok := s.starting[key]
	if !ok {
		l = &startLock{}
		s.starting[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.starting, key)
		}
		s.mu.Unlock()
	}
}

// latest reads the newest stored attempt after this employee's pending writes land.
func (s *assessmentService) latest(ctx context.Context, userID, assessmentID uuid.UUID) (*learning.AssessmentAttempt, error) {
	if err := s.writer.Flush(ctx, userID); err != nil {
		return nil, err
	}
	a, err := s.attempts.GetLatest(ctx, nil, userID, assessmentID)
	return a, dberr.Classify("latest attempt", err)
}

func (s *assessmentService) Eligibility(ctx context.Context, userID, assessmentID uuid.UUID) (assessment.Eligibility, error) {
	a, err := s.assessments.GetWithQuestions(ctx, nil, assessmentID)
	if err != nil {
		return assessment.Eligibility{}, dberr.Classify("get assessment", err)
	}
	if a == nil {
		return assessment.Eligibility{}, ErrAssessmentNotFound
	}
	latest, err := s.latest(ctx, userID, assessmentID)
	if err != nil {
		return assessment.Eligibility{}, err
	}
	return s.lockout.Evaluate(latest, s.clk.Now()), nil
}

func (s *assessmentService) Start(ctx context.Context, userID, assessmentID uuid.UUID) (assessment.View, error) {
	a, err := s.assessments.GetWithQuestions(ctx, nil, assessmentID)
	if err != nil {
		return assessment.View{}, dberr.Classify("get assessment", err)
	}
	if a == nil {
		return assessment.View{}, ErrAssessmentNotFound
	}

	key := activeKey(userID, assessmentID)
	unlock := s.lockStart(key)
	defer unlock()

	// A new start replaces whatever this employee still had open on the same assessment.
	if prev := s.activeSession(userID, assessmentID); prev != nil {
		if err := prev.session.Abandon(); err == nil {
			s.metrics.IncAttemptAbandoned("replaced", 1)
		}
	}

	latest, err := s.latest(ctx, userID, assessmentID)
	if err != nil {
		return assessment.View{}, err
	}

	live := &liveSession{assessment: a}
	live.session = assessment.NewSession(assessment.SessionConfig{
		Assessment:     a,
		UserID:         userID,
		Clock:          s.clk,
		Ticks:          s.cfg.NewTicks(),
		QuestionBudget: s.cfg.QuestionBudget,
		PassThreshold:  s.cfg.PassThreshold,
		Lockout:        s.lockout,
		Hooks:          s.hooks(userID, live),
	})
	if err := live.session.Start(latest); err != nil {
		if errors.Is(err, assessment.ErrAssessmentBlocked) {
			s.metrics.IncAttemptBlocked()
		}
		return assessment.View{}, err
	}

	attemptID := live.session.Attempt().ID
	s.mu.Lock()
	s.sessions[attemptID] = live
	s.active[key] = attemptID
	s.mu.Unlock()
	return live.session.View(), nil
}

func (s *assessmentService) activeSession(userID, assessmentID uuid.UUID) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[activeKey(userID, assessmentID)]
	if !ok {
		return nil
	}
	return s.sessions[id]
}

func (s *assessmentService) hooks(userID uuid.UUID, live *liveSession) assessment.Hooks {
	return assessment.Hooks{
		OnStarted: func(attempt learning.AssessmentAttempt) {
			s.metrics.IncAttemptStarted()
			s.writer.Submit(userID, WriteAttemptCreate, func(ctx context.Context) error {
				a := attempt
				return dberr.Classify("create attempt", s.attempts.Create(ctx, nil, &a))
			})
		},
		OnAdvanced: func(attemptID uuid.UUID, index int, timedOut bool) {
			s.notify.QuestionAdvanced(context.Background(), userID, live.session.View(), timedOut)
		},
		OnFinished: func(attempt learning.AssessmentAttempt, res assessment.Result) {
			s.metrics.IncAttemptFinished(res.Passed)
			s.ended(live, attempt)
			s.writer.Submit(userID, WriteAttemptFinalize, func(ctx context.Context) error {
				a := attempt
				return dberr.Classify("finalize attempt", s.attempts.Finalize(ctx, nil, &a))
			})
			out := completion.AssessmentOutcome{
				UserID:       userID,
				AssessmentID: attempt.AssessmentID,
				CourseID:     live.assessment.CourseID,
				AttemptID:    attempt.ID,
				Passed:       res.Passed,
			}
			s.writer.Submit(userID, WriteEnrollment, func(ctx context.Context) error {
				return orchestrate(s.log, func() (*learning.Enrollment, error) {
					return s.orchestrator.OnAssessmentFinished(ctx, out)
				})
			})
			s.notify.AssessmentFinished(context.Background(), userID, live.session.View())
		},
		OnAbandoned: func(attempt learning.AssessmentAttempt) {
			s.ended(live, attempt)
			at := s.clk.Now()
			if attempt.AbandonedAt != nil {
				at = *attempt.AbandonedAt
			}
			s.writer.Submit(userID, WriteAttemptAbandon, func(ctx context.Context) error {
				_, err := s.attempts.MarkAbandoned(ctx, nil, []uuid.UUID{attempt.ID}, at)
				return dberr.Classify("abandon attempt", err)
			})
		},
	}
}

// ended frees the active slot; the session stays readable until Retention passes.
func (s *assessmentService) ended(live *liveSession, attempt learning.AssessmentAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live.endedAt = s.clk.Now()
	key := activeKey(attempt.UserID, attempt.AssessmentID)
	if s.active[key] == attempt.ID {
		delete(s.active, key)
	}
}

func (s *assessmentService) owned(userID, attemptID uuid.UUID) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.sessions[attemptID]
	if !ok || live.session.UserID() != userID {
		return nil
	}
	return live
}

func (s *assessmentService) Get(ctx context.Context, userID, attemptID uuid.UUID) (assessment.View, error) {
	if live := s.owned(userID, attemptID); live != nil {
		return live.session.View(), nil
	}
	if err := s.writer.Flush(ctx, userID); err != nil {
		return assessment.View{}, err
	}
	row, err := s.attempts.GetByID(ctx, nil, attemptID)
	if err != nil {
		return assessment.View{}, dberr.Classify("get attempt", err)
	}
	if row == nil || row.UserID != userID {
		return assessment.View{}, ErrAttemptNotFound
	}
	return storedView(row), nil
}

// storedView renders an attempt that no longer has a live session. An unfinished row
// without a session can never resume, so it reads as abandoned.
func storedView(row *learning.AssessmentAttempt) assessment.View {
	v := assessment.View{
		AttemptID:    row.ID,
		AssessmentID: row.AssessmentID,
		StartedAt:    row.StartedAt,
		State:        assessment.StateAbandoned,
	}
	if row.Finished() {
		v.State = assessment.StateFinished
		v.Result = &assessment.Result{ScorePercent: row.ScorePercent, Passed: row.Passed}
	}
	return v
}

func (s *assessmentService) Answer(ctx context.Context, userID, attemptID, questionID uuid.UUID, value string) (assessment.View, error) {
	live := s.owned(userID, attemptID)
	if live == nil {
		return assessment.View{}, s.missing(ctx, userID, attemptID)
	}
	if err := live.session.Answer(questionID, value); err != nil {
		return assessment.View{}, err
	}
	return live.session.View(), nil
}

func (s *assessmentService) Advance(ctx context.Context, userID, attemptID, from uuid.UUID) (assessment.View, bool, error) {
	live := s.owned(userID, attemptID)
	if live == nil {
		return assessment.View{}, false, s.missing(ctx, userID, attemptID)
	}
	advanced, err := live.session.Advance(from)
	if err != nil {
		return assessment.View{}, false, err
	}
	return live.session.View(), advanced, nil
}

func (s *assessmentService) Abandon(ctx context.Context, userID, attemptID uuid.UUID) error {
	if live := s.owned(userID, attemptID); live != nil {
		if err := live.session.Abandon(); err != nil {
			return err
		}
		s.metrics.IncAttemptAbandoned("explicit", 1)
		return nil
	}
	if err := s.writer.Flush(ctx, userID); err != nil {
		return err
	}
	row, err := s.attempts.GetByID(ctx, nil, attemptID)
	if err != nil {
		return dberr.Classify("get attempt", err)
	}
	if row == nil || row.UserID != userID {
		return ErrAttemptNotFound
	}
	if row.Finished() || row.AbandonedAt != nil {
		return assessment.ErrNotInProgress
	}
	n, err := s.attempts.MarkAbandoned(ctx, nil, []uuid.UUID{row.ID}, s.clk.Now())
	if err != nil {
		return dberr.Classify("abandon attempt", err)
	}
	s.metrics.IncAttemptAbandoned("explicit", int(n))
	return nil
}

// missing reports why an attempt has no live session: unknown to this employee, or no longer in progress.
func (s *assessmentService) missing(ctx context.Context, userID, attemptID uuid.UUID) error {
	if _, err := s.Get(ctx, userID, attemptID); err != nil {
		return err
	}
	return assessment.ErrNotInProgress
}

func (s *assessmentService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := s.clk.Ticker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.sweep(ctx); err != nil {
					s.log.Warn("attempt sweep failed", "error", err)
				}
			}
		}
	}()
}

// sweep abandons expired attempts and drops ended sessions past retention.
// It returns how many attempts were abandoned.
func (s *assessmentService) sweep(ctx context.Context) (int, error) {
	now := s.clk.Now()
	cutoff := now.Add(-s.cfg.AttemptTTL)

	var expired []*liveSession
	s.mu.Lock()
	for id, live := range s.sessions {
		switch {
		case !live.endedAt.IsZero():
			if now.Sub(live.endedAt) >= s.cfg.Retention {
				delete(s.sessions, id)
			}
		case live.session.Attempt().StartedAt.Before(cutoff):
			expired = append(expired, live)
		}
	}
	s.mu.Unlock()

	abandoned := 0
	for _, live := range expired {
		if err := live.session.Abandon(); err == nil {
			abandoned++
		}
	}
	s.metrics.IncAttemptAbandoned("expired", abandoned)

	stale, err := s.attempts.ListStaleInFlight(ctx, nil, cutoff, 200)
	if err != nil {
		return abandoned, dberr.Classify("list stale attempts", err)
	}
	ids := make([]uuid.UUID, 0, len(stale))
	s.mu.Lock()
	for _, a := range stale {
		if _, live := s.sessions[a.ID]; !live {
			ids = append(ids, a.ID)
		}
	}
	s.mu.Unlock()
	if len(ids) == 0 {
		return abandoned, nil
	}
	n, err := s.attempts.MarkAbandoned(ctx, nil, ids, now)
	if err != nil {
		return abandoned, dberr.Classify("abandon stale attempts", err)
	}
	s.metrics.IncAttemptAbandoned("expired", int(n))
	return abandoned + int(n), nil
}
