package assessment

import (
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

type sessionRecorder struct {
	started   []learning.AssessmentAttempt
	advanced  []int
	timeouts  int
	finished  []learning.AssessmentAttempt
	results   []Result
	abandoned []learning.AssessmentAttempt
}

func (r *sessionRecorder) hooks() Hooks {
	return Hooks{
		OnStarted: func(a learning.AssessmentAttempt) { r.started = append(r.started, a) },
		OnAdvanced: func(_ uuid.UUID, index int, timedOut bool) {
			r.advanced = append(r.advanced, index)
			if timedOut {
				r.timeouts++
			}
		},
		OnFinished: func(a learning.AssessmentAttempt, res Result) {
			r.finished = append(r.finished, a)
			r.results = append(r.results, res)
		},
		OnAbandoned: func(a learning.AssessmentAttempt) { r.abandoned = append(r.abandoned, a) },
	}
}

func buildAssessment(n int) *learning.Assessment {
	a := &learning.Assessment{ID: uuid.New(), Title: "Fire safety"}
	for i := 0; i < n; i++ {
		a.Questions = append(a.Questions, &learning.AssessmentQuestion{
			ID:       uuid.New(),
			Position: i,
			Prompt:   "Which exit?",
			Options:  datatypes.JSON([]byte(abOptions)),
		})
	}
	return a
}

func newSession(a *learning.Assessment) (*Session, *ManualTicks, *clock.Mock, *sessionRecorder) {
	clk := clock.NewMock()
	clk.Add(time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC).Sub(clk.Now()))
	ticks := &ManualTicks{}
	rec := &sessionRecorder{}
	s := NewSession(SessionConfig{
		Assessment: a,
		UserID:     uuid.New(),
		Clock:      clk,
		Ticks:      ticks,
		Hooks:      rec.hooks(),
	})
	return s, ticks, clk, rec
}

// answerAll answers each question correctly when correct[i] is true, advancing after each.
func answerAll(t *testing.T, s *Session, a *learning.Assessment, correct []bool) {
	t.Helper()
	for i, q := range a.Questions {
		v := "B"
		if correct[i] {
			v = "A"
		}
		if err := s.Answer(q.ID, v); err != nil {
			t.Fatalf("Answer %d: %v", i, err)
		}
		if ok, err := s.Advance(q.ID); err != nil || !ok {
			t.Fatalf("Advance %d: ok=%v err=%v", i, ok, err)
		}
	}
}

func TestSessionScoresThreeOfFiveAsFail(t *testing.T) {
	a := buildAssessment(5)
	s, _, _, rec := newSession(a)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	answerAll(t, s, a, []bool{true, true, true, false, false})

	if s.State() != StateFinished {
		t.Fatalf("state: want=%s got=%s", StateFinished, s.State())
	}
	if len(rec.finished) != 1 {
		t.Fatalf("finished hooks: want=1 got=%d", len(rec.finished))
	}
	got := rec.finished[0]
	if got.ScorePercent != 60 || got.Passed || got.CompletedAt == nil {
		t.Fatalf("attempt: %+v", got)
	}
	if len(got.AnswerMap()) != 5 {
		t.Fatalf("answers persisted: want=5 got=%d", len(got.AnswerMap()))
	}
}

func TestSessionStartBlockedAfterRecentFailure(t *testing.T) {
	a := buildAssessment(5)
	s, ticks, clk, rec := newSession(a)
	failedAt := clk.Now().Add(-3 * time.Hour)
	err := s.Start(&learning.AssessmentAttempt{CompletedAt: &failedAt, ScorePercent: 60})

	var blocked *BlockedError
	if !errors.As(err, &blocked) || blocked.RemainingHours != 21 {
		t.Fatalf("Start: want BlockedError(21) got=%v", err)
	}
	if s.State() != StateNotStarted || len(rec.started) != 0 || ticks.Active() != 0 {
		t.Fatalf("blocked start mutated the session")
	}
}

func TestSessionBlockCheckedBeforeEmpty(t *testing.T) {
	s, _, clk, _ := newSession(buildAssessment(0))
	failedAt := clk.Now().Add(-time.Hour)
	if err := s.Start(&learning.AssessmentAttempt{CompletedAt: &failedAt}); !errors.Is(err, ErrAssessmentBlocked) {
		t.Fatalf("want blocked first, got=%v", err)
	}
	if err := s.Start(nil); !errors.Is(err, ErrEmptyAssessment) {
		t.Fatalf("want ErrEmptyAssessment, got=%v", err)
	}
}

func TestSessionTimeoutAdvancesExactlyOnce(t *testing.T) {
	a := buildAssessment(2)
	s, ticks, _, rec := newSession(a)
	if err := s.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := a.Questions[0].ID

	if n := ticks.Fire(120); n != 120 {
		t.Fatalf("ticks delivered: want=120 got=%d", n)
	}
	if s.QuestionIndex() != 1 || rec.timeouts != 1 {
		t.Fatalf("after timeout: index=%d timeouts=%d", s.QuestionIndex(), rec.timeouts)
	}

	// The late answer and advance for the timed-out question lose the race and change nothing.
	if err := s.Answer(first, "A"); !errors.Is(err, ErrQuestionMismatch) {
		t.Fatalf("late answer: want=%v got=%v", ErrQuestionMismatch, err)
	}
	if ok, err := s.Advance(first); ok || err != nil {
		t.Fatalf("late advance: ok=%v err=%v", ok, err)
	}
	if s.QuestionIndex() != 1 || len(rec.advanced) != 1 {
		t.Fatalf("duplicate advance: index=%d advances=%d", s.QuestionIndex(), len(rec.advanced))
	}
	if ticks.Active() != 1 {
		t.Fatalf("active countdowns: want=1 got=%d", ticks.Active())
	}

	if err := s.Answer(a.Questions[1].ID, "A"); err != nil {
		t.Fatalf("answer second: %v", err)
	}
	if ok, err := s.Advance(a.Questions[1].ID); !ok || err != nil {
		t.Fatalf("advance second: ok=%v err=%v", ok, err)
	}
	res := rec.results[0]
	if res.Correct[first] || res.ScorePercent != 50 {
		t.Fatalf("timed-out question must score incorrect: %+v", res)
	}
	if ticks.Active() != 0 {
		t.Fatalf("countdown left running after finish")
	}
}

func TestSessionAnsweredQuestionWaitsAtZero(t *testing.T) {
	a := buildAssessment(2)
	s, ticks, _, rec := newSession(a)
	_ = s.Start(nil)
	_ = s.Answer(a.Questions[0].ID, "A")
	ticks.Fire(200)
	if s.QuestionIndex() != 0 || len(rec.advanced) != 0 {
		t.Fatalf("answered question auto-advanced: index=%d", s.QuestionIndex())
	}
	if v := s.View(); v.RemainingSeconds != 0 || v.Answer != "A" {
		t.Fatalf("view: %+v", v)
	}
}

func TestSessionAnswerOverwritesAndIndexIsMonotonic(t *testing.T) {
	a := buildAssessment(3)
	s, ticks, _, rec := newSession(a)
	_ = s.Start(nil)

	last := s.QuestionIndex()
	check := func() {
		if idx := s.QuestionIndex(); idx < last {
			t.Fatalf("index decreased: %d -> %d", last, idx)
		} else {
			last = idx
		}
	}
	_ = s.Answer(a.Questions[0].ID, "B")
	_ = s.Answer(a.Questions[0].ID, "A")
	check()
	_, _ = s.Advance(uuid.Nil)
	check()
	ticks.Fire(120)
	check()
	_, _ = s.Advance(a.Questions[0].ID)
	check()
	_, _ = s.Advance(uuid.Nil)
	check()

	if s.State() != StateFinished {
		t.Fatalf("state: want finished got=%s", s.State())
	}
	if rec.results[0].EarnedPoints != 10 {
		t.Fatalf("overwritten answer should count once as correct: %+v", rec.results[0])
	}
	if _, err := s.Advance(uuid.Nil); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("advance after finish: want=%v got=%v", ErrNotInProgress, err)
	}
}

func TestSessionTimeSpentMinutes(t *testing.T) {
	a := buildAssessment(3)
	s, ticks, _, rec := newSession(a)
	_ = s.Start(nil)
	ticks.Fire(120) // q1 times out
	ticks.Fire(120) // q2 times out
	ticks.Fire(30)
	_ = s.Answer(a.Questions[2].ID, "A")
	_, _ = s.Advance(a.Questions[2].ID)

	// 3*120 - 90 remaining = 270s -> 4.5 -> 5 minutes.
	if got := rec.finished[0].TimeSpentMinutes; got != 5 {
		t.Fatalf("time spent: want=5 got=%d", got)
	}
}

func TestSessionStaleTickIgnored(t *testing.T) {
	a := buildAssessment(2)
	s, _, _, rec := newSession(a)
	_ = s.Start(nil)
	staleGen := s.generation
	_, _ = s.Advance(uuid.Nil)
	for i := 0; i < 500; i++ {
		s.onTick(staleGen)
	}
	if s.QuestionIndex() != 1 || s.State() != StateInProgress || len(rec.finished) != 0 {
		t.Fatalf("stale ticks mutated session: index=%d state=%s", s.QuestionIndex(), s.State())
	}
}

func TestSessionAbandon(t *testing.T) {
	a := buildAssessment(2)
	s, ticks, _, rec := newSession(a)
	_ = s.Start(nil)
	_ = s.Answer(a.Questions[0].ID, "A")
	if err := s.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if ticks.Active() != 0 {
		t.Fatalf("countdown still active after abandon")
	}
	got := rec.abandoned[0]
	if got.CompletedAt != nil || got.AbandonedAt == nil {
		t.Fatalf("abandoned attempt: %+v", got)
	}
	if EvaluateLockout(&got, got.AbandonedAt.Add(time.Minute)).Blocked {
		t.Fatalf("abandoned attempt must not block")
	}
	if err := s.Answer(a.Questions[0].ID, "B"); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("answer after abandon: %v", err)
	}
}

func TestSessionViewHidesCorrectness(t *testing.T) {
	a := buildAssessment(1)
	s, _, _, _ := newSession(a)
	_ = s.Start(nil)
	v := s.View()
	if v.Question == nil || len(v.Question.Options) != 2 || v.RemainingSeconds != 120 {
		t.Fatalf("view: %+v", v)
	}
	if v.Question.Points != learning.DefaultQuestionPoints {
		t.Fatalf("points: want=%d got=%d", learning.DefaultQuestionPoints, v.Question.Points)
	}
}
