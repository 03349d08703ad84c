package assessment

import (
	"math"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

const DefaultQuestionBudget = 120 * time.Second

type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
	StateAbandoned  State = "abandoned"
)

// Hooks observe session transitions. They run after the session lock is released,
// so they may read the session but should hand slow work off.
type Hooks struct {
	OnStarted   func(attempt learning.AssessmentAttempt)
	OnAdvanced  func(attemptID uuid.UUID, index int, timedOut bool)
	OnFinished  func(attempt learning.AssessmentAttempt, result Result)
	OnAbandoned func(attempt learning.AssessmentAttempt)
}

type SessionConfig struct {
	Assessment     *learning.Assessment
	UserID         uuid.UUID
	Clock          clock.Clock
	Ticks          TickSource
	QuestionBudget time.Duration
	PassThreshold  int
	Lockout        LockoutPolicy
	Hooks          Hooks
}

// Session is one candidate's run through an assessment: one question at a time,
// each with its own countdown, scored once at the end.
type Session struct {
	mu sync.Mutex

	assessment *learning.Assessment
	questions  []*learning.AssessmentQuestion
	keys       []AnswerKey
	userID     uuid.UUID
	clk        clock.Clock
	ticks      TickSource
	budget     int
	pass       int
	lockout    LockoutPolicy
	hooks      Hooks

	state     State
	attempt   learning.AssessmentAttempt
	index     int
	remaining int
	answers   map[string]string
	result    *Result

	stopTicks  func()
	generation uint64
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Ticks == nil {
		cfg.Ticks = ClockTicks{Clock: cfg.Clock}
	}
	if cfg.QuestionBudget <= 0 {
		cfg.QuestionBudget = DefaultQuestionBudget
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = DefaultPassThreshold
	}
	s := &Session{
		assessment: cfg.Assessment,
		userID:     cfg.UserID,
		clk:        cfg.Clock,
		ticks:      cfg.Ticks,
		budget:     int(math.Round(cfg.QuestionBudget.Seconds())),
		pass:       cfg.PassThreshold,
		lockout:    cfg.Lockout,
		hooks:      cfg.Hooks,
		state:      StateNotStarted,
		answers:    map[string]string{},
	}
	if s.assessment != nil {
		for _, q := range s.assessment.Questions {
			if q != nil {
				s.questions = append(s.questions, q)
				s.keys = append(s.keys, NewAnswerKey(q))
			}
		}
	}
	return s
}

// Start gates on the lockout policy using the latest stored attempt, then opens a new
// attempt on the first question.
func (s *Session) Start(latest *learning.AssessmentAttempt) error {
	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	now := s.clk.Now()
	if e := s.lockout.Evaluate(latest, now); e.Blocked {
		s.mu.Unlock()
		return &BlockedError{RemainingHours: e.RemainingHours}
	}
	if len(s.keys) == 0 {
		s.mu.Unlock()
		return ErrEmptyAssessment
	}
	s.attempt = learning.AssessmentAttempt{
		ID:           uuid.New(),
		AssessmentID: s.assessment.ID,
		UserID:       s.userID,
		StartedAt:    now,
		Answers:      learning.EncodeAnswers(nil),
	}
	s.state = StateInProgress
	s.index = 0
	s.startCountdownLocked()
	attempt := s.attempt
	s.mu.Unlock()

	if s.hooks.OnStarted != nil {
		s.hooks.OnStarted(attempt)
	}
	return nil
}

// Answer records value for the current question, replacing any earlier answer to it.
func (s *Session) Answer(questionID uuid.UUID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if s.keys[s.index].QuestionID != questionID {
		return ErrQuestionMismatch
	}
	s.answers[questionID.String()] = value
	return nil
}

// Advance moves past the current question, finishing the attempt after the last one.
// A non-nil from guards against double advances: if the session has already left that
// question the call is a no-op and reports false.
func (s *Session) Advance(from uuid.UUID) (bool, error) {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return false, ErrNotInProgress
	}
	if from != uuid.Nil && s.keys[s.index].QuestionID != from {
		s.mu.Unlock()
		return false, nil
	}
	after := s.advanceLocked(false)
	s.mu.Unlock()
	after()
	return true, nil
}

func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	if s.state != StateInProgress || gen != s.generation || s.remaining <= 0 {
		s.mu.Unlock()
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.mu.Unlock()
		return
	}
	if _, answered := s.answers[s.keys[s.index].QuestionID.String()]; answered {
		// Time is up but the candidate picked something; wait for them to move on.
		s.stopCountdownLocked()
		s.mu.Unlock()
		return
	}
	after := s.advanceLocked(true)
	s.mu.Unlock()
	after()
}

// advanceLocked must be called with mu held; the returned func fires hooks and must run unlocked.
func (s *Session) advanceLocked(timedOut bool) func() {
	s.stopCountdownLocked()
	if s.index == len(s.keys)-1 {
		return s.finalizeLocked()
	}
	s.index++
	s.startCountdownLocked()
	attemptID, index := s.attempt.ID, s.index
	return func() {
		if s.hooks.OnAdvanced != nil {
			s.hooks.OnAdvanced(attemptID, index, timedOut)
		}
	}
}

func (s *Session) finalizeLocked() func() {
	now := s.clk.Now()
	res := Score(s.keys, s.answers, s.pass)
	spent := len(s.keys)*s.budget - s.remaining
	if spent < 0 {
		spent = 0
	}

	s.attempt.CompletedAt = &now
	s.attempt.Answers = learning.EncodeAnswers(s.answers)
	s.attempt.ScorePercent = res.ScorePercent
	s.attempt.Passed = res.Passed
	s.attempt.TimeSpentMinutes = int(math.Round(float64(spent) / 60))
	s.attempt.UpdatedAt = now
	s.state = StateFinished
	s.result = &res

	attempt := s.attempt
	return func() {
		if s.hooks.OnFinished != nil {
			s.hooks.OnFinished(attempt, res)
		}
	}
}

// Abandon ends an in-progress session without scoring it. The attempt keeps a nil completed_at.
func (s *Session) Abandon() error {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return ErrNotInProgress
	}
	s.stopCountdownLocked()
	now := s.clk.Now()
	s.attempt.AbandonedAt = &now
	s.attempt.Answers = learning.EncodeAnswers(s.answers)
	s.state = StateAbandoned
	attempt := s.attempt
	s.mu.Unlock()

	if s.hooks.OnAbandoned != nil {
		s.hooks.OnAbandoned(attempt)
	}
	return nil
}

func (s *Session) startCountdownLocked() {
	s.stopCountdownLocked()
	s.generation++
	s.remaining = s.budget
	gen := s.generation
	s.stopTicks = s.ticks.Start(func() { s.onTick(gen) })
}

func (s *Session) stopCountdownLocked() {
	if s.stopTicks != nil {
		s.stopTicks()
		s.stopTicks = nil
	}
}

type QuestionView struct {
	ID      uuid.UUID               `json:"id"`
	Prompt  string                  `json:"prompt"`
	Options []learning.PublicOption `json:"options"`
	Points  int                     `json:"points"`
}

type View struct {
	AttemptID        uuid.UUID     `json:"attempt_id"`
	AssessmentID     uuid.UUID     `json:"assessment_id"`
	State            State         `json:"state"`
	QuestionIndex    int           `json:"question_index"`
	QuestionCount    int           `json:"question_count"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Question         *QuestionView `json:"question,omitempty"`
	Answer           string        `json:"answer,omitempty"`
	Result           *Result       `json:"result,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		AttemptID:        s.attempt.ID,
		State:            s.state,
		QuestionIndex:    s.index,
		QuestionCount:    len(s.keys),
		RemainingSeconds: s.remaining,
		Result:           s.result,
		StartedAt:        s.attempt.StartedAt,
	}
	if s.assessment != nil {
		v.AssessmentID = s.assessment.ID
	}
	if s.state == StateInProgress {
		q := s.questions[s.index]
		qv := &QuestionView{ID: q.ID, Prompt: q.Prompt, Points: q.Weight()}
		if opts, err := q.ParsedOptions(); err == nil {
			for _, o := range opts {
				qv.Options = append(qv.Options, learning.PublicOption{Letter: o.Letter, Text: o.Text})
			}
		}
		v.Question = qv
		v.Answer = s.answers[q.ID.String()]
	}
	return v
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) QuestionIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Session) Attempt() learning.AssessmentAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

func (s *Session) UserID() uuid.UUID { return s.userID }
