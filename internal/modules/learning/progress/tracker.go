package progress

import (
	"math"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// DefaultPersistEvery is how much reported media time must pass between progress writes.
const DefaultPersistEvery = 10

// Sink receives progress writes. Calls must not block on the database.
type Sink interface {
	SaveLessonProgress(row learning.LessonProgress)
	SaveLessonDuration(lessonID uuid.UUID, seconds int)
}

// Listener is told whenever the number of completed lessons changes.
type Listener interface {
	ProgressChanged(userID, courseID uuid.UUID, completed, total int)
}

type TrackerConfig struct {
	UserID   uuid.UUID
	Graph    *Graph
	Progress []*learning.LessonProgress
	Clock    clock.Clock
	Sink     Sink
	Listener Listener
	// PersistEvery throttles time-report writes, in seconds of media time.
	PersistEvery int
}

// Tracker owns one employee's player session for one course.
type Tracker struct {
	mu sync.Mutex

	userID       uuid.UUID
	graph        *Graph
	rows         []*learning.LessonProgress
	persistedAt  []int
	active       int
	clk          clock.Clock
	sink         Sink
	listener     Listener
	persistEvery int
	lastUsed     time.Time
}

func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.Graph == nil {
		cfg.Graph = NewGraph(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.PersistEvery <= 0 {
		cfg.PersistEvery = DefaultPersistEvery
	}
	n := cfg.Graph.Len()
	t := &Tracker{
		userID:       cfg.UserID,
		graph:        cfg.Graph,
		rows:         make([]*learning.LessonProgress, n),
		persistedAt:  make([]int, n),
		clk:          cfg.Clock,
		sink:         cfg.Sink,
		listener:     cfg.Listener,
		persistEvery: cfg.PersistEvery,
	}
	for i := range t.persistedAt {
		t.persistedAt[i] = -1
	}
	for _, p := range cfg.Progress {
		if p == nil {
			continue
		}
		if i, ok := cfg.Graph.Position(p.LessonID); ok {
			cp := *p
			t.rows[i] = &cp
			t.persistedAt[i] = cp.WatchedSeconds
		}
	}
	t.active = t.initialSelection()
	t.lastUsed = t.clk.Now()
	return t
}

func (t *Tracker) UserID() uuid.UUID   { return t.userID }
func (t *Tracker) CourseID() uuid.UUID { return t.graph.CourseID }
func (t *Tracker) Graph() *Graph       { return t.graph }

// LastUsed is when the session last handled a call; idle sessions are evicted by their owner.
func (t *Tracker) LastUsed() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastUsed
}

func (t *Tracker) initialSelection() int {
	if t.graph.Len() == 0 {
		return -1
	}
	for i := range t.rows {
		if !t.unlocked(i) {
			break
		}
		if !t.completed(i) {
			return i
		}
	}
	return 0
}

func (t *Tracker) completed(i int) bool {
	return t.rows[i] != nil && t.rows[i].Completed
}

func (t *Tracker) unlocked(i int) bool {
	for j := 0; j < i; j++ {
		if !t.completed(j) {
			return false
		}
	}
	return i >= 0 && i < len(t.rows)
}

func (t *Tracker) completedCount() int {
	n := 0
	for i := range t.rows {
		if t.completed(i) {
			n++
		}
	}
	return n
}

func (t *Tracker) status(i int) Status {
	switch r := t.rows[i]; {
	case r == nil:
		return StatusNotStarted
	case r.Completed:
		return StatusCompleted
	case r.WatchedSeconds > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

func (t *Tracker) percent(i int) int {
	r := t.rows[i]
	if r == nil {
		return 0
	}
	if r.Completed {
		return 100
	}
	d := t.graph.At(i).DurationSeconds
	if d <= 0 || r.WatchedSeconds <= 0 {
		return 0
	}
	p := (200*r.WatchedSeconds + d) / (2 * d)
	if p > 100 {
		return 100
	}
	return p
}

func (t *Tracker) IsUnlocked(lessonID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.graph.Position(lessonID)
	return ok && t.unlocked(i)
}

func (t *Tracker) LessonStatus(lessonID uuid.UUID) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.graph.Position(lessonID)
	if !ok {
		return StatusNotStarted
	}
	return t.status(i)
}

func (t *Tracker) LessonPercent(lessonID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.graph.Position(lessonID)
	if !ok {
		return 0
	}
	return t.percent(i)
}

func (t *Tracker) CoursePercent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Percent(t.completedCount(), t.graph.Len())
}

// Active returns the selected lesson, nil for an empty course.
func (t *Tracker) Active() *learning.Lesson {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.graph.At(t.active)
}

// Select makes lessonID the active lesson.
func (t *Tracker) Select(lessonID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, err := t.lookupUnlocked(lessonID)
	if err != nil {
		return err
	}
	t.active = i
	t.lastUsed = t.clk.Now()
	return nil
}

func (t *Tracker) lookupUnlocked(lessonID uuid.UUID) (int, error) {
	i, ok := t.graph.Position(lessonID)
	if !ok {
		return -1, ErrUnknownLesson
	}
	if !t.unlocked(i) {
		return -1, ErrLessonLocked
	}
	return i, nil
}

// ResumePoint is a locked snapshot of one lesson for the player.
type ResumePoint struct {
	Lesson        learning.Lesson
	StartPosition int
	Status        Status
}

// Resume snapshots lessonID for playback. StartPosition is the last reported
// position, or the beginning for completed lessons.
func (t *Tracker) Resume(lessonID uuid.UUID) (ResumePoint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, err := t.lookupUnlocked(lessonID)
	if err != nil {
		return ResumePoint{}, err
	}
	rp := ResumePoint{Lesson: *t.graph.At(i), Status: t.status(i)}
	if r := t.rows[i]; r != nil && !r.Completed {
		rp.StartPosition = r.LastPosition
	}
	return rp, nil
}

func (t *Tracker) row(i int) *learning.LessonProgress {
	if t.rows[i] == nil {
		t.rows[i] = &learning.LessonProgress{
			UserID:   t.userID,
			LessonID: t.graph.At(i).ID,
			CourseID: t.graph.CourseID,
		}
	}
	return t.rows[i]
}

// ReportTime applies a periodic time update from the player. Updates behind the recorded
// watched time are ignored and report false. durationSeconds fills in an unknown lesson length.
func (t *Tracker) ReportTime(lessonID uuid.UUID, elapsedSeconds, durationSeconds float64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, err := t.lookupUnlocked(lessonID)
	if err != nil {
		return false, err
	}
	now := t.clk.Now()
	t.lastUsed = now

	lesson := t.graph.At(i)
	if lesson.DurationSeconds <= 0 && durationSeconds >= 1 && !math.IsInf(durationSeconds, 0) {
		lesson.DurationSeconds = int(math.Round(durationSeconds))
		if t.sink != nil {
			t.sink.SaveLessonDuration(lesson.ID, lesson.DurationSeconds)
		}
	}

	if math.IsNaN(elapsedSeconds) || elapsedSeconds < 0 {
		return false, nil
	}
	elapsed := int(elapsedSeconds)
	r := t.row(i)
	if elapsed < r.WatchedSeconds {
		return false, nil
	}
	r.WatchedSeconds = elapsed
	r.LastPosition = elapsed
	r.UpdatedAt = now

	if t.persistedAt[i] < 0 || elapsed-t.persistedAt[i] >= t.persistEvery {
		t.persist(i)
	}
	return true, nil
}

// ReportEnded marks the lesson completed and moves the selection to the next lesson.
// It returns the newly active lesson.
func (t *Tracker) ReportEnded(lessonID uuid.UUID) (*learning.Lesson, error) {
	t.mu.Lock()
	i, err := t.lookupUnlocked(lessonID)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	now := t.clk.Now()
	t.lastUsed = now

	r := t.row(i)
	if !r.Completed {
		r.Completed = true
		at := now
		r.CompletedAt = &at
	}
	if d := t.graph.At(i).DurationSeconds; d > r.WatchedSeconds {
		r.WatchedSeconds = d
	}
	r.UpdatedAt = now
	t.persist(i)

	if i+1 < t.graph.Len() {
		t.active = i + 1
	}
	completed, total := t.completedCount(), t.graph.Len()
	next := t.graph.At(t.active)
	t.mu.Unlock()

	if t.listener != nil {
		t.listener.ProgressChanged(t.userID, t.graph.CourseID, completed, total)
	}
	return next, nil
}

func (t *Tracker) persist(i int) {
	t.persistedAt[i] = t.rows[i].WatchedSeconds
	if t.sink != nil {
		t.sink.SaveLessonProgress(*t.rows[i])
	}
}

type LessonView struct {
	LessonID        uuid.UUID           `json:"lesson_id"`
	ModuleID        uuid.UUID           `json:"module_id"`
	Title           string              `json:"title"`
	Kind            learning.LessonKind `json:"kind"`
	DurationSeconds int                 `json:"duration_seconds"`
	Unlocked        bool                `json:"unlocked"`
	Status          Status              `json:"status"`
	Percent         int                 `json:"percent"`
	WatchedSeconds  int                 `json:"watched_seconds"`
}

type CourseView struct {
	CourseID       uuid.UUID    `json:"course_id"`
	ActiveLessonID *uuid.UUID   `json:"active_lesson_id,omitempty"`
	Completed      int          `json:"completed_lessons"`
	Total          int          `json:"total_lessons"`
	Percent        int          `json:"progress_percent"`
	Lessons        []LessonView `json:"lessons"`
}

// View snapshots the whole course for rendering.
func (t *Tracker) View() CourseView {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := CourseView{
		CourseID:  t.graph.CourseID,
		Completed: t.completedCount(),
		Total:     t.graph.Len(),
		Lessons:   make([]LessonView, 0, t.graph.Len()),
	}
	v.Percent = Percent(v.Completed, v.Total)
	if l := t.graph.At(t.active); l != nil {
		id := l.ID
		v.ActiveLessonID = &id
	}
	for i, l := range t.graph.Lessons() {
		lv := LessonView{
			LessonID:        l.ID,
			ModuleID:        l.ModuleID,
			Title:           l.Title,
			Kind:            l.Kind,
			DurationSeconds: l.DurationSeconds,
			Unlocked:        t.unlocked(i),
			Status:          t.status(i),
			Percent:         t.percent(i),
		}
		if r := t.rows[i]; r != nil {
			lv.WatchedSeconds = r.WatchedSeconds
		}
		v.Lessons = append(v.Lessons, lv)
	}
	return v
}
