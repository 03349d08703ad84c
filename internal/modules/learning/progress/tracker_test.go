package progress

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

type recordingSink struct {
	mu        sync.Mutex
	rows      []learning.LessonProgress
	durations map[uuid.UUID]int
}

func (s *recordingSink) SaveLessonProgress(row learning.LessonProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
}

func (s *recordingSink) SaveLessonDuration(id uuid.UUID, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.durations == nil {
		s.durations = map[uuid.UUID]int{}
	}
	s.durations[id] = seconds
}

type progressEvent struct{ completed, total int }

type recordingListener struct{ events []progressEvent }

func (l *recordingListener) ProgressChanged(_, _ uuid.UUID, completed, total int) {
	l.events = append(l.events, progressEvent{completed, total})
}

func buildCourse(durations ...[]int) *learning.Course {
	c := &learning.Course{ID: uuid.New()}
	// Modules are appended in reverse to check that the graph sorts by index.
	for mi := len(durations) - 1; mi >= 0; mi-- {
		m := &learning.CourseModule{ID: uuid.New(), CourseID: c.ID, Index: mi}
		for li := len(durations[mi]) - 1; li >= 0; li-- {
			m.Lessons = append(m.Lessons, &learning.Lesson{ID: uuid.New(), ModuleID: m.ID, Index: li, DurationSeconds: durations[mi][li]})
		}
		c.Modules = append(c.Modules, m)
	}
	return c
}

func newTracker(t *testing.T, c *learning.Course, rows ...*learning.LessonProgress) (*Tracker, *recordingSink, *recordingListener, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Add(time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC).Sub(clk.Now()))
	sink := &recordingSink{}
	listener := &recordingListener{}
	tr := NewTracker(TrackerConfig{
		UserID:   uuid.New(),
		Graph:    NewGraph(c),
		Progress: rows,
		Clock:    clk,
		Sink:     sink,
		Listener: listener,
	})
	return tr, sink, listener, clk
}

func TestGraphFlattensByModuleThenLesson(t *testing.T) {
	c := buildCourse([]int{10, 20}, []int{30})
	g := NewGraph(c)
	if g.Len() != 3 {
		t.Fatalf("Len: want=3 got=%d", g.Len())
	}
	want := []int{10, 20, 30}
	for i, l := range g.Lessons() {
		if l.DurationSeconds != want[i] {
			t.Fatalf("order[%d]: want=%d got=%d", i, want[i], l.DurationSeconds)
		}
	}
}

func TestPercentRounding(t *testing.T) {
	cases := []struct{ c, total, want int }{{0, 0, 0}, {0, 3, 0}, {1, 3, 33}, {2, 3, 67}, {3, 3, 100}, {1, 8, 13}}
	for _, tc := range cases {
		if got := Percent(tc.c, tc.total); got != tc.want {
			t.Fatalf("Percent(%d,%d): want=%d got=%d", tc.c, tc.total, tc.want, got)
		}
	}
}

func TestScenarioThreeLessonsNoAssessment(t *testing.T) {
	c := buildCourse([]int{100, 100, 100})
	tr, _, listener, _ := newTracker(t, c)
	lessons := tr.Graph().Lessons()

	if !tr.IsUnlocked(lessons[0].ID) || tr.IsUnlocked(lessons[1].ID) {
		t.Fatalf("initial unlock state wrong")
	}
	if _, err := tr.ReportEnded(lessons[0].ID); err != nil {
		t.Fatalf("ReportEnded 1: %v", err)
	}
	if !tr.IsUnlocked(lessons[1].ID) || tr.IsUnlocked(lessons[2].ID) {
		t.Fatalf("after lesson 1: want unlocked={1,2}")
	}
	if got := tr.CoursePercent(); got != 33 {
		t.Fatalf("progress after 1: want=33 got=%d", got)
	}
	if _, err := tr.ReportEnded(lessons[1].ID); err != nil {
		t.Fatalf("ReportEnded 2: %v", err)
	}
	if got := tr.CoursePercent(); got != 67 {
		t.Fatalf("progress after 2: want=67 got=%d", got)
	}
	if _, err := tr.ReportEnded(lessons[2].ID); err != nil {
		t.Fatalf("ReportEnded 3: %v", err)
	}
	if got := tr.CoursePercent(); got != 100 {
		t.Fatalf("progress after 3: want=100 got=%d", got)
	}
	want := []progressEvent{{1, 3}, {2, 3}, {3, 3}}
	if len(listener.events) != len(want) {
		t.Fatalf("notifications: want=%v got=%v", want, listener.events)
	}
	for i := range want {
		if listener.events[i] != want[i] {
			t.Fatalf("notification %d: want=%v got=%v", i, want[i], listener.events[i])
		}
	}
}

func TestUnlockIffAllPriorCompleted(t *testing.T) {
	c := buildCourse([]int{60, 60}, []int{60, 60})
	lessons := NewGraph(c).Lessons()
	// Every completion subset over four lessons.
	for mask := 0; mask < 16; mask++ {
		var rows []*learning.LessonProgress
		for i, l := range lessons {
			if mask&(1<<i) != 0 {
				rows = append(rows, &learning.LessonProgress{LessonID: l.ID, Completed: true})
			}
		}
		tr, _, _, _ := newTracker(t, c, rows...)
		for i, l := range tr.Graph().Lessons() {
			want := true
			for j := 0; j < i; j++ {
				if mask&(1<<j) == 0 {
					want = false
				}
			}
			if got := tr.IsUnlocked(l.ID); got != want {
				t.Fatalf("mask=%04b lesson %d: want unlocked=%v got=%v", mask, i, want, got)
			}
		}
	}
}

func TestSelectLockedLessonFailsWithoutMutation(t *testing.T) {
	c := buildCourse([]int{100, 100, 100})
	tr, sink, _, _ := newTracker(t, c)
	lessons := tr.Graph().Lessons()

	if err := tr.Select(lessons[2].ID); !errors.Is(err, ErrLessonLocked) {
		t.Fatalf("Select locked: want=%v got=%v", ErrLessonLocked, err)
	}
	if tr.Active().ID != lessons[0].ID {
		t.Fatalf("active changed on failed select")
	}
	if _, err := tr.ReportTime(lessons[1].ID, 50, 100); !errors.Is(err, ErrLessonLocked) {
		t.Fatalf("ReportTime locked: want=%v got=%v", ErrLessonLocked, err)
	}
	if _, err := tr.ReportEnded(lessons[1].ID); !errors.Is(err, ErrLessonLocked) {
		t.Fatalf("ReportEnded locked: want=%v got=%v", ErrLessonLocked, err)
	}
	if len(sink.rows) != 0 {
		t.Fatalf("locked operations persisted %d rows", len(sink.rows))
	}
	if err := tr.Select(uuid.New()); !errors.Is(err, ErrUnknownLesson) {
		t.Fatalf("Select unknown: want=%v got=%v", ErrUnknownLesson, err)
	}
}

func TestReportTimeThrottlesAndIgnoresRewind(t *testing.T) {
	c := buildCourse([]int{200})
	tr, sink, _, _ := newTracker(t, c)
	id := tr.Graph().Lessons()[0].ID

	for _, elapsed := range []float64{1, 4.5, 9, 11, 12, 21.9} {
		if _, err := tr.ReportTime(id, elapsed, 200); err != nil {
			t.Fatalf("ReportTime(%v): %v", elapsed, err)
		}
	}
	// First report persists, then every >= 10 seconds of media time: 1, 11, 21.
	if len(sink.rows) != 3 {
		t.Fatalf("persist count: want=3 got=%d", len(sink.rows))
	}
	if got := sink.rows[2].WatchedSeconds; got != 21 {
		t.Fatalf("last persisted watched: want=21 got=%d", got)
	}

	accepted, err := tr.ReportTime(id, 5, 200)
	if err != nil || accepted {
		t.Fatalf("rewind: want ignored got accepted=%v err=%v", accepted, err)
	}
	if got := tr.LessonStatus(id); got != StatusInProgress {
		t.Fatalf("status: want=%s got=%s", StatusInProgress, got)
	}
	if got := tr.LessonPercent(id); got != 11 {
		t.Fatalf("lesson percent: want=11 got=%d", got)
	}
	rp, err := tr.Resume(id)
	if err != nil || rp.StartPosition != 21 || rp.Status != StatusInProgress {
		t.Fatalf("resume: want start=21 status=%s got=%+v err=%v", StatusInProgress, rp, err)
	}
}

func TestReportTimeLearnsUnknownDuration(t *testing.T) {
	c := buildCourse([]int{0})
	tr, sink, _, _ := newTracker(t, c)
	id := tr.Graph().Lessons()[0].ID

	if got := tr.LessonPercent(id); got != 0 {
		t.Fatalf("percent with unknown duration: want=0 got=%d", got)
	}
	if _, err := tr.ReportTime(id, 30, 120.4); err != nil {
		t.Fatalf("ReportTime: %v", err)
	}
	if sink.durations[id] != 120 {
		t.Fatalf("learned duration: want=120 got=%d", sink.durations[id])
	}
	if got := tr.LessonPercent(id); got != 25 {
		t.Fatalf("percent: want=25 got=%d", got)
	}
}

func TestResumeSnapshotsDurationWhileReportsLearnIt(t *testing.T) {
	c := buildCourse([]int{0})
	tr, _, _, _ := newTracker(t, c)
	id := tr.Graph().Lessons()[0].ID

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 50; i++ {
			_, _ = tr.ReportTime(id, float64(i), 300)
		}
	}()
	for i := 0; i < 50; i++ {
		rp, err := tr.Resume(id)
		if err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if d := rp.Lesson.DurationSeconds; d != 0 && d != 300 {
			t.Fatalf("duration snapshot: want 0 or 300 got=%d", d)
		}
	}
	<-done
	if rp, _ := tr.Resume(id); rp.Lesson.DurationSeconds != 300 {
		t.Fatalf("learned duration: want=300 got=%d", rp.Lesson.DurationSeconds)
	}
}

func TestReportEndedKeepsFirstCompletionTimeAndAdvances(t *testing.T) {
	c := buildCourse([]int{100, 100})
	tr, sink, _, clk := newTracker(t, c)
	lessons := tr.Graph().Lessons()

	next, err := tr.ReportEnded(lessons[0].ID)
	if err != nil || next.ID != lessons[1].ID {
		t.Fatalf("advance: next=%v err=%v", next, err)
	}
	first := *sink.rows[0].CompletedAt

	clk.Add(time.Hour)
	if _, err := tr.ReportEnded(lessons[0].ID); err != nil {
		t.Fatalf("second ended: %v", err)
	}
	if got := *sink.rows[len(sink.rows)-1].CompletedAt; !got.Equal(first) {
		t.Fatalf("completed_at moved: want=%v got=%v", first, got)
	}

	if _, err := tr.ReportEnded(lessons[1].ID); err != nil {
		t.Fatalf("last ended: %v", err)
	}
	if tr.Active().ID != lessons[1].ID {
		t.Fatalf("selection should stay on last lesson")
	}
	if got := tr.LessonPercent(lessons[1].ID); got != 100 {
		t.Fatalf("completed lesson percent: want=100 got=%d", got)
	}
}

func TestInitialSelection(t *testing.T) {
	c := buildCourse([]int{100, 100, 100})
	lessons := NewGraph(c).Lessons()

	tr, _, _, _ := newTracker(t, c, &learning.LessonProgress{LessonID: lessons[0].ID, Completed: true})
	if tr.Active().ID != lessons[1].ID {
		t.Fatalf("want first not-completed lesson selected")
	}

	all := []*learning.LessonProgress{}
	for _, l := range lessons {
		all = append(all, &learning.LessonProgress{LessonID: l.ID, Completed: true})
	}
	tr, _, _, _ = newTracker(t, c, all...)
	if tr.Active().ID != lessons[0].ID {
		t.Fatalf("want first lesson selected when everything is completed")
	}

	empty, _, _, _ := newTracker(t, &learning.Course{ID: uuid.New()})
	if empty.Active() != nil || empty.CoursePercent() != 0 {
		t.Fatalf("empty course: active=%v percent=%d", empty.Active(), empty.CoursePercent())
	}
}
