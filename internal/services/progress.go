package services

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/trainingportal-backend/internal/data/dberr"
	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/completion"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/progress"
	"github.com/yungbote/trainingportal-backend/internal/observability"
	"github.com/yungbote/trainingportal-backend/internal/platform/gcp"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type ProgressConfig struct {
	// PersistEvery is passed to each tracker, in seconds of media time.
	PersistEvery int
	// IdleTTL evicts player sessions nobody has touched for this long.
	IdleTTL time.Duration
}

// LessonPlayback is what the player needs to open a lesson.
type LessonPlayback struct {
	LessonID        uuid.UUID           `json:"lesson_id"`
	Title           string              `json:"title"`
	Kind            learning.LessonKind `json:"kind"`
	DurationSeconds int                 `json:"duration_seconds"`
	MediaURL        string              `json:"media_url"`
	StartPosition   int                 `json:"start_position"`
	Status          progress.Status     `json:"status"`
}

type TimeReport struct {
	Accepted      bool `json:"accepted"`
	LessonPercent int  `json:"lesson_percent"`
	CoursePercent int  `json:"course_percent"`
}

type ProgressService interface {
	Course(ctx context.Context, userID, courseID uuid.UUID) (progress.CourseView, error)
	SelectLesson(ctx context.Context, userID, courseID, lessonID uuid.UUID) (*LessonPlayback, error)
	Playback(ctx context.Context, userID, courseID, lessonID uuid.UUID) (*LessonPlayback, error)
	ReportTime(ctx context.Context, userID, courseID, lessonID uuid.UUID, elapsed, duration float64) (TimeReport, error)
	ReportEnded(ctx context.Context, userID, courseID, lessonID uuid.UUID) (progress.CourseView, error)
	// StartJanitor evicts idle trackers until ctx ends.
	StartJanitor(ctx context.Context)
}

type progressService struct {
	log          *logger.Logger
	cfg          ProgressConfig
	clk          clock.Clock
	courses      learningrepo.CourseRepo
	progressRepo learningrepo.LessonProgressRepo
	writer       *Writer
	orchestrator *completion.Orchestrator
	media        gcp.MediaResolver
	notify       Notifier
	metrics      *observability.Metrics

	mu       sync.Mutex
	trackers map[string]*progress.Tracker
	loads    singleflight.Group
}

func NewProgressService(
	baseLog *logger.Logger,
	cfg ProgressConfig,
	clk clock.Clock,
	courses learningrepo.CourseRepo,
	progressRepo learningrepo.LessonProgressRepo,
	writer *Writer,
	orchestrator *completion.Orchestrator,
	media gcp.MediaResolver,
	notify Notifier,
	metrics *observability.Metrics,
) ProgressService {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &progressService{
		log:          baseLog.With("service", "ProgressService"),
		cfg:          cfg,
		clk:          clk,
		courses:      courses,
		progressRepo: progressRepo,
		writer:       writer,
		orchestrator: orchestrator,
		media:        media,
		notify:       notify,
		metrics:      metrics,
		trackers:     map[string]*progress.Tracker{},
	}
}

func trackerKey(userID, courseID uuid.UUID) string {
	return userID.String() + ":" + courseID.String()
}

func (s *progressService) tracker(ctx context.Context, userID, courseID uuid.UUID) (*progress.Tracker, error) {
	key := trackerKey(userID, courseID)
	s.mu.Lock()
	t, ok := s.trackers[key]
	s.mu.Unlock()
	if ok {
		return t, nil
	}

	v, err, _ := s.loads.Do(key, func() (any, error) {
		if err := s.writer.Flush(ctx, userID); err != nil {
			return nil, err
		}
		var (
			course *learning.Course
			rows   []*learning.LessonProgress
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			c, err := s.courses.GetOutline(gctx, nil, courseID)
			course = c
			return dberr.Classify("course outline", err)
		})
		g.Go(func() error {
			r, err := s.progressRepo.ListForCourse(gctx, nil, userID, courseID)
			rows = r
			return dberr.Classify("list lesson progress", err)
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if course == nil {
			return nil, ErrCourseNotFound
		}
		t := progress.NewTracker(progress.TrackerConfig{
			UserID:       userID,
			Graph:        progress.NewGraph(course),
			Progress:     rows,
			Clock:        s.clk,
			Sink:         &progressSink{svc: s, userID: userID},
			Listener:     s,
			PersistEvery: s.cfg.PersistEvery,
		})
		s.mu.Lock()
		if existing, ok := s.trackers[key]; ok {
			t = existing
		} else {
			s.trackers[key] = t
		}
		s.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*progress.Tracker), nil
}

func (s *progressService) Course(ctx context.Context, userID, courseID uuid.UUID) (progress.CourseView, error) {
	t, err := s.tracker(ctx, userID, courseID)
	if err != nil {
		return progress.CourseView{}, err
	}
	return t.View(), nil
}

func (s *progressService) SelectLesson(ctx context.Context, userID, courseID, lessonID uuid.UUID) (*LessonPlayback, error) {
	t, err := s.tracker(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if err := t.Select(lessonID); err != nil {
		return nil, err
	}
	return s.playback(ctx, t, lessonID)
}

func (s *progressService) Playback(ctx context.Context, userID, courseID, lessonID uuid.UUID) (*LessonPlayback, error) {
	t, err := s.tracker(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return s.playback(ctx, t, lessonID)
}

func (s *progressService) playback(ctx context.Context, t *progress.Tracker, lessonID uuid.UUID) (*LessonPlayback, error) {
	rp, err := t.Resume(lessonID)
	if err != nil {
		return nil, err
	}
	url, err := s.media.Resolve(ctx, rp.Lesson.MediaRef)
	if err != nil {
		return nil, err
	}
	return &LessonPlayback{
		LessonID:        rp.Lesson.ID,
		Title:           rp.Lesson.Title,
		Kind:            rp.Lesson.Kind,
		DurationSeconds: rp.Lesson.DurationSeconds,
		MediaURL:        url,
		StartPosition:   rp.StartPosition,
		Status:          rp.Status,
	}, nil
}

func (s *progressService) ReportTime(ctx context.Context, userID, courseID, lessonID uuid.UUID, elapsed, duration float64) (TimeReport, error) {
	t, err := s.tracker(ctx, userID, courseID)
	if err != nil {
		return TimeReport{}, err
	}
	accepted, err := t.ReportTime(lessonID, elapsed, duration)
	if err != nil {
		return TimeReport{}, err
	}
	return TimeReport{
		Accepted:      accepted,
		LessonPercent: t.LessonPercent(lessonID),
		CoursePercent: t.CoursePercent(),
	}, nil
}

func (s *progressService) ReportEnded(ctx context.Context, userID, courseID, lessonID uuid.UUID) (progress.CourseView, error) {
	t, err := s.tracker(ctx, userID, courseID)
	if err != nil {
		return progress.CourseView{}, err
	}
	wasCompleted := t.LessonStatus(lessonID) == progress.StatusCompleted
	if _, err := t.ReportEnded(lessonID); err != nil {
		return progress.CourseView{}, err
	}
	if !wasCompleted {
		s.metrics.IncLessonCompleted()
	}
	view := t.View()
	s.notify.LessonProgressChanged(ctx, userID, view)
	return view, nil
}

// ProgressChanged queues the enrollment recompute behind the lesson write that caused it.
func (s *progressService) ProgressChanged(userID, courseID uuid.UUID, completed, total int) {
	s.writer.Submit(userID, WriteEnrollment, func(ctx context.Context) error {
		return orchestrate(s.log, func() (*learning.Enrollment, error) {
			return s.orchestrator.OnProgressChanged(ctx, userID, courseID, completed, total)
		})
	})
}

func (s *progressService) StartJanitor(ctx context.Context) {
	go func() {
		ticker := s.clk.Ticker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle()
			}
		}
	}()
}

func (s *progressService) evictIdle() int {
	cutoff := s.clk.Now().Add(-s.cfg.IdleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, t := range s.trackers {
		if t.LastUsed().Before(cutoff) {
			delete(s.trackers, key)
			n++
		}
	}
	if n > 0 {
		s.log.Debug("Evicted idle progress trackers", "count", n)
	}
	return n
}

type progressSink struct {
	svc    *progressService
	userID uuid.UUID
}

func (p *progressSink) SaveLessonProgress(row learning.LessonProgress) {
	p.svc.writer.Submit(p.userID, WriteLessonProgress, func(ctx context.Context) error {
		r := row
		return dberr.Classify("upsert lesson progress", p.svc.progressRepo.Upsert(ctx, nil, &r))
	})
}

func (p *progressSink) SaveLessonDuration(lessonID uuid.UUID, seconds int) {
	p.svc.writer.Submit(p.userID, WriteLessonDuration, func(ctx context.Context) error {
		return dberr.Classify("set lesson duration", p.svc.courses.SetLessonDuration(ctx, nil, lessonID, seconds))
	})
}
