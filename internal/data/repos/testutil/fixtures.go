package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

// SeedCourse creates a course with one module per entry in lessonsPerModule.
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonsPerModule ...int) *learning.Course {
	tb.Helper()
	c := &learning.Course{ID: uuid.New(), Slug: "course-" + uuid.NewString()[:8], Title: "Workplace Safety"}
	if err := tx.WithContext(ctx).Omit("Modules").Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	for mi, n := range lessonsPerModule {
		m := &learning.CourseModule{ID: uuid.New(), CourseID: c.ID, Index: mi, Title: fmt.Sprintf("Module %d", mi+1)}
		if err := tx.WithContext(ctx).Omit("Lessons", "Course").Create(m).Error; err != nil {
			tb.Fatalf("seed module: %v", err)
		}
		for li := 0; li < n; li++ {
			l := &learning.Lesson{
				ID:              uuid.New(),
				ModuleID:        m.ID,
				Index:           li,
				Title:           fmt.Sprintf("Lesson %d.%d", mi+1, li+1),
				Kind:            learning.LessonKindVideo,
				DurationSeconds: 300,
			}
			if err := tx.WithContext(ctx).Omit("Module").Create(l).Error; err != nil {
				tb.Fatalf("seed lesson: %v", err)
			}
			m.Lessons = append(m.Lessons, l)
		}
		c.Modules = append(c.Modules, m)
	}
	return c
}

// SeedAssessment creates an assessment with letter-option questions; correct holds the right letter per question.
func SeedAssessment(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID *uuid.UUID, correct ...string) *learning.Assessment {
	tb.Helper()
	a := &learning.Assessment{ID: uuid.New(), Title: "Final check", CourseID: courseID}
	if err := tx.WithContext(ctx).Omit("Questions", "Course").Create(a).Error; err != nil {
		tb.Fatalf("seed assessment: %v", err)
	}
	for i, letter := range correct {
		opts := fmt.Sprintf(`[{"letter":"A","text":"first","is_correct":%t},{"letter":"B","text":"second","is_correct":%t}]`, letter == "A", letter == "B")
		q := &learning.AssessmentQuestion{
			ID:           uuid.New(),
			AssessmentID: a.ID,
			Position:     i,
			Prompt:       fmt.Sprintf("Question %d", i+1),
			Options:      datatypes.JSON([]byte(opts)),
		}
		if err := tx.WithContext(ctx).Omit("Assessment").Create(q).Error; err != nil {
			tb.Fatalf("seed question: %v", err)
		}
		a.Questions = append(a.Questions, q)
	}
	return a
}
