package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID gives a row a client-side UUID so inserts work on both postgres and sqlite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Course) BeforeCreate(*gorm.DB) error             { assignID(&c.ID); return nil }
func (m *CourseModule) BeforeCreate(*gorm.DB) error       { assignID(&m.ID); return nil }
func (l *Lesson) BeforeCreate(*gorm.DB) error             { assignID(&l.ID); return nil }
func (p *LessonProgress) BeforeCreate(*gorm.DB) error     { assignID(&p.ID); return nil }
func (a *Assessment) BeforeCreate(*gorm.DB) error         { assignID(&a.ID); return nil }
func (q *AssessmentQuestion) BeforeCreate(*gorm.DB) error { assignID(&q.ID); return nil }
func (a *AssessmentAttempt) BeforeCreate(*gorm.DB) error  { assignID(&a.ID); return nil }
func (e *Enrollment) BeforeCreate(*gorm.DB) error         { assignID(&e.ID); return nil }
func (c *Certificate) BeforeCreate(*gorm.DB) error        { assignID(&c.ID); return nil }
