package catalog

import (
	"context"
	"fmt"

	"github.com/yungbote/trainingportal-backend/internal/data/db"
	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/dbctx"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type Importer struct {
	tx          db.TxRunner
	courses     learningrepo.CourseRepo
	assessments learningrepo.AssessmentRepo
	log         *logger.Logger
}

func NewImporter(baseLog *logger.Logger, tx db.TxRunner, courses learningrepo.CourseRepo, assessments learningrepo.AssessmentRepo) *Importer {
	return &Importer{tx: tx, courses: courses, assessments: assessments, log: baseLog.With("component", "CatalogImporter")}
}

type Summary struct {
	Courses     int
	Lessons     int
	Assessments int
	Questions   int
}

// Import upserts every row of the catalog in one transaction.
func (im *Importer) Import(ctx context.Context, f *File) (Summary, error) {
	var sum Summary
	rows := f.Rows()
	err := im.tx.InTx(ctx, func(dbc dbctx.Context) error {
		for _, c := range rows.Courses {
			if err := im.courses.UpsertCourse(dbc.Ctx, dbc.Tx, c); err != nil {
				return fmt.Errorf("course %s: %w", c.Slug, err)
			}
			sum.Courses++
			for _, m := range c.Modules {
				if err := im.courses.UpsertModule(dbc.Ctx, dbc.Tx, m); err != nil {
					return fmt.Errorf("course %s module %d: %w", c.Slug, m.Index, err)
				}
				for _, l := range m.Lessons {
					if err := im.courses.UpsertLesson(dbc.Ctx, dbc.Tx, l); err != nil {
						return fmt.Errorf("course %s lesson %q: %w", c.Slug, l.Title, err)
					}
					sum.Lessons++
				}
			}
		}
		for _, a := range rows.Assessments {
			if err := im.assessments.Upsert(dbc.Ctx, dbc.Tx, a); err != nil {
				return fmt.Errorf("assessment %q: %w", a.Title, err)
			}
			sum.Assessments++
			for _, q := range a.Questions {
				if err := im.assessments.UpsertQuestion(dbc.Ctx, dbc.Tx, q); err != nil {
					return fmt.Errorf("assessment %q question %d: %w", a.Title, q.Position, err)
				}
				sum.Questions++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	im.log.Info("Catalog imported", "courses", sum.Courses, "lessons", sum.Lessons, "assessments", sum.Assessments, "questions", sum.Questions)
	return sum, nil
}
