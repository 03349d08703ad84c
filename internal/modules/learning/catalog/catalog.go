package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

// File is the on-disk catalog format.
type File struct {
	Courses     []Course     `yaml:"courses"`
	Assessments []Assessment `yaml:"assessments"`
}

type Course struct {
	Slug        string   `yaml:"slug"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Modules     []Module `yaml:"modules"`
}

type Module struct {
	Title   string   `yaml:"title"`
	Lessons []Lesson `yaml:"lessons"`
}

type Lesson struct {
	Title    string `yaml:"title"`
	Kind     string `yaml:"kind"`
	Duration int    `yaml:"duration_seconds"`
	Media    string `yaml:"media"`
}

type Assessment struct {
	Slug      string     `yaml:"slug"`
	Title     string     `yaml:"title"`
	Course    string     `yaml:"course"`
	Questions []Question `yaml:"questions"`
}

type Question struct {
	Prompt  string   `yaml:"prompt"`
	Options []Option `yaml:"options"`
	// Answer is a legacy free-form answer key (a letter or the option text).
	Answer string `yaml:"answer"`
	Points *int   `yaml:"points"`
}

type Option struct {
	Letter  string `yaml:"letter"`
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

var ErrInvalidCatalog = errors.New("invalid catalog")

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) Validate() error {
	courses := map[string]bool{}
	for i, c := range f.Courses {
		if strings.TrimSpace(c.Slug) == "" || strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("%w: course %d needs slug and title", ErrInvalidCatalog, i)
		}
		if courses[c.Slug] {
			return fmt.Errorf("%w: duplicate course slug %q", ErrInvalidCatalog, c.Slug)
		}
		courses[c.Slug] = true
		for mi, m := range c.Modules {
			for li, l := range m.Lessons {
				switch learning.LessonKind(strings.ToLower(strings.TrimSpace(l.Kind))) {
				case "", learning.LessonKindVideo, learning.LessonKindDocument:
				default:
					return fmt.Errorf("%w: %s module %d lesson %d has kind %q", ErrInvalidCatalog, c.Slug, mi, li, l.Kind)
				}
				if l.Duration < 0 {
					return fmt.Errorf("%w: %s module %d lesson %d has negative duration", ErrInvalidCatalog, c.Slug, mi, li)
				}
			}
		}
	}
	for i, a := range f.Assessments {
		if strings.TrimSpace(a.Slug) == "" {
			return fmt.Errorf("%w: assessment %d needs a slug", ErrInvalidCatalog, i)
		}
		if a.Course != "" && !courses[a.Course] {
			return fmt.Errorf("%w: assessment %q links unknown course %q", ErrInvalidCatalog, a.Slug, a.Course)
		}
	}
	return nil
}

var namespace = uuid.MustParse("6f1d2c7e-3b8a-4a51-9c55-0d7f1e2a9b40")

// stableID derives the same row id for the same catalog path on every import.
func stableID(parts ...string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "/")))
}

// Rows is a catalog resolved into database rows.
type Rows struct {
	Courses     []*learning.Course
	Assessments []*learning.Assessment
}

func (f *File) Rows() Rows {
	var out Rows
	for _, c := range f.Courses {
		course := &learning.Course{
			ID:          stableID("course", c.Slug),
			Slug:        c.Slug,
			Title:       c.Title,
			Description: c.Description,
		}
		for mi, m := range c.Modules {
			mod := &learning.CourseModule{
				ID:       stableID("course", c.Slug, "module", fmt.Sprint(mi)),
				CourseID: course.ID,
				Index:    mi,
				Title:    m.Title,
			}
			for li, l := range m.Lessons {
				kind := learning.LessonKind(strings.ToLower(strings.TrimSpace(l.Kind)))
				if kind == "" {
					kind = learning.LessonKindVideo
				}
				mod.Lessons = append(mod.Lessons, &learning.Lesson{
					ID:              stableID("course", c.Slug, "module", fmt.Sprint(mi), "lesson", fmt.Sprint(li)),
					ModuleID:        mod.ID,
					Index:           li,
					Title:           l.Title,
					Kind:            kind,
					DurationSeconds: l.Duration,
					MediaRef:        l.Media,
				})
			}
			course.Modules = append(course.Modules, mod)
		}
		out.Courses = append(out.Courses, course)
	}
	for _, a := range f.Assessments {
		row := &learning.Assessment{ID: stableID("assessment", a.Slug), Title: a.Title}
		if a.Course != "" {
			id := stableID("course", a.Course)
			row.CourseID = &id
		}
		for qi, q := range a.Questions {
			opts := make([]learning.QuestionOption, 0, len(q.Options))
			for _, o := range q.Options {
				opts = append(opts, learning.QuestionOption{Letter: o.Letter, Text: o.Text, IsCorrect: o.Correct})
			}
			raw, _ := json.Marshal(opts)
			row.Questions = append(row.Questions, &learning.AssessmentQuestion{
				ID:            stableID("assessment", a.Slug, "question", fmt.Sprint(qi)),
				AssessmentID:  row.ID,
				Position:      qi,
				Prompt:        q.Prompt,
				Options:       datatypes.JSON(raw),
				CorrectAnswer: q.Answer,
				Points:        q.Points,
			})
		}
		out.Assessments = append(out.Assessments, row)
	}
	return out
}
