package progress

import (
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

// Graph is a course's lessons flattened into one global order: module index, then lesson index.
type Graph struct {
	CourseID uuid.UUID
	lessons  []*learning.Lesson
	pos      map[uuid.UUID]int
}

func NewGraph(course *learning.Course) *Graph {
	g := &Graph{pos: map[uuid.UUID]int{}}
	if course == nil {
		return g
	}
	g.CourseID = course.ID

	modules := append([]*learning.CourseModule(nil), course.Modules...)
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Index < modules[j].Index })
	for _, m := range modules {
		if m == nil {
			continue
		}
		lessons := append([]*learning.Lesson(nil), m.Lessons...)
		sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Index < lessons[j].Index })
		for _, l := range lessons {
			if l == nil {
				continue
			}
			g.pos[l.ID] = len(g.lessons)
			g.lessons = append(g.lessons, l)
		}
	}
	return g
}

func (g *Graph) Len() int { return len(g.lessons) }

// Lessons returns the lessons in global order. The slice must not be modified.
func (g *Graph) Lessons() []*learning.Lesson { return g.lessons }

func (g *Graph) At(i int) *learning.Lesson {
	if i < 0 || i >= len(g.lessons) {
		return nil
	}
	return g.lessons[i]
}

func (g *Graph) Position(lessonID uuid.UUID) (int, bool) {
	i, ok := g.pos[lessonID]
	return i, ok
}

// Percent is round(100*completed/total), 0 for an empty course.
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return (200*completed + total) / (2 * total)
}
