package progress

import "errors"

var (
	ErrLessonLocked  = errors.New("lesson is locked")
	ErrUnknownLesson = errors.New("lesson does not belong to this course")
)
