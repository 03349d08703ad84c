package services

import "errors"

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrNotEnrolled        = errors.New("not enrolled in course")
	ErrUnauthenticated    = errors.New("not authenticated")
)
