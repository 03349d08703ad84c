package learning

// Models lists every table owned by the training portal, in migration order.
func Models() []any {
	return []any{
		&Course{},
		&CourseModule{},
		&Lesson{},
		&LessonProgress{},
		&Assessment{},
		&AssessmentQuestion{},
		&AssessmentAttempt{},
		&Enrollment{},
		&Certificate{},
	}
}
