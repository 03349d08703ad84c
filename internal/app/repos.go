package app

import (
	"gorm.io/gorm"

	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

type Repos struct {
	Course         learningrepo.CourseRepo
	LessonProgress learningrepo.LessonProgressRepo
	Assessment     learningrepo.AssessmentRepo
	Attempt        learningrepo.AttemptRepo
	Enrollment     learningrepo.EnrollmentRepo
	Certificate    learningrepo.CertificateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:         learningrepo.NewCourseRepo(db, log),
		LessonProgress: learningrepo.NewLessonProgressRepo(db, log),
		Assessment:     learningrepo.NewAssessmentRepo(db, log),
		Attempt:        learningrepo.NewAttemptRepo(db, log),
		Enrollment:     learningrepo.NewEnrollmentRepo(db, log),
		Certificate:    learningrepo.NewCertificateRepo(db, log),
	}
}
