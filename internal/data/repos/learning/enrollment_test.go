package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/data/repos/testutil"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

func TestEnrollmentCompletionIsSticky(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewEnrollmentRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, 1)
	userID := uuid.New()

	e, err := repo.Create(ctx, tx, &learning.Enrollment{UserID: userID, CourseID: course.ID})
	if err != nil || e == nil || e.Status != learning.EnrollmentNotStarted {
		t.Fatalf("Create: %+v err=%v", e, err)
	}
	if again, err := repo.Create(ctx, tx, &learning.Enrollment{UserID: userID, CourseID: course.ID, ProgressPercent: 40}); err != nil || again.ID != e.ID || again.ProgressPercent != 0 {
		t.Fatalf("Create replay: %+v err=%v", again, err)
	}

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.SaveProgress(ctx, tx, &learning.Enrollment{UserID: userID, CourseID: course.ID, ProgressPercent: 100, Status: learning.EnrollmentCompleted, CompletionDate: &now}); err != nil {
		t.Fatalf("SaveProgress completed: %v", err)
	}
	if err := repo.SaveProgress(ctx, tx, &learning.Enrollment{UserID: userID, CourseID: course.ID, ProgressPercent: 50, Status: learning.EnrollmentInProgress}); err != nil {
		t.Fatalf("SaveProgress downgrade: %v", err)
	}
	got, err := repo.Get(ctx, tx, userID, course.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.Status != learning.EnrollmentCompleted || got.ProgressPercent != 100 || got.CompletionDate == nil {
		t.Fatalf("completion regressed: %+v", got)
	}
}

func TestCertificateRequestIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewCertificateRepo(db, testutil.Logger(t))

	courseID, userID := uuid.New(), uuid.New()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	first, err := repo.Request(ctx, tx, &learning.Certificate{UserID: userID, CourseID: courseID, Number: "TP-1", RequestedAt: now})
	if err != nil || first == nil {
		t.Fatalf("Request: %v %v", first, err)
	}
	second, err := repo.Request(ctx, tx, &learning.Certificate{UserID: userID, CourseID: courseID, Number: "TP-2", RequestedAt: now})
	if err != nil || second.ID != first.ID || second.Number != "TP-1" {
		t.Fatalf("Request replay: %+v err=%v", second, err)
	}
	if err := repo.MarkIssued(ctx, tx, first.ID, now.Add(time.Minute)); err != nil {
		t.Fatalf("MarkIssued: %v", err)
	}
	got, _ := repo.Get(ctx, tx, userID, courseID)
	if got.Status != learning.CertificateIssued || got.IssuedAt == nil {
		t.Fatalf("issued: %+v", got)
	}
}
