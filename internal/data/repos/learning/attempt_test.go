package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/data/repos/testutil"
	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

func TestAttemptFinalizeIsWriteOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewAttemptRepo(db, testutil.Logger(t))

	a := testutil.SeedAssessment(t, ctx, tx, nil, "A", "B")
	userID := uuid.New()
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	attempt := &learning.AssessmentAttempt{ID: uuid.New(), AssessmentID: a.ID, UserID: userID, StartedAt: start}
	if err := repo.Create(ctx, tx, attempt); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, tx, attempt); err != nil {
		t.Fatalf("Create replay: %v", err)
	}

	done := start.Add(3 * time.Minute)
	attempt.CompletedAt = &done
	attempt.ScorePercent = 50
	attempt.Passed = false
	attempt.TimeSpentMinutes = 3
	attempt.Answers = learning.EncodeAnswers(map[string]string{a.Questions[0].ID.String(): "A"})
	if err := repo.Finalize(ctx, tx, attempt); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	later := done.Add(time.Hour)
	tampered := *attempt
	tampered.CompletedAt = &later
	tampered.ScorePercent = 100
	tampered.Passed = true
	if err := repo.Finalize(ctx, tx, &tampered); err != nil {
		t.Fatalf("Finalize again: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, attempt.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.ScorePercent != 50 || got.Passed {
		t.Fatalf("finalized fields changed: score=%d passed=%v", got.ScorePercent, got.Passed)
	}
	if got.AnswerMap()[a.Questions[0].ID.String()] != "A" {
		t.Fatalf("answers: got=%v", got.AnswerMap())
	}
}

func TestAttemptLatestAndAbandon(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewAttemptRepo(db, testutil.Logger(t))

	a := testutil.SeedAssessment(t, ctx, tx, nil, "A")
	userID := uuid.New()
	t0 := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	finishedAt := t0.Add(2 * time.Minute)

	first := &learning.AssessmentAttempt{ID: uuid.New(), AssessmentID: a.ID, UserID: userID, StartedAt: t0, CompletedAt: &finishedAt, ScorePercent: 100, Passed: true}
	second := &learning.AssessmentAttempt{ID: uuid.New(), AssessmentID: a.ID, UserID: userID, StartedAt: t0.Add(time.Hour)}
	for _, row := range []*learning.AssessmentAttempt{first, second} {
		if err := repo.Create(ctx, tx, row); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	latest, err := repo.GetLatest(ctx, tx, userID, a.ID)
	if err != nil || latest == nil || latest.ID != second.ID {
		t.Fatalf("GetLatest: want=%s got=%v err=%v", second.ID, latest, err)
	}
	finished, err := repo.GetLatestFinished(ctx, tx, userID, a.ID)
	if err != nil || finished == nil || finished.ID != first.ID {
		t.Fatalf("GetLatestFinished: want=%s got=%v err=%v", first.ID, finished, err)
	}

	stale, err := repo.ListStaleInFlight(ctx, tx, t0.Add(48*time.Hour), 10)
	if err != nil || len(stale) != 1 || stale[0].ID != second.ID {
		t.Fatalf("ListStaleInFlight: len=%d err=%v", len(stale), err)
	}
	n, err := repo.MarkAbandoned(ctx, tx, []uuid.UUID{first.ID, second.ID}, t0.Add(48*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("MarkAbandoned: want=1 got=%d err=%v", n, err)
	}
	got, _ := repo.GetByID(ctx, tx, second.ID)
	if got.AbandonedAt == nil || got.CompletedAt != nil {
		t.Fatalf("abandoned attempt: %+v", got)
	}
	if none, err := repo.GetLatest(ctx, tx, uuid.New(), a.ID); err != nil || none != nil {
		t.Fatalf("GetLatest unknown user: %v %v", none, err)
	}
}
