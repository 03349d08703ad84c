package assessment

import (
	"errors"
	"testing"
	"time"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

func finishedAt(t time.Time, passed bool) *learning.AssessmentAttempt {
	return &learning.AssessmentAttempt{StartedAt: t.Add(-5 * time.Minute), CompletedAt: &t, Passed: passed}
}

func TestEvaluateLockout(t *testing.T) {
	now := time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		latest    *learning.AssessmentAttempt
		blocked   bool
		remaining int
	}{
		{"no attempt", nil, false, 0},
		{"failed 10h ago", finishedAt(now.Add(-10*time.Hour), false), true, 14},
		{"failed 25h ago", finishedAt(now.Add(-25*time.Hour), false), false, 0},
		{"failed exactly 24h ago", finishedAt(now.Add(-24*time.Hour), false), false, 0},
		{"failed 90 minutes ago", finishedAt(now.Add(-90*time.Minute), false), true, 23},
		{"failed just now", finishedAt(now, false), true, 24},
		{"failed in the future", finishedAt(now.Add(time.Hour), false), true, 24},
		{"passed 1h ago", finishedAt(now.Add(-time.Hour), true), false, 0},
		{"passed long ago", finishedAt(now.Add(-900*time.Hour), true), false, 0},
		{"abandoned", &learning.AssessmentAttempt{StartedAt: now.Add(-time.Hour)}, false, 0},
	}
	for _, tc := range cases {
		got := EvaluateLockout(tc.latest, now)
		if got.Blocked != tc.blocked || got.RemainingHours != tc.remaining {
			t.Fatalf("%s: want=(%v,%d) got=(%v,%d)", tc.name, tc.blocked, tc.remaining, got.Blocked, got.RemainingHours)
		}
	}
}

func TestLockoutPolicyCustomWindow(t *testing.T) {
	now := time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)
	p := LockoutPolicy{Window: 2 * time.Hour}
	if got := p.Evaluate(finishedAt(now.Add(-30*time.Minute), false), now); !got.Blocked || got.RemainingHours != 2 {
		t.Fatalf("custom window: got=%+v", got)
	}
	if got := p.Evaluate(finishedAt(now.Add(-3*time.Hour), false), now); got.Blocked {
		t.Fatalf("custom window expired: got=%+v", got)
	}
}

func TestBlockedErrorMatchesSentinel(t *testing.T) {
	var err error = &BlockedError{RemainingHours: 5}
	if !errors.Is(err, ErrAssessmentBlocked) {
		t.Fatalf("BlockedError should match ErrAssessmentBlocked")
	}
	var be *BlockedError
	if !errors.As(err, &be) || be.RemainingHours != 5 {
		t.Fatalf("errors.As: got=%v", be)
	}
}
