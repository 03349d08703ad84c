package assessment

import (
	"math"
	"time"

	"github.com/yungbote/trainingportal-backend/internal/domain/learning"
)

const DefaultLockoutWindow = 24 * time.Hour

type Eligibility struct {
	Blocked        bool `json:"blocked"`
	RemainingHours int  `json:"remaining_hours"`
}

// LockoutPolicy decides whether a new attempt may start given the latest one.
type LockoutPolicy struct {
	Window time.Duration
}

func (p LockoutPolicy) window() time.Duration {
	if p.Window <= 0 {
		return DefaultLockoutWindow
	}
	return p.Window
}

// Evaluate is pure: only a failed, finished attempt younger than the window blocks.
// Remaining time is rounded up to whole hours.
func (p LockoutPolicy) Evaluate(latest *learning.AssessmentAttempt, now time.Time) Eligibility {
	if latest == nil || latest.Passed || latest.CompletedAt == nil {
		return Eligibility{}
	}
	elapsed := now.Sub(*latest.CompletedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	w := p.window()
	if elapsed >= w {
		return Eligibility{}
	}
	return Eligibility{
		Blocked:        true,
		RemainingHours: int(math.Ceil((w - elapsed).Hours())),
	}
}

// EvaluateLockout applies the default 24 hour window.
func EvaluateLockout(latest *learning.AssessmentAttempt, now time.Time) Eligibility {
	return LockoutPolicy{}.Evaluate(latest, now)
}
