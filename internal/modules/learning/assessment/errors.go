package assessment

import (
	"errors"
	"fmt"
)

var (
	ErrAssessmentBlocked = errors.New("assessment is blocked after a failed attempt")
	ErrEmptyAssessment   = errors.New("assessment has no questions")
	ErrNotInProgress     = errors.New("assessment session is not in progress")
	ErrAlreadyStarted    = errors.New("assessment session already started")
	ErrQuestionMismatch  = errors.New("answer does not target the current question")
)

// BlockedError carries the whole hours left before a retry is allowed.
type BlockedError struct {
	RemainingHours int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: retry in %d hour(s)", ErrAssessmentBlocked.Error(), e.RemainingHours)
}

func (e *BlockedError) Is(target error) bool { return target == ErrAssessmentBlocked }
