package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trainingportal-backend/internal/data/dberr"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/assessment"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/progress"
	"github.com/yungbote/trainingportal-backend/internal/platform/apierr"
	"github.com/yungbote/trainingportal-backend/internal/services"
)

type APIError struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr maps err to a status and code and writes the envelope.
func RespondErr(c *gin.Context, err error) {
	ae := FromError(err)
	msg := ae.Error()
	if ae.Status >= http.StatusInternalServerError {
		msg = "internal error"
		_ = c.Error(err)
	}
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    ae.Code,
			Details: ae.Details,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// FromError translates engine and storage errors into API errors.
func FromError(err error) *apierr.Error {
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	var blocked *assessment.BlockedError
	switch {
	case errors.As(err, &blocked):
		return apierr.New(http.StatusLocked, "assessment_blocked", err).
			WithDetail("remaining_hours", blocked.RemainingHours)
	case errors.Is(err, progress.ErrLessonLocked):
		return apierr.New(http.StatusConflict, "lesson_locked", err)
	case errors.Is(err, progress.ErrUnknownLesson):
		return apierr.New(http.StatusNotFound, "lesson_not_found", err)
	case errors.Is(err, assessment.ErrEmptyAssessment):
		return apierr.New(http.StatusUnprocessableEntity, "empty_assessment", err)
	case errors.Is(err, assessment.ErrNotInProgress):
		return apierr.New(http.StatusConflict, "attempt_not_in_progress", err)
	case errors.Is(err, assessment.ErrQuestionMismatch):
		return apierr.New(http.StatusConflict, "question_mismatch", err)
	case errors.Is(err, services.ErrCourseNotFound):
		return apierr.New(http.StatusNotFound, "course_not_found", err)
	case errors.Is(err, services.ErrAssessmentNotFound):
		return apierr.New(http.StatusNotFound, "assessment_not_found", err)
	case errors.Is(err, services.ErrAttemptNotFound):
		return apierr.New(http.StatusNotFound, "attempt_not_found", err)
	case errors.Is(err, services.ErrNotEnrolled):
		return apierr.New(http.StatusNotFound, "not_enrolled", err)
	case errors.Is(err, services.ErrUnauthenticated):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	}
	switch dberr.ClassOf(err) {
	case dberr.ClassNotFound:
		return apierr.New(http.StatusNotFound, "not_found", err)
	case dberr.ClassConflict:
		return apierr.New(http.StatusConflict, "conflict", err)
	case dberr.ClassRetryable:
		return apierr.New(http.StatusServiceUnavailable, "unavailable", err)
	}
	return apierr.New(http.StatusInternalServerError, "internal", err)
}
