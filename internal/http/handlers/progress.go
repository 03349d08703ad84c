package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/http/response"
	"github.com/yungbote/trainingportal-backend/internal/services"
)

type ProgressHandler struct {
	svc services.ProgressService
}

func NewProgressHandler(svc services.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// GET /api/courses/:id/progress
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.Course(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": view})
}

// POST /api/courses/:id/lessons/:lessonId/select
func (h *ProgressHandler) SelectLesson(c *gin.Context) {
	userID, courseID, lessonID, ok := lessonParams(c)
	if !ok {
		return
	}
	pb, err := h.svc.SelectLesson(c.Request.Context(), userID, courseID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": pb})
}

type timeUpdateRequest struct {
	ElapsedSeconds  *float64 `json:"elapsed_seconds"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// POST /api/courses/:id/lessons/:lessonId/time
func (h *ProgressHandler) ReportTime(c *gin.Context) {
	userID, courseID, lessonID, ok := lessonParams(c)
	if !ok {
		return
	}
	var req timeUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ElapsedSeconds == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errBody("elapsed_seconds is required", err))
		return
	}
	rep, err := h.svc.ReportTime(c.Request.Context(), userID, courseID, lessonID, *req.ElapsedSeconds, req.DurationSeconds)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rep)
}

// POST /api/courses/:id/lessons/:lessonId/ended
func (h *ProgressHandler) ReportEnded(c *gin.Context) {
	userID, courseID, lessonID, ok := lessonParams(c)
	if !ok {
		return
	}
	view, err := h.svc.ReportEnded(c.Request.Context(), userID, courseID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": view})
}

// GET /api/courses/:id/lessons/:lessonId/media
func (h *ProgressHandler) GetLessonMedia(c *gin.Context) {
	userID, courseID, lessonID, ok := lessonParams(c)
	if !ok {
		return
	}
	pb, err := h.svc.Playback(c.Request.Context(), userID, courseID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": pb})
}

func lessonParams(c *gin.Context) (userID, courseID, lessonID uuid.UUID, ok bool) {
	if userID, ok = currentUser(c); !ok {
		return
	}
	if courseID, ok = pathID(c, "id"); !ok {
		return
	}
	lessonID, ok = pathID(c, "lessonId")
	return
}
