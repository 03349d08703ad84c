package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trainingportal-backend/internal/http/response"
	"github.com/yungbote/trainingportal-backend/internal/services"
)

type EnrollmentHandler struct {
	svc services.EnrollmentService
}

func NewEnrollmentHandler(svc services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

// POST /api/courses/:id/enroll
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Enroll(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /api/courses/:id/enrollment
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, v)
}
