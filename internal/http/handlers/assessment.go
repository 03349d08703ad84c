package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/http/response"
	"github.com/yungbote/trainingportal-backend/internal/services"
)

type AssessmentHandler struct {
	svc services.AssessmentService
}

func NewAssessmentHandler(svc services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

// GET /api/assessments/:id/eligibility
func (h *AssessmentHandler) GetEligibility(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	assessmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.Eligibility(c.Request.Context(), userID, assessmentID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, e)
}

// POST /api/assessments/:id/attempts
func (h *AssessmentHandler) StartAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	assessmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Start(c.Request.Context(), userID, assessmentID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attempt": v})
}

// GET /api/attempts/:id
func (h *AssessmentHandler) GetAttempt(c *gin.Context) {
	userID, attemptID, ok := attemptParams(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), userID, attemptID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": v})
}

type answerRequest struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}

// POST /api/attempts/:id/answer
func (h *AssessmentHandler) Answer(c *gin.Context) {
	userID, attemptID, ok := attemptParams(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QuestionID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errBody("question_id is required", err))
		return
	}
	v, err := h.svc.Answer(c.Request.Context(), userID, attemptID, req.QuestionID, req.Answer)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": v})
}

type advanceRequest struct {
	QuestionID uuid.UUID `json:"question_id"`
}

// POST /api/attempts/:id/advance
// question_id names the question being left; a repeat for a question already passed is a no-op.
func (h *AssessmentHandler) Advance(c *gin.Context) {
	userID, attemptID, ok := attemptParams(c)
	if !ok {
		return
	}
	var req advanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", errBody("invalid body", err))
			return
		}
	}
	v, advanced, err := h.svc.Advance(c.Request.Context(), userID, attemptID, req.QuestionID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": v, "advanced": advanced})
}

// DELETE /api/attempts/:id
func (h *AssessmentHandler) Abandon(c *gin.Context) {
	userID, attemptID, ok := attemptParams(c)
	if !ok {
		return
	}
	if err := h.svc.Abandon(c.Request.Context(), userID, attemptID); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func attemptParams(c *gin.Context) (userID, attemptID uuid.UUID, ok bool) {
	if userID, ok = currentUser(c); !ok {
		return
	}
	attemptID, ok = pathID(c, "id")
	return
}
