package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
	"github.com/yungbote/trainingportal-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/sse/stream
// Every connection joins the caller's user channel; several tabs each get their own client.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	client := h.hub.NewSSEClient(userID)
	h.log.Debug("SSE stream open", "user_id", userID, "client_id", client.ID)
	defer h.hub.CloseClient(client)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
