package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/http/response"
	"github.com/yungbote/trainingportal-backend/internal/platform/ctxutil"
	"github.com/yungbote/trainingportal-backend/internal/services"
)

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondErr(c, services.ErrUnauthenticated)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// errBody keeps the binder's message when there is one.
func errBody(msg string, err error) error {
	if err != nil {
		return errors.New(msg + ": " + err.Error())
	}
	return errors.New(msg)
}
