package api

import (
	"github.com/gin-gonic/gin"

	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/validation"
)

func (h *Handlers) usage(c *gin.Context) {
	user, err := h.currentUser(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	snapshot, err := h.deps.Usage.Usage(c.Request.Context(), user)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, snapshot)
}

// adminUserUsage lets support staff inspect any account's plan counters.
func (h *Handlers) adminUserUsage(c *gin.Context) {
	userID, err := validation.ValidateUUID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	user, err := h.deps.Users.ByID(c.Request.Context(), userID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	snapshot, err := h.deps.Usage.Usage(c.Request.Context(), user)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, meResponse{User: userResponseFrom(user), Usage: snapshot})
}
