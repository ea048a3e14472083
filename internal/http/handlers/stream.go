package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/platform/ctxutil"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
	"github.com/yungbote/commentree-backend/internal/realtime"
)

type StreamHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewStreamHandler(log *logger.Logger, hub *realtime.SSEHub) *StreamHandler {
	return &StreamHandler{
		log: log.With("handler", "StreamHandler"),
		hub: hub,
	}
}

// GET /api/comments/stream?parent_type=article&parent_id=42
// Subscribes the caller to live comment events for one parent object. The
// connection stays open until the client disconnects.
func (h *StreamHandler) Stream(c *gin.Context) {
	ad := ctxutil.GetActorData(c.Request.Context())
	if ad == nil || ad.Actor.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	parent := domain.ParentRef{
		Type: strings.TrimSpace(c.Query("parent_type")),
		ID:   strings.TrimSpace(c.Query("parent_id")),
	}
	if !parent.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "parent_type and parent_id are required"})
		return
	}

	client := h.hub.NewSSEClient(ad.Actor.ID)
	h.hub.AddChannel(client, realtime.CommentChannel(parent))
	h.log.Info("comment stream open", "actor_id", ad.Actor.ID, "parent", parent.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
}
