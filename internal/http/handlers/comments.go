package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/commentree-backend/internal/domain"
	"github.com/yungbote/commentree-backend/internal/http/response"
	"github.com/yungbote/commentree-backend/internal/platform/ctxutil"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
	"github.com/yungbote/commentree-backend/internal/services"
)

// kwargsHeader carries an optional JSON object of client options that is
// forwarded to filters, templates, and event observers verbatim.
const kwargsHeader = "X-Kwargs"

type CommentsHandler struct {
	log    *logger.Logger
	engine services.CommentEngine
}

func NewCommentsHandler(log *logger.Logger, engine services.CommentEngine) *CommentsHandler {
	return &CommentsHandler{
		log:    log.With("handler", "CommentsHandler"),
		engine: engine,
	}
}

type postCommentReq struct {
	Body              string     `json:"body"`
	NodeID            *uuid.UUID `json:"node_id,omitempty"`
	ParentNodeID      *uuid.UUID `json:"parent_node_id,omitempty"`
	PreviousVersionID *uuid.UUID `json:"previous_version_id,omitempty"`
}

type deleteCommentReq struct {
	NodeID uuid.UUID `json:"node_id"`
}

// GET /api/comments?parent_type=article&parent_id=42
func (h *CommentsHandler) LoadComments(c *gin.Context) {
	parent := domain.ParentRef{
		Type: strings.TrimSpace(c.Query("parent_type")),
		ID:   strings.TrimSpace(c.Query("parent_id")),
	}
	if !parent.Valid() {
		response.RespondBadRequest(c, "parent_type and parent_id are required")
		return
	}
	options, ok := h.parseKwargs(c)
	if !ok {
		return
	}
	res, err := h.engine.LoadComments(c.Request.Context(), services.LoadRequest{
		Actor:   actorFrom(c),
		Parent:  parent,
		Options: options,
	})
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, res.HTML, &res.NumberOfComments)
}

// POST /api/comments
func (h *CommentsHandler) PostComment(c *gin.Context) {
	var req postCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(c, "invalid request body")
		return
	}
	options, ok := h.parseKwargs(c)
	if !ok {
		return
	}
	res, err := h.engine.PostComment(c.Request.Context(), services.PostRequest{
		Actor: actorFrom(c),
		Target: services.TargetRequest{
			NodeID:            req.NodeID,
			ParentNodeID:      req.ParentNodeID,
			PreviousVersionID: req.PreviousVersionID,
		},
		Body:    req.Body,
		Options: options,
	})
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, res.HTML, nil)
}

// POST /api/comments/delete
func (h *CommentsHandler) DeleteComment(c *gin.Context) {
	var req deleteCommentReq
	if err := c.ShouldBindJSON(&req); err != nil || req.NodeID == uuid.Nil {
		response.RespondBadRequest(c, "invalid request body")
		return
	}
	options, ok := h.parseKwargs(c)
	if !ok {
		return
	}
	nodeID := req.NodeID
	err := h.engine.DeleteComment(c.Request.Context(), services.DeleteRequest{
		Actor:   actorFrom(c),
		Target:  services.TargetRequest{NodeID: &nodeID},
		Options: options,
	})
	if err != nil {
		response.RespondEngineError(c, err)
		return
	}
	response.RespondOK(c, "", nil)
}

// parseKwargs decodes the options header. A missing header is an empty map;
// a malformed one is a client error, reported here so handlers can just
// bail on !ok.
func (h *CommentsHandler) parseKwargs(c *gin.Context) (map[string]interface{}, bool) {
	raw := strings.TrimSpace(c.GetHeader(kwargsHeader))
	if raw == "" {
		return map[string]interface{}{}, true
	}
	var options map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		h.log.Warn("malformed kwargs header", "error", err)
		response.RespondBadRequest(c, "malformed "+kwargsHeader+" header")
		return nil, false
	}
	return options, true
}

func actorFrom(c *gin.Context) domain.ActorRef {
	if ad := ctxutil.GetActorData(c.Request.Context()); ad != nil {
		return ad.Actor
	}
	return domain.ActorRef{}
}
