package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/groupcart-backend/internal/gateway"
	"github.com/yungbote/groupcart-backend/internal/http/response"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/ctxutil"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/realtime"
)

type RealtimeHandler struct {
	log     *logger.Logger
	hub     *realtime.SSEHub
	gateway *gateway.Gateway
	metrics *observability.Metrics
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, gw *gateway.Gateway, metrics *observability.Metrics) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		gateway: gw,
		metrics: metrics,
	}
}

// GET /api/realtime/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	client := h.hub.NewSSEClient(rd.UserID, rd.Name)
	h.log.Info("SSEStream open", "user_id", rd.UserID, "clientID", client.ID.String())
	h.metrics.RealtimeConnected()
	defer h.metrics.RealtimeDisconnected()

	h.hub.SendTo(client.ID, realtime.SSEMessage{
		Event: realtime.EventConnected,
		Data:  gin.H{"connectionId": client.ID.String(), "events": h.gateway.Events()},
	})

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	// The request context is done by now; presence still has to go out.
	h.gateway.Disconnect(context.WithoutCancel(c.Request.Context()), client)
	h.log.Info("SSEStream closed", "user_id", rd.UserID, "clientID", client.ID.String())
}

type inboundEvent struct {
	Event   realtime.SSEEvent `json:"event"`
	Payload json.RawMessage   `json:"payload"`
}

// POST /api/realtime/connections/:connectionId/events
//
// Outcomes are delivered on the stream; the response only acknowledges receipt
// and reports the error code if the event was rejected.
func (h *RealtimeHandler) PostEvent(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	connID, err := uuid.Parse(strings.TrimSpace(c.Param("connectionId")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_connection_id", err)
		return
	}
	client, ok := h.hub.Client(connID)
	if !ok || client.UserID != rd.UserID {
		response.RespondError(c, http.StatusNotFound, "connection_not_found", nil)
		return
	}

	var req inboundEvent
	if err := c.ShouldBindJSON(&req); err != nil || req.Event == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if err := h.gateway.Dispatch(c.Request.Context(), client, req.Event, req.Payload); err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"event": req.Event, "status": "accepted"})
}
