package gateway

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/realtime"
	"github.com/yungbote/groupcart-backend/internal/services"
)

type Deps struct {
	Log        *logger.Logger
	Hub        *realtime.SSEHub
	Notifier   services.GroupOrderNotifier
	Sessions   services.SessionService
	Cart       services.CartService
	Submission services.SubmissionService
	Metrics    *observability.Metrics
}

type handlerFunc func(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error

// Gateway routes inbound participant events to the owning service and turns
// outcomes into session deltas. The only mutable state it touches is the hub's
// connection registry.
type Gateway struct {
	log        *logger.Logger
	hub        *realtime.SSEHub
	notify     services.GroupOrderNotifier
	sessions   services.SessionService
	cart       services.CartService
	submission services.SubmissionService
	metrics    *observability.Metrics
	handlers   map[realtime.SSEEvent]handlerFunc
}

func New(deps Deps) *Gateway {
	g := &Gateway{
		log:        deps.Log.With("service", "SessionGateway"),
		hub:        deps.Hub,
		notify:     deps.Notifier,
		sessions:   deps.Sessions,
		cart:       deps.Cart,
		submission: deps.Submission,
		metrics:    deps.Metrics,
	}
	if g.notify == nil {
		g.notify = services.NewGroupOrderNotifier(nil)
	}
	g.handlers = map[realtime.SSEEvent]handlerFunc{
		realtime.EventJoinGroupOrder:     g.joinGroupOrder,
		realtime.EventLeaveGroupOrder:    g.leaveGroupOrder,
		realtime.EventAddCartItem:        g.addCartItem,
		realtime.EventUpdateCartItem:     g.updateCartItem,
		realtime.EventRemoveCartItem:     g.removeCartItem,
		realtime.EventUpdatePaymentSplit: g.updatePaymentSplit,
		realtime.EventCheckSpendingLimit: g.checkSpendingLimit,
		realtime.EventJoinAsParticipant:  g.joinAsParticipant,
		realtime.EventSubmitGroupOrder:   g.submitGroupOrder,
		realtime.EventCancelGroupOrder:   g.cancelGroupOrder,
	}
	return g
}

// Events lists the inbound events the gateway accepts.
func (g *Gateway) Events() []realtime.SSEEvent {
	out := make([]realtime.SSEEvent, 0, len(g.handlers))
	for ev := range g.handlers {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch runs one inbound event for a connection. Any failure is also sent to
// that connection alone as an operation-error.
func (g *Gateway) Dispatch(ctx context.Context, client *realtime.SSEClient, event realtime.SSEEvent, payload json.RawMessage) error {
	var err error
	h, ok := g.handlers[event]
	if !ok {
		err = domainagg.NewError(domainagg.CodeValidation, "Gateway.Dispatch", "unknown event "+string(event), nil)
	} else {
		err = h(ctx, client, payload)
	}
	if err != nil {
		g.metrics.IncRealtimeEvent(string(event), string(codeOrInternal(err)))
		g.log.Debug("realtime event failed", "event", event, "clientID", client.ID, "error", err)
		g.notify.OperationError(ctx, sessionOf(payload), client.ID.String(), string(event), err)
		return err
	}
	g.metrics.IncRealtimeEvent(string(event), "ok")
	return nil
}

// Disconnect treats a dropped stream as leaving every joined session.
func (g *Gateway) Disconnect(ctx context.Context, client *realtime.SSEClient) {
	for _, sessionID := range g.hub.ChannelsOf(client) {
		g.hub.RemoveChannel(client, sessionID)
		g.notify.UserLeft(ctx, sessionID, client.ID.String(), client.UserID, client.Name)
	}
	g.hub.CloseClient(client)
}

func (g *Gateway) requireJoined(op string, c *realtime.SSEClient, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "sessionId is required", nil)
	}
	if !g.hub.InChannel(c, sessionID) {
		return domainagg.NewError(domainagg.CodePreconditionFailed, op, "join the group order before sending events", nil)
	}
	return nil
}

func codeOrInternal(err error) domainagg.ErrorCode {
	if code := domainagg.CodeOf(err); code != "" {
		return code
	}
	return domainagg.CodeInternal
}

func sessionOf(raw json.RawMessage) string {
	var env struct {
		SessionID string `json:"sessionId"`
	}
	_ = json.Unmarshal(raw, &env)
	return strings.TrimSpace(env.SessionID)
}

func decode[T any](op string, raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing payload", nil)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "malformed payload: "+err.Error(), err)
	}
	return out, nil
}

func requireVersion(op string, v *int) (int, error) {
	if v == nil {
		return 0, domainagg.NewError(domainagg.CodeValidation, op, "expectedVersion is required", nil)
	}
	return *v, nil
}
