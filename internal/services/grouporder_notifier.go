package services

import (
	"context"
	"time"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/realtime"
)

// GroupOrderNotifier turns session outcomes into realtime messages. Channels
// are session ids; clientID targets or excludes a single connection.
type GroupOrderNotifier interface {
	OrderState(ctx context.Context, clientID string, order *grouporder.GroupOrder)
	UserJoined(ctx context.Context, sessionID, excludeClientID, userID, name string)
	UserLeft(ctx context.Context, sessionID, excludeClientID, userID, name string)
	CartUpdated(ctx context.Context, sessionID, userID string, res *CartResult)
	PaymentSplitUpdated(ctx context.Context, order *grouporder.GroupOrder)
	SpendingLimitCheck(ctx context.Context, sessionID, clientID string, check *SpendingCheck)
	ParticipantJoined(ctx context.Context, order *grouporder.GroupOrder, p *grouporder.Participant)
	ParticipantLeft(ctx context.Context, order *grouporder.GroupOrder, userID string)
	OrderSubmitted(ctx context.Context, sessionID string, res *SubmitResult)
	OrderCancelled(ctx context.Context, order *grouporder.GroupOrder, userID string)
	OrderUpdated(ctx context.Context, order *grouporder.GroupOrder)
	OperationError(ctx context.Context, sessionID, clientID, operation string, err error)
	SystemMessage(ctx context.Context, sessionID, message string)
}

type groupOrderNotifier struct {
	emit SSEEmitter
}

func NewGroupOrderNotifier(emit SSEEmitter) GroupOrderNotifier {
	return &groupOrderNotifier{emit: emit}
}

func (n *groupOrderNotifier) send(ctx context.Context, msg realtime.SSEMessage) {
	if n == nil || n.emit == nil || msg.Channel == "" {
		return
	}
	n.emit.Emit(ctx, msg)
}

func (n *groupOrderNotifier) OrderState(ctx context.Context, clientID string, order *grouporder.GroupOrder) {
	if order == nil {
		return
	}
	n.send(ctx, realtime.SSEMessage{
		Channel:        order.SessionID,
		Event:          realtime.EventOrderState,
		Data:           map[string]any{"order": order, "version": order.Version},
		TargetClientID: clientID,
	})
}

func (n *groupOrderNotifier) UserJoined(ctx context.Context, sessionID, excludeClientID, userID, name string) {
	n.send(ctx, realtime.SSEMessage{
		Channel:         sessionID,
		Event:           realtime.EventUserJoined,
		Data:            map[string]any{"userId": userID, "name": name},
		ExcludeClientID: excludeClientID,
	})
}

func (n *groupOrderNotifier) UserLeft(ctx context.Context, sessionID, excludeClientID, userID, name string) {
	n.send(ctx, realtime.SSEMessage{
		Channel:         sessionID,
		Event:           realtime.EventUserLeft,
		Data:            map[string]any{"userId": userID, "name": name},
		ExcludeClientID: excludeClientID,
	})
}

func (n *groupOrderNotifier) CartUpdated(ctx context.Context, sessionID, userID string, res *CartResult) {
	if res == nil {
		return
	}
	data := map[string]any{
		"operation": res.Operation,
		"itemId":    res.ItemID,
		"newTotals": res.NewTotals,
		"version":   res.Version,
		"userId":    userID,
	}
	if res.Item != nil {
		data["item"] = res.Item
	}
	n.send(ctx, realtime.SSEMessage{Channel: sessionID, Event: realtime.EventCartUpdated, Data: data})
	if res.Order != nil && res.Order.PaymentSplit.Config != nil {
		n.PaymentSplitUpdated(ctx, res.Order)
	}
}

func (n *groupOrderNotifier) PaymentSplitUpdated(ctx context.Context, order *grouporder.GroupOrder) {
	if order == nil {
		return
	}
	n.send(ctx, realtime.SSEMessage{
		Channel: order.SessionID,
		Event:   realtime.EventPaymentSplitUpdated,
		Data:    map[string]any{"paymentSplit": order.PaymentSplit, "version": order.Version},
	})
}

func (n *groupOrderNotifier) SpendingLimitCheck(ctx context.Context, sessionID, clientID string, check *SpendingCheck) {
	if check == nil {
		return
	}
	n.send(ctx, realtime.SSEMessage{
		Channel:        sessionID,
		Event:          realtime.EventSpendingLimitCheck,
		Data:           check,
		TargetClientID: clientID,
	})
}

func (n *groupOrderNotifier) ParticipantJoined(ctx context.Context, order *grouporder.GroupOrder, p *grouporder.Participant) {
	if order == nil || p == nil {
		return
	}
	n.send(ctx, realtime.SSEMessage{
		Channel: order.SessionID,
		Event:   realtime.EventParticipantJoined,
		Data:    map[string]any{"participant": p, "version": order.Version},
	})
}

func (n *groupOrderNotifier) ParticipantLeft(ctx context.Context, order *grouporder.GroupOrder, userID string) {
	if order == nil {
		return
	}
	n.send(ctx, realtime.SSEMessage{
		Channel: order.SessionID,
		Event:   realtime.EventParticipantLeft,
		Data:    map[string]any{"userId": userID, "version": order.Version},
	})
}

func (n *groupOrderNotifier) OrderSubmitted(ctx context.Context, sessionID string, res *SubmitResult) {
	if res == nil {
		return
	}
	data := map[string]any{
		"orderId":     res.OrderID,
		"assignments": res.Assignments,
		"version":     res.Version,
	}
	if res.Order != nil {
		data["deliveryInfo"] = res.Order.DeliveryInfo
		data["totals"] = res.Order.Totals
	}
	n.send(ctx, realtime.SSEMessage{Channel: sessionID, Event: realtime.EventOrderSubmitted, Data: data})
}

func (n *groupOrderNotifier) OrderCancelled(ctx context.Context, order *grouporder.GroupOrder, userID string) {
	if order == nil {
		return
	}
	n.send(ctx, realtime.SSEMessage{
		Channel: order.SessionID,
		Event:   realtime.EventOrderCancelled,
		Data: map[string]any{
			"reason":      order.CancelReason,
			"cancelledBy": userID,
			"version":     order.Version,
		},
	})
}

func (n *groupOrderNotifier) OrderUpdated(ctx context.Context, order *grouporder.GroupOrder) {
	if order == nil {
		return
	}
	n.send(ctx, realtime.SSEMessage{
		Channel: order.SessionID,
		Event:   realtime.EventOrderUpdated,
		Data:    map[string]any{"order": order, "version": order.Version},
	})
}

func (n *groupOrderNotifier) OperationError(ctx context.Context, sessionID, clientID, operation string, err error) {
	if err == nil || clientID == "" {
		return
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	n.send(ctx, realtime.SSEMessage{
		Channel: fallbackChannel(sessionID, clientID),
		Event:   realtime.EventOperationError,
		Data: map[string]any{
			"message":   domainagg.MessageOf(err),
			"operation": operation,
			"code":      code,
		},
		TargetClientID: clientID,
	})
}

func (n *groupOrderNotifier) SystemMessage(ctx context.Context, sessionID, message string) {
	n.send(ctx, realtime.SSEMessage{
		Channel: sessionID,
		Event:   realtime.EventSystemMessage,
		Data:    map[string]any{"message": message, "at": time.Now().UTC()},
	})
}

// Targeted errors may concern a connection that never joined a session.
func fallbackChannel(sessionID, clientID string) string {
	if sessionID != "" {
		return sessionID
	}
	return clientID
}
