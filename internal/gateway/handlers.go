package gateway

import (
	"context"
	"encoding/json"
	"strings"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/realtime"
	"github.com/yungbote/groupcart-backend/internal/services"
)

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type addItemPayload struct {
	SessionID       string                `json:"sessionId"`
	Item            services.AddItemInput `json:"item"`
	ExpectedVersion *int                  `json:"expectedVersion"`
}

type updateItemPayload struct {
	SessionID       string                   `json:"sessionId"`
	ItemID          string                   `json:"itemId"`
	Updates         services.UpdateItemInput `json:"updates"`
	ExpectedVersion *int                     `json:"expectedVersion"`
}

type removeItemPayload struct {
	SessionID       string `json:"sessionId"`
	ItemID          string `json:"itemId"`
	ExpectedVersion *int   `json:"expectedVersion"`
}

type splitPayload struct {
	SessionID       string                 `json:"sessionId"`
	SplitConfig     grouporder.SplitConfig `json:"splitConfig"`
	ExpectedVersion *int                   `json:"expectedVersion"`
}

type spendingPayload struct {
	SessionID string `json:"sessionId"`
	ItemCost  int64  `json:"itemCost"`
}

type participantPayload struct {
	SessionID       string `json:"sessionId"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	ExpectedVersion *int   `json:"expectedVersion"`
}

type submitPayload struct {
	SessionID       string                   `json:"sessionId"`
	DeliveryInfo    *grouporder.DeliveryInfo `json:"deliveryInfo,omitempty"`
	ExpectedVersion *int                     `json:"expectedVersion"`
}

type cancelPayload struct {
	SessionID       string `json:"sessionId"`
	Reason          string `json:"reason,omitempty"`
	ExpectedVersion *int   `json:"expectedVersion"`
}

// joinGroupOrder registers the connection and returns the full snapshot, which
// is how a reconnecting client catches up. The room is limited to the creator
// and users on the participant list; newcomers enter via join-as-participant.
func (g *Gateway) joinGroupOrder(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.JoinGroupOrder"
	in, err := decode[sessionPayload](op, raw)
	if err != nil {
		return err
	}
	order, err := g.sessions.Get(ctx, strings.TrimSpace(in.SessionID))
	if err != nil {
		return err
	}
	if _, ok := order.Participant(c.UserID); !ok && order.CreatedBy != c.UserID {
		return domainagg.NewError(domainagg.CodePermission, op, "not a participant of this group order; join as participant first", nil)
	}
	g.hub.AddChannel(c, order.SessionID)
	g.notify.OrderState(ctx, c.ID.String(), order)
	g.notify.UserJoined(ctx, order.SessionID, c.ID.String(), c.UserID, c.Name)
	return nil
}

func (g *Gateway) leaveGroupOrder(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.LeaveGroupOrder"
	in, err := decode[sessionPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	g.hub.RemoveChannel(c, in.SessionID)
	g.notify.UserLeft(ctx, in.SessionID, c.ID.String(), c.UserID, c.Name)
	return nil
}

func (g *Gateway) addCartItem(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.AddCartItem"
	in, err := decode[addItemPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	version, err := requireVersion(op, in.ExpectedVersion)
	if err != nil {
		return err
	}
	res, err := g.cart.AddItem(ctx, in.SessionID, c.UserID, in.Item, version)
	if err != nil {
		return err
	}
	g.notify.CartUpdated(ctx, in.SessionID, c.UserID, res)
	return nil
}

func (g *Gateway) updateCartItem(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.UpdateCartItem"
	in, err := decode[updateItemPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	version, err := requireVersion(op, in.ExpectedVersion)
	if err != nil {
		return err
	}
	res, err := g.cart.UpdateItem(ctx, in.SessionID, c.UserID, in.ItemID, in.Updates, version)
	if err != nil {
		return err
	}
	g.notify.CartUpdated(ctx, in.SessionID, c.UserID, res)
	return nil
}

func (g *Gateway) removeCartItem(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.RemoveCartItem"
	in, err := decode[removeItemPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	version, err := requireVersion(op, in.ExpectedVersion)
	if err != nil {
		return err
	}
	res, err := g.cart.RemoveItem(ctx, in.SessionID, c.UserID, in.ItemID, version)
	if err != nil {
		return err
	}
	g.notify.CartUpdated(ctx, in.SessionID, c.UserID, res)
	return nil
}

func (g *Gateway) updatePaymentSplit(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.UpdatePaymentSplit"
	in, err := decode[splitPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	version, err := requireVersion(op, in.ExpectedVersion)
	if err != nil {
		return err
	}
	order, err := g.sessions.UpdatePaymentSplit(ctx, in.SessionID, c.UserID, in.SplitConfig, version)
	if err != nil {
		return err
	}
	g.notify.PaymentSplitUpdated(ctx, order)
	return nil
}

func (g *Gateway) checkSpendingLimit(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.CheckSpendingLimit"
	in, err := decode[spendingPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	check, err := g.cart.CheckSpendingLimit(ctx, in.SessionID, c.UserID, in.ItemCost)
	if err != nil {
		return err
	}
	g.notify.SpendingLimitCheck(ctx, in.SessionID, c.ID.String(), check)
	return nil
}

func (g *Gateway) joinAsParticipant(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.JoinAsParticipant"
	in, err := decode[participantPayload](op, raw)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "sessionId is required", nil)
	}
	version, err := requireVersion(op, in.ExpectedVersion)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = c.Name
	}
	order, p, err := g.sessions.JoinAsParticipant(ctx, in.SessionID, services.Identity{
		UserID: c.UserID,
		Name:   name,
		Email:  in.Email,
	}, version)
	if err != nil {
		return err
	}
	if !g.hub.InChannel(c, order.SessionID) {
		g.hub.AddChannel(c, order.SessionID)
		g.notify.OrderState(ctx, c.ID.String(), order)
	}
	g.notify.ParticipantJoined(ctx, order, p)
	if order.PaymentSplit.Config != nil {
		g.notify.PaymentSplitUpdated(ctx, order)
	}
	return nil
}

func (g *Gateway) submitGroupOrder(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.SubmitGroupOrder"
	in, err := decode[submitPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	version, err := requireVersion(op, in.ExpectedVersion)
	if err != nil {
		return err
	}
	res, err := g.submission.Submit(ctx, in.SessionID, c.UserID, in.DeliveryInfo, version)
	if err != nil {
		return err
	}
	g.notify.OrderSubmitted(ctx, in.SessionID, res)
	return nil
}

func (g *Gateway) cancelGroupOrder(ctx context.Context, c *realtime.SSEClient, raw json.RawMessage) error {
	const op = "Gateway.CancelGroupOrder"
	in, err := decode[cancelPayload](op, raw)
	if err != nil {
		return err
	}
	if err := g.requireJoined(op, c, in.SessionID); err != nil {
		return err
	}
	version, err := requireVersion(op, in.ExpectedVersion)
	if err != nil {
		return err
	}
	order, err := g.submission.Cancel(ctx, in.SessionID, c.UserID, in.Reason, version)
	if err != nil {
		return err
	}
	g.notify.OrderCancelled(ctx, order, c.UserID)
	return nil
}
