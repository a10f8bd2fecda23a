package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

type AddItemInput struct {
	MenuItemID     string                     `json:"menuItemId"`
	Name           string                     `json:"name"`
	Price          int64                      `json:"price"`
	Quantity       int                        `json:"quantity"`
	Customizations []grouporder.Customization `json:"customizations"`
}

// UpdateItemInput carries optional changes; nil fields are left as they are.
// Price changes come from upstream repricing when customizations change.
type UpdateItemInput struct {
	Quantity       *int                        `json:"quantity,omitempty"`
	Price          *int64                      `json:"price,omitempty"`
	Customizations *[]grouporder.Customization `json:"customizations,omitempty"`
}

type CartOperation string

const (
	CartAdd    CartOperation = "add"
	CartUpdate CartOperation = "update"
	CartRemove CartOperation = "remove"
)

// CartResult is the delta of one cart mutation.
type CartResult struct {
	Operation CartOperation          `json:"operation"`
	Item      *grouporder.CartItem   `json:"item,omitempty"`
	ItemID    string                 `json:"itemId"`
	NewTotals grouporder.Totals      `json:"newTotals"`
	Version   int                    `json:"version"`
	Order     *grouporder.GroupOrder `json:"-"`
}

type CartService interface {
	AddItem(ctx context.Context, sessionID, userID string, in AddItemInput, expectedVersion int) (*CartResult, error)
	UpdateItem(ctx context.Context, sessionID, userID, itemID string, in UpdateItemInput, expectedVersion int) (*CartResult, error)
	RemoveItem(ctx context.Context, sessionID, userID, itemID string, expectedVersion int) (*CartResult, error)
	CheckSpendingLimit(ctx context.Context, sessionID, userID string, itemCost int64) (*SpendingCheck, error)
}

type cartService struct {
	log    *logger.Logger
	orders domainagg.GroupOrderAggregate
	now    func() time.Time
	newID  func() string
}

func NewCartService(log *logger.Logger, orders domainagg.GroupOrderAggregate) CartService {
	return &cartService{
		log:    log.With("service", "CartService"),
		orders: orders,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

var cartStatuses = []grouporder.Status{grouporder.StatusActive}

// Per-line bounds. Their product stays far inside int64, so line costs and
// cart totals cannot overflow.
const (
	MaxItemPrice    int64 = 10_000_000
	MaxItemQuantity       = 999
)

func (s *cartService) AddItem(ctx context.Context, sessionID, userID string, in AddItemInput, expectedVersion int) (*CartResult, error) {
	const op = "Cart.AddItem"
	if err := validateNewItem(op, in); err != nil {
		return nil, err
	}
	var added grouporder.CartItem
	order, err := s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			if err := requireActiveParticipant(op, userID, o.IsActiveParticipant(userID)); err != nil {
				return err
			}
			cost := in.Price * int64(in.Quantity)
			if check := CheckSpending(o, userID, cost); !check.Allowed {
				return domainagg.NewError(domainagg.CodeValidation, op, check.Message, nil)
			}
			now := s.now()
			added = grouporder.CartItem{
				ItemID:         s.newID(),
				MenuItemID:     strings.TrimSpace(in.MenuItemID),
				Name:           strings.TrimSpace(in.Name),
				Price:          in.Price,
				Quantity:       in.Quantity,
				Customizations: append([]grouporder.Customization{}, in.Customizations...),
				AddedBy:        userID,
				AddedAt:        now,
				LastModified:   now,
				ModifiedBy:     userID,
			}
			o.Items = append(o.Items, added)
			o.RecomputeTotals()
			resplit(o)
			o.Touch(userID, now)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("cart item added", "session_id", sessionID, "item_id", added.ItemID, "version", order.Version)
	return &CartResult{
		Operation: CartAdd,
		Item:      &added,
		ItemID:    added.ItemID,
		NewTotals: order.Totals,
		Version:   order.Version,
		Order:     order,
	}, nil
}

func (s *cartService) UpdateItem(ctx context.Context, sessionID, userID, itemID string, in UpdateItemInput, expectedVersion int) (*CartResult, error) {
	const op = "Cart.UpdateItem"
	if in.Quantity != nil {
		if err := validateQuantity(op, *in.Quantity); err != nil {
			return nil, err
		}
	}
	if in.Price != nil {
		if err := validatePrice(op, *in.Price); err != nil {
			return nil, err
		}
	}
	var updated grouporder.CartItem
	order, err := s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			if err := requireActiveParticipant(op, userID, o.IsActiveParticipant(userID)); err != nil {
				return err
			}
			idx := o.Item(itemID)
			if idx < 0 {
				return fail(domainagg.CodeNotFound, op, "item %s not found", itemID)
			}
			it := &o.Items[idx]
			if err := requireItemOwner(op, o, it, userID); err != nil {
				return err
			}
			if in.Quantity != nil {
				it.Quantity = *in.Quantity
			}
			if in.Price != nil {
				it.Price = *in.Price
			}
			if in.Customizations != nil {
				it.Customizations = append([]grouporder.Customization{}, (*in.Customizations)...)
			}
			now := s.now()
			it.LastModified = now
			it.ModifiedBy = userID
			updated = *it
			o.RecomputeTotals()
			resplit(o)
			o.Touch(userID, now)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &CartResult{
		Operation: CartUpdate,
		Item:      &updated,
		ItemID:    updated.ItemID,
		NewTotals: order.Totals,
		Version:   order.Version,
		Order:     order,
	}, nil
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID, userID, itemID string, expectedVersion int) (*CartResult, error) {
	const op = "Cart.RemoveItem"
	order, err := s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			if err := requireActiveParticipant(op, userID, o.IsActiveParticipant(userID)); err != nil {
				return err
			}
			idx := o.Item(itemID)
			if idx < 0 {
				return fail(domainagg.CodeNotFound, op, "item %s not found", itemID)
			}
			if err := requireItemOwner(op, o, &o.Items[idx], userID); err != nil {
				return err
			}
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.RecomputeTotals()
			resplit(o)
			o.Touch(userID, s.now())
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &CartResult{
		Operation: CartRemove,
		ItemID:    itemID,
		NewTotals: order.Totals,
		Version:   order.Version,
		Order:     order,
	}, nil
}

func (s *cartService) CheckSpendingLimit(ctx context.Context, sessionID, userID string, itemCost int64) (*SpendingCheck, error) {
	const op = "Cart.CheckSpendingLimit"
	if itemCost < 0 || itemCost > MaxItemPrice*MaxItemQuantity {
		return nil, fail(domainagg.CodeValidation, op, "itemCost must be between 0 and %d", MaxItemPrice*MaxItemQuantity)
	}
	order, _, err := s.orders.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	check := CheckSpending(order, userID, itemCost)
	return &check, nil
}

func validateNewItem(op string, in AddItemInput) error {
	switch {
	case strings.TrimSpace(in.MenuItemID) == "":
		return fail(domainagg.CodeValidation, op, "menuItemId is required")
	case strings.TrimSpace(in.Name) == "":
		return fail(domainagg.CodeValidation, op, "name is required")
	}
	if err := validatePrice(op, in.Price); err != nil {
		return err
	}
	if err := validateQuantity(op, in.Quantity); err != nil {
		return err
	}
	for _, c := range in.Customizations {
		if strings.TrimSpace(c.Name) == "" {
			return fail(domainagg.CodeValidation, op, "customization name is required")
		}
	}
	return nil
}

func validatePrice(op string, price int64) error {
	if price < 0 || price > MaxItemPrice {
		return fail(domainagg.CodeValidation, op, "price must be between 0 and %d", MaxItemPrice)
	}
	return nil
}

func validateQuantity(op string, qty int) error {
	if qty < 1 || qty > MaxItemQuantity {
		return fail(domainagg.CodeValidation, op, "quantity must be between 1 and %d", MaxItemQuantity)
	}
	return nil
}

func requireItemOwner(op string, o *grouporder.GroupOrder, it *grouporder.CartItem, userID string) error {
	if it.AddedBy == userID || o.Settings.AllowItemModification {
		return nil
	}
	return fail(domainagg.CodePermission, op, "item %s belongs to another participant", it.ItemID)
}
