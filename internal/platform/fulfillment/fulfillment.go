package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

// Order is the canonical order payload handed to fulfillment. Cart items map 1:1
// into Items.
type Order struct {
	SessionID      string                   `json:"sessionId"`
	RestaurantID   string                   `json:"restaurantId"`
	CustomerID     string                   `json:"customerId"`
	Items          []Item                   `json:"items"`
	Totals         grouporder.Totals        `json:"totals"`
	DeliveryInfo   *grouporder.DeliveryInfo `json:"deliveryInfo,omitempty"`
	PaymentMethod  string                   `json:"paymentMethod"`
	Participants   []string                 `json:"participants"`
	SubmittedAt    time.Time                `json:"submittedAt"`
	IdempotencyKey string                   `json:"-"`
}

type Item struct {
	MenuItemID     string                     `json:"menuItemId"`
	Name           string                     `json:"name"`
	Price          int64                      `json:"price"`
	Quantity       int                        `json:"quantity"`
	Customizations []grouporder.Customization `json:"customizations"`
	AddedBy        string                     `json:"addedBy"`
}

// Client accepts a canonical order and returns the fulfillment order id.
type Client interface {
	CreateOrder(ctx context.Context, order Order) (string, error)
}

// IdempotencyKey identifies one submission attempt of a session snapshot. A
// resubmit after the cart changed carries a new version and so a new key.
func IdempotencyKey(sessionID string, version int) string {
	return fmt.Sprintf("%s:v%d", sessionID, version)
}

// FromGroupOrder builds the canonical payload for a session at its current version.
func FromGroupOrder(o *grouporder.GroupOrder, now time.Time) Order {
	items := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, Item{
			MenuItemID:     it.MenuItemID,
			Name:           it.Name,
			Price:          it.Price,
			Quantity:       it.Quantity,
			Customizations: it.Customizations,
			AddedBy:        it.AddedBy,
		})
	}
	participants := make([]string, 0, len(o.Participants))
	for _, p := range o.ActiveParticipants() {
		participants = append(participants, p.UserID)
	}
	return Order{
		SessionID:      o.SessionID,
		RestaurantID:   o.RestaurantID,
		CustomerID:     o.CreatedBy,
		Items:          items,
		Totals:         o.Totals,
		DeliveryInfo:   o.DeliveryInfo,
		PaymentMethod:  "group_split",
		Participants:   participants,
		SubmittedAt:    now,
		IdempotencyKey: IdempotencyKey(o.SessionID, o.Version),
	}
}

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("fulfillment backend not configured")

// Disabled rejects every order. Used when neither FULFILLMENT_BASE_URL nor
// Kafka is configured, so submissions fail as retryable.
type Disabled struct{}

func (Disabled) CreateOrder(context.Context, Order) (string, error) {
	return "", ErrNotConfigured
}
