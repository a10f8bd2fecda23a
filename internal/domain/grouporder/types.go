package grouporder

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSubmitted Status = "submitted"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// IsTerminalForCart reports whether cart mutation is closed for the status.
func (s Status) IsTerminalForCart() bool {
	return s != StatusActive
}

type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "active"
	ParticipantLeft   ParticipantStatus = "left"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type SplitMethod string

const (
	SplitSingle     SplitMethod = "single"
	SplitEqual      SplitMethod = "equal"
	SplitIndividual SplitMethod = "individual"
	SplitPercentage SplitMethod = "percentage"
)

func (m SplitMethod) Valid() bool {
	switch m {
	case SplitSingle, SplitEqual, SplitIndividual, SplitPercentage:
		return true
	default:
		return false
	}
}

type Participant struct {
	UserID       string            `json:"userId"`
	Name         string            `json:"name"`
	Email        string            `json:"email,omitempty"`
	JoinedAt     time.Time         `json:"joinedAt"`
	Status       ParticipantStatus `json:"status"`
	LastActivity time.Time         `json:"lastActivity"`
}

type Customization struct {
	Name   string `json:"name"`
	Option string `json:"option,omitempty"`
	Price  int64  `json:"price"`
}

type CartItem struct {
	ItemID         string          `json:"itemId"`
	MenuItemID     string          `json:"menuItemId"`
	Name           string          `json:"name"`
	Price          int64           `json:"price"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations"`
	AddedBy        string          `json:"addedBy"`
	AddedAt        time.Time       `json:"addedAt"`
	LastModified   time.Time       `json:"lastModified"`
	ModifiedBy     string          `json:"modifiedBy"`
}

// Cost is price times quantity in minor units. Customization prices are already
// folded into Price by upstream pricing.
func (i CartItem) Cost() int64 {
	return i.Price * int64(i.Quantity)
}

type SpendingLimit struct {
	UserID   string `json:"userId"`
	Limit    int64  `json:"limit"`
	IsActive bool   `json:"isActive"`
}

type Settings struct {
	AllowItemModification bool `json:"allowItemModification"`
	SpendingLimitRequired bool `json:"spendingLimitRequired"`
}

// Breakdown is the fixed per-component allocation of one assignment.
type Breakdown struct {
	Items       int64 `json:"items"`
	Tax         int64 `json:"tax"`
	DeliveryFee int64 `json:"deliveryFee"`
	ServiceFee  int64 `json:"serviceFee"`
	Tip         int64 `json:"tip"`
}

func (b Breakdown) Sum() int64 {
	return b.Items + b.Tax + b.DeliveryFee + b.ServiceFee + b.Tip
}

type PaymentAssignment struct {
	UserID          string        `json:"userId"`
	Amount          int64         `json:"amount"`
	Breakdown       Breakdown     `json:"breakdown"`
	Status          PaymentStatus `json:"status"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	FailureReason   string        `json:"failureReason,omitempty"`
}

// SplitConfig selects the split method and carries its method-specific input.
type SplitConfig struct {
	Method          SplitMethod       `json:"method"`
	PayerID         string            `json:"payerId,omitempty"`
	Percentages     []PercentageShare `json:"percentages,omitempty"`
	ItemAssignments ItemAssignments   `json:"itemAssignments,omitempty"`
}

// PercentageShare is one participant's share of the total, in percent.
type PercentageShare struct {
	UserID     string          `json:"userId"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ItemAssignments maps a cart item id to the participants sharing it.
type ItemAssignments map[string][]string

type PaymentSplit struct {
	Method            SplitMethod         `json:"method"`
	Config            *SplitConfig        `json:"config,omitempty"`
	Assignments       []PaymentAssignment `json:"assignments"`
	CompletedPayments int                 `json:"completedPayments"`
	TotalPayments     int                 `json:"totalPayments"`
}

type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	Tax         int64 `json:"tax"`
	DeliveryFee int64 `json:"deliveryFee"`
	ServiceFee  int64 `json:"serviceFee"`
	Tip         int64 `json:"tip"`
	Total       int64 `json:"total"`
}

type DeliveryInfo struct {
	Type         string `json:"type,omitempty"`
	Address      string `json:"address,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// Charges are the fee components supplied by upstream pricing.
type Charges struct {
	Tax         int64 `json:"tax"`
	DeliveryFee int64 `json:"deliveryFee"`
	ServiceFee  int64 `json:"serviceFee"`
	Tip         int64 `json:"tip"`
}

// GroupOrder is the root aggregate, one per session.
type GroupOrder struct {
	SessionID      string          `json:"sessionId"`
	RestaurantID   string          `json:"restaurantId"`
	CreatedBy      string          `json:"createdBy"`
	Status         Status          `json:"status"`
	Version        int             `json:"version"`
	Participants   []Participant   `json:"participants"`
	Items          []CartItem      `json:"items"`
	SpendingLimits []SpendingLimit `json:"spendingLimits"`
	Settings       Settings        `json:"settings"`
	PaymentSplit   PaymentSplit    `json:"paymentSplit"`
	Totals         Totals          `json:"totals"`
	DeliveryInfo   *DeliveryInfo   `json:"deliveryInfo,omitempty"`
	OrderID        string          `json:"orderId,omitempty"`
	CancelReason   string          `json:"cancelReason,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
