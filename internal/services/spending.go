package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

// SpendingCheck is the guard verdict. A disallowed add is a result, not an error.
type SpendingCheck struct {
	Allowed         bool   `json:"allowed"`
	Message         string `json:"message,omitempty"`
	CurrentSpending int64  `json:"currentSpending"`
	Limit           int64  `json:"limit,omitempty"`
	ItemCost        int64  `json:"itemCost"`
}

// CheckSpending reports whether adding itemCost keeps userID within their cap.
// Limits apply only when the session requires them and the user has an active one.
func CheckSpending(order *grouporder.GroupOrder, userID string, itemCost int64) SpendingCheck {
	current := order.SpendingOf(userID)
	out := SpendingCheck{Allowed: true, CurrentSpending: current, ItemCost: itemCost}
	if !order.Settings.SpendingLimitRequired {
		return out
	}
	limit, ok := order.SpendingLimitFor(userID)
	if !ok {
		return out
	}
	out.Limit = limit.Limit
	if current+itemCost > limit.Limit {
		out.Allowed = false
		out.Message = fmt.Sprintf(
			"adding this item would exceed your spending limit of %s (current spending %s, item %s)",
			formatMinor(limit.Limit), formatMinor(current), formatMinor(itemCost),
		)
	}
	return out
}

func formatMinor(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}
