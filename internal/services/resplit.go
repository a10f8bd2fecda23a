package services

import (
	"github.com/yungbote/groupcart-backend/internal/calculator"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

// resplit recomputes the stored split after totals or membership changed. A
// stored config that no longer applies clears the split; the next
// update-payment-split or submission recreates it.
func resplit(order *grouporder.GroupOrder) {
	cfg := order.PaymentSplit.Config
	if cfg == nil {
		return
	}
	next := *cfg
	if len(cfg.ItemAssignments) > 0 {
		next.ItemAssignments = make(grouporder.ItemAssignments, len(cfg.ItemAssignments))
		for itemID, users := range cfg.ItemAssignments {
			if order.Item(itemID) >= 0 {
				next.ItemAssignments[itemID] = append([]string(nil), users...)
			}
		}
	}
	assignments, err := calculator.Calculate(order, next)
	if err != nil {
		order.ClearSplit()
		return
	}
	order.SetAssignments(next, assignments)
}
