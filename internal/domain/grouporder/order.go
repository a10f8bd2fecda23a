package grouporder

import "time"

// Participant returns the participant with the given user id.
func (o *GroupOrder) Participant(userID string) (*Participant, bool) {
	for i := range o.Participants {
		if o.Participants[i].UserID == userID {
			return &o.Participants[i], true
		}
	}
	return nil, false
}

// IsActiveParticipant reports whether userID is a participant with status active.
func (o *GroupOrder) IsActiveParticipant(userID string) bool {
	p, ok := o.Participant(userID)
	return ok && p.Status == ParticipantActive
}

// ActiveParticipants returns active participants in list order.
func (o *GroupOrder) ActiveParticipants() []Participant {
	out := make([]Participant, 0, len(o.Participants))
	for _, p := range o.Participants {
		if p.Status == ParticipantActive {
			out = append(out, p)
		}
	}
	return out
}

// Item returns the index of the cart item with the given id, or -1.
func (o *GroupOrder) Item(itemID string) int {
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// SpendingLimitFor returns the active spending limit configured for userID.
func (o *GroupOrder) SpendingLimitFor(userID string) (SpendingLimit, bool) {
	for _, l := range o.SpendingLimits {
		if l.UserID == userID && l.IsActive {
			return l, true
		}
	}
	return SpendingLimit{}, false
}

// SpendingOf sums the cost of items attributed to userID.
func (o *GroupOrder) SpendingOf(userID string) int64 {
	var sum int64
	for _, it := range o.Items {
		if it.AddedBy == userID {
			sum += it.Cost()
		}
	}
	return sum
}

// RecomputeTotals derives subtotal from the cart and total from all components.
func (o *GroupOrder) RecomputeTotals() {
	var sub int64
	for _, it := range o.Items {
		sub += it.Cost()
	}
	o.Totals.Subtotal = sub
	o.Totals.Total = sub + o.Totals.Tax + o.Totals.DeliveryFee + o.Totals.ServiceFee + o.Totals.Tip
}

// ApplyCharges replaces fee components and recomputes totals.
func (o *GroupOrder) ApplyCharges(c Charges) {
	o.Totals.Tax = c.Tax
	o.Totals.DeliveryFee = c.DeliveryFee
	o.Totals.ServiceFee = c.ServiceFee
	o.Totals.Tip = c.Tip
	o.RecomputeTotals()
}

// Touch bumps the participant's lastActivity.
func (o *GroupOrder) Touch(userID string, now time.Time) {
	if p, ok := o.Participant(userID); ok {
		p.LastActivity = now
	}
}

// SetAssignments stores a fresh split. Completion counters are derived from statuses.
func (o *GroupOrder) SetAssignments(cfg SplitConfig, assignments []PaymentAssignment) {
	o.PaymentSplit.Method = cfg.Method
	o.PaymentSplit.Config = &cfg
	o.PaymentSplit.Assignments = assignments
	o.RecountPayments()
}

// RecountPayments recomputes completed/total counters from assignment statuses.
func (o *GroupOrder) RecountPayments() {
	completed := 0
	for _, a := range o.PaymentSplit.Assignments {
		if a.Status == PaymentCompleted {
			completed++
		}
	}
	o.PaymentSplit.CompletedPayments = completed
	o.PaymentSplit.TotalPayments = len(o.PaymentSplit.Assignments)
}

// ClearSplit drops the stored split and its assignments.
func (o *GroupOrder) ClearSplit() {
	o.PaymentSplit = PaymentSplit{}
}

// Assignment returns the index of the payment assignment for userID, or -1.
func (o *GroupOrder) Assignment(userID string) int {
	for i := range o.PaymentSplit.Assignments {
		if o.PaymentSplit.Assignments[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can hand snapshots across goroutines.
func (o *GroupOrder) Clone() *GroupOrder {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Participants = append([]Participant(nil), o.Participants...)
	cp.Items = make([]CartItem, len(o.Items))
	for i, it := range o.Items {
		it.Customizations = append([]Customization(nil), it.Customizations...)
		cp.Items[i] = it
	}
	cp.SpendingLimits = append([]SpendingLimit(nil), o.SpendingLimits...)
	cp.PaymentSplit.Assignments = append([]PaymentAssignment(nil), o.PaymentSplit.Assignments...)
	if o.PaymentSplit.Config != nil {
		cfg := *o.PaymentSplit.Config
		cfg.Percentages = append([]PercentageShare(nil), cfg.Percentages...)
		if cfg.ItemAssignments != nil {
			cfg.ItemAssignments = make(ItemAssignments, len(o.PaymentSplit.Config.ItemAssignments))
			for k, v := range o.PaymentSplit.Config.ItemAssignments {
				cfg.ItemAssignments[k] = append([]string(nil), v...)
			}
		}
		cp.PaymentSplit.Config = &cfg
	}
	if o.DeliveryInfo != nil {
		d := *o.DeliveryInfo
		cp.DeliveryInfo = &d
	}
	return &cp
}
