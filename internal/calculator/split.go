package calculator

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

const op = "Calculator.Split"

var (
	percentageTotal     = decimal.NewFromInt(100)
	percentageTolerance = decimal.RequireFromString("0.01")
)

type (
	SplitConfig     = grouporder.SplitConfig
	PercentageShare = grouporder.PercentageShare
	ItemAssignments = grouporder.ItemAssignments
)

// ValidateAssignments checks that every referenced item exists and every assignee is active.
func ValidateAssignments(order *grouporder.GroupOrder, a ItemAssignments) error {
	for itemID, users := range a {
		if order.Item(itemID) < 0 {
			return invalid("item assignment references unknown item %s", itemID)
		}
		if len(users) == 0 {
			return invalid("item %s has no assignees", itemID)
		}
		for _, uid := range users {
			if !order.IsActiveParticipant(uid) {
				return invalid("item %s assigned to non-active participant %s", itemID, uid)
			}
		}
	}
	return nil
}

// Calculate maps a snapshot and split config to per-participant assignments.
// Amounts always sum to the grand total, every breakdown column sums to its
// component total, and every breakdown sums to its assignment amount.
func Calculate(order *grouporder.GroupOrder, cfg SplitConfig) ([]grouporder.PaymentAssignment, error) {
	if order == nil {
		return nil, invalid("missing group order")
	}
	active := order.ActiveParticipants()
	if len(active) == 0 {
		return nil, invalid("group order has no active participants")
	}
	comps := components(order)
	for _, c := range comps {
		if c < 0 {
			return nil, invalid("totals must be non-negative")
		}
	}
	if sum := sumOf(comps[:]); sum != order.Totals.Total {
		return nil, invalid("totals components sum to %d, total is %d", sum, order.Totals.Total)
	}

	switch cfg.Method {
	case grouporder.SplitSingle:
		return single(order, comps, cfg.PayerID)
	case grouporder.SplitEqual:
		return equal(active, comps), nil
	case grouporder.SplitPercentage:
		return percentage(order, active, comps, cfg.Percentages)
	case grouporder.SplitIndividual:
		return individual(order, active, comps, cfg.ItemAssignments)
	default:
		return nil, invalid("unknown split method %q", cfg.Method)
	}
}

// component order: items, tax, delivery, service, tip.
const numComponents = 5

// components reads the snapshot's totals as priced upstream; items are only
// consulted by the individual method.
func components(order *grouporder.GroupOrder) [numComponents]int64 {
	t := order.Totals
	return [numComponents]int64{t.Subtotal, t.Tax, t.DeliveryFee, t.ServiceFee, t.Tip}
}

func sumOf(vals []int64) int64 {
	var s int64
	for _, v := range vals {
		s += v
	}
	return s
}

func toBreakdown(row [numComponents]int64) grouporder.Breakdown {
	return grouporder.Breakdown{Items: row[0], Tax: row[1], DeliveryFee: row[2], ServiceFee: row[3], Tip: row[4]}
}

func pending(userID string, row [numComponents]int64) grouporder.PaymentAssignment {
	b := toBreakdown(row)
	return grouporder.PaymentAssignment{
		UserID:    userID,
		Amount:    b.Sum(),
		Breakdown: b,
		Status:    grouporder.PaymentPending,
	}
}

func single(order *grouporder.GroupOrder, comps [numComponents]int64, payerID string) ([]grouporder.PaymentAssignment, error) {
	payerID = strings.TrimSpace(payerID)
	if payerID == "" {
		return nil, invalid("single split requires payerId")
	}
	if !order.IsActiveParticipant(payerID) {
		return nil, invalid("payer %s is not an active participant", payerID)
	}
	return []grouporder.PaymentAssignment{pending(payerID, comps)}, nil
}

// equal gives every active participant floor(total/n); the remainder goes to the
// first participant in list order.
func equal(active []grouporder.Participant, comps [numComponents]int64) []grouporder.PaymentAssignment {
	n := int64(len(active))
	total := sumOf(comps[:])
	amounts := make([]int64, n)
	base := total / n
	for i := range amounts {
		amounts[i] = base
	}
	amounts[0] += total - base*n

	weights := make([]int64, n)
	for i := range weights {
		weights[i] = 1
	}
	rows := reconcile(amounts, comps, weights)
	out := make([]grouporder.PaymentAssignment, 0, n)
	for i, p := range active {
		out = append(out, pending(p.UserID, rows[i]))
	}
	return out
}

func percentage(order *grouporder.GroupOrder, active []grouporder.Participant, comps [numComponents]int64, shares []PercentageShare) ([]grouporder.PaymentAssignment, error) {
	if len(shares) == 0 {
		return nil, invalid("percentage split requires percentages")
	}
	byUser := make(map[string]decimal.Decimal, len(shares))
	sum := decimal.Zero
	for _, s := range shares {
		uid := strings.TrimSpace(s.UserID)
		if !order.IsActiveParticipant(uid) {
			return nil, invalid("participant %s is not active", uid)
		}
		if _, dup := byUser[uid]; dup {
			return nil, invalid("duplicate percentage for participant %s", uid)
		}
		if s.Percentage.IsNegative() {
			return nil, invalid("percentage for %s must be non-negative", uid)
		}
		byUser[uid] = s.Percentage
		sum = sum.Add(s.Percentage)
	}
	if sum.Sub(percentageTotal).Abs().GreaterThan(percentageTolerance) {
		return nil, invalid("percentages must sum to 100 (got %s)", sum.String())
	}

	// Keep active-list order for deterministic remainder placement.
	users := make([]string, 0, len(byUser))
	weights := make([]int64, 0, len(byUser))
	for _, p := range active {
		pct, ok := byUser[p.UserID]
		if !ok {
			continue
		}
		users = append(users, p.UserID)
		weights = append(weights, pct.Round(4).Shift(4).IntPart())
	}
	if sumOf(weights) == 0 {
		return nil, invalid("percentages must not all be zero")
	}

	amounts := apportion(sumOf(comps[:]), weights)
	rows := reconcile(amounts, comps, weights)
	out := make([]grouporder.PaymentAssignment, 0, len(users))
	for i, uid := range users {
		out = append(out, pending(uid, rows[i]))
	}
	return out, nil
}

func individual(order *grouporder.GroupOrder, active []grouporder.Participant, comps [numComponents]int64, assignments ItemAssignments) ([]grouporder.PaymentAssignment, error) {
	if err := ValidateAssignments(order, assignments); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(active))
	for i, p := range active {
		index[p.UserID] = i
	}

	itemShare := make([]int64, len(active))
	for _, it := range order.Items {
		users := dedupe(assignments[it.ItemID])
		if len(users) == 0 {
			if !order.IsActiveParticipant(it.AddedBy) {
				return nil, invalid("item %s has no active assignee", it.ItemID)
			}
			users = []string{it.AddedBy}
		}
		cost := it.Cost()
		k := int64(len(users))
		base, rem := cost/k, cost%k
		for j, uid := range users {
			share := base
			if int64(j) < rem {
				share++
			}
			itemShare[index[uid]] += share
		}
	}

	if sumOf(itemShare) != comps[0] {
		return nil, invalid("item costs sum to %d, subtotal is %d", sumOf(itemShare), comps[0])
	}

	weights := append([]int64(nil), itemShare...)
	if sumOf(weights) == 0 {
		for i := range weights {
			weights[i] = 1
		}
	}
	rows := make([][numComponents]int64, len(active))
	for i := range rows {
		rows[i][0] = itemShare[i]
	}
	for c := 1; c < numComponents; c++ {
		for i, v := range apportion(comps[c], weights) {
			rows[i][c] = v
		}
	}

	out := make([]grouporder.PaymentAssignment, 0, len(active))
	for i, p := range active {
		out = append(out, pending(p.UserID, rows[i]))
	}
	return out, nil
}

// apportion splits total proportionally to weights with the largest remainder
// method; ties go to the earlier index. The result sums to total exactly.
func apportion(total int64, weights []int64) []int64 {
	out := make([]int64, len(weights))
	w := sumOf(weights)
	if w <= 0 || total <= 0 {
		return out
	}
	rems := make([]uint64, len(weights))
	var given int64
	for i, wi := range weights {
		q, r := mulDiv(total, wi, w)
		out[i] = q
		rems[i] = r
		given += q
	}
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rems[order[a]] > rems[order[b]] })
	for k := int64(0); k < total-given; k++ {
		out[order[k]]++
	}
	return out
}

// reconcile builds per-participant breakdown rows whose columns sum to comps and
// whose rows sum to amounts. Each cell starts at floor(comp*w/W); the column
// remainders are handed out to rows still short of their amount, one unit per
// row per round, in component order then list order.
func reconcile(amounts []int64, comps [numComponents]int64, weights []int64) [][numComponents]int64 {
	n := len(amounts)
	rows := make([][numComponents]int64, n)
	w := sumOf(weights)
	deficit := append([]int64(nil), amounts...)
	var colRem [numComponents]int64
	for c := 0; c < numComponents; c++ {
		colRem[c] = comps[c]
		for i := 0; i < n; i++ {
			q, _ := mulDiv(comps[c], weights[i], w)
			rows[i][c] = q
			colRem[c] -= q
			deficit[i] -= q
		}
	}
	for c := 0; c < numComponents; c++ {
		for colRem[c] > 0 {
			progressed := false
			for i := 0; i < n && colRem[c] > 0; i++ {
				if deficit[i] <= 0 {
					continue
				}
				rows[i][c]++
				deficit[i]--
				colRem[c]--
				progressed = true
			}
			if !progressed {
				// Deficits and remainders always balance; this only guards a bad caller.
				rows[0][c] += colRem[c]
				colRem[c] = 0
			}
		}
	}
	return rows
}

// mulDiv returns floor(a*b/c) and the remainder using 128-bit intermediates.
// Callers guarantee 0 <= b <= c and a >= 0.
func mulDiv(a, b, c int64) (int64, uint64) {
	if a <= 0 || b <= 0 || c <= 0 {
		return 0, 0
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, r := bits.Div64(hi, lo, uint64(c))
	return int64(q), r
}

func dedupe(users []string) []string {
	if len(users) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		u = strings.TrimSpace(u)
		if _, ok := seen[u]; ok || u == "" {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func invalid(format string, args ...any) error {
	return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf(format, args...), nil)
}
