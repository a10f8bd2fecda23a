package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/groupcart-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

func newSessions(t *testing.T, h *harness) SessionService {
	return NewSessionService(h.db, testutil.Logger(t), h.orders, h.repos.GroupOrders)
}

func TestSessionCreateStartsActiveAtVersionZero(t *testing.T) {
	h := newHarness(t)
	svc := newSessions(t, h)

	o, err := svc.Create(context.Background(), Identity{UserID: "a", Name: "Ann"}, CreateSessionInput{
		RestaurantID: "r1",
		Charges:      grouporder.Charges{Tax: 80, DeliveryFee: 300},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, o.SessionID)
	assert.Equal(t, 0, o.Version)
	assert.Equal(t, grouporder.StatusActive, o.Status)
	require.Len(t, o.Participants, 1)
	assert.Equal(t, "Ann", o.Participants[0].Name)
	assert.Equal(t, int64(380), o.Totals.Total)

	mine, err := svc.ListMine(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.SessionID, mine[0].SessionID)

	_, err = svc.Create(context.Background(), Identity{UserID: "a"}, CreateSessionInput{SessionID: o.SessionID, RestaurantID: "r1"})
	requireCode(t, err, domainagg.CodeConflict)
}

func TestSessionJoinLeaveAndRejoin(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a"))
	svc := newSessions(t, h)
	ctx := context.Background()

	got, p, err := svc.JoinAsParticipant(ctx, o.SessionID, Identity{UserID: "b", Name: "Bo"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bo", p.Name)
	assert.Len(t, got.ActiveParticipants(), 2)

	got, err = svc.Leave(ctx, o.SessionID, "b", 1)
	require.NoError(t, err)
	assert.False(t, got.IsActiveParticipant("b"))

	_, err = svc.Leave(ctx, o.SessionID, "a", 2)
	requireCode(t, err, domainagg.CodeValidation)

	got, _, err = svc.JoinAsParticipant(ctx, o.SessionID, Identity{UserID: "b"}, 2)
	require.NoError(t, err)
	assert.True(t, got.IsActiveParticipant("b"))
	assert.Len(t, got.Participants, 2)
	assert.Equal(t, 3, got.Version)
}

func TestSessionCreatorOnlySettings(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a", "b"))
	svc := newSessions(t, h)
	ctx := context.Background()

	_, err := svc.SetCharges(ctx, o.SessionID, "b", grouporder.Charges{Tax: 10}, 0)
	requireCode(t, err, domainagg.CodePermission)

	got, err := svc.SetCharges(ctx, o.SessionID, "a", grouporder.Charges{Tax: 10, Tip: 5}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(15), got.Totals.Total)

	_, err = svc.SetSpendingLimits(ctx, o.SessionID, "b", SpendingLimitsInput{Required: true}, 1)
	requireCode(t, err, domainagg.CodePermission)

	got, err = svc.SetSpendingLimits(ctx, o.SessionID, "a", SpendingLimitsInput{
		Required: true,
		Limits:   []grouporder.SpendingLimit{{UserID: "b", Limit: 1000, IsActive: true}},
	}, 1)
	require.NoError(t, err)
	assert.True(t, got.Settings.SpendingLimitRequired)
	assert.Len(t, got.SpendingLimits, 1)
}

func TestSessionUpdatePaymentSplit(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a", "b", "c")
	seed.Items = []grouporder.CartItem{item("i1", "a", 1000, 1)}
	seed.ApplyCharges(grouporder.Charges{Tax: 80, DeliveryFee: 300, ServiceFee: 100})
	o := h.seed(t, seed)
	svc := newSessions(t, h)
	ctx := context.Background()

	got, err := svc.UpdatePaymentSplit(ctx, o.SessionID, "b", grouporder.SplitConfig{Method: grouporder.SplitEqual}, 0)
	require.NoError(t, err)
	amounts := []int64{}
	for _, a := range got.PaymentSplit.Assignments {
		amounts = append(amounts, a.Amount)
	}
	assert.Equal(t, []int64{494, 493, 493}, amounts)
	assert.Equal(t, 3, got.PaymentSplit.TotalPayments)

	bad := grouporder.SplitConfig{
		Method: grouporder.SplitPercentage,
		Percentages: []grouporder.PercentageShare{
			{UserID: "a", Percentage: decimal.NewFromInt(50)},
			{UserID: "b", Percentage: decimal.NewFromInt(49)},
		},
	}
	_, err = svc.UpdatePaymentSplit(ctx, o.SessionID, "b", bad, 1)
	requireCode(t, err, domainagg.CodeValidation)

	_, err = svc.UpdatePaymentSplit(ctx, o.SessionID, "b", grouporder.SplitConfig{Method: grouporder.SplitSingle, PayerID: "z"}, 1)
	requireCode(t, err, domainagg.CodeValidation)
	assert.Equal(t, 1, h.read(t, o.SessionID).Version)

	_, err = svc.UpdatePaymentSplit(ctx, o.SessionID, "b", grouporder.SplitConfig{Method: "dutch"}, 1)
	requireCode(t, err, domainagg.CodeValidation)
}
