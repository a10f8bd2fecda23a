package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/groupcart-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

func burger() AddItemInput {
	return AddItemInput{MenuItemID: "m-burger", Name: "Burger", Price: 1250, Quantity: 2}
}

func TestCartAddItemIncrementsVersionAndTotals(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a", "b"))
	svc := NewCartService(testutil.Logger(t), h.orders)

	res, err := svc.AddItem(context.Background(), o.SessionID, "b", burger(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, CartAdd, res.Operation)
	assert.NotEmpty(t, res.ItemID)
	assert.Equal(t, int64(2500), res.NewTotals.Subtotal)
	assert.Equal(t, int64(2500), res.NewTotals.Total)

	got := h.read(t, o.SessionID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "b", got.Items[0].AddedBy)
	assert.Equal(t, 1, got.Version)
}

func TestCartAddItemValidation(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a"))
	svc := NewCartService(testutil.Logger(t), h.orders)

	in := burger()
	in.Quantity = 0
	_, err := svc.AddItem(context.Background(), o.SessionID, "a", in, 0)
	requireCode(t, err, domainagg.CodeValidation)

	_, err = svc.AddItem(context.Background(), o.SessionID, "stranger", burger(), 0)
	requireCode(t, err, domainagg.CodePermission)

	assert.Equal(t, 0, h.read(t, o.SessionID).Version)
}

func TestCartRejectsOutOfRangeLines(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a")
	seed.Settings.SpendingLimitRequired = true
	seed.SpendingLimits = []grouporder.SpendingLimit{{UserID: "a", Limit: 5000, IsActive: true}}
	o := h.seed(t, seed)
	svc := NewCartService(testutil.Logger(t), h.orders)
	ctx := context.Background()

	// price*quantity here would wrap negative and slip under the limit
	huge := burger()
	huge.Price = math.MaxInt64 / 2
	huge.Quantity = 3
	_, err := svc.AddItem(ctx, o.SessionID, "a", huge, 0)
	requireCode(t, err, domainagg.CodeValidation)

	many := burger()
	many.Quantity = MaxItemQuantity + 1
	_, err = svc.AddItem(ctx, o.SessionID, "a", many, 0)
	requireCode(t, err, domainagg.CodeValidation)

	res, err := svc.AddItem(ctx, o.SessionID, "a", burger(), 0)
	require.NoError(t, err)
	price := MaxItemPrice + 1
	_, err = svc.UpdateItem(ctx, o.SessionID, "a", res.ItemID, UpdateItemInput{Price: &price}, res.Version)
	requireCode(t, err, domainagg.CodeValidation)

	_, err = svc.CheckSpendingLimit(ctx, o.SessionID, "a", -1)
	requireCode(t, err, domainagg.CodeValidation)

	got := h.read(t, o.SessionID)
	assert.Equal(t, 1, got.Version)
	assert.Len(t, got.Items, 1)
}

func TestCartAddItemStaleVersionConflicts(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a"))
	svc := NewCartService(testutil.Logger(t), h.orders)

	_, err := svc.AddItem(context.Background(), o.SessionID, "a", burger(), 0)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), o.SessionID, "a", burger(), 0)
	requireCode(t, err, domainagg.CodeConflict)

	got := h.read(t, o.SessionID)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 1, got.Version)
}

func TestCartConcurrentAddsExactlyOneWins(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a", "b"))
	svc := NewCartService(testutil.Logger(t), h.orders)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = svc.AddItem(context.Background(), o.SessionID, user, burger(), 0)
		}(i, user)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case domainagg.IsCode(err, domainagg.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, h.read(t, o.SessionID).Version)
}

func TestCartAddItemSpendingLimitFailsClosed(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a")
	seed.Settings.SpendingLimitRequired = true
	seed.SpendingLimits = []grouporder.SpendingLimit{{UserID: "a", Limit: 2000, IsActive: true}}
	seed.Items = []grouporder.CartItem{item("i1", "a", 1800, 1)}
	o := h.seed(t, seed)
	svc := NewCartService(testutil.Logger(t), h.orders)

	check, err := svc.CheckSpendingLimit(context.Background(), o.SessionID, "a", 300)
	require.NoError(t, err)
	assert.False(t, check.Allowed)

	_, err = svc.AddItem(context.Background(), o.SessionID, "a", AddItemInput{MenuItemID: "m", Name: "Fries", Price: 300, Quantity: 1}, 0)
	requireCode(t, err, domainagg.CodeValidation)
	assert.Contains(t, domainagg.MessageOf(err), "spending limit")
	assert.Len(t, h.read(t, o.SessionID).Items, 1)
}

func TestCartRemoveItemByNonOwnerIsDenied(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a", "b")
	seed.Items = []grouporder.CartItem{item("i1", "a", 500, 1)}
	o := h.seed(t, seed)
	svc := NewCartService(testutil.Logger(t), h.orders)

	_, err := svc.RemoveItem(context.Background(), o.SessionID, "b", "i1", 0)
	requireCode(t, err, domainagg.CodePermission)

	got := h.read(t, o.SessionID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 0, got.Version)

	res, err := svc.RemoveItem(context.Background(), o.SessionID, "a", "i1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.NewTotals.Subtotal)
	assert.Empty(t, h.read(t, o.SessionID).Items)
}

func TestCartUpdateItemOwnershipAndModificationSetting(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a", "b")
	seed.Items = []grouporder.CartItem{item("i1", "a", 500, 1)}
	o := h.seed(t, seed)
	svc := NewCartService(testutil.Logger(t), h.orders)

	qty := 3
	_, err := svc.UpdateItem(context.Background(), o.SessionID, "b", "i1", UpdateItemInput{Quantity: &qty}, 0)
	requireCode(t, err, domainagg.CodePermission)

	_, err = svc.UpdateItem(context.Background(), o.SessionID, "a", "missing", UpdateItemInput{Quantity: &qty}, 0)
	requireCode(t, err, domainagg.CodeNotFound)

	res, err := svc.UpdateItem(context.Background(), o.SessionID, "a", "i1", UpdateItemInput{Quantity: &qty}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), res.NewTotals.Subtotal)
	assert.Equal(t, "a", res.Item.ModifiedBy)

	seed2 := testutil.NewOrder("a", "b")
	seed2.Settings.AllowItemModification = true
	seed2.Items = []grouporder.CartItem{item("i1", "a", 500, 1)}
	o2 := h.seed(t, seed2)
	res, err = svc.UpdateItem(context.Background(), o2.SessionID, "b", "i1", UpdateItemInput{Quantity: &qty}, 0)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Item.ModifiedBy)
}

func TestCartMutationsRejectedAfterSubmit(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a")
	seed.Status = grouporder.StatusSubmitted
	o := h.seed(t, seed)
	svc := NewCartService(testutil.Logger(t), h.orders)

	_, err := svc.AddItem(context.Background(), o.SessionID, "a", burger(), 0)
	requireCode(t, err, domainagg.CodePreconditionFailed)
}

func TestCartAddRecomputesStoredSplit(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a", "b"))
	sessions := NewSessionService(h.db, testutil.Logger(t), h.orders, h.repos.GroupOrders)
	cart := NewCartService(testutil.Logger(t), h.orders)

	_, err := sessions.UpdatePaymentSplit(context.Background(), o.SessionID, "a", grouporder.SplitConfig{Method: grouporder.SplitEqual}, 0)
	require.NoError(t, err)
	res, err := cart.AddItem(context.Background(), o.SessionID, "a", AddItemInput{MenuItemID: "m", Name: "Soup", Price: 1001, Quantity: 1}, 1)
	require.NoError(t, err)

	split := res.Order.PaymentSplit
	require.Len(t, split.Assignments, 2)
	assert.Equal(t, int64(501), split.Assignments[0].Amount)
	assert.Equal(t, int64(500), split.Assignments[1].Amount)
}
