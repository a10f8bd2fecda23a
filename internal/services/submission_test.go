package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataagg "github.com/yungbote/groupcart-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/groupcart-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/groupcart-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/fulfillment"
)

func TestSubmitByNonCreatorIsDenied(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a", "b")
	seed.Items = []grouporder.CartItem{item("i1", "b", 500, 1)}
	o := h.seed(t, seed)
	ff := &fakeFulfillment{}
	svc := NewSubmissionService(testutil.Logger(t), h.orders, ff)

	_, err := svc.Submit(context.Background(), o.SessionID, "b", nil, 0)
	requireCode(t, err, domainagg.CodePermission)

	got := h.read(t, o.SessionID)
	assert.Equal(t, grouporder.StatusActive, got.Status)
	assert.Empty(t, ff.orders)
}

func TestSubmitCreatesOrderAndDefaultSplit(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a", "b", "c")
	seed.Items = []grouporder.CartItem{item("i1", "a", 600, 1), item("i2", "b", 400, 1)}
	seed.ApplyCharges(grouporder.Charges{Tax: 80, DeliveryFee: 300, ServiceFee: 100})
	o := h.seed(t, seed)
	ff := &fakeFulfillment{}
	svc := NewSubmissionService(testutil.Logger(t), h.orders, ff)

	res, err := svc.Submit(context.Background(), o.SessionID, "a", &grouporder.DeliveryInfo{Type: "delivery", Address: "1 Main St"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "order-"+o.SessionID, res.OrderID)
	require.Len(t, res.Assignments, 3)
	var sum int64
	for _, a := range res.Assignments {
		sum += a.Amount
		assert.Equal(t, grouporder.PaymentPending, a.Status)
	}
	assert.Equal(t, int64(1480), sum)

	require.Len(t, ff.orders, 1)
	assert.Len(t, ff.orders[0].Items, 2)
	assert.Equal(t, o.SessionID+":v0", ff.orders[0].IdempotencyKey)

	got := h.read(t, o.SessionID)
	assert.Equal(t, grouporder.StatusSubmitted, got.Status)
	assert.Equal(t, res.OrderID, got.OrderID)
	assert.Equal(t, "1 Main St", got.DeliveryInfo.Address)
	assert.Equal(t, 1, got.Version)
}

// replayingFulfillment returns the cached order id for a repeated key, the way
// an idempotent fulfillment API does.
type replayingFulfillment struct {
	byKey  map[string]string
	orders map[string]fulfillment.Order
}

func (f *replayingFulfillment) CreateOrder(_ context.Context, o fulfillment.Order) (string, error) {
	if id, ok := f.byKey[o.IdempotencyKey]; ok {
		return id, nil
	}
	id := fmt.Sprintf("order-%d", len(f.byKey)+1)
	f.byKey[o.IdempotencyKey] = id
	f.orders[id] = o
	return id, nil
}

func TestResubmitAfterLostWriteCarriesNewCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seed := testutil.NewOrder("a", "b")
	seed.Items = []grouporder.CartItem{item("i1", "a", 500, 1)}
	o := h.seed(t, seed)
	ff := &replayingFulfillment{byKey: map[string]string{}, orders: map[string]fulfillment.Order{}}

	// The first submit reaches fulfillment but its write never commits.
	lost := dataagg.NewGroupOrderAggregate(dataagg.GroupOrderAggregateDeps{
		Base: dataagg.BaseDeps{DB: h.db, Log: testutil.Logger(t), Runner: &aggtest.InjectedTxRunner{
			Inner:      dataagg.NewGormTxRunner(h.db),
			FailCommit: errors.New("commit lost"),
		}},
		Orders: h.repos.GroupOrders,
	})
	_, err := NewSubmissionService(testutil.Logger(t), lost, ff).Submit(ctx, o.SessionID, "a", nil, 0)
	require.Error(t, err)
	require.Len(t, ff.orders, 1)

	cart := NewCartService(testutil.Logger(t), h.orders)
	_, err = cart.AddItem(ctx, o.SessionID, "b", AddItemInput{MenuItemID: "menu-2", Name: "fries", Price: 300, Quantity: 1}, 0)
	require.NoError(t, err)

	res, err := NewSubmissionService(testutil.Logger(t), h.orders, ff).Submit(ctx, o.SessionID, "a", nil, 1)
	require.NoError(t, err)
	placed, ok := ff.orders[res.OrderID]
	require.True(t, ok)
	assert.Len(t, placed.Items, 2)
	assert.Equal(t, o.SessionID+":v1", placed.IdempotencyKey)
	assert.Equal(t, res.OrderID, h.read(t, o.SessionID).OrderID)
}

func TestSubmitRejectsEmptyCartAndFulfillmentFailure(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a"))
	svc := NewSubmissionService(testutil.Logger(t), h.orders, &fakeFulfillment{})

	_, err := svc.Submit(context.Background(), o.SessionID, "a", nil, 0)
	requireCode(t, err, domainagg.CodeValidation)

	seed := testutil.NewOrder("a")
	seed.Items = []grouporder.CartItem{item("i1", "a", 500, 1)}
	o2 := h.seed(t, seed)
	down := NewSubmissionService(testutil.Logger(t), h.orders, &fakeFulfillment{err: errors.New("503")})
	_, err = down.Submit(context.Background(), o2.SessionID, "a", nil, 0)
	requireCode(t, err, domainagg.CodeRetryable)
	assert.Equal(t, grouporder.StatusActive, h.read(t, o2.SessionID).Status)
}

func TestCancelSubmittedSessionIsRejected(t *testing.T) {
	h := newHarness(t)
	seed := testutil.NewOrder("a")
	seed.Status = grouporder.StatusSubmitted
	o := h.seed(t, seed)
	svc := NewSubmissionService(testutil.Logger(t), h.orders, &fakeFulfillment{})

	_, err := svc.Cancel(context.Background(), o.SessionID, "a", "changed mind", 0)
	requireCode(t, err, domainagg.CodePreconditionFailed)
	assert.Equal(t, grouporder.StatusSubmitted, h.read(t, o.SessionID).Status)
}

func TestCancelActiveSession(t *testing.T) {
	h := newHarness(t)
	o := h.seed(t, testutil.NewOrder("a", "b"))
	svc := NewSubmissionService(testutil.Logger(t), h.orders, &fakeFulfillment{})

	_, err := svc.Cancel(context.Background(), o.SessionID, "b", "", 0)
	requireCode(t, err, domainagg.CodePermission)

	got, err := svc.Cancel(context.Background(), o.SessionID, "a", "restaurant closed", 0)
	require.NoError(t, err)
	assert.Equal(t, grouporder.StatusCancelled, got.Status)
	assert.Equal(t, "restaurant closed", got.CancelReason)
}
