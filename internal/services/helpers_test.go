package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	dataagg "github.com/yungbote/groupcart-backend/internal/data/aggregates"
	"github.com/yungbote/groupcart-backend/internal/data/repos"
	"github.com/yungbote/groupcart-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/fulfillment"
	"github.com/yungbote/groupcart-backend/internal/platform/payments"
	"github.com/yungbote/groupcart-backend/internal/realtime"
	"gorm.io/gorm"
)

type harness struct {
	db     *gorm.DB
	repos  repos.Repos
	orders domainagg.GroupOrderAggregate
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	return &harness{
		db:    db,
		repos: r,
		orders: dataagg.NewGroupOrderAggregate(dataagg.GroupOrderAggregateDeps{
			Base:   dataagg.BaseDeps{DB: db, Log: log},
			Orders: r.GroupOrders,
		}),
	}
}

// seed persists o at version 0 and returns it re-read.
func (h *harness) seed(t *testing.T, o *grouporder.GroupOrder) *grouporder.GroupOrder {
	t.Helper()
	o.RecomputeTotals()
	testutil.SeedOrder(t, context.Background(), h.db, o)
	got, _, err := h.orders.Read(context.Background(), o.SessionID)
	require.NoError(t, err)
	return got
}

func (h *harness) read(t *testing.T, sessionID string) *grouporder.GroupOrder {
	t.Helper()
	got, _, err := h.orders.Read(context.Background(), sessionID)
	require.NoError(t, err)
	return got
}

func item(id, addedBy string, price int64, qty int) grouporder.CartItem {
	return grouporder.CartItem{
		ItemID:     id,
		MenuItemID: "menu-" + id,
		Name:       "item " + id,
		Price:      price,
		Quantity:   qty,
		AddedBy:    addedBy,
	}
}

func requireCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equalf(t, code, domainagg.CodeOf(err), "error: %v", err)
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) events() []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

type fakeProcessor struct {
	mu        sync.Mutex
	failFor   map[string]bool
	charges   []payments.ChargeRequest
	refunds   []string
	refundErr error
	block     chan struct{}
	started   chan struct{}
	startOnce sync.Once
}

func (p *fakeProcessor) Charge(_ context.Context, req payments.ChargeRequest) (*payments.Charge, error) {
	if p.started != nil {
		p.startOnce.Do(func() { close(p.started) })
	}
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charges = append(p.charges, req)
	if p.failFor[req.Metadata.UserID] {
		return nil, errors.New("card declined")
	}
	return &payments.Charge{PaymentIntentID: fmt.Sprintf("pi_%s_%d", req.Metadata.UserID, len(p.charges)), Status: "succeeded"}, nil
}

func (p *fakeProcessor) Refund(_ context.Context, intentID, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return "", p.refundErr
	}
	p.refunds = append(p.refunds, intentID)
	return "re_" + intentID, nil
}

func (p *fakeProcessor) CreateIntent(_ context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	return &payments.Intent{ID: "pi_intent", Status: "requires_confirmation", Amount: req.Amount, Currency: req.Currency}, nil
}

func (p *fakeProcessor) ConfirmIntent(_ context.Context, intentID, _ string) (*payments.Intent, error) {
	return &payments.Intent{ID: intentID, Status: "succeeded"}, nil
}

func (p *fakeProcessor) chargeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.charges)
}

type fakeFulfillment struct {
	orders []fulfillment.Order
	err    error
}

func (f *fakeFulfillment) CreateOrder(_ context.Context, o fulfillment.Order) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.orders = append(f.orders, o)
	return "order-" + o.SessionID, nil
}
