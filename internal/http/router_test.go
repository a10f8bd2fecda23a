package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataagg "github.com/yungbote/groupcart-backend/internal/data/aggregates"
	"github.com/yungbote/groupcart-backend/internal/data/repos"
	"github.com/yungbote/groupcart-backend/internal/data/repos/testutil"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/gateway"
	httpH "github.com/yungbote/groupcart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/groupcart-backend/internal/http/middleware"
	"github.com/yungbote/groupcart-backend/internal/platform/fulfillment"
	"github.com/yungbote/groupcart-backend/internal/realtime"
	"github.com/yungbote/groupcart-backend/internal/services"
)

const testSecret = "router-test-secret"

type noFulfillment struct{}

func (noFulfillment) CreateOrder(context.Context, fulfillment.Order) (string, error) {
	return "order-1", nil
}

type routerFixture struct {
	engine stdhttp.Handler
	hub    *realtime.SSEHub
	order  *grouporder.GroupOrder
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	orders := dataagg.NewGroupOrderAggregate(dataagg.GroupOrderAggregateDeps{
		Base:   dataagg.BaseDeps{DB: db, Log: log},
		Orders: r.GroupOrders,
	})
	hub := realtime.NewSSEHub(log)
	notify := services.NewGroupOrderNotifier(&services.HubEmitter{Hub: hub})
	sessions := services.NewSessionService(db, log, orders, r.GroupOrders)
	gw := gateway.New(gateway.Deps{
		Log:        log,
		Hub:        hub,
		Notifier:   notify,
		Sessions:   sessions,
		Cart:       services.NewCartService(log, orders),
		Submission: services.NewSubmissionService(log, orders, noFulfillment{}),
	})

	seed := testutil.NewOrder("alice", "bob")
	testutil.SeedOrder(t, context.Background(), db, seed)

	engine := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, testSecret, ""),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, hub, gw, nil),
		GroupOrderHandler: httpH.NewGroupOrderHandler(log, sessions, notify),
		HealthHandler:     httpH.NewHealthHandler(nil),
	})
	return &routerFixture{engine: engine, hub: hub, order: seed}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, httpMW.Claims{
		Name: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func (f *routerFixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestHealthcheckIsPublic(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, stdhttp.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	rec = f.do(t, stdhttp.MethodGet, "/readyz", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}

func TestGroupOrderRoutesRequireAuth(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, stdhttp.MethodGet, "/api/group-orders/"+f.order.SessionID, "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
}

func TestCreateThenGetGroupOrder(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, stdhttp.MethodPost, "/api/group-orders", "carol", map[string]any{
		"restaurantId": "r-9",
		"charges":      map[string]any{"tax": 100, "deliveryFee": 299},
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		GroupOrder grouporder.GroupOrder `json:"groupOrder"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 0, created.GroupOrder.Version)
	assert.Equal(t, "carol", created.GroupOrder.CreatedBy)
	require.Len(t, created.GroupOrder.Participants, 1)
	assert.Equal(t, int64(399), created.GroupOrder.Totals.Total)

	rec = f.do(t, stdhttp.MethodGet, "/api/group-orders/"+created.GroupOrder.SessionID, "dave", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = f.do(t, stdhttp.MethodGet, "/api/group-orders/missing", "dave", nil)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))

	rec = f.do(t, stdhttp.MethodPost, "/api/group-orders", "carol", map[string]any{})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestLeaveRequiresVersionAndRejectsCreator(t *testing.T) {
	f := newRouterFixture(t)
	path := "/api/group-orders/" + f.order.SessionID + "/participants/leave"

	rec := f.do(t, stdhttp.MethodPost, path, "bob", map[string]any{})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = f.do(t, stdhttp.MethodPost, path, "alice", map[string]any{"expectedVersion": 0})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", errorCode(t, rec))

	rec = f.do(t, stdhttp.MethodPost, path, "bob", map[string]any{"expectedVersion": 5})
	assert.Equal(t, stdhttp.StatusConflict, rec.Code)

	rec = f.do(t, stdhttp.MethodPost, path, "bob", map[string]any{"expectedVersion": 0})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
}

func TestChargesAreCreatorOnly(t *testing.T) {
	f := newRouterFixture(t)
	path := "/api/group-orders/" + f.order.SessionID + "/charges"

	rec := f.do(t, stdhttp.MethodPut, path, "bob", map[string]any{"tax": 50, "expectedVersion": 0})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = f.do(t, stdhttp.MethodPut, path, "alice", map[string]any{"tax": 50, "expectedVersion": 0})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
}

func TestPostEventRoutesThroughGateway(t *testing.T) {
	f := newRouterFixture(t)
	conn := f.hub.NewSSEClient("bob", "Bob")
	path := "/api/realtime/connections/" + conn.ID.String() + "/events"

	rec := f.do(t, stdhttp.MethodPost, path, "alice", map[string]any{"event": "join-group-order"})
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code, "connections belong to their user")

	rec = f.do(t, stdhttp.MethodPost, path, "bob", map[string]any{
		"event":   "join-group-order",
		"payload": map[string]any{"sessionId": f.order.SessionID},
	})
	require.Equal(t, stdhttp.StatusAccepted, rec.Code, rec.Body.String())

	select {
	case msg := <-conn.Outbound:
		assert.Equal(t, realtime.EventOrderState, msg.Event)
	case <-time.After(time.Second):
		t.Fatal("no order-state delivered")
	}

	rec = f.do(t, stdhttp.MethodPost, path, "bob", map[string]any{
		"event":   "add-cart-item",
		"payload": map[string]any{"sessionId": f.order.SessionID, "expectedVersion": 9, "item": map[string]any{"menuItemId": "m", "name": "Taco", "price": 300, "quantity": 1}},
	})
	assert.Equal(t, stdhttp.StatusConflict, rec.Code)
}
