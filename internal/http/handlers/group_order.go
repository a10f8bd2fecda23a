package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/http/response"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/services"
)

var errExpectedVersion = errors.New("expectedVersion is required")

type GroupOrderHandler struct {
	log      *logger.Logger
	sessions services.SessionService
	notify   services.GroupOrderNotifier
}

func NewGroupOrderHandler(log *logger.Logger, sessions services.SessionService, notify services.GroupOrderNotifier) *GroupOrderHandler {
	if notify == nil {
		notify = services.NewGroupOrderNotifier(nil)
	}
	return &GroupOrderHandler{
		log:      log.With("handler", "GroupOrderHandler"),
		sessions: sessions,
		notify:   notify,
	}
}

// POST /api/group-orders
func (h *GroupOrderHandler) Create(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req services.CreateSessionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	order, err := h.sessions.Create(c.Request.Context(), who, req)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"groupOrder": order})
}

// GET /api/group-orders/:sessionId
func (h *GroupOrderHandler) Get(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	order, err := h.sessions.Get(c.Request.Context(), sid)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"groupOrder": order, "version": order.Version})
}

// GET /api/group-orders?limit=
func (h *GroupOrderHandler) ListMine(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	orders, err := h.sessions.ListMine(c.Request.Context(), who.UserID, limit)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"groupOrders": orders})
}

type versionRequest struct {
	ExpectedVersion *int `json:"expectedVersion"`
}

// POST /api/group-orders/:sessionId/participants/leave
func (h *GroupOrderHandler) Leave(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var req versionRequest
	ev, ok := bindVersioned(c, &req, func() *int { return req.ExpectedVersion })
	if !ok {
		return
	}
	order, err := h.sessions.Leave(c.Request.Context(), sid, who.UserID, ev)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	h.notify.ParticipantLeft(c.Request.Context(), order, who.UserID)
	if order.PaymentSplit.Config != nil {
		h.notify.PaymentSplitUpdated(c.Request.Context(), order)
	}
	response.RespondOK(c, gin.H{"groupOrder": order})
}

type spendingLimitsRequest struct {
	services.SpendingLimitsInput
	ExpectedVersion *int `json:"expectedVersion"`
}

// PUT /api/group-orders/:sessionId/spending-limits
func (h *GroupOrderHandler) SetSpendingLimits(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var req spendingLimitsRequest
	ev, ok := bindVersioned(c, &req, func() *int { return req.ExpectedVersion })
	if !ok {
		return
	}
	order, err := h.sessions.SetSpendingLimits(c.Request.Context(), sid, who.UserID, req.SpendingLimitsInput, ev)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	h.notify.OrderUpdated(c.Request.Context(), order)
	response.RespondOK(c, gin.H{"groupOrder": order})
}

type chargesRequest struct {
	grouporder.Charges
	ExpectedVersion *int `json:"expectedVersion"`
}

// PUT /api/group-orders/:sessionId/charges
func (h *GroupOrderHandler) SetCharges(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var req chargesRequest
	ev, ok := bindVersioned(c, &req, func() *int { return req.ExpectedVersion })
	if !ok {
		return
	}
	order, err := h.sessions.SetCharges(c.Request.Context(), sid, who.UserID, req.Charges, ev)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	h.notify.OrderUpdated(c.Request.Context(), order)
	if order.PaymentSplit.Config != nil {
		h.notify.PaymentSplitUpdated(c.Request.Context(), order)
	}
	response.RespondOK(c, gin.H{"groupOrder": order})
}
