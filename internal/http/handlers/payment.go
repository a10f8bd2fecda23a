package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/groupcart-backend/internal/http/response"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/services"
)

type PaymentHandler struct {
	log      *logger.Logger
	payments services.PaymentService
}

func NewPaymentHandler(log *logger.Logger, payments services.PaymentService) *PaymentHandler {
	return &PaymentHandler{log: log.With("handler", "PaymentHandler"), payments: payments}
}

// POST /api/group-orders/:sessionId/payments/process
func (h *PaymentHandler) Process(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	run, err := h.payments.ProcessGroupPayments(c.Request.Context(), sid, who.UserID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, run)
}

type refundRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

// POST /api/group-orders/:sessionId/payments/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	assignment, err := h.payments.Refund(c.Request.Context(), sid, who.UserID, req.UserID, req.Reason)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": assignment})
}

// POST /api/payments/intents
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req services.CreateIntentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}
	intent, err := h.payments.CreatePaymentIntent(c.Request.Context(), who.UserID, req)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"intent": intent})
}

// POST /api/payments/intents/:intentId/confirm
func (h *PaymentHandler) ConfirmIntent(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	intentID := strings.TrimSpace(c.Param("intentId"))
	if intentID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_intent_id", nil)
		return
	}
	intent, err := h.payments.ConfirmPaymentIntent(c.Request.Context(), who.UserID, intentID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"intent": intent})
}
