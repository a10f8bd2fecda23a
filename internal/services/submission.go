package services

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/groupcart-backend/internal/calculator"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/fulfillment"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

type SubmitResult struct {
	OrderID     string                         `json:"orderId"`
	Assignments []grouporder.PaymentAssignment `json:"assignments"`
	Version     int                            `json:"version"`
	Order       *grouporder.GroupOrder         `json:"-"`
}

type SubmissionService interface {
	Submit(ctx context.Context, sessionID, userID string, delivery *grouporder.DeliveryInfo, expectedVersion int) (*SubmitResult, error)
	Cancel(ctx context.Context, sessionID, userID, reason string, expectedVersion int) (*grouporder.GroupOrder, error)
}

type submissionService struct {
	log         *logger.Logger
	orders      domainagg.GroupOrderAggregate
	fulfillment fulfillment.Client
	now         func() time.Time
}

func NewSubmissionService(log *logger.Logger, orders domainagg.GroupOrderAggregate, fc fulfillment.Client) SubmissionService {
	return &submissionService{
		log:         log.With("service", "SubmissionService"),
		orders:      orders,
		fulfillment: fc,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit closes the cart and hands the canonical order to fulfillment. The
// fulfillment call runs inside the write, after the version and status checks,
// keyed by session and version: a retry of the same snapshot maps to the same
// order, while a resubmit after a cart change creates a fresh one.
func (s *submissionService) Submit(ctx context.Context, sessionID, userID string, delivery *grouporder.DeliveryInfo, expectedVersion int) (*SubmitResult, error) {
	const op = "Submission.Submit"
	if s.fulfillment == nil {
		return nil, fail(domainagg.CodeInternal, op, "fulfillment client not configured")
	}
	var orderID string
	order, err := s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: []grouporder.Status{grouporder.StatusActive},
		Apply: func(o *grouporder.GroupOrder) error {
			if o.CreatedBy != userID {
				return fail(domainagg.CodePermission, op, "only the session creator can submit the order")
			}
			if len(o.Items) == 0 {
				return fail(domainagg.CodeValidation, op, "cannot submit an empty cart")
			}
			if delivery != nil {
				d := *delivery
				o.DeliveryInfo = &d
			}
			cfg := grouporder.SplitConfig{Method: grouporder.SplitEqual}
			if o.PaymentSplit.Config != nil {
				cfg = *o.PaymentSplit.Config
			}
			assignments, err := calculator.Calculate(o, cfg)
			if err != nil {
				return err
			}
			o.SetAssignments(cfg, assignments)

			now := s.now()
			callCtx, span := observability.StartSpan(ctx, "fulfillment.CreateOrder")
			id, err := s.fulfillment.CreateOrder(callCtx, fulfillment.FromGroupOrder(o, now))
			observability.EndSpan(span, err)
			if err != nil {
				return domainagg.NewError(domainagg.CodeRetryable, op, "order fulfillment unavailable: "+err.Error(), err)
			}
			orderID = id
			o.OrderID = id
			o.Status = grouporder.StatusSubmitted
			o.Touch(userID, now)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("group order submitted", "session_id", sessionID, "order_id", orderID, "version", order.Version)
	return &SubmitResult{
		OrderID:     orderID,
		Assignments: order.PaymentSplit.Assignments,
		Version:     order.Version,
		Order:       order,
	}, nil
}

// Cancel closes an active session. Completed payments are not compensated here.
func (s *submissionService) Cancel(ctx context.Context, sessionID, userID, reason string, expectedVersion int) (*grouporder.GroupOrder, error) {
	const op = "Submission.Cancel"
	order, err := s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: []grouporder.Status{grouporder.StatusActive},
		Apply: func(o *grouporder.GroupOrder) error {
			if o.CreatedBy != userID {
				return fail(domainagg.CodePermission, op, "only the session creator can cancel the order")
			}
			o.Status = grouporder.StatusCancelled
			o.CancelReason = strings.TrimSpace(reason)
			o.Touch(userID, s.now())
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("group order cancelled", "session_id", sessionID, "version", order.Version)
	return order, nil
}
