package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/billing"
	"github.com/yungbote/groupcart-backend/internal/platform/locks"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"github.com/yungbote/groupcart-backend/internal/platform/payments"
)

const persistAttempts = 3

// PaymentResult is the outcome of one assignment in a processing run.
type PaymentResult struct {
	UserID          string                   `json:"userId"`
	Amount          int64                    `json:"amount"`
	Status          grouporder.PaymentStatus `json:"status"`
	PaymentIntentID string                   `json:"paymentIntentId,omitempty"`
	Error           string                   `json:"error,omitempty"`
	Skipped         bool                     `json:"skipped,omitempty"`
}

type PaymentRun struct {
	SessionID         string            `json:"sessionId"`
	Results           []PaymentResult   `json:"results"`
	CompletedPayments int               `json:"completedPayments"`
	TotalPayments     int               `json:"totalPayments"`
	Status            grouporder.Status `json:"status"`
	Version           int               `json:"version"`
}

type CreateIntentInput struct {
	SessionID      string `json:"sessionId,omitempty"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type PaymentService interface {
	ProcessGroupPayments(ctx context.Context, sessionID, userID string) (*PaymentRun, error)
	Refund(ctx context.Context, sessionID, userID, targetUserID, reason string) (*grouporder.PaymentAssignment, error)
	CreatePaymentIntent(ctx context.Context, userID string, in CreateIntentInput) (*payments.Intent, error)
	ConfirmPaymentIntent(ctx context.Context, userID, intentID string) (*payments.Intent, error)
}

type PaymentServiceDeps struct {
	Log       *logger.Logger
	Orders    domainagg.GroupOrderAggregate
	Processor payments.Client
	Billing   billing.Client
	Locks     locks.Locker
	Notifier  GroupOrderNotifier
	Metrics   *observability.Metrics
	Currency  string
	LockTTL   time.Duration
}

type paymentService struct {
	log       *logger.Logger
	orders    domainagg.GroupOrderAggregate
	processor payments.Client
	billing   billing.Client
	locks     locks.Locker
	notifier  GroupOrderNotifier
	metrics   *observability.Metrics
	currency  string
	lockTTL   time.Duration
}

func NewPaymentService(deps PaymentServiceDeps) PaymentService {
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	lk := deps.Locks
	if lk == nil {
		lk = locks.NewMemory()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewGroupOrderNotifier(nil)
	}
	currency := strings.TrimSpace(deps.Currency)
	if currency == "" {
		currency = "usd"
	}
	return &paymentService{
		log:       deps.Log.With("service", "PaymentService"),
		orders:    deps.Orders,
		processor: deps.Processor,
		billing:   deps.Billing,
		locks:     lk,
		notifier:  notifier,
		metrics:   deps.Metrics,
		currency:  currency,
		lockTTL:   ttl,
	}
}

func paymentLockKey(sessionID string) string { return "payments:" + sessionID }

func (s *paymentService) acquire(ctx context.Context, op, sessionID string) (locks.Lease, error) {
	lease, err := s.locks.Acquire(ctx, paymentLockKey(sessionID), s.lockTTL)
	if errors.Is(err, locks.ErrNotAcquired) {
		return nil, fail(domainagg.CodeConflict, op, "payment processing already in progress for session %s", sessionID)
	}
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "payment lock unavailable", err)
	}
	return lease, nil
}

// ProcessGroupPayments charges every assignment that is not yet completed, one
// charge each. A failed charge does not stop or undo the others. Outcomes are
// persisted together; when every assignment is completed the order completes.
func (s *paymentService) ProcessGroupPayments(ctx context.Context, sessionID, userID string) (*PaymentRun, error) {
	const op = "Payments.ProcessGroupPayments"
	if s.processor == nil || s.billing == nil {
		return nil, fail(domainagg.CodeInternal, op, "payment collaborators not configured")
	}
	lease, err := s.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lease.Release(context.WithoutCancel(ctx)) }()

	order, version, err := s.orders.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order.CreatedBy != userID {
		return nil, fail(domainagg.CodePermission, op, "only the session creator can process payments")
	}
	if order.Status != grouporder.StatusSubmitted {
		return nil, fail(domainagg.CodePreconditionFailed, op, "payments require a submitted order (status %s)", order.Status)
	}
	if len(order.PaymentSplit.Assignments) == 0 {
		return nil, fail(domainagg.CodePreconditionFailed, op, "order has no payment assignments")
	}

	results := make([]PaymentResult, 0, len(order.PaymentSplit.Assignments))
	for _, a := range order.PaymentSplit.Assignments {
		if a.Status == grouporder.PaymentCompleted {
			results = append(results, PaymentResult{
				UserID:          a.UserID,
				Amount:          a.Amount,
				Status:          a.Status,
				PaymentIntentID: a.PaymentIntentID,
				Skipped:         true,
			})
			continue
		}
		results = append(results, s.chargeOne(ctx, sessionID, version, a))
	}

	updated, err := s.persistOutcomes(ctx, op, sessionID, version, results)
	if err != nil {
		s.log.Error("failed to persist payment outcomes", "session_id", sessionID, "error", err)
		return nil, err
	}

	run := &PaymentRun{
		SessionID:         sessionID,
		Results:           results,
		CompletedPayments: updated.PaymentSplit.CompletedPayments,
		TotalPayments:     updated.PaymentSplit.TotalPayments,
		Status:            updated.Status,
		Version:           updated.Version,
	}
	s.notifier.PaymentSplitUpdated(ctx, updated)
	s.notifier.SystemMessage(ctx, sessionID, fmt.Sprintf("%d of %d payments completed", run.CompletedPayments, run.TotalPayments))
	s.log.Info("group payments processed",
		"session_id", sessionID,
		"completed", run.CompletedPayments,
		"total", run.TotalPayments,
		"status", run.Status,
	)
	return run, nil
}

func (s *paymentService) chargeOne(ctx context.Context, sessionID string, version int, a grouporder.PaymentAssignment) PaymentResult {
	res := PaymentResult{UserID: a.UserID, Amount: a.Amount}
	if a.Amount == 0 {
		res.Status = grouporder.PaymentCompleted
		return res
	}
	cred, err := s.billing.ResolveCredential(ctx, a.UserID)
	if err != nil {
		res.Status = grouporder.PaymentFailed
		res.Error = "no usable payment credential: " + err.Error()
		s.metrics.ObservePayment("charge", "no_credential", a.Amount, 0)
		return res
	}

	start := time.Now()
	callCtx, span := observability.StartSpan(ctx, "payments.Charge",
		attribute.String("session.id", sessionID),
		attribute.Int64("amount", a.Amount),
	)
	charge, err := s.processor.Charge(callCtx, payments.ChargeRequest{
		CustomerID:      cred.CustomerID,
		PaymentMethodID: cred.PaymentMethodID,
		Amount:          a.Amount,
		Currency:        s.currency,
		Metadata:        payments.Metadata{SessionID: sessionID, UserID: a.UserID, Breakdown: a.Breakdown},
		IdempotencyKey:  fmt.Sprintf("%s:%s:v%d", sessionID, a.UserID, version),
	})
	observability.EndSpan(span, err)
	if err != nil {
		res.Status = grouporder.PaymentFailed
		res.Error = err.Error()
		s.metrics.ObservePayment("charge", "failure", a.Amount, time.Since(start))
		s.log.Warn("charge failed", "session_id", sessionID, "user_id", a.UserID, "error", err)
		return res
	}
	s.metrics.ObservePayment("charge", "success", a.Amount, time.Since(start))
	res.Status = grouporder.PaymentCompleted
	res.PaymentIntentID = charge.PaymentIntentID
	return res
}

// persistOutcomes writes charge results. Charges already happened, so a version
// conflict here re-reads and reapplies the outcomes instead of failing the run.
func (s *paymentService) persistOutcomes(ctx context.Context, op, sessionID string, version int, results []PaymentResult) (*grouporder.GroupOrder, error) {
	var lastErr error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		updated, err := s.orders.ApplyMutation(ctx, domainagg.MutationInput{
			Op:              op,
			SessionID:       sessionID,
			ExpectedVersion: version,
			AllowedStatuses: []grouporder.Status{grouporder.StatusSubmitted},
			Apply: func(o *grouporder.GroupOrder) error {
				for _, r := range results {
					if r.Skipped {
						continue
					}
					idx := o.Assignment(r.UserID)
					if idx < 0 {
						continue
					}
					a := &o.PaymentSplit.Assignments[idx]
					a.Status = r.Status
					a.PaymentIntentID = r.PaymentIntentID
					a.FailureReason = r.Error
				}
				o.RecountPayments()
				if o.PaymentSplit.TotalPayments > 0 && o.PaymentSplit.CompletedPayments == o.PaymentSplit.TotalPayments {
					o.Status = grouporder.StatusCompleted
				}
				return nil
			},
		})
		if err == nil {
			return updated, nil
		}
		lastErr = err
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			return nil, err
		}
		_, version, err = s.orders.Read(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Refund reverses one completed assignment. The assignment becomes failed and
// the completion counter drops; the order status is not changed.
func (s *paymentService) Refund(ctx context.Context, sessionID, userID, targetUserID, reason string) (*grouporder.PaymentAssignment, error) {
	const op = "Payments.Refund"
	if s.processor == nil {
		return nil, fail(domainagg.CodeInternal, op, "payment processor not configured")
	}
	lease, err := s.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lease.Release(context.WithoutCancel(ctx)) }()

	order, version, err := s.orders.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order.CreatedBy != userID {
		return nil, fail(domainagg.CodePermission, op, "only the session creator can refund payments")
	}
	idx := order.Assignment(targetUserID)
	if idx < 0 {
		return nil, fail(domainagg.CodeNotFound, op, "no payment assignment for %s", targetUserID)
	}
	target := order.PaymentSplit.Assignments[idx]
	if target.Status != grouporder.PaymentCompleted {
		return nil, fail(domainagg.CodePreconditionFailed, op, "payment for %s is %s, not completed", targetUserID, target.Status)
	}

	reason = strings.TrimSpace(reason)
	if target.PaymentIntentID != "" {
		start := time.Now()
		callCtx, span := observability.StartSpan(ctx, "payments.Refund", attribute.String("session.id", sessionID))
		_, err = s.processor.Refund(callCtx, target.PaymentIntentID, reason)
		observability.EndSpan(span, err)
		if err != nil {
			s.metrics.ObservePayment("refund", "failure", target.Amount, time.Since(start))
			return nil, domainagg.NewError(domainagg.CodePaymentFailed, op, "refund failed: "+err.Error(), err)
		}
		s.metrics.ObservePayment("refund", "success", target.Amount, time.Since(start))
	}

	failure := "refunded"
	if reason != "" {
		failure = "refunded: " + reason
	}
	var updated *grouporder.GroupOrder
	for attempt := 0; attempt < persistAttempts; attempt++ {
		updated, err = s.orders.ApplyMutation(ctx, domainagg.MutationInput{
			Op:              op,
			SessionID:       sessionID,
			ExpectedVersion: version,
			Apply: func(o *grouporder.GroupOrder) error {
				i := o.Assignment(targetUserID)
				if i < 0 {
					return fail(domainagg.CodeNotFound, op, "no payment assignment for %s", targetUserID)
				}
				o.PaymentSplit.Assignments[i].Status = grouporder.PaymentFailed
				o.PaymentSplit.Assignments[i].FailureReason = failure
				o.RecountPayments()
				return nil
			},
		})
		if err == nil || !domainagg.IsCode(err, domainagg.CodeConflict) {
			break
		}
		if _, version, err = s.orders.Read(ctx, sessionID); err != nil {
			break
		}
	}
	if err != nil {
		s.log.Error("refund issued but not recorded", "session_id", sessionID, "user_id", targetUserID, "error", err)
		return nil, err
	}

	out := updated.PaymentSplit.Assignments[updated.Assignment(targetUserID)]
	s.notifier.PaymentSplitUpdated(ctx, updated)
	s.notifier.SystemMessage(ctx, sessionID, fmt.Sprintf("payment for %s was refunded", targetUserID))
	return &out, nil
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, userID string, in CreateIntentInput) (*payments.Intent, error) {
	const op = "Payments.CreatePaymentIntent"
	if in.Amount <= 0 {
		return nil, fail(domainagg.CodeValidation, op, "amount must be positive")
	}
	cred, err := s.credential(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	intent, err := s.processor.CreateIntent(ctx, payments.IntentRequest{
		CustomerID:     cred.CustomerID,
		Amount:         in.Amount,
		Currency:       s.currency,
		Metadata:       payments.Metadata{SessionID: in.SessionID, UserID: userID},
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodePaymentFailed, op, err.Error(), err)
	}
	return intent, nil
}

func (s *paymentService) ConfirmPaymentIntent(ctx context.Context, userID, intentID string) (*payments.Intent, error) {
	const op = "Payments.ConfirmPaymentIntent"
	if strings.TrimSpace(intentID) == "" {
		return nil, fail(domainagg.CodeValidation, op, "intent id is required")
	}
	cred, err := s.credential(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	intent, err := s.processor.ConfirmIntent(ctx, intentID, cred.PaymentMethodID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodePaymentFailed, op, err.Error(), err)
	}
	return intent, nil
}

func (s *paymentService) credential(ctx context.Context, op, userID string) (*billing.Credential, error) {
	if s.processor == nil || s.billing == nil {
		return nil, fail(domainagg.CodeInternal, op, "payment collaborators not configured")
	}
	cred, err := s.billing.ResolveCredential(ctx, userID)
	if errors.Is(err, billing.ErrNoCredential) {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "no stored payment credential", err)
	}
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "billing unavailable", err)
	}
	return cred, nil
}
