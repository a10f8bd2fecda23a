package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrInvariant indicates invariant rule violation.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict indicates optimistic/concurrency conflict.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
	// ErrPermission indicates the caller may not perform the write.
	ErrPermission = errors.New("aggregate permission denied")
	// ErrNotFound indicates a missing aggregate or member entity.
	ErrNotFound = errors.New("aggregate not found")
	// ErrPrecondition indicates the aggregate is in a status that forbids the write.
	ErrPrecondition = errors.New("aggregate precondition failed")
	// ErrPayment indicates an external charge/refund failure.
	ErrPayment = errors.New("aggregate payment failed")
)

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// InvariantError tags an error as invariant violation.
func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// RetryableError tags an error as retryable failure.
func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// PermissionError tags an error as a permission failure.
func PermissionError(msg string) error {
	return errors.Join(ErrPermission, errors.New(strings.TrimSpace(msg)))
}

// NotFoundError tags an error as a missing entity.
func NotFoundError(msg string) error {
	return errors.Join(ErrNotFound, errors.New(strings.TrimSpace(msg)))
}

// PreconditionError tags an error as a status precondition failure.
func PreconditionError(msg string) error {
	return errors.Join(ErrPrecondition, errors.New(strings.TrimSpace(msg)))
}

// PaymentError tags an error as a payment failure.
func PaymentError(msg string) error {
	return errors.Join(ErrPayment, errors.New(strings.TrimSpace(msg)))
}

// MapError maps infrastructure/domain failures into aggregate error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return wrapTagged(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrInvariant):
		return wrapTagged(domainagg.CodeInvariantViolation, op, err)
	case errors.Is(err, ErrConflict):
		return wrapTagged(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return wrapTagged(domainagg.CodeRetryable, op, err)
	case errors.Is(err, ErrPermission):
		return wrapTagged(domainagg.CodePermission, op, err)
	case errors.Is(err, ErrNotFound):
		return wrapTagged(domainagg.CodeNotFound, op, err)
	case errors.Is(err, ErrPrecondition):
		return wrapTagged(domainagg.CodePreconditionFailed, op, err)
	case errors.Is(err, ErrPayment):
		return wrapTagged(domainagg.CodePaymentFailed, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "23503":
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// wrapTagged drops the sentinel text from the message of a sentinel-joined error.
func wrapTagged(code domainagg.ErrorCode, op string, err error) error {
	msg := err.Error()
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts := joined.Unwrap()
		if n := len(parts); n > 1 && parts[n-1] != nil && strings.TrimSpace(parts[n-1].Error()) != "" {
			msg = parts[n-1].Error()
		}
	}
	return domainagg.NewError(code, op, msg, err)
}
