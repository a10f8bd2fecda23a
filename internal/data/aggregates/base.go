package aggregates

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/observability"
	"github.com/yungbote/groupcart-backend/internal/platform/ctxutil"
	"github.com/yungbote/groupcart-backend/internal/platform/dbctx"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	return d
}

// executeWrite runs fn in one transaction and reports the outcome under op, the
// calling group order operation (e.g. "Cart.AddItem").
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "GroupOrder.write"
	}
	attrs := []attribute.KeyValue{attribute.String("groupcart.op", op)}
	if sid := ctxutil.SessionIDFrom(ctx); sid != "" {
		attrs = append(attrs, attribute.String("groupcart.session_id", sid))
	}
	ctx, span := observability.StartSpan(ctx, "aggregate.group_order.write", attrs...)
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	span.SetAttributes(attribute.String("groupcart.status", status))
	observability.EndSpan(span, mapped)
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
