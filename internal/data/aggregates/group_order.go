package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/groupcart-backend/internal/data/repos"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/dbctx"
)

const groupOrderTable = "group_order"

type GroupOrderAggregateDeps struct {
	Base BaseDeps

	Orders repos.GroupOrderRepo
	Now    func() time.Time
}

type groupOrderAggregate struct {
	deps GroupOrderAggregateDeps
}

func NewGroupOrderAggregate(deps GroupOrderAggregateDeps) domainagg.GroupOrderAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &groupOrderAggregate{deps: deps}
}

func (a *groupOrderAggregate) Contract() domainagg.Contract {
	return domainagg.GroupOrderAggregateContract
}

func (a *groupOrderAggregate) Create(ctx context.Context, order *grouporder.GroupOrder) (*grouporder.GroupOrder, error) {
	const op = "GroupOrder.Create"
	if order == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing group order", nil)
	}
	if strings.TrimSpace(order.SessionID) == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing session_id", nil)
	}
	if strings.TrimSpace(order.CreatedBy) == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing created_by", nil)
	}
	if a.deps.Orders == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "group order repo not configured", nil)
	}

	now := a.deps.Now()
	created := order.Clone()
	created.Version = 0
	if created.Status == "" {
		created.Status = grouporder.StatusActive
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	created.RecomputeTotals()

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.deps.Orders.GetBySessionID(dbc, created.SessionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ConflictError(fmt.Sprintf("group order already exists: %s", created.SessionID))
		}
		row, err := grouporder.ToRecord(created)
		if err != nil {
			return err
		}
		return a.deps.Orders.Create(dbc, row)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (a *groupOrderAggregate) Read(ctx context.Context, sessionID string) (*grouporder.GroupOrder, int, error) {
	const op = "GroupOrder.Read"
	if strings.TrimSpace(sessionID) == "" {
		return nil, 0, domainagg.NewError(domainagg.CodeValidation, op, "missing session_id", nil)
	}
	if a.deps.Orders == nil {
		return nil, 0, domainagg.NewError(domainagg.CodeInternal, op, "group order repo not configured", nil)
	}
	row, err := a.deps.Orders.GetBySessionID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, 0, MapError(op, err)
	}
	if row == nil {
		return nil, 0, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("group order not found: %s", sessionID), nil)
	}
	order, err := grouporder.FromRecord(row)
	if err != nil {
		return nil, 0, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return order, order.Version, nil
}

// ApplyMutation runs load, version check, status check, apply and CAS write in
// one transaction. A stale expected version fails with a conflict and is never
// retried here.
func (a *groupOrderAggregate) ApplyMutation(ctx context.Context, in domainagg.MutationInput) (*grouporder.GroupOrder, error) {
	op := strings.TrimSpace(in.Op)
	if op == "" {
		op = "GroupOrder.ApplyMutation"
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing session_id", nil)
	}
	if in.Apply == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing mutation", nil)
	}
	if in.ExpectedVersion < 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "expectedVersion must be >= 0", nil)
	}
	if a.deps.Orders == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "group order repo not configured", nil)
	}

	var out *grouporder.GroupOrder
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := a.deps.Orders.GetBySessionID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if row == nil {
			return NotFoundError(fmt.Sprintf("group order not found: %s", in.SessionID))
		}
		if err := RequireVersionMatch(row.Version, in.ExpectedVersion); err != nil {
			return err
		}
		if len(in.AllowedStatuses) > 0 {
			allowed := make([]string, 0, len(in.AllowedStatuses))
			for _, s := range in.AllowedStatuses {
				allowed = append(allowed, string(s))
			}
			if err := RequireStatusAllowed(row.Status, allowed...); err != nil {
				return err
			}
		}

		order, err := grouporder.FromRecord(row)
		if err != nil {
			return err
		}
		prevStatus := order.Status
		if err := in.Apply(order); err != nil {
			return err
		}
		if err := requireStatusTransition(prevStatus, order.Status); err != nil {
			return err
		}

		now := a.deps.Now()
		order.SessionID = row.SessionID
		order.CreatedBy = row.CreatedBy
		order.RestaurantID = row.RestaurantID
		order.Version = row.Version + 1
		order.UpdatedAt = now
		next, err := grouporder.ToRecord(order)
		if err != nil {
			return err
		}

		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, groupOrderTable, "session_id", in.SessionID, row.Version, map[string]any{
			"status":     next.Status,
			"version":    next.Version,
			"document":   next.Document,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "group order changed concurrently"); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// requireStatusTransition keeps status monotone: active moves to submitted or
// cancelled, submitted moves to completed.
func requireStatusTransition(from, to grouporder.Status) error {
	if from == to {
		return nil
	}
	switch {
	case from == grouporder.StatusActive && (to == grouporder.StatusSubmitted || to == grouporder.StatusCancelled):
		return nil
	case from == grouporder.StatusSubmitted && to == grouporder.StatusCompleted:
		return nil
	}
	return InvariantError(fmt.Sprintf("status transition %s -> %s not allowed", from, to))
}
