package aggregates

import (
	"context"

	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
)

// GroupOrderAggregateContract is the write policy for the shared cart of one session.
var GroupOrderAggregateContract = Contract{
	Name:             "group_order",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	Concurrency:      ConcurrencyOptimisticVersion,
	Notes:            "one row per session; read, version check, mutate and CAS write run in one transaction",
}

// MutationInput describes one versioned write against a session.
// AllowedStatuses empty means any status is accepted.
type MutationInput struct {
	Op              string
	SessionID       string
	ExpectedVersion int
	AllowedStatuses []grouporder.Status
	Apply           func(order *grouporder.GroupOrder) error
}

// GroupOrderAggregate is the single serialization point per session.
type GroupOrderAggregate interface {
	Aggregate
	Create(ctx context.Context, order *grouporder.GroupOrder) (*grouporder.GroupOrder, error)
	Read(ctx context.Context, sessionID string) (*grouporder.GroupOrder, int, error)
	ApplyMutation(ctx context.Context, in MutationInput) (*grouporder.GroupOrder, error)
}
