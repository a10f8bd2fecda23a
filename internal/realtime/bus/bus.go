package bus

import (
	"context"

	"github.com/yungbote/groupcart-backend/internal/realtime"
)

// Bus fans hub messages out across nodes. Every node runs a forwarder that
// feeds received messages into its local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
