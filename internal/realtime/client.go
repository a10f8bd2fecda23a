package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

const outboundBuffer = 32

type SSEClient struct {
	ID       uuid.UUID
	UserID   string
	Name     string
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	once     sync.Once
	Logger   *logger.Logger
}

// Done is closed when the hub closes the client.
func (c *SSEClient) Done() <-chan struct{} { return c.done }
