package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/groupcart-backend/internal/realtime"
)

// localBus delivers in-process; used for single-node runs without Redis.
type localBus struct {
	mu        sync.RWMutex
	listeners []func(m realtime.SSEMessage)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.listeners {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
