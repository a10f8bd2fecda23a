package bus

import (
	"context"
	"testing"

	"github.com/yungbote/groupcart-backend/internal/realtime"
)

func TestLocalBusForwardsToAllListeners(t *testing.T) {
	b := NewLocalBus()
	var a, c []realtime.SSEMessage
	if err := b.StartForwarder(context.Background(), func(m realtime.SSEMessage) { a = append(a, m) }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.StartForwarder(context.Background(), func(m realtime.SSEMessage) { c = append(c, m) }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(context.Background(), realtime.SSEMessage{Channel: "s", Event: realtime.EventCartUpdated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(a) != 1 || len(c) != 1 {
		t.Fatalf("deliveries: a=%d c=%d", len(a), len(c))
	}
	if err := b.StartForwarder(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}
