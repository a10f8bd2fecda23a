package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func expectNothing(t *testing.T, ch <-chan SSEMessage) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHubResilienceReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	clientA := hub.NewSSEClient("u1", "Ann")
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: EventCartUpdated, Data: map[string]any{"version": 1}}
	second := SSEMessage{Channel: channel, Event: EventPaymentSplitUpdated, Data: map[string]any{"version": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != EventCartUpdated {
		t.Fatalf("first event: want=%s got=%s", EventCartUpdated, gotFirst.Event)
	}
	if gotSecond.Event != EventPaymentSplitUpdated {
		t.Fatalf("second event: want=%s got=%s", EventPaymentSplitUpdated, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}
	if hub.ChannelSize(channel) != 0 {
		t.Fatalf("channel size after close: want=0 got=%d", hub.ChannelSize(channel))
	}

	clientB := hub.NewSSEClient("u1", "Ann")
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: EventOrderState, Data: map[string]any{"version": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != EventOrderState {
		t.Fatalf("reconnect event: want=%s got=%s", EventOrderState, gotReconnect.Event)
	}
}

func TestSSEHubTargetAndExclude(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := "session-1"
	a := hub.NewSSEClient("a", "A")
	b := hub.NewSSEClient("b", "B")
	other := hub.NewSSEClient("c", "C")
	hub.AddChannel(a, channel)
	hub.AddChannel(b, channel)
	hub.AddChannel(other, "session-2")

	hub.Broadcast(SSEMessage{Channel: channel, Event: EventCartUpdated, ExcludeClientID: a.ID.String()})
	if got := recvMessage(t, b.Outbound, time.Second); got.Event != EventCartUpdated {
		t.Fatalf("b event: got=%s", got.Event)
	}
	expectNothing(t, a.Outbound)
	expectNothing(t, other.Outbound)

	hub.Dispatch(SSEMessage{Channel: channel, Event: EventOperationError, TargetClientID: a.ID.String()})
	if got := recvMessage(t, a.Outbound, time.Second); got.Event != EventOperationError {
		t.Fatalf("a event: got=%s", got.Event)
	}
	expectNothing(t, b.Outbound)
}

type dropCounter struct{ n int }

func (d *dropCounter) IncRealtimeDropped(string) { d.n++ }

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	drops := &dropCounter{}
	hub := NewSSEHub(mustTestLogger(t)).WithDropObserver(drops)
	c := hub.NewSSEClient("u", "U")
	hub.AddChannel(c, "s")
	for i := 0; i < outboundBuffer+3; i++ {
		hub.Broadcast(SSEMessage{Channel: "s", Event: EventSystemMessage})
	}
	if drops.n != 3 {
		t.Fatalf("dropped: want=3 got=%d", drops.n)
	}
}
