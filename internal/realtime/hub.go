package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

// DropObserver is notified when a message is dropped for a slow client.
type DropObserver interface {
	IncRealtimeDropped(event string)
}

type SSEHub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
	clients       map[uuid.UUID]*SSEClient
	drops         DropObserver
	heartbeat     time.Duration
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		logger:        log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
		clients:       make(map[uuid.UUID]*SSEClient),
		heartbeat:     15 * time.Second,
	}
}

// WithDropObserver wires a counter for dropped deliveries.
func (hub *SSEHub) WithDropObserver(o DropObserver) *SSEHub {
	hub.drops = o
	return hub
}

func (hub *SSEHub) NewSSEClient(userID, name string) *SSEClient {
	c := &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, outboundBuffer),
		done:     make(chan struct{}),
	}
	c.Logger = hub.logger.With("clientID", c.ID.String())
	hub.mu.Lock()
	hub.clients[c.ID] = c
	hub.mu.Unlock()
	return c
}

// Client looks up a live connection by id.
func (hub *SSEHub) Client(id uuid.UUID) (*SSEClient, bool) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	c, ok := hub.clients[id]
	return c, ok
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	if _, live := hub.clients[client.ID]; !live {
		return
	}

	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.logger.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	delete(client.Channels, channel)

	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
	hub.logger.Debug("SSE client unsubscribed from channel", "clientID", client.ID, "channel", channel)
}

// ChannelsOf returns a copy of the client's joined channels.
func (hub *SSEHub) ChannelsOf(client *SSEClient) []string {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	out := make([]string, 0, len(client.Channels))
	for ch := range client.Channels {
		out = append(out, ch)
	}
	return out
}

// InChannel reports whether the client joined channel.
func (hub *SSEHub) InChannel(client *SSEClient, channel string) bool {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return client.Channels[channel]
}

// ChannelSize returns the number of connections registered in a channel.
func (hub *SSEHub) ChannelSize(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

func (hub *SSEHub) removeClientLocked(client *SSEClient) {
	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
	delete(hub.clients, client.ID)
}

// Broadcast delivers best-effort to every connection in msg.Channel, honoring
// TargetClientID and ExcludeClientID. A full outbound buffer drops the message.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Channel == "" {
		return
	}
	clientsMap, ok := hub.subscriptions[msg.Channel]
	if !ok {
		return
	}
	for c := range clientsMap {
		id := c.ID.String()
		if msg.TargetClientID != "" && msg.TargetClientID != id {
			continue
		}
		if msg.ExcludeClientID != "" && msg.ExcludeClientID == id {
			continue
		}
		hub.deliver(c, msg)
	}
}

// SendTo delivers to one connection regardless of channel membership.
func (hub *SSEHub) SendTo(clientID uuid.UUID, msg SSEMessage) bool {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	c, ok := hub.clients[clientID]
	if !ok {
		return false
	}
	hub.deliver(c, msg)
	return true
}

// Dispatch routes a message that may target a connection outside any channel.
func (hub *SSEHub) Dispatch(msg SSEMessage) {
	if msg.TargetClientID != "" {
		if id, err := uuid.Parse(msg.TargetClientID); err == nil {
			hub.SendTo(id, msg)
		}
		return
	}
	hub.Broadcast(msg)
}

func (hub *SSEHub) deliver(c *SSEClient, msg SSEMessage) {
	select {
	case c.Outbound <- msg:
	default:
		hub.logger.Warn("Dropping SSE message; outbound buffer full", "clientID", c.ID, "event", msg.Event)
		if hub.drops != nil {
			hub.drops.IncRealtimeDropped(string(msg.Event))
		}
	}
}

func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(hub.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("SSE client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			jsonBytes, err := json.Marshal(wireMessage{Channel: msg.Channel, Event: msg.Event, Data: msg.Data})
			if err != nil {
				hub.logger.Warn("Failed to marshal SSE message", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, jsonBytes)
			flusher.Flush()
		}
	}
}

// CloseClient deregisters the client and closes its queue. Safe to call twice.
func (hub *SSEHub) CloseClient(client *SSEClient) {
	client.once.Do(func() {
		close(client.done)
		hub.mu.Lock()
		hub.removeClientLocked(client)
		hub.mu.Unlock()
		close(client.Outbound)
	})
}
