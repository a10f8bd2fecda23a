package realtime

type SSEEvent string

// Inbound participant actions.
const (
	EventJoinGroupOrder     SSEEvent = "join-group-order"
	EventLeaveGroupOrder    SSEEvent = "leave-group-order"
	EventAddCartItem        SSEEvent = "add-cart-item"
	EventUpdateCartItem     SSEEvent = "update-cart-item"
	EventRemoveCartItem     SSEEvent = "remove-cart-item"
	EventUpdatePaymentSplit SSEEvent = "update-payment-split"
	EventCheckSpendingLimit SSEEvent = "check-spending-limit"
	EventJoinAsParticipant  SSEEvent = "join-as-participant"
	EventSubmitGroupOrder   SSEEvent = "submit-group-order"
	EventCancelGroupOrder   SSEEvent = "cancel-group-order"
)

// Outbound deltas and replies.
const (
	EventConnected           SSEEvent = "connected"
	EventOrderState          SSEEvent = "order-state"
	EventUserJoined          SSEEvent = "user-joined"
	EventUserLeft            SSEEvent = "user-left"
	EventCartUpdated         SSEEvent = "cart-updated"
	EventPaymentSplitUpdated SSEEvent = "payment-split-updated"
	EventSpendingLimitCheck  SSEEvent = "spending-limit-check"
	EventParticipantJoined   SSEEvent = "participant-joined"
	EventParticipantLeft     SSEEvent = "participant-left"
	EventOrderSubmitted      SSEEvent = "order-submitted"
	EventOrderCancelled      SSEEvent = "order-cancelled"
	EventOrderUpdated        SSEEvent = "order-updated"
	EventOperationError      SSEEvent = "operation-error"
	EventSystemMessage       SSEEvent = "system-message"
)

// SSEMessage is one delivery to a session room. TargetClientID restricts it to a
// single connection; ExcludeClientID skips one connection (usually the origin).
type SSEMessage struct {
	Channel         string   `json:"channel"`
	Event           SSEEvent `json:"event"`
	Data            any      `json:"data,omitempty"`
	TargetClientID  string   `json:"targetClientId,omitempty"`
	ExcludeClientID string   `json:"excludeClientId,omitempty"`
}

// wireMessage is what a browser sees; routing fields stay server-side.
type wireMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
