package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Cart.AddItem", "success", 10*time.Millisecond)
	h.ObserveOperation("Cart.AddItem", "conflict", time.Millisecond)
	h.ObserveOperation("Session.Leave", "success", time.Millisecond)
	h.IncConflict("Cart.AddItem")
	h.IncRetry("Submission.Submit")

	got := h.StatusesFor("Cart.AddItem")
	if len(got) != 2 || got[0] != "success" || got[1] != "conflict" {
		t.Fatalf("statuses: got=%v", got)
	}
	if len(h.Conflicts) != 1 || h.Conflicts[0] != "Cart.AddItem" {
		t.Fatalf("unexpected conflicts: %+v", h.Conflicts)
	}
	if len(h.Retries) != 1 || h.Retries[0] != "Submission.Submit" {
		t.Fatalf("unexpected retries: %+v", h.Retries)
	}
}
