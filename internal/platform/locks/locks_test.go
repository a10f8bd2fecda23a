package locks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLockerExclusive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "payments:s1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := m.Acquire(ctx, "payments:s1", time.Minute); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("second Acquire: want=ErrNotAcquired got=%v", err)
	}
	if _, err := m.Acquire(ctx, "payments:s2", time.Minute); err != nil {
		t.Fatalf("other key: %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := m.Acquire(ctx, "payments:s1", time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestMemoryLockerExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := m.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := m.Acquire(ctx, "k", time.Second); err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	// Releasing an expired lease must not drop the new holder.
	_ = stale.Release(ctx)
	if _, err := m.Acquire(ctx, "k", time.Second); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("stale release dropped new holder: %v", err)
	}
}

func TestMemoryLockerDropsAbandonedLeases(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"payments:s1", "payments:s2", "payments:s3"} {
		if _, err := m.Acquire(ctx, key, time.Second); err != nil {
			t.Fatalf("Acquire %s: %v", key, err)
		}
	}
	now = now.Add(2 * time.Second)
	if _, err := m.Acquire(ctx, "payments:s4", time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(m.entries) != 1 {
		t.Fatalf("entries after sweep: want=1 got=%d", len(m.entries))
	}
}
