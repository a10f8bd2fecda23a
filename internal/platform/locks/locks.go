package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = errors.New("lock held by another holder")

// Lease is a held lock. Release is idempotent.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker grants exclusive, expiring leases on string keys.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// Memory is an in-process Locker for single-node deployments and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweepLocked(now)
	if _, ok := m.entries[key]; ok {
		return nil, ErrNotAcquired
	}
	token := uuid.NewString()
	m.entries[key] = memoryEntry{token: token, expires: now.Add(ttl)}
	return &memoryLease{m: m, key: key, token: token}, nil
}

// sweepLocked drops expired entries, including leases whose holder never
// released them.
func (m *Memory) sweepLocked(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}

type memoryLease struct {
	m     *Memory
	key   string
	token string
	once  sync.Once
}

func (l *memoryLease) Release(context.Context) error {
	l.once.Do(func() {
		l.m.mu.Lock()
		defer l.m.mu.Unlock()
		if e, ok := l.m.entries[l.key]; ok && e.token == l.token {
			delete(l.m.entries, l.key)
		}
	})
	return nil
}
