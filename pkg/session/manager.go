package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/mcp-travel-desk/pkg/auth"
)

// entry is a live session held by the Manager.
type entry struct {
	id             string
	ac             *auth.Context
	createdAt      time.Time
	lastAccessedAt time.Time
}

// Manager is an in-memory Store guarded by a mutex. Sessions expire lazily
// on access and eagerly via an optional cleanup routine.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	timeout  time.Duration

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	closeOnce     sync.Once
}

// NewManager creates a Manager. A non-positive timeout falls back to
// DefaultTimeout.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		sessions: make(map[string]*entry),
		timeout:  timeout,
	}
}

// Create stores a fresh unauthenticated context under id, generating a UUID
// when id is empty. An existing session under the same id is replaced.
func (m *Manager) Create(_ context.Context, id string) (string, *auth.Context, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	e := &entry{
		id:             id,
		ac:             auth.NewContext(),
		createdAt:      now,
		lastAccessedAt: now,
	}

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	return id, e.ac, nil
}

// Get returns the context for id, refreshing its last-accessed time. Unknown
// and expired sessions yield nil; an expired session is removed in the same
// critical section so the expiry check and removal are atomic.
func (m *Manager) Get(_ context.Context, id string) (*auth.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if time.Since(e.lastAccessedAt) > m.timeout {
		e.ac.Clear()
		delete(m.sessions, id)
		return nil, nil
	}
	e.lastAccessedAt = time.Now()
	return e.ac, nil
}

// GetOrCreate returns the session for id when it is still valid, otherwise
// creates a new one. The returned id is authoritative; callers must adopt it
// since an expired or unknown id is replaced by a fresh UUID.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (string, *auth.Context, error) {
	if id != "" {
		if ac, _ := m.Get(ctx, id); ac != nil {
			return id, ac, nil
		}
	}
	return m.Create(ctx, "")
}

// Save is a no-op for the in-memory store; contexts are mutated in place.
func (m *Manager) Save(_ context.Context, _ string, _ *auth.Context) error {
	return nil
}

// Remove clears the session's context and deletes it.
func (m *Manager) Remove(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	e.ac.Clear()
	delete(m.sessions, id)
	return true, nil
}

// CleanupExpired removes every session past the timeout and returns how many
// were removed.
func (m *Manager) CleanupExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, e := range m.sessions {
		if now.Sub(e.lastAccessedAt) > m.timeout {
			e.ac.Clear()
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Info returns a diagnostic snapshot without touching the session's
// last-accessed time.
func (m *Manager) Info(_ context.Context, id string) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	info := &Info{
		SessionID:       e.id,
		CreatedAt:       e.createdAt,
		LastAccessedAt:  e.lastAccessedAt,
		IsAuthenticated: e.ac.IsAuthenticated(),
	}
	if e.ac.IsAuthenticated() {
		ui := e.ac.UserInfo()
		info.UserInfo = &ui
	}
	return info, nil
}

// Count returns the number of live sessions, expired or not.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartCleanupRoutine sweeps expired sessions on the given interval until
// Close is called.
func (m *Manager) StartCleanupRoutine(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	m.cleanupTicker = time.NewTicker(interval)
	m.cleanupDone = make(chan struct{})

	go func() {
		for {
			select {
			case <-m.cleanupTicker.C:
				if n, _ := m.CleanupExpired(context.Background()); n > 0 {
					slog.Debug("session: cleanup removed expired sessions", "count", n)
				}
			case <-m.cleanupDone:
				return
			}
		}
	}()
}

// Close stops the cleanup routine. Safe to call multiple times.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		if m.cleanupTicker != nil {
			m.cleanupTicker.Stop()
		}
		if m.cleanupDone != nil {
			close(m.cleanupDone)
		}
	})
	return nil
}

var _ Store = (*Manager)(nil)
