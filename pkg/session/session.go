// Package session provides per-user session management for the travel desk
// tools. Each session isolates one user's authentication context so that
// concurrent tool invocations from different users never share mutable
// state. The Store interface abstracts the backing store; Manager is the
// in-memory implementation, with a Redis variant under session/redis for
// multi-replica deployments.
package session

import (
	"context"
	"time"

	"github.com/txn2/mcp-travel-desk/pkg/auth"
)

// DefaultTimeout is how long a session survives without being accessed.
const DefaultTimeout = 30 * time.Minute

// Info is a read-only diagnostic snapshot of a session.
type Info struct {
	SessionID       string         `json:"session_id"`
	CreatedAt       time.Time      `json:"created_at"`
	LastAccessedAt  time.Time      `json:"last_accessed_at"`
	IsAuthenticated bool           `json:"is_authenticated"`
	UserInfo        *auth.UserInfo `json:"user_info,omitempty"`
}

// Store defines session persistence. Not-found and expired sessions are
// signaled with nil results, never errors; errors are reserved for backend
// I/O failures.
type Store interface {
	// Create stores a fresh unauthenticated context under the given id, or a
	// generated UUID when id is empty. Returns the authoritative id.
	Create(ctx context.Context, id string) (string, *auth.Context, error)

	// Get returns the context for id, or nil if unknown or expired. A hit
	// refreshes the session's last-accessed time; an expired session is
	// removed as a side effect.
	Get(ctx context.Context, id string) (*auth.Context, error)

	// GetOrCreate returns the existing valid session or creates a new one.
	// The returned id is authoritative and may differ from the supplied one.
	GetOrCreate(ctx context.Context, id string) (string, *auth.Context, error)

	// Save persists mutations made to a session's context.
	Save(ctx context.Context, id string, ac *auth.Context) error

	// Remove clears the context and deletes the session, reporting whether
	// it existed.
	Remove(ctx context.Context, id string) (bool, error)

	// CleanupExpired removes all sessions past the timeout and returns the
	// count removed.
	CleanupExpired(ctx context.Context) (int, error)

	// Info returns a diagnostic snapshot, or nil if the session is unknown.
	Info(ctx context.Context, id string) (*Info, error)

	// Close stops background routines and releases resources.
	Close() error
}
