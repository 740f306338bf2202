package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-travel-desk/pkg/auth"
)

func TestManagerCreate(t *testing.T) {
	m := NewManager(0)
	defer m.Close()
	ctx := context.Background()

	id, ac, err := m.Create(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NotNil(t, ac)
	assert.False(t, ac.IsAuthenticated())

	// Explicit ids are honored verbatim.
	id2, _, err := m.Create(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id2)
}

func TestManagerSessionIsolation(t *testing.T) {
	m := NewManager(0)
	defer m.Close()
	ctx := context.Background()

	idA, acA, err := m.Create(ctx, "")
	require.NoError(t, err)
	idB, acB, err := m.Create(ctx, "")
	require.NoError(t, err)
	require.NotEqual(t, idA, idB)

	acA.SetToken(auth.TokenInfo{Token: "token-a", Email: "a@example.com", Name: "Alice"})
	require.True(t, acA.IsAuthenticated())
	assert.False(t, acB.IsAuthenticated())

	got, err := m.Get(ctx, idB)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsAuthenticated())
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(0)
	defer m.Close()

	ac, err := m.Get(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, ac)
}

func TestManagerExpiry(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	id, ac, err := m.Create(ctx, "")
	require.NoError(t, err)
	ac.SetToken(auth.TokenInfo{Token: "tok", Email: "u@example.com", Name: "U"})

	time.Sleep(40 * time.Millisecond)

	// Expired on access: nil result, session removed, context cleared.
	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, ac.IsAuthenticated())
	assert.Zero(t, m.Count())
}

func TestManagerGetTouches(t *testing.T) {
	m := NewManager(50 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	id, _, err := m.Create(ctx, "")
	require.NoError(t, err)

	// Keep the session alive past its original deadline by touching it.
	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		ac, err := m.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, ac)
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(0)
	defer m.Close()
	ctx := context.Background()

	id, ac, err := m.GetOrCreate(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, ac)

	// Same id round-trips to the same context.
	id2, ac2, err := m.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Same(t, ac, ac2)

	// Unknown id yields a replacement; the returned id is authoritative.
	id3, ac3, err := m.GetOrCreate(ctx, "stale-or-bogus")
	require.NoError(t, err)
	assert.NotEqual(t, "stale-or-bogus", id3)
	require.NotNil(t, ac3)
}

func TestManagerRemove(t *testing.T) {
	m := NewManager(0)
	defer m.Close()
	ctx := context.Background()

	id, ac, err := m.Create(ctx, "")
	require.NoError(t, err)
	ac.SetToken(auth.TokenInfo{Token: "tok", Email: "u@example.com", Name: "U"})

	ok, err := m.Remove(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, ac.IsAuthenticated())

	ok, err = m.Remove(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerCleanupExpired(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := m.Create(ctx, "")
		require.NoError(t, err)
	}
	time.Sleep(40 * time.Millisecond)
	fresh, _, err := m.Create(ctx, "")
	require.NoError(t, err)

	n, err := m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, m.Count())

	ac, err := m.Get(ctx, fresh)
	require.NoError(t, err)
	assert.NotNil(t, ac)
}

func TestManagerInfo(t *testing.T) {
	m := NewManager(0)
	defer m.Close()
	ctx := context.Background()

	id, ac, err := m.Create(ctx, "")
	require.NoError(t, err)

	info, err := m.Info(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, id, info.SessionID)
	assert.False(t, info.IsAuthenticated)
	assert.Nil(t, info.UserInfo)

	ac.SetToken(auth.TokenInfo{Token: "tok", Email: "u@example.com", Phone: "9999", UID: "uid-1", Name: "U"})
	info, err = m.Info(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.IsAuthenticated)
	require.NotNil(t, info.UserInfo)
	assert.Equal(t, "u@example.com", info.UserInfo.Email)

	missing, err := m.Info(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
