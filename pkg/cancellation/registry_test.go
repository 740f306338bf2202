package cancellation

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

func TestRegistryReusesFlowPerBooking(t *testing.T) {
	r := NewRegistry(emt.Config{})
	defer r.Close()

	f1 := r.Acquire("EMT1", "a@b.com")
	f2 := r.Acquire("EMT1", "a@b.com")
	assert.Same(t, f1, f2)

	// Key normalization: booking id is case-insensitive upper, email lower.
	f3 := r.Acquire("emt1", "A@B.COM")
	assert.Same(t, f1, f3)
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySeparatesBookings(t *testing.T) {
	r := NewRegistry(emt.Config{})
	defer r.Close()

	f1 := r.Acquire("EMT1", "a@b.com")
	f2 := r.Acquire("EMT2", "a@b.com")
	f3 := r.Acquire("EMT1", "c@d.com")
	assert.NotSame(t, f1, f2)
	assert.NotSame(t, f1, f3)
	assert.Equal(t, 3, r.Len())
}

func TestRegistryRelease(t *testing.T) {
	r := NewRegistry(emt.Config{})
	defer r.Close()

	f1 := r.Acquire("EMT1", "a@b.com")
	r.Release("EMT1", "a@b.com")
	assert.Zero(t, r.Len())

	f2 := r.Acquire("EMT1", "a@b.com")
	assert.NotSame(t, f1, f2)

	// Releasing an unknown key is a no-op.
	r.Release("EMT9", "x@y.com")
}

func TestRegistryExpiresIdleFlows(t *testing.T) {
	r := NewRegistry(emt.Config{})
	defer r.Close()

	now := time.Now()
	r.nowFunc = func() time.Time { return now }

	f1 := r.Acquire("EMT1", "a@b.com")

	// Just inside the TTL the same flow comes back.
	now = now.Add(flowTTL - time.Second)
	assert.Same(t, f1, r.Acquire("EMT1", "a@b.com"))

	// Past the TTL a fresh flow replaces it.
	now = now.Add(flowTTL + time.Second)
	f2 := r.Acquire("EMT1", "a@b.com")
	assert.NotSame(t, f1, f2)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryEvictsOldestWhenFull(t *testing.T) {
	r := NewRegistry(emt.Config{})
	defer r.Close()

	now := time.Now()
	r.nowFunc = func() time.Time { return now }

	first := r.Acquire("EMT0", "a@b.com")
	for i := 1; i < maxFlows; i++ {
		now = now.Add(time.Millisecond)
		r.Acquire("EMT"+strconv.Itoa(i), "a@b.com")
	}
	require.Equal(t, maxFlows, r.Len())

	now = now.Add(time.Millisecond)
	r.Acquire("EMT-OVERFLOW", "a@b.com")
	assert.Equal(t, maxFlows, r.Len())

	// The oldest entry was evicted; acquiring it again builds a new flow.
	assert.NotSame(t, first, r.Acquire("EMT0", "a@b.com"))
}
