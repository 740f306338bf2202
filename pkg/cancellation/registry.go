package cancellation

import (
	"strings"
	"sync"
	"time"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

const (
	// flowTTL is how long an idle cancellation attempt keeps its vendor
	// session before being discarded.
	flowTTL = 30 * time.Minute

	// maxFlows bounds the registry; the oldest entry is evicted when full.
	maxFlows = 500
)

// Registry owns the in-flight cancellation flows, keyed by booking id and
// email so a multi-step cancellation spanning several tool invocations lands
// on the same Flow and therefore the same vendor cookie session.
type Registry struct {
	mu      sync.Mutex
	cfg     emt.Config
	flows   map[string]*flowEntry
	nowFunc func() time.Time
}

type flowEntry struct {
	flow     *Flow
	lastUsed time.Time
}

// NewRegistry creates a Registry issuing flows against the given vendor
// configuration.
func NewRegistry(cfg emt.Config) *Registry {
	return &Registry{
		cfg:     cfg,
		flows:   make(map[string]*flowEntry),
		nowFunc: time.Now,
	}
}

func flowKey(bookingID, email string) string {
	return strings.ToUpper(strings.TrimSpace(bookingID)) + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Acquire returns the Flow for a booking/email pair, creating one if absent
// or expired. Expired and evicted flows are closed outside the lock.
func (r *Registry) Acquire(bookingID, email string) *Flow {
	key := flowKey(bookingID, email)
	now := r.nowFunc()

	var closing []*Flow
	defer func() {
		for _, fl := range closing {
			fl.Close()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.flows[key]; ok {
		if now.Sub(e.lastUsed) <= flowTTL {
			e.lastUsed = now
			return e.flow
		}
		closing = append(closing, e.flow)
		delete(r.flows, key)
	}

	if len(r.flows) >= maxFlows {
		oldestKey := ""
		var oldest time.Time
		for k, e := range r.flows {
			if oldestKey == "" || e.lastUsed.Before(oldest) {
				oldestKey = k
				oldest = e.lastUsed
			}
		}
		if oldestKey != "" {
			closing = append(closing, r.flows[oldestKey].flow)
			delete(r.flows, oldestKey)
		}
	}

	fl := NewFlow(r.cfg)
	r.flows[key] = &flowEntry{flow: fl, lastUsed: now}
	return fl
}

// Release discards the flow for a booking/email pair, closing its client.
// Called after a completed or abandoned cancellation attempt.
func (r *Registry) Release(bookingID, email string) {
	key := flowKey(bookingID, email)

	r.mu.Lock()
	e, ok := r.flows[key]
	if ok {
		delete(r.flows, key)
	}
	r.mu.Unlock()

	if ok {
		e.flow.Close()
	}
}

// Len reports the number of live flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Close discards every flow.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := make([]*flowEntry, 0, len(r.flows))
	for _, e := range r.flows {
		entries = append(entries, e)
	}
	r.flows = make(map[string]*flowEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.flow.Close()
	}
	return nil
}
