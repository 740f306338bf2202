package registry

import (
	"fmt"

	"github.com/txn2/mcp-travel-desk/pkg/session"
	"github.com/txn2/mcp-travel-desk/pkg/toolkits/bookings"
	"github.com/txn2/mcp-travel-desk/pkg/toolkits/cancellation"
	"github.com/txn2/mcp-travel-desk/pkg/toolkits/trains"
)

// RegisterBuiltinFactories registers factories for all built-in toolkit
// kinds. The session store is shared across toolkit instances so a traveler
// login from one tool is visible to the rest.
func RegisterBuiltinFactories(r *Registry, sessions session.Store) {
	r.RegisterFactory("cancellation", func(name string, config map[string]any) (Toolkit, error) {
		cfg, err := cancellation.ParseConfig(config)
		if err != nil {
			return nil, fmt.Errorf("parsing cancellation config: %w", err)
		}
		return cancellation.New(name, cfg)
	})

	r.RegisterFactory("bookings", func(name string, config map[string]any) (Toolkit, error) {
		cfg, err := bookings.ParseConfig(config)
		if err != nil {
			return nil, fmt.Errorf("parsing bookings config: %w", err)
		}
		return bookings.New(name, cfg, sessions)
	})

	r.RegisterFactory("trains", func(name string, config map[string]any) (Toolkit, error) {
		cfg, err := trains.ParseConfig(config)
		if err != nil {
			return nil, fmt.Errorf("parsing trains config: %w", err)
		}
		return trains.New(name, cfg)
	})
}
