package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-travel-desk/pkg/registry"
	"github.com/txn2/mcp-travel-desk/pkg/session"
	sessionredis "github.com/txn2/mcp-travel-desk/pkg/session/redis"
)

// Platform wires sessions, the toolkit registry, and the MCP server from a
// single configuration.
type Platform struct {
	config *Config

	mcpServer       *mcp.Server
	sessions        session.Store
	toolkitRegistry *registry.Registry
}

// New creates a new platform instance from configuration.
func New(cfg *Config) (*Platform, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{config: cfg}

	if err := p.initSessions(); err != nil {
		return nil, fmt.Errorf("initializing sessions: %w", err)
	}

	if err := p.initToolkits(); err != nil {
		_ = p.sessions.Close()
		return nil, fmt.Errorf("initializing toolkits: %w", err)
	}

	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	p.toolkitRegistry.RegisterAllTools(p.mcpServer)

	return p, nil
}

// initSessions builds the session store: Redis when enabled, in-memory
// otherwise.
func (p *Platform) initSessions() error {
	if p.config.Session.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := sessionredis.New(ctx, sessionredis.Config{
			Addr:     p.config.Session.Redis.Addr,
			Password: p.config.Session.Redis.Password,
			DB:       p.config.Session.Redis.DB,
			TTL:      p.config.Session.Timeout,
		})
		if err != nil {
			return err
		}
		p.sessions = store
		return nil
	}

	manager := session.NewManager(p.config.Session.Timeout)
	manager.StartCleanupRoutine(p.config.Session.CleanupInterval)
	p.sessions = manager
	return nil
}

// initToolkits creates the registry and instantiates every configured
// toolkit.
func (p *Platform) initToolkits() error {
	p.toolkitRegistry = registry.NewRegistry()
	registry.RegisterBuiltinFactories(p.toolkitRegistry, p.sessions)

	loader := registry.NewLoader(p.toolkitRegistry)
	return loader.Load(registry.LoaderConfig{Toolkits: p.config.Toolkits})
}

// MCPServer returns the MCP server with all toolkit tools registered.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Sessions returns the shared session store.
func (p *Platform) Sessions() session.Store {
	return p.sessions
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.toolkitRegistry
}

// Close closes all platform resources.
func (p *Platform) Close() error {
	var errs []error

	if p.toolkitRegistry != nil {
		if err := p.toolkitRegistry.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.sessions != nil {
		if err := p.sessions.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing platform: %v", errs)
	}
	return nil
}
