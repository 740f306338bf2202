// Package server provides a factory for creating the MCP server.
package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-travel-desk/pkg/platform"
	"github.com/txn2/mcp-travel-desk/pkg/registry"
)

// Version is set at build time.
var Version = "dev"

// NewWithConfig creates a platform-backed MCP server from a config file.
func NewWithConfig(configPath string) (*mcp.Server, *platform.Platform, error) {
	cfg, err := platform.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = Version
	}

	p, err := platform.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	return p.MCPServer(), p, nil
}

// NewWithDefaults creates a platform with every built-in toolkit enabled on
// its production endpoints. Used when no config file is given.
func NewWithDefaults() (*mcp.Server, *platform.Platform, error) {
	cfg := &platform.Config{
		Toolkits: map[string]registry.ToolkitKindConfig{
			"cancellation": {Enabled: true},
			"bookings":     {Enabled: true},
			"trains":       {Enabled: true},
		},
	}
	cfg.Server.Version = Version

	p, err := platform.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	return p.MCPServer(), p, nil
}
