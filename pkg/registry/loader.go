package registry

import (
	"fmt"
)

// LoaderConfig holds configuration for loading toolkits.
type LoaderConfig struct {
	Toolkits map[string]ToolkitKindConfig `yaml:"toolkits"`
}

// ToolkitKindConfig holds configuration for a toolkit kind.
type ToolkitKindConfig struct {
	Enabled   bool                      `yaml:"enabled"`
	Instances map[string]map[string]any `yaml:"instances"`
	Config    map[string]any            `yaml:"config"`
}

// Loader loads toolkits from configuration.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new toolkit loader.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load instantiates and registers every enabled toolkit instance. Instance
// config wins over kind-level config on key collisions.
func (l *Loader) Load(cfg LoaderConfig) error {
	for kind, kindCfg := range cfg.Toolkits {
		if !kindCfg.Enabled {
			continue
		}

		instances := kindCfg.Instances
		if len(instances) == 0 {
			// An enabled kind with no instances gets one default instance
			// built from the kind-level config alone.
			instances = map[string]map[string]any{"default": {}}
		}

		for name, instanceCfg := range instances {
			mergedCfg := make(map[string]any)
			for k, v := range kindCfg.Config {
				mergedCfg[k] = v
			}
			for k, v := range instanceCfg {
				mergedCfg[k] = v
			}

			toolkitCfg := ToolkitConfig{
				Kind:    kind,
				Name:    name,
				Enabled: true,
				Config:  mergedCfg,
			}

			if err := l.registry.CreateAndRegister(toolkitCfg); err != nil {
				return fmt.Errorf("loading toolkit %s/%s: %w", kind, name, err)
			}
		}
	}

	return nil
}
