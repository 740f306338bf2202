package trains

const (
	// defaultRailwaysURL hosts the PNR status and schedule-enquiry endpoints.
	defaultRailwaysURL = "https://railways.easemytrip.com"

	// defaultAutosuggestURL resolves a train number to its name and
	// terminal stations.
	defaultAutosuggestURL = "https://autosuggest.easemytrip.com/api/auto/train_name?useby=popularu&key=jNUYK0Yj5ibO6ZVIkfTiFA=="
)

// Config holds trains toolkit configuration. Endpoint URLs default to the
// vendor's production hosts when unset.
type Config struct {
	RailwaysURL    string `yaml:"railways_url"`
	AutosuggestURL string `yaml:"autosuggest_url"`
}

// ParseConfig parses a trains toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		RailwaysURL:    getString(cfg, "railways_url"),
		AutosuggestURL: getString(cfg, "autosuggest_url"),
	}
	return c, nil
}

// applyDefaults fills unset endpoints with the production hosts.
func (c Config) applyDefaults() Config {
	if c.RailwaysURL == "" {
		c.RailwaysURL = defaultRailwaysURL
	}
	if c.AutosuggestURL == "" {
		c.AutosuggestURL = defaultAutosuggestURL
	}
	return c
}

// getString extracts a string value from a config map.
func getString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}
