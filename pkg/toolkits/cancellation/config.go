package cancellation

import (
	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// Config holds cancellation toolkit configuration. Endpoint URLs default to
// the vendor's production hosts when unset.
type Config struct {
	MyBookingsURL       string `yaml:"mybookings_url"`
	FlightServiceURL    string `yaml:"flight_service_url"`
	FlightAppServiceURL string `yaml:"flight_app_service_url"`
}

// ParseConfig parses a cancellation toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		MyBookingsURL:       getString(cfg, "mybookings_url"),
		FlightServiceURL:    getString(cfg, "flight_service_url"),
		FlightAppServiceURL: getString(cfg, "flight_app_service_url"),
	}
	return c, nil
}

// emtConfig converts the toolkit configuration to the vendor client's form.
func (c Config) emtConfig() emt.Config {
	return emt.Config{
		MyBookingsURL:       c.MyBookingsURL,
		FlightServiceURL:    c.FlightServiceURL,
		FlightAppServiceURL: c.FlightAppServiceURL,
	}
}

// getString extracts a string value from a config map.
func getString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}
