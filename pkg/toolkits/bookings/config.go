package bookings

const (
	// defaultLoginURL hosts the account login and OTP login endpoints.
	defaultLoginURL = "https://loginuser.easemytrip.com"

	// defaultBookingsURL hosts the authenticated product-search endpoint.
	defaultBookingsURL = "https://emtservice-ln.easemytrip.com"
)

// Config holds bookings toolkit configuration. Endpoint URLs default to the
// vendor's production hosts when unset.
type Config struct {
	LoginURL    string `yaml:"login_url"`
	BookingsURL string `yaml:"bookings_url"`
}

// ParseConfig parses a bookings toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		LoginURL:    getString(cfg, "login_url"),
		BookingsURL: getString(cfg, "bookings_url"),
	}
	return c, nil
}

// applyDefaults fills unset endpoints with the production hosts.
func (c Config) applyDefaults() Config {
	if c.LoginURL == "" {
		c.LoginURL = defaultLoginURL
	}
	if c.BookingsURL == "" {
		c.BookingsURL = defaultBookingsURL
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
