// Package auth holds the per-session authentication context for account
// login and booking tools. One Context per user session; the session package
// owns the mapping from session ids to Contexts.
package auth

import (
	"encoding/json"
	"fmt"
)

// defaultClientIP is the fixed client IP the vendor expects on login and
// booking payloads. It is a vendor quirk, not a real geolocated address.
const defaultClientIP = "49.249.40.58"

// Context holds authenticated user state for one session.
type Context struct {
	loggedIn bool
	token    string
	email    string
	phone    string
	uid      string
	name     string
	ip       string

	// Intermediate OTP state between send and verify.
	otpToken   string
	otpContact string
}

// NewContext returns an unauthenticated context with the fixed client IP.
func NewContext() *Context {
	return &Context{ip: defaultClientIP}
}

// TokenInfo carries the identity fields captured at login.
type TokenInfo struct {
	Token string
	Email string
	Phone string
	UID   string
	Name  string
}

// SetToken records a successful login. The authenticated flag is only set
// together with a token, preserving the invariant that authenticated implies
// a non-empty token.
func (c *Context) SetToken(info TokenInfo) {
	if info.Token == "" {
		return
	}
	c.loggedIn = true
	c.token = info.Token
	c.email = info.Email
	c.phone = info.Phone
	c.uid = info.UID
	c.name = info.Name
	c.ip = defaultClientIP
}

// Clear resets the context to the unauthenticated, all-empty state. The
// client IP resets to the fixed literal rather than emptying.
func (c *Context) Clear() {
	*c = Context{ip: defaultClientIP}
}

// IsAuthenticated reports whether a login completed and a token is held.
func (c *Context) IsAuthenticated() bool {
	return c.loggedIn && c.token != ""
}

// Token returns the auth token, or "" when unauthenticated.
func (c *Context) Token() string { return c.token }

// Email returns the login email.
func (c *Context) Email() string { return c.email }

// Phone returns the login phone number.
func (c *Context) Phone() string { return c.phone }

// IP returns the fixed client IP used on vendor payloads.
func (c *Context) IP() string { return c.ip }

// UserInfo is a safe projection of identity fields for diagnostics and tool
// responses. It never includes the token itself.
type UserInfo struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	UID      string `json:"uid,omitempty"`
	Name     string `json:"name,omitempty"`
	IP       string `json:"ip"`
	HasToken bool   `json:"has_token"`
}

// UserInfo returns the safe identity projection.
func (c *Context) UserInfo() UserInfo {
	return UserInfo{
		Email:    c.email,
		Phone:    c.phone,
		UID:      c.uid,
		Name:     c.name,
		IP:       c.ip,
		HasToken: c.token != "",
	}
}

// SetOTPPending stores the intermediate token from the OTP-send call until
// verification completes.
func (c *Context) SetOTPPending(token, contact string) {
	c.otpToken = token
	c.otpContact = contact
}

// OTPPending returns the intermediate OTP token and the phone/email it was
// sent to.
func (c *Context) OTPPending() (token, contact string) {
	return c.otpToken, c.otpContact
}

// ClearOTPPending drops the intermediate OTP state after verification.
func (c *Context) ClearOTPPending() {
	c.otpToken = ""
	c.otpContact = ""
}

// snapshot is the serialized form of a Context for external session stores.
type snapshot struct {
	LoggedIn   bool   `json:"logged_in"`
	Token      string `json:"token,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	UID        string `json:"uid,omitempty"`
	Name       string `json:"name,omitempty"`
	IP         string `json:"ip"`
	OTPToken   string `json:"otp_token,omitempty"`
	OTPContact string `json:"otp_contact,omitempty"`
}

// MarshalJSON serializes the context for persistence.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		LoggedIn:   c.loggedIn,
		Token:      c.token,
		Email:      c.email,
		Phone:      c.phone,
		UID:        c.uid,
		Name:       c.name,
		IP:         c.ip,
		OTPToken:   c.otpToken,
		OTPContact: c.otpContact,
	})
}

// UnmarshalJSON restores a persisted context. A missing IP falls back to the
// fixed literal.
func (c *Context) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding auth context: %w", err)
	}
	c.loggedIn = s.LoggedIn
	c.token = s.Token
	c.email = s.Email
	c.phone = s.Phone
	c.uid = s.UID
	c.name = s.Name
	c.ip = s.IP
	if c.ip == "" {
		c.ip = defaultClientIP
	}
	c.otpToken = s.OTPToken
	c.otpContact = s.OTPContact
	return nil
}
