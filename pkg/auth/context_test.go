package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAuthInvariant(t *testing.T) {
	c := NewContext()
	assert.False(t, c.IsAuthenticated())
	assert.NotEmpty(t, c.IP())

	// An empty token never flips the authenticated flag.
	c.SetToken(TokenInfo{Token: "", Email: "a@b.com"})
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.Email())

	c.SetToken(TokenInfo{Token: "tok", Email: "a@b.com", Phone: "9999", UID: "u1", Name: "Ravi"})
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "tok", c.Token())
	assert.Equal(t, "a@b.com", c.Email())
}

func TestContextClear(t *testing.T) {
	c := NewContext()
	c.SetToken(TokenInfo{Token: "tok", Email: "a@b.com"})
	ip := c.IP()

	c.Clear()
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.Token())
	assert.Empty(t, c.Email())
	// The client IP resets to the fixed literal rather than emptying.
	assert.Equal(t, ip, c.IP())
}

func TestUserInfoOmitsToken(t *testing.T) {
	c := NewContext()
	c.SetToken(TokenInfo{Token: "secret", Email: "a@b.com", Name: "Ravi"})

	info := c.UserInfo()
	assert.Equal(t, "a@b.com", info.Email)
	assert.True(t, info.HasToken)

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestContextJSONRoundTrip(t *testing.T) {
	c := NewContext()
	c.SetToken(TokenInfo{Token: "tok", Email: "a@b.com", Phone: "9999", UID: "u1", Name: "Ravi"})
	c.SetOTPPending("otp-token", "9999")

	data, err := json.Marshal(c)
	require.NoError(t, err)

	restored := NewContext()
	require.NoError(t, json.Unmarshal(data, restored))
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, "tok", restored.Token())
	assert.Equal(t, "a@b.com", restored.Email())
	tokenOut, contact := restored.OTPPending()
	assert.Equal(t, "otp-token", tokenOut)
	assert.Equal(t, "9999", contact)
}

func TestOTPPendingLifecycle(t *testing.T) {
	c := NewContext()
	c.SetOTPPending("tk", "user@example.com")
	tok, contact := c.OTPPending()
	assert.Equal(t, "tk", tok)
	assert.Equal(t, "user@example.com", contact)

	c.ClearOTPPending()
	tok, contact = c.OTPPending()
	assert.Empty(t, tok)
	assert.Empty(t, contact)
}
