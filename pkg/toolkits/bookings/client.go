package bookings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

const (
	// botUserID and botPassword authenticate the BOT login channel itself;
	// the traveller's identity rides in the encrypted Id_Token.
	botUserID   = "EMTBOT"
	botPassword = "EMTBOT78XBWCcGdvzBhTY4yL3LqXJtzWKHwuNpA1wl"

	// clientTimeout bounds each login/bookings round trip.
	clientTimeout = 20 * time.Second
)

// Client talks to the vendor's account login and bookings APIs. Unlike the
// cancellation client it is stateless: no cookie session spans these calls,
// so one Client serves all travellers.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a login/bookings client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg.applyDefaults(),
		http: &http.Client{Timeout: clientTimeout},
	}
}

// Close releases the transport's idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// LoginUser performs the BOT-channel token login. The traveller's phone and
// client IP travel as one encrypted Id_Token; the response body is an
// encrypted JSON object.
func (c *Client) LoginUser(ctx context.Context, phone, ip string) (emt.Document, error) {
	idToken, err := encryptAES(botKey, phone+"|"+ip)
	if err != nil {
		return emt.Document{}, fmt.Errorf("encrypting login token: %w", err)
	}

	body, err := c.post(ctx, c.cfg.LoginURL+"/api/Login/GoogleLogin", map[string]any{
		"Id_Token":  idToken,
		"loginType": "BOT",
		"userid":    botUserID,
		"password":  botPassword,
	}, nil)
	if err != nil {
		return emt.Document{}, err
	}

	plain, err := decryptAES(botKey, string(body))
	if err != nil {
		return emt.Document{}, fmt.Errorf("decrypting login response: %w", err)
	}
	return emt.ParseDocument([]byte(plain)), nil
}

// userType classifies a login identifier the way the vendor expects.
func userType(identifier string) string {
	if strings.Contains(identifier, "@") {
		return "Email"
	}
	return "Mobile"
}

// SendLoginOTP dispatches a login OTP to the given phone number or email.
// Every payload field is individually encrypted, then the whole payload is
// encrypted again under a second key; the response decrypts under a third.
func (c *Client) SendLoginOTP(ctx context.Context, identifier, ip string) (emt.Document, error) {
	uty := userType(identifier)

	fields := map[string]string{
		"UID": identifier,
		"UTY": uty,
		"IP":  ip,
	}
	enc := make(map[string]string, len(fields))
	for k, v := range fields {
		ev, err := encryptAES(fieldKey, v)
		if err != nil {
			return emt.Document{}, fmt.Errorf("encrypting %s: %w", k, err)
		}
		enc[k] = ev
	}

	payload := map[string]any{
		"UID":         enc["UID"],
		"CC":          "+91",
		"ATY":         "Resend",
		"UTY":         enc["UTY"],
		"IP":          enc["IP"],
		"VerifyToken": "",
	}

	return c.postOTPLogin(ctx, "/api/Login/VerifyUserLogin", identifier, uty, ip, payload)
}

// VerifyLoginOTP exchanges the OTP and the token issued by SendLoginOTP for
// full account credentials.
func (c *Client) VerifyLoginOTP(ctx context.Context, identifier, otp, token, ip string) (emt.Document, error) {
	uty := userType(identifier)

	fields := map[string]string{
		"UID":  identifier,
		"UTY":  uty,
		"IP":   ip,
		"TKN":  token,
		"Pass": otp,
	}
	enc := make(map[string]string, len(fields))
	for k, v := range fields {
		ev, err := encryptAES(fieldKey, v)
		if err != nil {
			return emt.Document{}, fmt.Errorf("encrypting %s: %w", k, err)
		}
		enc[k] = ev
	}

	payload := map[string]any{
		"UID":         enc["UID"],
		"CC":          "+91",
		"TKN":         enc["TKN"],
		"ATY":         "Login",
		"UTY":         enc["UTY"],
		"Pass":        enc["Pass"],
		"PTY":         "O",
		"UA":          "",
		"RefCd":       "",
		"RefLnk":      "",
		"IP":          enc["IP"],
		"VerifyToken": "",
		"Token":       "",
	}

	return c.postOTPLogin(ctx, "/api/Login/AuthenticateLoginUser", identifier, uty, ip, payload)
}

// postOTPLogin wraps the double-encryption envelope shared by both OTP login
// endpoints: the JSON payload is encrypted whole, posted as {"request": ...}
// under an encrypted useridentity header, and the response body decrypts
// under the response key.
func (c *Client) postOTPLogin(ctx context.Context, path, identifier, uty, ip string, payload map[string]any) (emt.Document, error) {
	identity, err := encryptAES(fieldKey, identifier+"|"+ip+"|"+uty)
	if err != nil {
		return emt.Document{}, fmt.Errorf("encrypting identity header: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return emt.Document{}, fmt.Errorf("encoding payload: %w", err)
	}
	request, err := encryptAES(payloadKey, string(payloadJSON))
	if err != nil {
		return emt.Document{}, fmt.Errorf("encrypting payload: %w", err)
	}

	body, err := c.post(ctx, c.cfg.LoginURL+path,
		map[string]any{"request": request},
		map[string]string{"useridentity": identity},
	)
	if err != nil {
		return emt.Document{}, err
	}

	plain, err := decryptAES(responseKey, string(body))
	if err != nil {
		return emt.Document{}, fmt.Errorf("decrypting response: %w", err)
	}
	return emt.ParseDocument([]byte(plain)), nil
}

// SearchBookings fetches the traveller's bookings with the auth token from a
// completed login. This endpoint is plain JSON in both directions.
func (c *Client) SearchBookings(ctx context.Context, authToken, email, ip string) (emt.Document, error) {
	payload := map[string]any{
		"Auth":        authToken,
		"EmailId":     email,
		"Password":    "android",
		"ProcessType": 45,
		"Authentication": map[string]any{
			"AgentCode": 1003,
			"UserName":  "android",
			"Password":  "android",
			"IPAddress": ip,
		},
	}

	body, err := c.post(ctx, c.cfg.BookingsURL+"/api/Product/search-product",
		payload, map[string]string{"auth": email})
	if err != nil {
		return emt.Document{}, err
	}
	return emt.ParseDocument(body), nil
}

func (c *Client) post(ctx context.Context, url string, payload any, extraHeaders map[string]string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return body, nil
}
