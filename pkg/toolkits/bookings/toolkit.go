// Package bookings exposes traveller account login and booking retrieval as
// MCP tools. Credentials live in a per-session auth context so concurrent
// travellers never share tokens; tools accept an optional session_id and
// return the authoritative one.
package bookings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-travel-desk/pkg/auth"
	"github.com/txn2/mcp-travel-desk/pkg/emt"
	"github.com/txn2/mcp-travel-desk/pkg/session"
)

const (
	loginToolName     = "traveler_login"
	otpSendToolName   = "traveler_login_otp_send"
	otpVerifyToolName = "traveler_login_otp_verify"
	bookingsToolName  = "my_bookings"
)

// Toolkit implements the traveller login and bookings toolkit.
type Toolkit struct {
	name     string
	cfg      Config
	client   *Client
	sessions session.Store

	// ownsSessions marks a store created by this toolkit rather than
	// injected; only owned stores are closed with the toolkit.
	ownsSessions bool
}

// New creates a new bookings toolkit. If sessions is nil, a private
// in-memory manager is used.
func New(name string, cfg Config, sessions session.Store) (*Toolkit, error) {
	owns := false
	if sessions == nil {
		sessions = session.NewManager(0)
		owns = true
	}

	return &Toolkit{
		name:         name,
		cfg:          cfg.applyDefaults(),
		client:       NewClient(cfg),
		sessions:     sessions,
		ownsSessions: owns,
	}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "bookings"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the login endpoint for diagnostics.
func (t *Toolkit) Connection() string {
	return t.cfg.LoginURL
}

// RegisterTools registers the login and bookings tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: loginToolName,
		Description: "Log a traveller in with their registered phone number. Returns a " +
			"session_id that the other booking tools require; pass an existing session_id " +
			"to log in again on the same session.",
	}, t.handleLogin)

	mcp.AddTool(s, &mcp.Tool{
		Name: otpSendToolName,
		Description: "Send a login OTP to the traveller's phone number or email. " +
			"Follow with traveler_login_otp_verify on the returned session_id.",
	}, t.handleOTPSend)

	mcp.AddTool(s, &mcp.Tool{
		Name: otpVerifyToolName,
		Description: "Verify the login OTP sent by traveler_login_otp_send and complete " +
			"the login on that session.",
	}, t.handleOTPVerify)

	mcp.AddTool(s, &mcp.Tool{
		Name: bookingsToolName,
		Description: "Fetch all bookings for the logged-in traveller. Requires a " +
			"session_id from a completed login.",
	}, t.handleMyBookings)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{loginToolName, otpSendToolName, otpVerifyToolName, bookingsToolName}
}

// Close releases the client and, when owned, the session store.
func (t *Toolkit) Close() error {
	err := t.client.Close()
	if t.ownsSessions {
		if cerr := t.sessions.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// loginInput defines the input schema for the traveler_login tool.
type loginInput struct {
	SessionID   string `json:"session_id,omitempty"`
	PhoneNumber string `json:"phone_number"`
}

// loginOutput is the success response for login tools.
type loginOutput struct {
	SessionID string        `json:"session_id"`
	Message   string        `json:"message"`
	User      auth.UserInfo `json:"user"`
}

func (t *Toolkit) handleLogin(ctx context.Context, _ *mcp.CallToolRequest, input loginInput) (*mcp.CallToolResult, any, error) {
	if input.PhoneNumber == "" {
		return errorResult("phone_number is required"), nil, nil
	}

	sid, ac, err := t.sessions.GetOrCreate(ctx, input.SessionID)
	if err != nil {
		slog.Error("bookings: session lookup failed", "error", err)
		return errorResult("session store unavailable"), nil, nil
	}

	doc, err := t.client.LoginUser(ctx, input.PhoneNumber, ac.IP())
	if err != nil {
		slog.Error("bookings: login failed", "error", err)
		return errorResult("login failed: " + err.Error()), nil, nil
	}

	token := doc.Str("Auth", "AuthenticationToken", "auth")
	if token == "" {
		return errorResult("login failed: authentication token missing"), nil, nil
	}

	uid := doc.Str("UID")
	if uid == "" {
		uid = input.PhoneNumber
	}

	ac.Clear()
	ac.SetToken(auth.TokenInfo{
		Token: token,
		Email: firstEmail(doc),
		Phone: input.PhoneNumber,
		UID:   uid,
		Name:  doc.Str("Name"),
	})
	if err := t.sessions.Save(ctx, sid, ac); err != nil {
		slog.Error("bookings: saving session failed", "error", err)
		return errorResult("session store unavailable"), nil, nil
	}

	return successResult(loginOutput{
		SessionID: sid,
		Message:   "Login successful",
		User:      ac.UserInfo(),
	})
}

// firstEmail extracts the first entry of the login response's EmailList.
func firstEmail(doc emt.Document) string {
	if list, ok := doc.First("EmailList").([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// otpSendInput defines the input schema for the traveler_login_otp_send tool.
type otpSendInput struct {
	SessionID    string `json:"session_id,omitempty"`
	PhoneOrEmail string `json:"phone_or_email"`
}

// otpSendOutput is the success response for traveler_login_otp_send.
type otpSendOutput struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	PhoneOrEmail string `json:"phone_or_email"`
}

func (t *Toolkit) handleOTPSend(ctx context.Context, _ *mcp.CallToolRequest, input otpSendInput) (*mcp.CallToolResult, any, error) {
	if input.PhoneOrEmail == "" {
		return errorResult("phone_or_email is required"), nil, nil
	}

	sid, ac, err := t.sessions.GetOrCreate(ctx, input.SessionID)
	if err != nil {
		slog.Error("bookings: session lookup failed", "error", err)
		return errorResult("session store unavailable"), nil, nil
	}

	doc, err := t.client.SendLoginOTP(ctx, input.PhoneOrEmail, ac.IP())
	if err != nil {
		slog.Error("bookings: otp send failed", "error", err)
		return errorResult("sending OTP failed: " + err.Error()), nil, nil
	}

	token := doc.Str("Token")
	msg := doc.Str("Message")
	if token == "" {
		if msg == "" {
			msg = "OTP send failed: no token received"
		}
		return errorResult(msg), nil, nil
	}

	ac.SetOTPPending(token, input.PhoneOrEmail)
	if err := t.sessions.Save(ctx, sid, ac); err != nil {
		slog.Error("bookings: saving session failed", "error", err)
		return errorResult("session store unavailable"), nil, nil
	}

	if msg == "" {
		msg = "OTP sent successfully"
	}
	return successResult(otpSendOutput{
		SessionID:    sid,
		Message:      msg,
		PhoneOrEmail: input.PhoneOrEmail,
	})
}

// otpVerifyInput defines the input schema for the traveler_login_otp_verify tool.
type otpVerifyInput struct {
	SessionID string `json:"session_id"`
	OTP       string `json:"otp"`
}

func (t *Toolkit) handleOTPVerify(ctx context.Context, _ *mcp.CallToolRequest, input otpVerifyInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" || input.OTP == "" {
		return errorResult("session_id and otp are required"), nil, nil
	}

	ac, err := t.sessions.Get(ctx, input.SessionID)
	if err != nil {
		slog.Error("bookings: session lookup failed", "error", err)
		return errorResult("session store unavailable"), nil, nil
	}
	if ac == nil {
		return errorResult("unknown or expired session; send the OTP again"), nil, nil
	}

	token, contact := ac.OTPPending()
	if token == "" || contact == "" {
		return errorResult("no pending OTP for this session; send the OTP first"), nil, nil
	}

	doc, err := t.client.VerifyLoginOTP(ctx, contact, input.OTP, token, ac.IP())
	if err != nil {
		slog.Error("bookings: otp verification failed", "error", err)
		return errorResult("verifying OTP failed: " + err.Error()), nil, nil
	}

	authToken := doc.Str("Auth")
	msg := doc.Str("Message")
	if authToken == "" {
		if msg == "" {
			msg = "OTP verification failed: auth token missing"
		}
		return errorResult(msg), nil, nil
	}

	uid := doc.Str("UID")
	if uid == "" {
		uid = contact
	}

	info := auth.TokenInfo{Token: authToken, UID: uid, Name: doc.Str("Name")}
	if userType(contact) == "Email" {
		info.Email = contact
	} else {
		info.Phone = contact
	}

	ac.ClearOTPPending()
	ac.SetToken(info)
	if err := t.sessions.Save(ctx, input.SessionID, ac); err != nil {
		slog.Error("bookings: saving session failed", "error", err)
		return errorResult("session store unavailable"), nil, nil
	}

	if msg == "" {
		msg = "Login successful"
	}
	return successResult(loginOutput{
		SessionID: input.SessionID,
		Message:   msg,
		User:      ac.UserInfo(),
	})
}

// myBookingsInput defines the input schema for the my_bookings tool.
type myBookingsInput struct {
	SessionID string `json:"session_id"`
}

// myBookingsOutput is the success response for my_bookings.
type myBookingsOutput struct {
	SessionID string       `json:"session_id"`
	Bookings  emt.Document `json:"bookings"`
}

func (t *Toolkit) handleMyBookings(ctx context.Context, _ *mcp.CallToolRequest, input myBookingsInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), nil, nil
	}

	ac, err := t.sessions.Get(ctx, input.SessionID)
	if err != nil {
		slog.Error("bookings: session lookup failed", "error", err)
		return errorResult("session store unavailable"), nil, nil
	}
	if ac == nil {
		return errorResult("unknown or expired session; log in again"), nil, nil
	}
	if !ac.IsAuthenticated() {
		return errorResult("not logged in; complete a login on this session first"), nil, nil
	}

	doc, err := t.client.SearchBookings(ctx, ac.Token(), ac.Email(), ac.IP())
	if err != nil {
		slog.Error("bookings: fetching bookings failed", "error", err)
		return errorResult("fetching bookings failed: " + err.Error()), nil, nil
	}

	return successResult(myBookingsOutput{
		SessionID: input.SessionID,
		Bookings:  doc,
	})
}

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// successResult creates a success CallToolResult from a structured output.
func successResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("internal error marshaling response"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// Verify interface compliance.
var _ interface {
	Kind() string
	Name() string
	Connection() string
	RegisterTools(s *mcp.Server)
	Tools() []string
	Close() error
} = (*Toolkit)(nil)
