// Package cancellation exposes the guest booking-cancellation flow as MCP
// tools. One flow instance is kept per booking id + email pair so concurrent
// travellers never share a vendor session.
package cancellation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-travel-desk/pkg/cancellation"
)

const (
	startToolName   = "cancellation_start"
	verifyToolName  = "cancellation_verify_login_otp"
	sendOTPToolName = "cancellation_send_otp"
	confirmToolName = "cancellation_confirm"
)

// Toolkit implements the booking cancellation toolkit.
type Toolkit struct {
	name  string
	cfg   Config
	flows *cancellation.Registry
}

// New creates a new cancellation toolkit.
func New(name string, cfg Config) (*Toolkit, error) {
	return &Toolkit{
		name:  name,
		cfg:   cfg,
		flows: cancellation.NewRegistry(cfg.emtConfig()),
	}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "cancellation"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the booking-management endpoint for diagnostics.
func (t *Toolkit) Connection() string {
	return t.cfg.MyBookingsURL
}

// RegisterTools registers the cancellation flow tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: startToolName,
		Description: "Start a booking cancellation: logs in as a guest with booking_id and email " +
			"and returns the booking details (hotel rooms, train/bus/flight passengers, " +
			"cancellation policies). A login OTP is sent to the traveller automatically.",
	}, t.handleStart)

	mcp.AddTool(s, &mcp.Tool{
		Name: verifyToolName,
		Description: "Verify the guest login OTP sent when the cancellation was started. " +
			"Must be called with the same booking_id and email.",
	}, t.handleVerifyLoginOTP)

	mcp.AddTool(s, &mcp.Tool{
		Name: sendOTPToolName,
		Description: "Send the cancellation confirmation OTP to the traveller's registered " +
			"email/phone. The OTP is valid for 10 minutes.",
	}, t.handleSendOTP)

	mcp.AddTool(s, &mcp.Tool{
		Name: confirmToolName,
		Description: "Submit the cancellation with the confirmation OTP. Hotel bookings need " +
			"room_id and transaction_id; train bookings need pax_ids, reservation_id and " +
			"pnr_number; bus bookings need seats and transaction_id; flight bookings need " +
			"outbound_pax_ids and/or inbound_pax_ids.",
	}, t.handleConfirm)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{startToolName, verifyToolName, sendOTPToolName, confirmToolName}
}

// Close releases all live flows and their vendor sessions.
func (t *Toolkit) Close() error {
	return t.flows.Close()
}

// startInput defines the input schema for the cancellation_start tool.
type startInput struct {
	BookingID string `json:"booking_id"`
	Email     string `json:"email"`
}

// startOutput is the success response for cancellation_start.
type startOutput struct {
	Login            cancellation.LoginResult `json:"login"`
	TransactionType  string                   `json:"transaction_type"`
	Bid              string                   `json:"bid"`
	BookingDetails   any                      `json:"booking_details"`
	AlreadyCancelled bool                     `json:"already_cancelled"`
	Message          string                   `json:"message,omitempty"`
}

func (t *Toolkit) handleStart(ctx context.Context, _ *mcp.CallToolRequest, input startInput) (*mcp.CallToolResult, any, error) {
	if input.BookingID == "" || input.Email == "" {
		return errorResult("booking_id and email are required"), nil, nil
	}

	flow := t.flows.Acquire(input.BookingID, input.Email)

	login := flow.GuestLogin(ctx, input.BookingID, input.Email)
	if !login.Success {
		return errorResultJSON(login, "Guest login failed: "+login.Message), nil, nil
	}

	bid := login.IDs.Bid
	kind := flow.Kind()

	var (
		details      any
		detailsOK    bool
		detailsErr   string
		allCancelled bool
	)
	switch kind {
	case cancellation.KindTrain:
		r := flow.FetchTrainDetails(ctx, bid)
		details, detailsOK, detailsErr, allCancelled = r, r.Success, r.Error, r.AllCancelled
	case cancellation.KindBus:
		r := flow.FetchBusDetails(ctx, bid)
		details, detailsOK, detailsErr, allCancelled = r, r.Success, r.Error, r.AllCancelled
	case cancellation.KindFlight:
		r := flow.FetchFlightDetails(ctx, bid)
		details, detailsOK, detailsErr, allCancelled = r, r.Success, r.Error, r.AllCancelled
	default:
		r := flow.FetchBookingDetails(ctx, bid)
		details, detailsOK, detailsErr, allCancelled = r, r.Success, r.Error, r.AllCancelled
	}

	out := startOutput{
		Login:            login,
		TransactionType:  string(kind),
		Bid:              bid,
		BookingDetails:   details,
		AlreadyCancelled: allCancelled,
	}

	if !detailsOK {
		return errorResultJSON(out, "Login succeeded but fetching booking details failed: "+detailsErr), nil, nil
	}

	switch {
	case allCancelled:
		out.Message = fmt.Sprintf("Booking %s has already been cancelled. No further action is needed.", input.BookingID)
	case login.IDs.IsOTPSend:
		out.Message = "An OTP has been sent to the traveller's registered email/phone. " +
			"Verify it before proceeding with the cancellation."
	}

	return successResult(out)
}

// verifyInput defines the input schema for the cancellation_verify_login_otp tool.
type verifyInput struct {
	BookingID string `json:"booking_id"`
	Email     string `json:"email"`
	OTP       string `json:"otp"`
}

func (t *Toolkit) handleVerifyLoginOTP(ctx context.Context, _ *mcp.CallToolRequest, input verifyInput) (*mcp.CallToolResult, any, error) {
	if input.OTP == "" {
		return errorResult("otp is required"), nil, nil
	}

	flow := t.flows.Acquire(input.BookingID, input.Email)

	result := flow.VerifyOTP(ctx, input.OTP)
	if !result.Success {
		return errorResultJSON(result, result.Message), nil, nil
	}
	return successResult(result)
}

// sendOTPInput defines the input schema for the cancellation_send_otp tool.
type sendOTPInput struct {
	BookingID string `json:"booking_id"`
	Email     string `json:"email"`
}

func (t *Toolkit) handleSendOTP(ctx context.Context, _ *mcp.CallToolRequest, input sendOTPInput) (*mcp.CallToolResult, any, error) {
	if input.BookingID == "" || input.Email == "" {
		return errorResult("booking_id and email are required"), nil, nil
	}

	flow := t.flows.Acquire(input.BookingID, input.Email)

	var result cancellation.OTPResult
	switch flow.Kind() {
	case cancellation.KindTrain:
		result = flow.SendTrainCancellationOTP(ctx, input.BookingID, input.Email)
	case cancellation.KindBus:
		result = flow.SendBusCancellationOTP(ctx, input.BookingID, input.Email)
	case cancellation.KindFlight:
		result = flow.SendFlightCancellationOTP(ctx, input.BookingID, input.Email)
	default:
		result = flow.SendCancellationOTP(ctx, input.BookingID, input.Email)
	}

	if !result.Success {
		return errorResultJSON(result, "Failed to send OTP: "+result.Message), nil, nil
	}
	return successResult(result)
}

// confirmInput defines the input schema for the cancellation_confirm tool.
// Beyond the common fields, the required subset depends on the booking kind
// learned at login.
type confirmInput struct {
	BookingID string `json:"booking_id"`
	Email     string `json:"email"`
	OTP       string `json:"otp"`

	// Hotel
	RoomID        string `json:"room_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	IsPayAtHotel  bool   `json:"is_pay_at_hotel,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`

	// Train
	PaxIDs        []string `json:"pax_ids,omitempty"`
	AllPaxIDs     []string `json:"all_pax_ids,omitempty"`
	ReservationID string   `json:"reservation_id,omitempty"`
	PnrNumber     string   `json:"pnr_number,omitempty"`

	// Bus
	Seats string `json:"seats,omitempty"`

	// Flight
	OutboundPaxIDs string `json:"outbound_pax_ids,omitempty"`
	InboundPaxIDs  string `json:"inbound_pax_ids,omitempty"`
	Mode           string `json:"mode,omitempty"`

	Reason string `json:"reason,omitempty"`
	Remark string `json:"remark,omitempty"`
}

func (t *Toolkit) handleConfirm(ctx context.Context, _ *mcp.CallToolRequest, input confirmInput) (*mcp.CallToolResult, any, error) {
	if input.OTP == "" {
		return errorResult("otp is required"), nil, nil
	}

	flow := t.flows.Acquire(input.BookingID, input.Email)

	var result cancellation.CancelResult
	switch flow.Kind() {
	case cancellation.KindTrain:
		if len(input.PaxIDs) == 0 || input.ReservationID == "" || input.PnrNumber == "" {
			return errorResult("train cancellation requires pax_ids, reservation_id, and pnr_number"), nil, nil
		}
		result = flow.RequestTrainCancellation(ctx, cancellation.TrainCancelParams{
			BookingID:     input.BookingID,
			Email:         input.Email,
			OTP:           input.OTP,
			PaxIDs:        input.PaxIDs,
			AllPaxIDs:     input.AllPaxIDs,
			ReservationID: input.ReservationID,
			PnrNumber:     input.PnrNumber,
		})
	case cancellation.KindBus:
		if input.Seats == "" || input.TransactionID == "" {
			return errorResult("bus cancellation requires seats and transaction_id"), nil, nil
		}
		result = flow.RequestBusCancellation(ctx, cancellation.BusCancelParams{
			BookingID:     input.BookingID,
			Email:         input.Email,
			OTP:           input.OTP,
			Seats:         input.Seats,
			TransactionID: input.TransactionID,
			Reason:        input.Reason,
			Remark:        input.Remark,
		})
	case cancellation.KindFlight:
		if input.OutboundPaxIDs == "" && input.InboundPaxIDs == "" {
			return errorResult("flight cancellation requires outbound_pax_ids and/or inbound_pax_ids"), nil, nil
		}
		result = flow.RequestFlightCancellation(ctx, cancellation.FlightCancelParams{
			BookingID:      input.BookingID,
			Email:          input.Email,
			OTP:            input.OTP,
			OutboundPaxIDs: input.OutboundPaxIDs,
			InboundPaxIDs:  input.InboundPaxIDs,
			Mode:           input.Mode,
		})
	default:
		if input.RoomID == "" || input.TransactionID == "" {
			return errorResult("hotel cancellation requires room_id and transaction_id"), nil, nil
		}
		result = flow.RequestCancellation(ctx, cancellation.CancelParams{
			BookingID:     input.BookingID,
			Email:         input.Email,
			OTP:           input.OTP,
			RoomID:        input.RoomID,
			TransactionID: input.TransactionID,
			IsPayAtHotel:  input.IsPayAtHotel,
			PaymentURL:    input.PaymentURL,
			Reason:        input.Reason,
			Remark:        input.Remark,
		})
	}

	if !result.Success {
		return errorResultJSON(result, "Cancellation failed: "+result.Message), nil, nil
	}
	return successResult(result)
}

// errorResult creates an error CallToolResult with a plain message.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// errorResultJSON creates an error CallToolResult carrying the structured
// step result alongside a summary message.
func errorResultJSON(v any, msg string) *mcp.CallToolResult {
	payload := map[string]any{
		"error":  msg,
		"result": v,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errorResult(msg)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
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
