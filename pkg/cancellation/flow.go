// Package cancellation implements the 4-step guest cancellation protocol
// against the vendor's booking-management APIs: guest login, booking detail
// fetch, cancellation OTP dispatch, and cancellation submission. One Flow
// drives one in-flight cancellation attempt for one booking; the vendor
// tracks its own server-side session via cookies, and the Flow keeps its
// locally cached bid token synchronized with that cookie jar, transparently
// re-logging-in when the pair goes stale.
package cancellation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// Error codes carried on failed step results. Step methods never return Go
// errors; transport and protocol failures are folded into the result shape
// so the tool layer has a single contract to render.
const (
	ErrLoginFailed        = "LOGIN_FAILED"
	ErrNoSession          = "NO_SESSION"
	ErrNoScreenID         = "NO_SCREEN_ID"
	ErrNoTransactionID    = "NO_TRANSACTION_ID"
	ErrOTPInvalid         = "OTP_INVALID"
	ErrOTPSendFailed      = "OTP_SEND_FAILED"
	ErrCancellationFailed = "CANCELLATION_FAILED"
)

// Kind is the transaction kind learned from the guest login response.
type Kind string

const (
	KindHotel  Kind = "Hotel"
	KindTrain  Kind = "Train"
	KindBus    Kind = "Bus"
	KindFlight Kind = "Flight"
)

// KindFromLabel maps the vendor's free-text TransactionType to a Kind.
// Unknown labels fall back to Hotel, matching the vendor's default routing.
func KindFromLabel(label string) Kind {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "train":
		return KindTrain
	case "bus":
		return KindBus
	case "flight":
		return KindFlight
	default:
		return KindHotel
	}
}

// Flow drives one cancellation attempt. It owns a dedicated emt.Client so
// the vendor's cookie-tracked session stays coupled to the cached bid; the
// two are only ever refreshed together. A Flow must not be shared across
// concurrent callers.
type Flow struct {
	client *emt.Client

	bid                 string
	transactionScreenID string
	bookingID           string
	email               string
	kind                Kind
	kindKnown           bool

	// Train: OTP and cancel calls key off the first passenger's ID rather
	// than the bid.
	emtScreenID string

	// Flight: OTP and cancel calls use a transaction id pair learned from
	// the details fetch.
	flightTransactionID string
	flightScreenID      string
	totalCancellable    int
}

// NewFlow creates a Flow with its own vendor client.
func NewFlow(cfg emt.Config) *Flow {
	return &Flow{client: emt.NewClient(cfg)}
}

// Kind returns the transaction kind learned from login, or KindHotel before
// login.
func (f *Flow) Kind() Kind {
	if !f.kindKnown {
		return KindHotel
	}
	return f.kind
}

// Close releases the underlying HTTP client.
func (f *Flow) Close() error {
	return f.client.Close()
}

// LoginIDs is the identifier bundle surfaced by a successful guest login.
type LoginIDs struct {
	Bid                 string `json:"bid"`
	TransactionID       string `json:"transaction_id,omitempty"`
	TransactionScreenID string `json:"transaction_screen_id,omitempty"`
	TransactionType     string `json:"transaction_type,omitempty"`
	IsOTPSend           bool   `json:"is_otp_send"`
	Message             string `json:"message,omitempty"`
}

// LoginResult is the outcome of GuestLogin.
type LoginResult struct {
	Success bool      `json:"success"`
	IDs     *LoginIDs `json:"ids,omitempty"`
	Error   string    `json:"error,omitempty"`
	Message string    `json:"message"`
}

// GuestLogin authenticates with booking id + email and caches the vendor
// session token. The bid and session identifiers appear under inconsistent
// casings across endpoints, so extraction walks an ordered candidate list.
func (f *Flow) GuestLogin(ctx context.Context, bookingID, email string) LoginResult {
	doc, err := f.client.GuestLogin(ctx, bookingID, email)
	if err != nil {
		slog.Error("cancellation: guest login failed", "booking_id", bookingID, "error", err)
		return LoginResult{
			Success: false,
			Error:   err.Error(),
			Message: "Guest login failed due to an unexpected error",
		}
	}

	ids := doc.Child("Ids")
	if ids.Empty() {
		ids = doc
	}
	bid := ids.Str("bid", "Bid", "BID")
	screenID := ids.Str(
		"TransactionScreenId", "TransactionScreenID",
		"EmtScreenID", "EmtScreenId",
		"ScreenID", "ScreenId",
	)
	if screenID == "" {
		slog.Warn("cancellation: screen id not found in login response", "fields", ids.Keys())
	}

	if bid == "" {
		msg := ids.Str("Message")
		if msg == "" {
			msg = "Guest login failed - no bid token returned"
		}
		return LoginResult{Success: false, Error: ErrLoginFailed, Message: msg}
	}

	f.bid = bid
	f.transactionScreenID = screenID
	f.bookingID = bookingID
	f.email = email
	if label := ids.Str("TransactionType"); label != "" {
		f.kind = KindFromLabel(label)
		f.kindKnown = true
	}

	return LoginResult{
		Success: true,
		IDs: &LoginIDs{
			Bid:                 bid,
			TransactionID:       ids.Str("TransactionId"),
			TransactionScreenID: screenID,
			TransactionType:     ids.Str("TransactionType"),
			IsOTPSend:           ids.Bool("IsOtpSend"),
			Message:             ids.Str("Message"),
		},
		Message: "Guest login successful",
	}
}

// VerifyResult is the outcome of VerifyOTP.
type VerifyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// VerifyOTP confirms the guest login OTP against the cached bid. The vendor
// returns isVerify as a loosely-typed value; comparison tolerates native
// booleans and "true" in any casing.
func (f *Flow) VerifyOTP(ctx context.Context, otp string) VerifyResult {
	if f.bid == "" {
		return VerifyResult{
			Success: false,
			Message: "No active session. Please start the cancellation flow first.",
			Error:   ErrNoSession,
		}
	}

	doc, err := f.client.VerifyGuestLoginOTP(ctx, f.bid, otp, string(f.Kind()))
	if err != nil {
		slog.Error("cancellation: otp verification failed", "error", err)
		return VerifyResult{
			Success: false,
			Message: "OTP verification failed due to an unexpected error",
			Error:   err.Error(),
		}
	}

	verified := doc.Bool("isVerify")
	msg := doc.Str("Message", "Msg")
	if msg == "" {
		if verified {
			msg = "OTP verified successfully"
		} else {
			msg = "Invalid OTP"
		}
	}
	res := VerifyResult{Success: verified, Message: msg}
	if !verified {
		res.Error = ErrOTPInvalid
	}
	return res
}

// sessionBid returns a bid good for the OTP/cancel steps. The cached bid is
// only valid together with the cookie jar that produced it; when there is no
// cached bid, or the caller's booking/email differ from what produced it,
// the pair is stale and both are refreshed together.
func (f *Flow) sessionBid(ctx context.Context, bookingID, email string) (string, error) {
	if f.bid != "" && bookingID == f.bookingID && email == f.email {
		slog.Debug("cancellation: reusing cached session", "booking_id", bookingID)
		return f.bid, nil
	}
	slog.Info("cancellation: no cached session or credentials changed, refreshing",
		"booking_id", bookingID)
	return f.refreshSession(ctx, bookingID, email)
}

// refreshSession re-runs guest login and then a details fetch. The fetch
// response is discarded; its only purpose is advancing the vendor's
// server-side session to the state the OTP/cancel endpoints expect. The
// fetch is routed by kind because hitting another kind's details endpoint
// triggers that kind's OTP dispatch as a side effect.
func (f *Flow) refreshSession(ctx context.Context, bookingID, email string) (string, error) {
	login := f.GuestLogin(ctx, bookingID, email)
	if !login.Success {
		return "", fmt.Errorf("session refresh login failed: %s", login.Message)
	}
	bid := login.IDs.Bid

	var err error
	switch f.Kind() {
	case KindFlight:
		_, err = f.client.FlightBookingDetails(ctx, bid, bookingID, email)
	case KindTrain:
		_, err = f.client.TrainBookingDetails(ctx, bid)
	case KindBus:
		_, err = f.client.BusBookingDetails(ctx, bid)
	default:
		_, err = f.client.HotelBookingDetails(ctx, bid)
	}
	if err != nil {
		return "", fmt.Errorf("session refresh details fetch failed: %w", err)
	}
	return bid, nil
}

// otpOutcome applies the permissive OTP-send heuristic: isStatus true wins,
// but a false isStatus still counts as success unless the response carries
// an explicit error signal. The vendor omits isStatus on genuine successes
// often enough that a strict reading would reject them.
func otpOutcome(doc emt.Document) (bool, string) {
	isStatus := doc.Bool("isStatus", "IsStatus")
	msg := doc.Str("Msg", "Message")

	lower := strings.ToLower(msg)
	hasError := doc.Str("Error", "error") != "" ||
		(msg != "" && (strings.Contains(lower, "error") ||
			strings.Contains(lower, "fail") ||
			strings.Contains(lower, "expired")))

	success := isStatus || (!hasError && msg != "Failed")
	if msg == "" {
		if success {
			msg = "OTP sent successfully"
		} else {
			msg = "Failed to send OTP"
		}
	}
	return success, msg
}

// RefundInfo is opportunistically extracted refund detail from a
// cancellation response.
type RefundInfo struct {
	RefundAmount        string `json:"refund_amount,omitempty"`
	CancellationCharges string `json:"cancellation_charges,omitempty"`
	RefundMode          string `json:"refund_mode,omitempty"`
	RequestID           string `json:"request_id,omitempty"`

	// Bus cancellations report refund detail under different names.
	CancelStatus string `json:"cancel_status,omitempty"`
	IsRefunded   bool   `json:"is_refunded,omitempty"`
	PnrNo        string `json:"pnr_no,omitempty"`
	CancelSeatNo string `json:"cancel_seat_no,omitempty"`
	Remarks      string `json:"remarks,omitempty"`
}

// cancelOutcome interprets a cancellation response, which the vendor returns
// either as a plain string or a structured object. For strings, success is a
// best-effort substring match; for objects, Status or isStatus decides, with
// the message composed from the first populated message field plus any
// Data.Text suffix.
func cancelOutcome(doc emt.Document) (bool, string, *RefundInfo) {
	if doc.IsString() {
		s := doc.Raw()
		lower := strings.ToLower(s)
		ok := strings.Contains(lower, "success") || strings.Contains(lower, "cancel")
		return ok, s, nil
	}

	success := doc.Bool("Status") || doc.Bool("isStatus")
	msg := doc.Str("LogMessage", "Message", "Msg")
	data := doc.Child("Data")
	if text := data.Str("Text"); text != "" {
		if msg != "" {
			msg = msg + " - " + text
		} else {
			msg = text
		}
	}

	var refund *RefundInfo
	if doc.Str("RefundAmount") != "" || doc.Str("CancellationCharges") != "" {
		refund = &RefundInfo{
			RefundAmount:        doc.Str("RefundAmount"),
			CancellationCharges: doc.Str("CancellationCharges"),
			RefundMode:          doc.Str("RefundMode"),
		}
	} else if data.Str("charge") != "" || data.Str("currency") != "" {
		refund = &RefundInfo{
			CancellationCharges: data.Str("charge"),
			RefundMode:          data.Str("currency"),
		}
	}
	return success, msg, refund
}
