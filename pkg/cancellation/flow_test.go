package cancellation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// fakeVendor is an httptest-backed stand-in for the booking-management API.
// Handlers are keyed by URL path; unhandled paths return an empty object.
type fakeVendor struct {
	srv      *httptest.Server
	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]func(body map[string]any) any
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()
	fv := &fakeVendor{
		calls:    make(map[string]int),
		handlers: make(map[string]func(body map[string]any) any),
	}
	fv.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		fv.mu.Lock()
		fv.calls[r.URL.Path]++
		h := fv.handlers[r.URL.Path]
		fv.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if h == nil {
			w.Write([]byte(`{}`))
			return
		}
		resp := h(body)
		if s, ok := resp.(string); ok {
			json.NewEncoder(w).Encode(s)
			return
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(fv.srv.Close)
	return fv
}

func (fv *fakeVendor) handle(path string, h func(body map[string]any) any) {
	fv.mu.Lock()
	fv.handlers[path] = h
	fv.mu.Unlock()
}

func (fv *fakeVendor) count(path string) int {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return fv.calls[path]
}

func (fv *fakeVendor) config() emt.Config {
	return emt.Config{
		MyBookingsURL:       fv.srv.URL,
		FlightServiceURL:    fv.srv.URL,
		FlightAppServiceURL: fv.srv.URL,
	}
}

const (
	loginPath        = "/Mybooking/LoginGuestUser"
	verifyPath       = "/Mybooking/VerifyGuestLoginOtp"
	hotelDetailsPath = "/Hotels/BookingDetails"
	hotelOTPPath     = "/Hotels/CancellationOtp"
	hotelCancelPath  = "/Hotels/RequestCancellation"
)

func hotelLoginOK(fv *fakeVendor, bid string) {
	fv.handle(loginPath, func(map[string]any) any {
		return map[string]any{
			"Ids": map[string]any{
				"bid":                 bid,
				"TransactionId":       "162471800",
				"TransactionScreenId": "EMT162471800",
				"TransactionType":     "Hotel",
				"IsOtpSend":           true,
			},
		}
	})
}

func TestGuestLoginCachesSession(t *testing.T) {
	fv := newFakeVendor(t)
	hotelLoginOK(fv, "XYZ")
	fv.handle(hotelDetailsPath, func(map[string]any) any {
		return map[string]any{
			"Room": map[string]any{"RoomID": "R1", "name": "Test Hotel"},
		}
	})

	f := NewFlow(fv.config())
	defer f.Close()

	res := f.GuestLogin(context.Background(), "EMT1624718", "a@b.com")
	require.True(t, res.Success)
	require.NotNil(t, res.IDs)
	assert.Equal(t, "XYZ", res.IDs.Bid)
	assert.Equal(t, "XYZ", f.bid)
	assert.Equal(t, KindHotel, f.Kind())

	// One room, no PaymentDetails entries: nothing counts as cancelled.
	details := f.FetchBookingDetails(context.Background(), "XYZ")
	require.True(t, details.Success)
	require.Len(t, details.Rooms, 1)
	assert.False(t, details.Rooms[0].IsCancelled)
	assert.False(t, details.AllCancelled)
}

func TestGuestLoginNoBid(t *testing.T) {
	fv := newFakeVendor(t)
	fv.handle(loginPath, func(map[string]any) any {
		return map[string]any{
			"Ids": map[string]any{"Message": "Invalid booking reference"},
		}
	})

	f := NewFlow(fv.config())
	defer f.Close()

	res := f.GuestLogin(context.Background(), "BAD", "a@b.com")
	assert.False(t, res.Success)
	assert.Equal(t, ErrLoginFailed, res.Error)
	assert.Equal(t, "Invalid booking reference", res.Message)
	assert.Empty(t, f.bid)
}

func TestGuestLoginBidCasings(t *testing.T) {
	for _, key := range []string{"bid", "Bid", "BID"} {
		fv := newFakeVendor(t)
		k := key
		fv.handle(loginPath, func(map[string]any) any {
			return map[string]any{"Ids": map[string]any{k: "tok-" + k}}
		})

		f := NewFlow(fv.config())
		res := f.GuestLogin(context.Background(), "EMT1", "a@b.com")
		require.True(t, res.Success, "key %s", key)
		assert.Equal(t, "tok-"+key, res.IDs.Bid)
		f.Close()
	}
}

func TestVerifyOTPNoSession(t *testing.T) {
	fv := newFakeVendor(t)
	f := NewFlow(fv.config())
	defer f.Close()

	res := f.VerifyOTP(context.Background(), "123456")
	assert.False(t, res.Success)
	assert.Equal(t, ErrNoSession, res.Error)
	assert.Zero(t, fv.count(verifyPath))
}

func TestVerifyOTPLooseBoolean(t *testing.T) {
	cases := []struct {
		verify any
		want   bool
	}{
		{true, true},
		{"true", true},
		{"True", true},
		{false, false},
		{"false", false},
	}
	for _, tc := range cases {
		fv := newFakeVendor(t)
		hotelLoginOK(fv, "XYZ")
		v := tc.verify
		fv.handle(verifyPath, func(map[string]any) any {
			return map[string]any{"isVerify": v}
		})

		f := NewFlow(fv.config())
		require.True(t, f.GuestLogin(context.Background(), "EMT1", "a@b.com").Success)
		res := f.VerifyOTP(context.Background(), "123456")
		assert.Equal(t, tc.want, res.Success, "isVerify=%v", tc.verify)
		if !tc.want {
			assert.Equal(t, ErrOTPInvalid, res.Error)
		}
		f.Close()
	}
}

func TestSendOTPRefreshOnCredentialChange(t *testing.T) {
	fv := newFakeVendor(t)
	hotelLoginOK(fv, "FRESH")
	fv.handle(hotelOTPPath, func(map[string]any) any {
		return map[string]any{"isStatus": true, "Msg": "OTP sent"}
	})

	f := NewFlow(fv.config())
	defer f.Close()

	require.True(t, f.GuestLogin(context.Background(), "EMT1", "a@b.com").Success)
	require.Equal(t, 1, fv.count(loginPath))

	// Different booking id: cached bid is stale, a fresh login plus a
	// discarded details fetch must precede the OTP call.
	res := f.SendCancellationOTP(context.Background(), "EMT2", "a@b.com")
	require.True(t, res.Success)
	assert.Equal(t, 2, fv.count(loginPath))
	assert.Equal(t, 1, fv.count(hotelDetailsPath))
	assert.Equal(t, 1, fv.count(hotelOTPPath))
}

func TestSendOTPReusesCachedSession(t *testing.T) {
	fv := newFakeVendor(t)
	hotelLoginOK(fv, "XYZ")
	fv.handle(hotelOTPPath, func(map[string]any) any {
		return map[string]any{"isStatus": true}
	})

	f := NewFlow(fv.config())
	defer f.Close()

	require.True(t, f.GuestLogin(context.Background(), "EMT1", "a@b.com").Success)

	for i := 0; i < 2; i++ {
		res := f.SendCancellationOTP(context.Background(), "EMT1", "a@b.com")
		require.True(t, res.Success)
		assert.Equal(t, "XYZ", res.Bid)
	}
	assert.Equal(t, 1, fv.count(loginPath))
	assert.Zero(t, fv.count(hotelDetailsPath))
	assert.Equal(t, 2, fv.count(hotelOTPPath))
}

func TestOTPOutcomeLeniency(t *testing.T) {
	// isStatus false with no message and no error signal still passes.
	ok, msg := otpOutcome(emt.DocumentFrom(map[string]any{"isStatus": false, "Msg": nil}))
	assert.True(t, ok)
	assert.Equal(t, "OTP sent successfully", msg)

	// An error-indicating message flips the outcome.
	ok, msg = otpOutcome(emt.DocumentFrom(map[string]any{"isStatus": false, "Msg": "OTP expired"}))
	assert.False(t, ok)
	assert.Equal(t, "OTP expired", msg)

	// The literal "Failed" is the one bare message treated as failure.
	ok, _ = otpOutcome(emt.DocumentFrom(map[string]any{"isStatus": false, "Msg": "Failed"}))
	assert.False(t, ok)

	// Explicit Error field wins over a benign message.
	ok, _ = otpOutcome(emt.DocumentFrom(map[string]any{"isStatus": false, "Error": "boom", "Msg": "done"}))
	assert.False(t, ok)

	// isStatus true overrides everything.
	ok, _ = otpOutcome(emt.DocumentFrom(map[string]any{"isStatus": true, "Msg": "error-ish text"}))
	assert.True(t, ok)
}

func TestCancelOutcomeStringResponse(t *testing.T) {
	ok, msg, refund := cancelOutcome(emt.ParseDocument([]byte(`"Booking cancelled successfully"`)))
	assert.True(t, ok)
	assert.Equal(t, "Booking cancelled successfully", msg)
	assert.Nil(t, refund)

	ok, _, _ = cancelOutcome(emt.ParseDocument([]byte(`"Something went wrong"`)))
	assert.False(t, ok)
}

func TestCancelOutcomeObjectResponse(t *testing.T) {
	ok, msg, refund := cancelOutcome(emt.DocumentFrom(map[string]any{
		"Status":     true,
		"LogMessage": "Cancellation accepted",
		"Data":       map[string]any{"Text": "Refund in 7 days"},
	}))
	assert.True(t, ok)
	assert.Equal(t, "Cancellation accepted - Refund in 7 days", msg)
	assert.Nil(t, refund)

	_, _, refund = cancelOutcome(emt.DocumentFrom(map[string]any{
		"isStatus":            true,
		"RefundAmount":        float64(4500),
		"CancellationCharges": float64(500),
		"RefundMode":          "Original payment method",
	}))
	require.NotNil(t, refund)
	assert.Equal(t, "4500", refund.RefundAmount)
	assert.Equal(t, "500", refund.CancellationCharges)

	_, _, refund = cancelOutcome(emt.DocumentFrom(map[string]any{
		"Status": true,
		"Data":   map[string]any{"charge": float64(300), "currency": "INR"},
	}))
	require.NotNil(t, refund)
	assert.Equal(t, "300", refund.CancellationCharges)
	assert.Equal(t, "INR", refund.RefundMode)
}

func TestRequestCancellationFailure(t *testing.T) {
	fv := newFakeVendor(t)
	hotelLoginOK(fv, "XYZ")
	fv.handle(hotelCancelPath, func(map[string]any) any {
		return map[string]any{"Status": false, "LogMessage": "OTP mismatch"}
	})

	f := NewFlow(fv.config())
	defer f.Close()

	require.True(t, f.GuestLogin(context.Background(), "EMT1", "a@b.com").Success)
	res := f.RequestCancellation(context.Background(), CancelParams{
		BookingID: "EMT1", Email: "a@b.com", OTP: "000000",
		RoomID: "R1", TransactionID: "162471800",
	})
	assert.False(t, res.Success)
	assert.Equal(t, ErrCancellationFailed, res.Error)
	assert.Equal(t, "OTP mismatch", res.Message)
}

func TestKindFromLabel(t *testing.T) {
	assert.Equal(t, KindTrain, KindFromLabel("Train"))
	assert.Equal(t, KindBus, KindFromLabel(" bus "))
	assert.Equal(t, KindFlight, KindFromLabel("FLIGHT"))
	assert.Equal(t, KindHotel, KindFromLabel("Hotel"))
	assert.Equal(t, KindHotel, KindFromLabel("something-new"))
	assert.Equal(t, KindHotel, KindFromLabel(""))
}
