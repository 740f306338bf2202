package emt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const (
	// defaultMyBookingsURL is the booking-management host for guest flows.
	defaultMyBookingsURL = "https://mybookings.easemytrip.com"

	// defaultFlightServiceURL hosts flight detail and cancellation endpoints.
	defaultFlightServiceURL = "https://emtservice-ln.easemytrip.com"

	// defaultFlightAppServiceURL hosts the flight OTP dispatch endpoint.
	defaultFlightAppServiceURL = "http://emtservice.easemytrip.com"

	// dialTimeout is the fast-fail connect budget.
	dialTimeout = 10 * time.Second

	// requestTimeout covers the full round trip; cancellation confirmations
	// on the vendor side are slow.
	requestTimeout = 60 * time.Second

	// responseHeaderTimeout bounds the wait for response headers.
	responseHeaderTimeout = 30 * time.Second
)

// Config holds vendor endpoint configuration.
type Config struct {
	MyBookingsURL       string `yaml:"mybookings_url"`
	FlightServiceURL    string `yaml:"flight_service_url"`
	FlightAppServiceURL string `yaml:"flight_app_service_url"`
}

// applyDefaults fills unset endpoints with the production hosts.
func (c Config) applyDefaults() Config {
	if c.MyBookingsURL == "" {
		c.MyBookingsURL = defaultMyBookingsURL
	}
	if c.FlightServiceURL == "" {
		c.FlightServiceURL = defaultFlightServiceURL
	}
	if c.FlightAppServiceURL == "" {
		c.FlightAppServiceURL = defaultFlightAppServiceURL
	}
	return c
}

// Client is a long-lived HTTP client for the vendor's booking-management
// APIs. It retains cookies across calls: the vendor tracks its server-side
// guest session in cookies, and the bid token issued at login is only valid
// together with the cookies from the same login. One Client per cancellation
// flow; must be closed to release the connection pool.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client with a fresh cookie jar and differentiated
// timeouts (fast-fail connect, long read for slow cancellation responses).
func NewClient(cfg Config) *Client {
	jar, _ := cookiejar.New(nil)

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: dialTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}

	return &Client{
		cfg: cfg.applyDefaults(),
		http: &http.Client{
			Jar:       jar,
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// Close releases idle connections held by the transport.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// PostJSON sends a JSON POST and parses the response body into a Document.
// Non-2xx statuses return an error; a 204 or empty body parses as an empty
// Document.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) (Document, error) {
	return c.post(ctx, url, payload, nil)
}

func (c *Client) post(ctx context.Context, url string, payload any, extraHeaders map[string]string) (Document, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Document{}, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Document{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("calling %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("emt: vendor returned non-2xx", "url", url, "status", resp.StatusCode)
		return Document{}, fmt.Errorf("calling %s: unexpected status %d", url, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusNoContent {
		return Document{}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("reading response from %s: %w", url, err)
	}

	return ParseDocument(data), nil
}

// GuestLogin performs step 1 of the guest flow: login with booking id + email.
func (c *Client) GuestLogin(ctx context.Context, bookingID, email string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Mybooking/LoginGuestUser?app=null"
	return c.PostJSON(ctx, url, map[string]any{
		"BetId":   bookingID,
		"Emailid": email,
	})
}

// VerifyGuestLoginOTP verifies the OTP sent at guest login.
func (c *Client) VerifyGuestLoginOTP(ctx context.Context, bid, otp, transactionType string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Mybooking/VerifyGuestLoginOtp"
	return c.PostJSON(ctx, url, map[string]any{
		"BetId":           bid,
		"otp":             otp,
		"transactionType": transactionType,
	})
}

// HotelBookingDetails fetches hotel booking details for a bid token.
func (c *Client) HotelBookingDetails(ctx context.Context, bid string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Hotels/BookingDetails"
	return c.PostJSON(ctx, url, map[string]any{
		"bid":             bid,
		"whiteListedCode": "EMT",
	})
}

// HotelCancellationOTP requests a cancellation OTP. The screen id parameter
// here is the bid token, not the transaction screen id from login.
func (c *Client) HotelCancellationOTP(ctx context.Context, screenID string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Hotels/CancellationOtp"
	return c.PostJSON(ctx, url, map[string]any{
		"EmtScreenID": screenID,
	})
}

// HotelCancelParams carries the hotel cancellation submission fields.
type HotelCancelParams struct {
	Bid           string
	OTP           string
	TransactionID string
	IsPayAtHotel  bool
	PaymentURL    string
	Reason        string
	Remark        string
}

// HotelRequestCancellation submits the hotel cancellation.
func (c *Client) HotelRequestCancellation(ctx context.Context, p HotelCancelParams) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Hotels/RequestCancellation"
	reason := p.Reason
	if reason == "" {
		reason = "Change of plans"
	}
	isPay := "false"
	if p.IsPayAtHotel {
		isPay = "true"
	}
	return c.PostJSON(ctx, url, map[string]any{
		"Remark": p.Remark,
		"Reason": reason,
		"OTP":    p.OTP,
		// The endpoint expects the literal string "undefined" here; the room
		// is identified by TransactionId instead.
		"RoomId":          "undefined",
		"TransactionId":   p.TransactionID,
		"IsPayHotel":      isPay,
		"PaymentUrl":      p.PaymentURL,
		"ApplicationType": "false",
		"Bid":             p.Bid,
	})
}

// TrainBookingDetails fetches train booking details for a bid token.
func (c *Client) TrainBookingDetails(ctx context.Context, bid string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Train/BookingDetail/"
	return c.PostJSON(ctx, url, map[string]any{"bid": bid})
}

// TrainCancellationOTP requests a train cancellation OTP. The screen id is
// the ID field from the first passenger record, not the bid.
func (c *Client) TrainCancellationOTP(ctx context.Context, screenID string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Train/CancellationOtp/"
	return c.PostJSON(ctx, url, map[string]any{"EmtScreenID": screenID})
}

// TrainCancelParams carries the train cancellation submission fields.
type TrainCancelParams struct {
	ScreenID      string
	OTP           string
	ReservationID string
	PnrNumber     string
	PaxIDs        []string
	AllPaxIDs     []string
}

// TrainCancel submits a train cancellation. Per-passenger inclusion is
// encoded as a Y/N array aligned to the full passenger id list.
func (c *Client) TrainCancel(ctx context.Context, p TrainCancelParams) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Train/CancelTrain"

	selected := make(map[string]bool, len(p.PaxIDs))
	for _, id := range p.PaxIDs {
		selected[id] = true
	}
	checked := make([]string, len(p.AllPaxIDs))
	for i, id := range p.AllPaxIDs {
		if selected[id] {
			checked[i] = "Y"
		} else {
			checked[i] = "N"
		}
	}

	return c.PostJSON(ctx, url, map[string]any{
		"ArycheckedValue": checked,
		"id":              "",
		"_reservationId":  p.ReservationID,
		"_PaxID":          p.PaxIDs,
		"totalPassenger":  len(p.AllPaxIDs),
		"PnrNumber":       p.PnrNumber,
		"OTP":             p.OTP,
		"bid":             p.ScreenID,
	})
}

// BusBookingDetails fetches bus booking details for a bid token.
func (c *Client) BusBookingDetails(ctx context.Context, bid string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Bus/BookingDetails/"
	return c.PostJSON(ctx, url, map[string]any{"bid": bid})
}

// BusCancellationOTP requests a bus cancellation OTP; bus uses the bid as
// screen id like hotel.
func (c *Client) BusCancellationOTP(ctx context.Context, screenID string) (Document, error) {
	url := c.cfg.MyBookingsURL + "/Bus/CancellationOtp/"
	return c.PostJSON(ctx, url, map[string]any{"EmtScreenID": screenID})
}

// BusCancelParams carries the bus cancellation submission fields.
type BusCancelParams struct {
	Bid           string
	OTP           string
	Seats         string
	TransactionID string
	Reason        string
	Remark        string
}

// BusCancel submits a bus cancellation.
func (c *Client) BusCancel(ctx context.Context, p BusCancelParams) (Document, error) {
	url := c.cfg.MyBookingsURL + "/bus/RequestCancellation/"
	return c.PostJSON(ctx, url, map[string]any{
		"Remark":        p.Remark,
		"Reason":        p.Reason,
		"OTP":           p.OTP,
		"Seats":         p.Seats,
		"TransactionId": p.TransactionID,
		"Bid":           p.Bid,
	})
}

// FlightBookingDetails fetches flight booking details. Flight endpoints live
// on a different host and authenticate via an email header plus a static
// credential envelope.
func (c *Client) FlightBookingDetails(ctx context.Context, bid, transactionScreenID, email string) (Document, error) {
	url := c.cfg.FlightServiceURL + "/api/Flight/GetFlightDetails"
	payload := map[string]any{
		"emailId":             email,
		"authentication":      map[string]any{"userName": "EMT", "password": "123"},
		"bid":                 bid,
		"transactionScreenId": transactionScreenID,
	}
	return c.post(ctx, url, payload, flightHeaders(email))
}

// FlightCancellationOTP dispatches a flight cancellation OTP.
func (c *Client) FlightCancellationOTP(ctx context.Context, transactionID, transactionScreenID, email string) (Document, error) {
	url := c.cfg.FlightAppServiceURL + "/emtapp.svc/SendOtpOnCancellation"
	payload := map[string]any{
		"Authentication":     map[string]any{"Password": "123", "UserName": "emt"},
		"TransctionId":       transactionID,
		"TransctionScreenId": transactionScreenID,
		"EmailID":            email,
	}
	return c.post(ctx, url, payload, flightHeaders(email))
}

// FlightCancelParams carries the flight cancellation submission fields.
type FlightCancelParams struct {
	TransactionScreenID string
	Email               string
	OTP                 string
	OutboundPaxIDs      string
	InboundPaxIDs       string
	Mode                string
	IsPartialCancel     bool
}

// FlightCancel submits a flight cancellation.
func (c *Client) FlightCancel(ctx context.Context, p FlightCancelParams) (Document, error) {
	url := c.cfg.FlightServiceURL + "/api/Flight/FlightCancellation"
	mode := p.Mode
	if mode == "" {
		mode = "1"
	}
	isPartial := "false"
	if p.IsPartialCancel {
		isPartial = "true"
	}
	payload := map[string]any{
		"Authentication": map[string]any{
			"IpAddress": "::1",
			"Password":  "123",
			"UserName":  "EMT",
		},
		"TransactionScreenId": p.TransactionScreenID,
		"mode":                mode,
		"EmailId":             p.Email,
		"VerfyOTP":            p.OTP,
		"inBoundPaxIds":       p.InboundPaxIDs,
		"isPartialCancel":     isPartial,
		"outBoundPaxIds":      p.OutboundPaxIDs,
	}
	return c.post(ctx, url, payload, flightHeaders(p.Email))
}

func flightHeaders(email string) map[string]string {
	if email == "" {
		return nil
	}
	return map[string]string{"auth": email}
}
