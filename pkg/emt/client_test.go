package emt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.applyDefaults()
	assert.Equal(t, "https://mybookings.easemytrip.com", cfg.MyBookingsURL)
	assert.NotEmpty(t, cfg.FlightServiceURL)
	assert.NotEmpty(t, cfg.FlightAppServiceURL)

	custom := Config{MyBookingsURL: "http://localhost:9999"}.applyDefaults()
	assert.Equal(t, "http://localhost:9999", custom.MyBookingsURL)
}

func TestClientRetainsCookies(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("ASP.NET_SessionId"); err == nil {
			gotCookie = c.Value
		}
		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "sess-1"})
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{MyBookingsURL: srv.URL})
	defer c.Close()
	ctx := context.Background()

	_, err := c.PostJSON(ctx, srv.URL+"/first", nil)
	require.NoError(t, err)
	assert.Empty(t, gotCookie)

	// The vendor's server-side session rides on this cookie; it must come
	// back on the next call without re-authenticating.
	_, err = c.PostJSON(ctx, srv.URL+"/second", nil)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", gotCookie)
}

func TestClientNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{MyBookingsURL: srv.URL})
	defer c.Close()

	_, err := c.PostJSON(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClientNoContentIsEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(Config{MyBookingsURL: srv.URL})
	defer c.Close()

	doc, err := c.PostJSON(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.True(t, doc.Empty())
}

func TestGuestLoginPayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"Ids":{"bid":"XYZ"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{MyBookingsURL: srv.URL})
	defer c.Close()

	doc, err := c.GuestLogin(context.Background(), "EMT1624718", "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", doc.Child("Ids").Str("bid"))
	assert.Equal(t, "EMT1624718", body["BetId"])
	assert.Equal(t, "a@b.com", body["Emailid"])
}

func TestHotelRequestCancellationPayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"Status":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{MyBookingsURL: srv.URL})
	defer c.Close()

	_, err := c.HotelRequestCancellation(context.Background(), HotelCancelParams{
		Bid:           "XYZ",
		OTP:           "123456",
		TransactionID: "162471800",
		IsPayAtHotel:  true,
	})
	require.NoError(t, err)

	// The endpoint wants the literal "undefined" for RoomId and string
	// booleans, both vendor quirks.
	assert.Equal(t, "undefined", body["RoomId"])
	assert.Equal(t, "true", body["IsPayHotel"])
	assert.Equal(t, "Change of plans", body["Reason"])
	assert.Equal(t, "XYZ", body["Bid"])
}

func TestTrainCancelCheckedArray(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"Status":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{MyBookingsURL: srv.URL})
	defer c.Close()

	_, err := c.TrainCancel(context.Background(), TrainCancelParams{
		ScreenID:      "SCR",
		OTP:           "123456",
		ReservationID: "RSV",
		PnrNumber:     "8812345678",
		PaxIDs:        []string{"P1", "P3"},
		AllPaxIDs:     []string{"P1", "P2", "P3"},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"Y", "N", "Y"}, body["ArycheckedValue"])
	assert.Equal(t, float64(3), body["totalPassenger"])
	assert.Equal(t, "SCR", body["bid"])
}

func TestFlightAuthHeader(t *testing.T) {
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("auth")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{FlightServiceURL: srv.URL, MyBookingsURL: srv.URL, FlightAppServiceURL: srv.URL})
	defer c.Close()

	_, err := c.FlightBookingDetails(context.Background(), "XYZ", "EMT1", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", authHeader)
}
