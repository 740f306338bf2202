package cancellation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	flightDetailsPath = "/api/Flight/GetFlightDetails"
	flightOTPPath     = "/emtapp.svc/SendOtpOnCancellation"
	flightCancelPath  = "/api/Flight/FlightCancellation"
)

func flightDetailsOK(fv *fakeVendor) {
	fv.handle(flightDetailsPath, func(map[string]any) any {
		return map[string]any{
			"TripStatus": "Booked",
			"PassengerDetails": map[string]any{
				"FlightPriceDetails": map[string]any{
					"TransactionId": float64(162759795),
					"TotalFare":     float64(10400),
				},
				"fltDetails": map[string]any{
					"transactionScreenId": "EMT162759795",
				},
				"FlightDetail": []any{map[string]any{
					"AirLineName": "IndiGo", "FlightNumber": "6E-123",
					"DepartureCityCode": "DEL", "ArrivalCityCode": "BOM",
				}},
				"PNRList": map[string]any{"Airlinepnr": "ABC123", "Gdspnr": "XYZ789"},
			},
			"bookedPassanger": map[string]any{
				"outbond": map[string]any{
					"outBondTypePass": []any{
						map[string]any{"paxId": float64(1), "firstName": "Ravi",
							"isCancellable": "true", "paxstatus": "Booked"},
						map[string]any{"paxId": float64(2), "firstName": "Asha",
							"isCancellable": "true", "paxstatus": "Booked"},
					},
				},
			},
		}
	})
}

func TestFetchFlightDetails(t *testing.T) {
	fv := newFakeVendor(t)
	hotelLoginOK(fv, "XYZ")
	flightDetailsOK(fv)

	f := NewFlow(fv.config())
	defer f.Close()

	require.True(t, f.GuestLogin(context.Background(), "EMT162759795", "a@b.com").Success)
	res := f.FetchFlightDetails(context.Background(), "XYZ")
	require.True(t, res.Success)

	assert.Equal(t, "162759795", res.TransactionID)
	assert.Equal(t, "EMT162759795", res.TransactionScreenID)
	assert.Equal(t, "162759795", f.flightTransactionID)
	assert.Equal(t, "EMT162759795", f.flightScreenID)

	require.Len(t, res.OutboundPassengers, 2)
	assert.True(t, res.OutboundPassengers[0].IsCancellable)
	assert.False(t, res.OutboundPassengers[0].IsCancelled)
	assert.Empty(t, res.InboundPassengers)
	assert.Equal(t, 2, res.TotalCancellable)
	assert.False(t, res.AllCancelled)

	require.Len(t, res.FlightSegments, 1)
	assert.Equal(t, "IndiGo", res.FlightSegments[0].AirlineName)
	assert.Equal(t, "DEL", res.FlightSegments[0].Origin)

	require.Len(t, res.PNRInfo, 1)
	assert.Equal(t, "ABC123", res.PNRInfo[0].AirlinePNR)
	assert.Equal(t, "Booked", res.TripStatus)
}

func TestFetchFlightDetailsGroupedFallback(t *testing.T) {
	fv := newFakeVendor(t)
	fv.handle(flightDetailsPath, func(map[string]any) any {
		return map[string]any{
			"PassengerDetails": map[string]any{
				"fltDetails": map[string]any{
					"transactionScreenId": "EMT1",
					"lstOutbond": []any{map[string]any{
						"bookedPaxs": []any{
							map[string]any{"paxId": float64(7), "firstName": "Ravi",
								"isCancellable": "true", "paxstatus": "Cancelled"},
						},
					}},
				},
			},
		}
	})

	f := NewFlow(fv.config())
	defer f.Close()

	res := f.FetchFlightDetails(context.Background(), "XYZ")
	require.True(t, res.Success)
	require.Len(t, res.OutboundPassengers, 1)
	assert.Equal(t, "7", res.OutboundPassengers[0].PaxID)
	assert.True(t, res.OutboundPassengers[0].IsCancelled)
	assert.True(t, res.AllCancelled)
}

func TestSendFlightOTPRequiresTransactionID(t *testing.T) {
	fv := newFakeVendor(t)
	f := NewFlow(fv.config())
	defer f.Close()

	res := f.SendFlightCancellationOTP(context.Background(), "EMT1", "a@b.com")
	assert.False(t, res.Success)
	assert.Equal(t, ErrNoTransactionID, res.Error)
	assert.Zero(t, fv.count(flightOTPPath))
}

func TestRequestFlightCancellationPartialFlag(t *testing.T) {
	fv := newFakeVendor(t)
	hotelLoginOK(fv, "XYZ")
	flightDetailsOK(fv)

	var captured map[string]any
	fv.handle(flightCancelPath, func(body map[string]any) any {
		captured = body
		return map[string]any{"isRequested": true, "RequestId": "REQ-1"}
	})

	f := NewFlow(fv.config())
	defer f.Close()

	require.True(t, f.GuestLogin(context.Background(), "EMT162759795", "a@b.com").Success)
	require.True(t, f.FetchFlightDetails(context.Background(), "XYZ").Success)

	// One of two cancellable passengers selected: partial cancellation.
	res := f.RequestFlightCancellation(context.Background(), FlightCancelParams{
		BookingID: "EMT162759795", Email: "a@b.com", OTP: "123456",
		OutboundPaxIDs: "1",
	})
	require.True(t, res.Success)
	assert.Equal(t, "Cancellation request submitted (Request ID: REQ-1)", res.Message)

	require.NotNil(t, captured)
	assert.Equal(t, "true", captured["isPartialCancel"])

	// Selecting every cancellable passenger clears the flag, and pax id
	// lists go over the wire dash-joined.
	res = f.RequestFlightCancellation(context.Background(), FlightCancelParams{
		BookingID: "EMT162759795", Email: "a@b.com", OTP: "123456",
		OutboundPaxIDs: "1,2",
	})
	require.True(t, res.Success)
	assert.Equal(t, "false", captured["isPartialCancel"])
	assert.Equal(t, "1-2", captured["outBoundPaxIds"])
}

func TestRequestFlightCancellationRequiresScreenID(t *testing.T) {
	fv := newFakeVendor(t)
	f := NewFlow(fv.config())
	defer f.Close()

	res := f.RequestFlightCancellation(context.Background(), FlightCancelParams{
		BookingID: "EMT1", Email: "a@b.com", OTP: "123456",
	})
	assert.False(t, res.Success)
	assert.Equal(t, ErrNoTransactionID, res.Error)
}
