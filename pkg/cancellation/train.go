package cancellation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// TrainPassenger is one passenger on a train booking.
type TrainPassenger struct {
	PaxID         string `json:"pax_id"`
	Title         string `json:"title,omitempty"`
	Name          string `json:"name,omitempty"`
	Age           string `json:"age,omitempty"`
	Gender        string `json:"gender,omitempty"`
	PaxType       string `json:"pax_type,omitempty"`
	SeatNo        string `json:"seat_no,omitempty"`
	SeatType      string `json:"seat_type,omitempty"`
	CoachNumber   string `json:"coach_number,omitempty"`
	BookingStatus string `json:"booking_status,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
	IsCancelled   bool   `json:"is_cancelled"`
	PnrNumber     string `json:"pnr_number,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	CancelRequest string `json:"cancel_request,omitempty"`
}

// TrainInfo is journey-level detail for a train booking.
type TrainInfo struct {
	TrainName       string `json:"train_name,omitempty"`
	TrainNumber     string `json:"train_number,omitempty"`
	FromStation     string `json:"from_station,omitempty"`
	FromStationName string `json:"from_station_name,omitempty"`
	ToStation       string `json:"to_station,omitempty"`
	ToStationName   string `json:"to_station_name,omitempty"`
	DepartureDate   string `json:"departure_date,omitempty"`
	DepartureTime   string `json:"departure_time,omitempty"`
	ArrivalDate     string `json:"arrival_date,omitempty"`
	ArrivalTime     string `json:"arrival_time,omitempty"`
	BoardingStation string `json:"boarding_station,omitempty"`
	BoardingDate    string `json:"boarding_date,omitempty"`
	BoardingTime    string `json:"boarding_time,omitempty"`
	Duration        string `json:"duration,omitempty"`
	TravelClass     string `json:"travel_class,omitempty"`
	Quota           string `json:"quota,omitempty"`
	Distance        string `json:"distance,omitempty"`
	NumAdults       string `json:"num_adults,omitempty"`
	NumChildren     string `json:"num_children,omitempty"`
	NumInfants      string `json:"num_infants,omitempty"`
	ReservationID   string `json:"reservation_id,omitempty"`
	BookingDate     string `json:"booking_date,omitempty"`
}

// TrainPriceInfo is fare detail for a train booking.
type TrainPriceInfo struct {
	BaseFare               string `json:"base_fare,omitempty"`
	Tax                    string `json:"tax,omitempty"`
	TotalFare              string `json:"total_fare,omitempty"`
	InsuranceCharges       string `json:"insurance_charges,omitempty"`
	IsFreeCancellation     bool   `json:"is_free_cancellation"`
	FreeCancellationAmount string `json:"free_cancellation_amount,omitempty"`
}

// TrainCancelPriceInfo is the cancellation-charge breakdown.
type TrainCancelPriceInfo struct {
	TotalAmountPaid        string `json:"total_amount_paid,omitempty"`
	TotalFare              string `json:"total_fare,omitempty"`
	BaseFare               string `json:"base_fare,omitempty"`
	IRCTCCharges           string `json:"irctc_charges,omitempty"`
	IRCTCConvenienceFee    string `json:"irctc_convenience_fee,omitempty"`
	AgentServiceCharge     string `json:"agent_service_charge,omitempty"`
	ReservationCharge      string `json:"reservation_charge,omitempty"`
	SuperfastCharge        string `json:"superfast_charge,omitempty"`
	FreeCancellationAmount string `json:"free_cancellation_amount,omitempty"`
}

// TrainDetailsResult is the outcome of FetchTrainDetails.
type TrainDetailsResult struct {
	Success         bool                 `json:"success"`
	Passengers      []TrainPassenger     `json:"passengers"`
	TrainInfo       TrainInfo            `json:"train_info"`
	PriceInfo       TrainPriceInfo       `json:"price_info"`
	CancelPriceInfo TrainCancelPriceInfo `json:"cancel_price_info"`
	ReservationID   string               `json:"reservation_id,omitempty"`
	PnrNumber       string               `json:"pnr_number,omitempty"`
	EmtScreenID     string               `json:"emt_screen_id,omitempty"`
	BetID           string               `json:"bet_id,omitempty"`
	AllCancelled    bool                 `json:"all_cancelled"`
	Error           string               `json:"error,omitempty"`
	Raw             emt.Document         `json:"raw_response"`
}

// trainCancelledStatuses are the TicketCurrentStatus values that count as
// already cancelled.
var trainCancelledStatuses = map[string]bool{
	"cancelled": true,
	"can":       true,
	"refunded":  true,
}

// FetchTrainDetails retrieves train booking details. The first passenger's
// ID doubles as the EMT screen id for the train OTP and cancel calls and is
// cached on the flow.
func (f *Flow) FetchTrainDetails(ctx context.Context, bid string) TrainDetailsResult {
	doc, err := f.client.TrainBookingDetails(ctx, bid)
	if err != nil {
		slog.Error("cancellation: fetch train details failed", "error", err)
		return TrainDetailsResult{Passengers: []TrainPassenger{}, Error: err.Error()}
	}

	paxList := doc.List("PaxList")
	if len(paxList) > 0 {
		f.emtScreenID = paxList[0].Str("ID")
	}

	passengers := []TrainPassenger{}
	for _, pax := range paxList {
		current := pax.Str("TicketCurrentStatus")
		passengers = append(passengers, TrainPassenger{
			PaxID:         pax.Str("PaxId"),
			Title:         pax.Str("PaxTitle"),
			Name:          pax.Str("FirstName"),
			Age:           pax.Str("Age"),
			Gender:        pax.Str("Gender"),
			PaxType:       pax.Str("PaxType"),
			SeatNo:        pax.Str("SeatNo"),
			SeatType:      pax.Str("SeatType"),
			CoachNumber:   pax.Str("CoachNumber"),
			BookingStatus: pax.Str("BookingStatus"),
			CurrentStatus: current,
			IsCancelled:   trainCancelledStatuses[strings.ToLower(strings.TrimSpace(current))],
			PnrNumber:     pax.Str("PnrNumber"),
			TransactionID: pax.Str("TransactionId"),
			CancelRequest: pax.Str("CancelRequest"),
		})
	}

	details := doc.Child("TrainDetails")
	price := doc.Child("TrainPriceDetails")
	cancelPrice := doc.Child("TrainCancelPriceDetails")

	trainInfo := TrainInfo{
		TrainName:       details.Str("TrainName"),
		TrainNumber:     details.Str("TrainNumber"),
		FromStation:     details.Str("FromStation"),
		FromStationName: details.Str("FromStationName"),
		ToStation:       details.Str("ToStation"),
		ToStationName:   details.Str("ToStationName"),
		DepartureDate:   details.Str("DepartureDate"),
		DepartureTime:   details.Str("DepartureTime"),
		ArrivalDate:     details.Str("ArrivalDate"),
		ArrivalTime:     details.Str("ArrivalTime"),
		BoardingStation: details.Str("BoardingStation"),
		BoardingDate:    details.Str("BoardingDate"),
		BoardingTime:    details.Str("BoardingTime"),
		Duration:        details.Str("Duration"),
		TravelClass:     details.Str("Class"),
		Quota:           details.Str("Quota"),
		Distance:        details.Str("Distance"),
		NumAdults:       details.Str("NumberOfAdult"),
		NumChildren:     details.Str("NumberOfChild"),
		NumInfants:      details.Str("NumberOfInfant"),
		ReservationID:   details.Str("ReservationId"),
		BookingDate:     details.Str("BookingDate"),
	}

	priceInfo := TrainPriceInfo{
		BaseFare:               price.Str("BaseFare"),
		Tax:                    price.Str("Tax"),
		TotalFare:              price.Str("TotalFare"),
		InsuranceCharges:       price.Str("InsuranceCharges"),
		IsFreeCancellation:     price.Bool("IsFreeCancellation"),
		FreeCancellationAmount: price.Str("FreeCancellationAmount"),
	}

	cancelPriceInfo := TrainCancelPriceInfo{
		TotalAmountPaid:        cancelPrice.Str("TotalAmountPaid"),
		TotalFare:              cancelPrice.Str("TotalFare"),
		BaseFare:               cancelPrice.Str("BaseFare"),
		IRCTCCharges:           cancelPrice.Str("IRCTCCharges"),
		IRCTCConvenienceFee:    cancelPrice.Str("IRCTCConvenienceFee"),
		AgentServiceCharge:     cancelPrice.Str("AgentServiceCharge"),
		ReservationCharge:      cancelPrice.Str("ReservationCharge"),
		SuperfastCharge:        cancelPrice.Str("SuperfastCharge"),
		FreeCancellationAmount: cancelPrice.Str("FreeCancellationAmount"),
	}

	pnr := ""
	if len(paxList) > 0 {
		pnr = paxList[0].Str("PnrNumber")
	}

	allCancelled := len(passengers) > 0
	for _, p := range passengers {
		if !p.IsCancelled {
			allCancelled = false
			break
		}
	}

	return TrainDetailsResult{
		Success:         true,
		Passengers:      passengers,
		TrainInfo:       trainInfo,
		PriceInfo:       priceInfo,
		CancelPriceInfo: cancelPriceInfo,
		ReservationID:   details.Str("ReservationId"),
		PnrNumber:       pnr,
		EmtScreenID:     f.emtScreenID,
		BetID:           doc.Str("BetId"),
		AllCancelled:    allCancelled,
		Raw:             doc,
	}
}

// SendTrainCancellationOTP dispatches the train cancellation OTP using the
// EMT screen id learned from the details fetch.
func (f *Flow) SendTrainCancellationOTP(ctx context.Context, bookingID, email string) OTPResult {
	if f.emtScreenID == "" {
		return OTPResult{
			Success: false,
			Message: "No EMT Screen ID found. Please fetch booking details first.",
			Error:   ErrNoScreenID,
		}
	}

	doc, err := f.client.TrainCancellationOTP(ctx, f.emtScreenID)
	if err != nil {
		slog.Error("cancellation: send train otp failed", "error", err)
		return OTPResult{
			Success: false,
			Message: "Failed to send cancellation OTP: " + err.Error(),
			Error:   err.Error(),
		}
	}

	success, msg := otpOutcome(doc)
	res := OTPResult{Success: success, Message: msg, Raw: doc}
	if !success {
		slog.Error("cancellation: train otp send rejected", "message", msg)
		res.Error = ErrOTPSendFailed
	}
	return res
}

// TrainCancelParams carries the train cancellation submission inputs. PaxIDs
// selects the passengers to cancel; AllPaxIDs is the full passenger id list
// the selection is encoded against.
type TrainCancelParams struct {
	BookingID     string
	Email         string
	OTP           string
	PaxIDs        []string
	AllPaxIDs     []string
	ReservationID string
	PnrNumber     string
}

// RequestTrainCancellation submits the train cancellation.
func (f *Flow) RequestTrainCancellation(ctx context.Context, p TrainCancelParams) CancelResult {
	if f.emtScreenID == "" {
		return CancelResult{
			Success: false,
			Message: "No EMT Screen ID found. Please fetch booking details first.",
			Error:   ErrNoScreenID,
		}
	}

	doc, err := f.client.TrainCancel(ctx, emt.TrainCancelParams{
		ScreenID:      f.emtScreenID,
		OTP:           p.OTP,
		ReservationID: p.ReservationID,
		PnrNumber:     p.PnrNumber,
		PaxIDs:        p.PaxIDs,
		AllPaxIDs:     p.AllPaxIDs,
	})
	if err != nil {
		slog.Error("cancellation: train cancellation failed", "error", err)
		return CancelResult{
			Success: false,
			Message: "Train cancellation request failed",
			Error:   err.Error(),
		}
	}

	success, msg, refund := cancelOutcome(doc)
	res := CancelResult{Success: success, Message: msg, Refund: refund, Raw: doc}
	if !success {
		if res.Message == "" {
			res.Message = "Train cancellation request failed"
		}
		res.Error = ErrCancellationFailed
	}
	return res
}
