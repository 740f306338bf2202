package cancellation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// BusPassenger is one passenger on a bus booking.
type BusPassenger struct {
	Title              string `json:"title,omitempty"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	Gender             string `json:"gender,omitempty"`
	Age                string `json:"age,omitempty"`
	SeatNo             string `json:"seat_no,omitempty"`
	Fare               string `json:"fare,omitempty"`
	Status             string `json:"status,omitempty"`
	IsCancelled        bool   `json:"is_cancelled"`
	IsCancelReq        bool   `json:"is_cancel_req"`
	JourneyStatus      string `json:"journey_status,omitempty"`
	RefundAmount       string `json:"refund_amount,omitempty"`
	CancellationCharge string `json:"cancellation_charge,omitempty"`
	TotalFare          string `json:"total_fare,omitempty"`
	BaseFare           string `json:"base_fare,omitempty"`
}

// BusInfo is ticket-level detail for a bus booking.
type BusInfo struct {
	TransactionID          string `json:"transaction_id,omitempty"`
	TicketNo               string `json:"ticket_no,omitempty"`
	TicketStatus           string `json:"ticket_status,omitempty"`
	Source                 string `json:"source,omitempty"`
	Destination            string `json:"destination,omitempty"`
	DepartureTime          string `json:"departure_time,omitempty"`
	DateOfJourney          string `json:"date_of_journey,omitempty"`
	BusType                string `json:"bus_type,omitempty"`
	NumPassengers          string `json:"num_passengers,omitempty"`
	TravelsOperator        string `json:"travels_operator,omitempty"`
	BPLocation             string `json:"bp_location,omitempty"`
	BPTime                 string `json:"bp_time,omitempty"`
	BusDuration            string `json:"bus_duration,omitempty"`
	ArrivalTime            string `json:"arrival_time,omitempty"`
	ArrivalDate            string `json:"arrival_date,omitempty"`
	TotalFare              string `json:"total_fare,omitempty"`
	TotalBaseFare          string `json:"total_base_fare,omitempty"`
	TotalTax               string `json:"total_tax,omitempty"`
	RefundAmount           string `json:"refund_amount,omitempty"`
	CancellationCharge     string `json:"cancellation_charge,omitempty"`
	CancellationPolicy     string `json:"cancellation_policy,omitempty"`
	CancellationPolicyHTML string `json:"cancellation_policy_html,omitempty"`
	BookingDate            string `json:"booking_date,omitempty"`
}

// BusPriceInfo is fare detail for a bus booking.
type BusPriceInfo struct {
	TotalFare    string `json:"total_fare,omitempty"`
	BaseFare     string `json:"base_fare,omitempty"`
	Tax          string `json:"tax,omitempty"`
	RefundAmount string `json:"refund_amount,omitempty"`
	CardDiscount string `json:"card_discount,omitempty"`
}

// BusDetailsResult is the outcome of FetchBusDetails.
type BusDetailsResult struct {
	Success      bool           `json:"success"`
	Passengers   []BusPassenger `json:"passengers"`
	BusInfo      BusInfo        `json:"bus_info"`
	PriceInfo    BusPriceInfo   `json:"price_info"`
	TicketNo     string         `json:"ticket_no,omitempty"`
	AllCancelled bool           `json:"all_cancelled"`
	Error        string         `json:"error,omitempty"`
	Raw          emt.Document   `json:"raw_response"`
}

var busCancelledStatuses = map[string]bool{
	"cancelled": true,
	"cancel":    true,
}

// FetchBusDetails retrieves bus booking details. The cancellation policy is
// kept both stripped and in the vendor's original markup.
func (f *Flow) FetchBusDetails(ctx context.Context, bid string) BusDetailsResult {
	doc, err := f.client.BusBookingDetails(ctx, bid)
	if err != nil {
		slog.Error("cancellation: fetch bus details failed", "error", err)
		return BusDetailsResult{Passengers: []BusPassenger{}, Error: err.Error()}
	}

	detail := doc.Child("BusbookingDetail")

	passengers := []BusPassenger{}
	for _, pax := range doc.List("BuspaxDetail") {
		status := pax.Str("Status")
		passengers = append(passengers, BusPassenger{
			Title:              pax.Str("Title"),
			FirstName:          pax.Str("FirstName"),
			LastName:           pax.Str("LastName"),
			Gender:             pax.Str("Gender"),
			Age:                pax.Str("Age"),
			SeatNo:             pax.Str("SeatNo"),
			Fare:               pax.Str("Fare"),
			Status:             status,
			IsCancelled:        busCancelledStatuses[strings.ToLower(strings.TrimSpace(status))],
			IsCancelReq:        pax.Bool("IsCancelReq"),
			JourneyStatus:      pax.Str("JourneyStatus"),
			RefundAmount:       pax.Str("RefundAmount"),
			CancellationCharge: pax.Str("CancellationCharge"),
			TotalFare:          pax.Str("Totalfare"),
			BaseFare:           pax.Str("BaseFare"),
		})
	}

	policyHTML := detail.Str("BusCancellationPolicy")
	busInfo := BusInfo{
		TransactionID:          detail.Str("TransactionId"),
		TicketNo:               detail.Str("TicketNo"),
		TicketStatus:           detail.Str("TicketStatus"),
		Source:                 detail.Str("Source"),
		Destination:            detail.Str("Destination"),
		DepartureTime:          detail.Str("DepartureTime"),
		DateOfJourney:          detail.Str("DateOfJourney"),
		BusType:                detail.Str("BusType"),
		NumPassengers:          detail.Str("NoOfPassenger"),
		TravelsOperator:        detail.Str("TravelsOperator"),
		BPLocation:             detail.Str("BPLocation"),
		BPTime:                 detail.Str("BPTime"),
		BusDuration:            detail.Str("BusDuration"),
		ArrivalTime:            detail.Str("ArrivalTime"),
		ArrivalDate:            detail.Str("ArrivalDate"),
		TotalFare:              detail.Str("TotalFare"),
		TotalBaseFare:          detail.Str("TotalBaseFare"),
		TotalTax:               detail.Str("TotalTax"),
		RefundAmount:           detail.Str("RefundAmount"),
		CancellationCharge:     detail.Str("CancellationCharge"),
		CancellationPolicy:     StripHTML(policyHTML),
		CancellationPolicyHTML: policyHTML,
		BookingDate:            detail.Str("Bookingdate"),
	}

	priceInfo := BusPriceInfo{
		TotalFare:    detail.Str("TotalFare"),
		BaseFare:     detail.Str("TotalBaseFare"),
		Tax:          detail.Str("TotalTax"),
		RefundAmount: detail.Str("RefundAmount"),
		CardDiscount: detail.Str("CardDiscount"),
	}

	allCancelled := len(passengers) > 0
	for _, p := range passengers {
		if !p.IsCancelled {
			allCancelled = false
			break
		}
	}

	return BusDetailsResult{
		Success:      true,
		Passengers:   passengers,
		BusInfo:      busInfo,
		PriceInfo:    priceInfo,
		TicketNo:     detail.Str("TicketNo"),
		AllCancelled: allCancelled,
		Raw:          doc,
	}
}

// SendBusCancellationOTP dispatches the bus cancellation OTP. Bus uses the
// bid as the screen id like hotel, but succeeds strictly on isStatus.
func (f *Flow) SendBusCancellationOTP(ctx context.Context, bookingID, email string) OTPResult {
	if f.bid == "" {
		return OTPResult{
			Success: false,
			Message: "No bid found. Please login first.",
			Error:   ErrNoSession,
		}
	}

	doc, err := f.client.BusCancellationOTP(ctx, f.bid)
	if err != nil {
		slog.Error("cancellation: send bus otp failed", "error", err)
		return OTPResult{
			Success: false,
			Message: "Failed to send bus cancellation OTP",
			Error:   err.Error(),
		}
	}

	success := doc.Bool("isStatus")
	res := OTPResult{Success: success, Message: doc.Str("Msg", "Message"), Raw: doc}
	if !success {
		res.Error = ErrOTPSendFailed
	}
	return res
}

// BusCancelParams carries the bus cancellation submission inputs. Seats is
// the vendor's comma-separated seat selector.
type BusCancelParams struct {
	BookingID     string
	Email         string
	OTP           string
	Seats         string
	TransactionID string
	Reason        string
	Remark        string
}

// RequestBusCancellation submits the bus cancellation. Refund detail comes
// from the response's Data block rather than the top-level fields the other
// kinds use.
func (f *Flow) RequestBusCancellation(ctx context.Context, p BusCancelParams) CancelResult {
	if f.bid == "" {
		return CancelResult{
			Success: false,
			Message: "No bid found. Please login first.",
			Error:   ErrNoSession,
		}
	}

	doc, err := f.client.BusCancel(ctx, emt.BusCancelParams{
		Bid:           f.bid,
		OTP:           p.OTP,
		Seats:         p.Seats,
		TransactionID: p.TransactionID,
		Reason:        p.Reason,
		Remark:        p.Remark,
	})
	if err != nil {
		slog.Error("cancellation: bus cancellation failed", "error", err)
		return CancelResult{
			Success: false,
			Message: "Bus cancellation request failed",
			Error:   err.Error(),
		}
	}

	var success bool
	var msg string
	var refund *RefundInfo
	if doc.IsString() {
		lower := strings.ToLower(doc.Raw())
		success = strings.Contains(lower, "success") || strings.Contains(lower, "cancel")
		msg = doc.Raw()
	} else {
		success = doc.Bool("Status") || doc.Bool("isStatus")
		msg = doc.Str("Message", "Msg")
		if data := doc.Child("Data"); !data.Empty() {
			refund = &RefundInfo{
				RefundAmount:        data.Str("refundAmount"),
				CancellationCharges: data.Str("cancellationCharges"),
				CancelStatus:        data.Str("cancelStatus"),
				IsRefunded:          data.Bool("isRefunded"),
				PnrNo:               data.Str("PNRNo"),
				CancelSeatNo:        data.Str("cancelSeatNo"),
				Remarks:             data.Str("Remarks"),
			}
		}
	}

	res := CancelResult{Success: success, Message: msg, Refund: refund, Raw: doc}
	if !success {
		if res.Message == "" {
			res.Message = "Bus cancellation request failed"
		}
		res.Error = ErrCancellationFailed
	}
	return res
}
