package cancellation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// Room is one cancellable room within a hotel booking.
type Room struct {
	RoomID               string `json:"room_id"`
	RoomType             string `json:"room_type,omitempty"`
	RoomNo               string `json:"room_no,omitempty"`
	TransactionID        string `json:"transaction_id,omitempty"`
	CancellationPolicy   string `json:"cancellation_policy,omitempty"`
	IsPayAtHotel         bool   `json:"is_pay_at_hotel"`
	TotalAdults          string `json:"total_adults,omitempty"`
	CheckIn              string `json:"check_in,omitempty"`
	CheckOut             string `json:"check_out,omitempty"`
	HotelName            string `json:"hotel_name,omitempty"`
	Amount               string `json:"amount,omitempty"`
	MealType             string `json:"meal_type,omitempty"`
	ConfirmationNo       string `json:"confirmation_no,omitempty"`
	PaymentDueDate       string `json:"payment_due_date,omitempty"`
	PaymentRemainingDays string `json:"payment_remaining_days,omitempty"`
	IsCancelled          bool   `json:"is_cancelled"`
}

// HotelInfo is booking-level detail shared by all rooms.
type HotelInfo struct {
	HotelName     string `json:"hotel_name,omitempty"`
	Address       string `json:"address,omitempty"`
	CheckIn       string `json:"check_in,omitempty"`
	CheckOut      string `json:"check_out,omitempty"`
	Duration      string `json:"duration,omitempty"`
	TotalFare     string `json:"total_fare,omitempty"`
	NumberOfRooms string `json:"number_of_rooms,omitempty"`
}

// Guest is a deduplicated guest row.
type Guest struct {
	Title     string `json:"title,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	PaxType   string `json:"pax_type,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
}

// DetailsResult is the outcome of FetchBookingDetails.
type DetailsResult struct {
	Success      bool         `json:"success"`
	Rooms        []Room       `json:"rooms"`
	HotelInfo    HotelInfo    `json:"hotel_info"`
	Guests       []Guest      `json:"guest_info"`
	AllCancelled bool         `json:"all_cancelled"`
	Error        string       `json:"error,omitempty"`
	Raw          emt.Document `json:"raw_response"`
}

// FetchBookingDetails retrieves and normalizes hotel booking details for a
// bid. Room cancellation state is derived by cross-referencing the
// PaymentDetails array: a room counts as cancelled when any payment entry
// for its id carries status "cancelled".
func (f *Flow) FetchBookingDetails(ctx context.Context, bid string) DetailsResult {
	doc, err := f.client.HotelBookingDetails(ctx, bid)
	if err != nil {
		slog.Error("cancellation: fetch booking details failed", "error", err)
		return DetailsResult{Rooms: []Room{}, Guests: []Guest{}, Error: err.Error()}
	}

	roomsRaw := doc.List("Room", "Rooms")

	cancelledRoomIDs := make(map[string]bool)
	for _, pd := range doc.List("PaymentDetails") {
		if !strings.EqualFold(strings.TrimSpace(pd.Str("Status")), "cancelled") {
			continue
		}
		if id := pd.Str("RoomID", "RoomId", "ID", "Id"); id != "" {
			cancelledRoomIDs[id] = true
		}
	}

	var hotelInfo HotelInfo
	if len(roomsRaw) > 0 {
		first := roomsRaw[0]
		hotelInfo = HotelInfo{
			HotelName:     first.Str("name"),
			Address:       first.Str("Address_Description"),
			CheckIn:       first.Str("CheckIn"),
			CheckOut:      first.Str("checkOut"),
			Duration:      first.Str("Duration"),
			TotalFare:     first.Str("TotalFare"),
			NumberOfRooms: first.Str("NumberOfRoomsBooked"),
		}
	}

	// The vendor repeats guest rows per room; dedup on (first, last, title).
	guests := []Guest{}
	seen := make(map[[3]string]bool)
	for _, pax := range doc.List("PaxDetails") {
		key := [3]string{pax.Str("FirstName"), pax.Str("LastName"), pax.Str("Title")}
		if seen[key] {
			continue
		}
		seen[key] = true
		guests = append(guests, Guest{
			Title:     pax.Str("Title"),
			FirstName: pax.Str("FirstName"),
			LastName:  pax.Str("LastName"),
			PaxType:   pax.Str("PaxType"),
			Mobile:    pax.Str("CustomerMobile"),
		})
	}

	rooms := []Room{}
	for _, r := range roomsRaw {
		roomID := r.Str("RoomID", "RoomId", "roomId", "Id", "ID")
		if roomID == "" {
			slog.Warn("cancellation: room id not found", "fields", r.Keys())
		}
		rooms = append(rooms, Room{
			RoomID:               roomID,
			RoomType:             r.Str("RoomType"),
			RoomNo:               r.Str("RoomNo"),
			TransactionID:        r.Str("TransactionId"),
			CancellationPolicy:   StripHTML(r.Str("CancellationPolicy")),
			IsPayAtHotel:         r.Bool("isPayAtHotel"),
			TotalAdults:          r.Str("TotalAdult"),
			CheckIn:              r.Str("CheckIn"),
			CheckOut:             r.Str("checkOut"),
			HotelName:            r.Str("name"),
			Amount:               r.Str("TotalFare"),
			MealType:             r.Str("mealtype"),
			ConfirmationNo:       r.Str("ConfirmationNo"),
			PaymentDueDate:       r.Str("PaymentDueDate"),
			PaymentRemainingDays: r.Str("PaymentRemainingDays"),
			IsCancelled:          roomID != "" && cancelledRoomIDs[roomID],
		})
	}

	allCancelled := len(rooms) > 0
	for _, room := range rooms {
		if !room.IsCancelled {
			allCancelled = false
			break
		}
	}

	return DetailsResult{
		Success:      true,
		Rooms:        rooms,
		HotelInfo:    hotelInfo,
		Guests:       guests,
		AllCancelled: allCancelled,
		Raw:          doc,
	}
}

// OTPResult is the outcome of an OTP dispatch step.
type OTPResult struct {
	Success             bool         `json:"success"`
	Message             string       `json:"message"`
	Error               string       `json:"error,omitempty"`
	Bid                 string       `json:"bid,omitempty"`
	TransactionScreenID string       `json:"transaction_screen_id,omitempty"`
	Raw                 emt.Document `json:"raw_response"`
}

// SendCancellationOTP dispatches the hotel cancellation OTP. The OTP request
// carries the bid as the vendor's EmtScreenID parameter; the separately
// cached transaction screen id serves an unrelated purpose and must not be
// substituted here.
func (f *Flow) SendCancellationOTP(ctx context.Context, bookingID, email string) OTPResult {
	if f.kindKnown && f.kind != KindHotel {
		slog.Warn("cancellation: hotel otp step invoked for non-hotel booking",
			"kind", string(f.kind))
	}

	bid, err := f.sessionBid(ctx, bookingID, email)
	if err != nil {
		slog.Error("cancellation: send otp failed", "error", err)
		return OTPResult{
			Success: false,
			Message: fmt.Sprintf("Failed to send cancellation OTP: %v", err),
			Error:   err.Error(),
		}
	}

	doc, err := f.client.HotelCancellationOTP(ctx, bid)
	if err != nil {
		slog.Error("cancellation: send otp failed", "error", err)
		return OTPResult{
			Success: false,
			Message: fmt.Sprintf("Failed to send cancellation OTP: %v", err),
			Error:   err.Error(),
		}
	}

	success, msg := otpOutcome(doc)
	res := OTPResult{
		Success:             success,
		Message:             msg,
		Bid:                 bid,
		TransactionScreenID: f.transactionScreenID,
		Raw:                 doc,
	}
	if !success {
		slog.Error("cancellation: otp send rejected", "message", msg)
		res.Error = ErrOTPSendFailed
	}
	return res
}

// CancelResult is the outcome of a cancellation submission.
type CancelResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Refund  *RefundInfo  `json:"refund_info,omitempty"`
	Error   string       `json:"error,omitempty"`
	Raw     emt.Document `json:"raw_response"`
}

// CancelParams carries the hotel cancellation submission inputs.
type CancelParams struct {
	BookingID     string
	Email         string
	OTP           string
	RoomID        string
	TransactionID string
	IsPayAtHotel  bool
	PaymentURL    string
	Reason        string
	Remark        string
}

// RequestCancellation submits the hotel cancellation after the same
// staleness check as the OTP step.
func (f *Flow) RequestCancellation(ctx context.Context, p CancelParams) CancelResult {
	bid, err := f.sessionBid(ctx, p.BookingID, p.Email)
	if err != nil {
		slog.Error("cancellation: request cancellation failed", "error", err)
		return CancelResult{
			Success: false,
			Message: "Cancellation request failed",
			Error:   err.Error(),
		}
	}

	doc, err := f.client.HotelRequestCancellation(ctx, emt.HotelCancelParams{
		Bid:           bid,
		OTP:           p.OTP,
		TransactionID: p.TransactionID,
		IsPayAtHotel:  p.IsPayAtHotel,
		PaymentURL:    p.PaymentURL,
		Reason:        p.Reason,
		Remark:        p.Remark,
	})
	if err != nil {
		slog.Error("cancellation: request cancellation failed", "error", err)
		return CancelResult{
			Success: false,
			Message: "Cancellation request failed",
			Error:   err.Error(),
		}
	}

	success, msg, refund := cancelOutcome(doc)
	res := CancelResult{Success: success, Message: msg, Refund: refund, Raw: doc}
	if !success {
		if res.Message == "" {
			res.Message = "Cancellation request failed"
		}
		res.Error = ErrCancellationFailed
	}
	return res
}
