package cancellation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// FlightSegment is one leg of a flight booking.
type FlightSegment struct {
	AirlineName         string `json:"airline_name,omitempty"`
	AirlineCode         string `json:"airline_code,omitempty"`
	FlightNumber        string `json:"flight_number,omitempty"`
	Origin              string `json:"origin,omitempty"`
	OriginCity          string `json:"origin_city,omitempty"`
	OriginAirport       string `json:"origin_airport,omitempty"`
	Destination         string `json:"destination,omitempty"`
	DestinationCity     string `json:"destination_city,omitempty"`
	DestinationAirport  string `json:"destination_airport,omitempty"`
	DepartureDate       string `json:"departure_date,omitempty"`
	DepartureTime       string `json:"departure_time,omitempty"`
	ArrivalDate         string `json:"arrival_date,omitempty"`
	ArrivalTime         string `json:"arrival_time,omitempty"`
	OriginTerminal      string `json:"origin_terminal,omitempty"`
	DestinationTerminal string `json:"destination_terminal,omitempty"`
	Duration            string `json:"duration,omitempty"`
	CabinClass          string `json:"cabin_class,omitempty"`
	CabinBaggage        string `json:"cabin_baggage,omitempty"`
	CheckInBaggage      string `json:"check_in_baggage,omitempty"`
	BoundType           string `json:"bound_type,omitempty"`
	Stops               string `json:"stops,omitempty"`
}

// FlightPassenger is one passenger on a flight booking leg.
type FlightPassenger struct {
	PaxID              string `json:"pax_id"`
	Title              string `json:"title,omitempty"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	PaxType            string `json:"pax_type,omitempty"`
	TicketNumber       string `json:"ticket_number,omitempty"`
	Status             string `json:"status,omitempty"`
	IsCancellable      bool   `json:"is_cancellable"`
	IsCancelled        bool   `json:"is_cancelled"`
	CancellationCharge string `json:"cancellation_charge,omitempty"`
	BoundType          string `json:"bound_type,omitempty"`
	PossibleMode       string `json:"possible_mode,omitempty"`
}

// FlightPriceInfo is fare detail for a flight booking.
type FlightPriceInfo struct {
	TotalFare     string `json:"total_fare,omitempty"`
	TotalBaseFare string `json:"total_base_fare,omitempty"`
	TotalTax      string `json:"total_tax,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// PNRInfo is a PNR pair for a flight booking.
type PNRInfo struct {
	AirlinePNR string `json:"airline_pnr,omitempty"`
	GdsPNR     string `json:"gds_pnr,omitempty"`
}

// SectorPolicy is the cancellation policy for one flight sector.
type SectorPolicy struct {
	SectorName    string       `json:"sector_name,omitempty"`
	BoundType     string       `json:"bound_type,omitempty"`
	DepartureDate string       `json:"departure_date,omitempty"`
	FlightImage   string       `json:"flight_image,omitempty"`
	Policies      []PolicyItem `json:"policies"`
}

// PolicyItem is one charge rule within a sector policy.
type PolicyItem struct {
	ChargeType     string `json:"charge_type,omitempty"`
	ChargeValue    string `json:"charge_value,omitempty"`
	FromDate       string `json:"from_date,omitempty"`
	ToDate         string `json:"to_date,omitempty"`
	PolicyText     string `json:"policy_text,omitempty"`
	IsRefundable   bool   `json:"is_refundable"`
	IsCancellation bool   `json:"is_cancellation"`
	PolicyDetail   string `json:"policy_detail,omitempty"`
}

// FlightDetailsResult is the outcome of FetchFlightDetails.
type FlightDetailsResult struct {
	Success             bool              `json:"success"`
	FlightSegments      []FlightSegment   `json:"flight_segments"`
	OutboundPassengers  []FlightPassenger `json:"outbound_passengers"`
	InboundPassengers   []FlightPassenger `json:"inbound_passengers"`
	PriceInfo           FlightPriceInfo   `json:"price_info"`
	PNRInfo             []PNRInfo         `json:"pnr_info"`
	CancellationPolicy  []SectorPolicy    `json:"cancellation_policy"`
	TripStatus          string            `json:"trip_status,omitempty"`
	TransactionID       string            `json:"transaction_id,omitempty"`
	TransactionScreenID string            `json:"transaction_screen_id,omitempty"`
	AllCancelled        bool              `json:"all_cancelled"`
	TotalCancellable    int               `json:"total_cancellable"`
	Error               string            `json:"error,omitempty"`
	Raw                 emt.Document      `json:"raw_response"`
}

func flightPassenger(pax emt.Document) FlightPassenger {
	status := pax.Str("paxstatus", "Status", "status")
	lower := strings.ToLower(status)
	return FlightPassenger{
		PaxID:              pax.Str("paxId"),
		Title:              pax.Str("title"),
		FirstName:          pax.Str("FirstName", "firstName"),
		LastName:           pax.Str("lastName"),
		PaxType:            pax.Str("paxType"),
		TicketNumber:       pax.Str("ticketNumber"),
		Status:             status,
		IsCancellable:      pax.Bool("isCancellable"),
		IsCancelled:        lower == "cancelled" || lower == "cancel",
		CancellationCharge: pax.Str("cancellationCharge"),
		BoundType:          pax.Str("tripType", "boundType"),
		PossibleMode:       pax.Str("possiblemode", "possibleMode"),
	}
}

// boundPassengers collects a leg's passenger list, falling back to the
// grouped lstOutbond/lstInbound shape some responses use instead.
func boundPassengers(primary []emt.Document, fallbackKey string, sources ...emt.Document) []FlightPassenger {
	paxDocs := primary
	if len(paxDocs) == 0 {
		for _, src := range sources {
			groups := src.List(fallbackKey)
			if len(groups) == 0 {
				continue
			}
			for _, grp := range groups {
				paxDocs = append(paxDocs, grp.List("bookedPaxs")...)
			}
			break
		}
	}
	passengers := []FlightPassenger{}
	for _, pax := range paxDocs {
		passengers = append(passengers, flightPassenger(pax))
	}
	return passengers
}

// FetchFlightDetails retrieves flight booking details. The transaction id
// pair needed by the flight OTP and cancel calls is cached on the flow, as
// is the cancellable-passenger count used to flag partial cancellations.
func (f *Flow) FetchFlightDetails(ctx context.Context, bid string) FlightDetailsResult {
	screenID := f.bookingID
	doc, err := f.client.FlightBookingDetails(ctx, bid, screenID, f.email)
	if err != nil {
		slog.Error("cancellation: fetch flight details failed", "error", err)
		return FlightDetailsResult{
			FlightSegments:     []FlightSegment{},
			OutboundPassengers: []FlightPassenger{},
			InboundPassengers:  []FlightPassenger{},
			PNRInfo:            []PNRInfo{},
			CancellationPolicy: []SectorPolicy{},
			Error:              err.Error(),
		}
	}

	passengerDetails := doc.Child("PassengerDetails")
	bookedPassanger := doc.Child("bookedPassanger")
	priceDetails := passengerDetails.Child("FlightPriceDetails")
	fltDetails := passengerDetails.Child("fltDetails")

	// TransactionId lives in FlightPriceDetails, not at the root.
	f.flightTransactionID = priceDetails.Str("TransactionId")
	if f.flightTransactionID == "" {
		f.flightTransactionID = doc.Str("TransactionId")
	}
	f.flightScreenID = fltDetails.Str("transactionScreenId")
	if f.flightScreenID == "" {
		f.flightScreenID = doc.Str("TransactionScreenId")
	}
	if f.flightScreenID == "" {
		f.flightScreenID = screenID
	}

	segments := []FlightSegment{}
	for _, seg := range passengerDetails.List("FlightDetail") {
		segments = append(segments, FlightSegment{
			AirlineName:         seg.Str("AirLineName"),
			AirlineCode:         seg.Str("AirlineCode", "AirLineCode"),
			FlightNumber:        seg.Str("FlightNumber"),
			Origin:              seg.Str("DepartureCityCode", "Origin"),
			OriginCity:          seg.Str("DepartureCity"),
			OriginAirport:       seg.Str("DepartureName", "OriginAirportName"),
			Destination:         seg.Str("ArrivalCityCode", "Destination"),
			DestinationCity:     seg.Str("ArrivalCity"),
			DestinationAirport:  seg.Str("ArrivalName", "DestinationAirportName"),
			DepartureDate:       seg.Str("DepartureDate"),
			DepartureTime:       seg.Str("DepartureTime"),
			ArrivalDate:         seg.Str("ArrivalDate"),
			ArrivalTime:         seg.Str("ArrivalTime"),
			OriginTerminal:      seg.Str("SourceTerminal", "OriginTerminal"),
			DestinationTerminal: seg.Str("DestinationalTerminal", "DestinationTerminal"),
			Duration:            seg.Str("FlightDuration", "Duration"),
			CabinClass:          seg.Str("ClassType", "CabinClass"),
			CabinBaggage:        seg.Str("CabinBag", "CabinBaggage"),
			CheckInBaggage:      seg.Str("BaggageWeight", "CheckInBaggage"),
			BoundType:           seg.Str("BoundType"),
			Stops:               seg.Str("FlightStops", "Stops"),
		})
	}

	outbound := boundPassengers(
		bookedPassanger.Child("outbond").List("outBondTypePass"),
		"lstOutbond", fltDetails, passengerDetails, doc,
	)
	inbound := boundPassengers(
		bookedPassanger.Child("inbound").List("bookedPaxs"),
		"lstInbound", fltDetails, passengerDetails, doc,
	)

	priceInfo := FlightPriceInfo{
		TotalFare:     priceDetails.Str("TotalFare"),
		TotalBaseFare: priceDetails.Str("TotalBaseFare"),
		TotalTax:      priceDetails.Str("TotalTax"),
		Currency:      priceDetails.Str("Currency"),
	}

	pnrInfo := []PNRInfo{}
	if pnr := passengerDetails.Child("PNRList"); !pnr.Empty() {
		pnrInfo = append(pnrInfo, PNRInfo{
			AirlinePNR: pnr.Str("Airlinepnr"),
			GdsPNR:     pnr.Str("Gdspnr"),
		})
	}

	policy := []SectorPolicy{}
	for _, sector := range doc.Child("FlightCancellationPolicy").List("Sectors") {
		items := []PolicyItem{}
		for _, pol := range sector.List("CancellationPolicies", "Policies") {
			items = append(items, PolicyItem{
				ChargeType:     pol.Str("ChargeType"),
				ChargeValue:    pol.Str("ChargeValue", "Charge"),
				FromDate:       pol.Str("FromDate"),
				ToDate:         pol.Str("ToDate"),
				PolicyText:     pol.Str("PolicyText", "Time"),
				IsRefundable:   pol.Bool("Refundable"),
				IsCancellation: pol.Bool("IsCancellation"),
				PolicyDetail:   pol.Str("policydtl", "PolicyDetail", "Description"),
			})
		}
		policy = append(policy, SectorPolicy{
			SectorName:    sector.Str("SectorName", "Sector"),
			BoundType:     sector.Str("Boundtype"),
			DepartureDate: sector.Str("DepartureDate"),
			FlightImage:   sector.Str("FlightImage"),
			Policies:      items,
		})
	}

	allPax := append(append([]FlightPassenger{}, outbound...), inbound...)
	cancellable := 0
	allCancelled := len(allPax) > 0
	for _, p := range allPax {
		if p.IsCancellable {
			cancellable++
		}
		if !p.IsCancelled {
			allCancelled = false
		}
	}
	f.totalCancellable = cancellable

	return FlightDetailsResult{
		Success:             true,
		FlightSegments:      segments,
		OutboundPassengers:  outbound,
		InboundPassengers:   inbound,
		PriceInfo:           priceInfo,
		PNRInfo:             pnrInfo,
		CancellationPolicy:  policy,
		TripStatus:          doc.Str("TripStatus"),
		TransactionID:       f.flightTransactionID,
		TransactionScreenID: f.flightScreenID,
		AllCancelled:        allCancelled,
		TotalCancellable:    cancellable,
		Raw:                 doc,
	}
}

// SendFlightCancellationOTP dispatches the flight cancellation OTP using the
// transaction id pair cached by FetchFlightDetails.
func (f *Flow) SendFlightCancellationOTP(ctx context.Context, bookingID, email string) OTPResult {
	if f.flightTransactionID == "" || f.flightScreenID == "" {
		return OTPResult{
			Success: false,
			Message: "No flight transaction ID found. Please fetch booking details first.",
			Error:   ErrNoTransactionID,
		}
	}

	doc, err := f.client.FlightCancellationOTP(ctx, f.flightTransactionID, f.flightScreenID, email)
	if err != nil {
		slog.Error("cancellation: send flight otp failed", "error", err)
		return OTPResult{
			Success: false,
			Message: "Failed to send cancellation OTP: " + err.Error(),
			Error:   err.Error(),
		}
	}

	success, msg := otpOutcome(doc)
	res := OTPResult{Success: success, Message: msg, Raw: doc}
	if !success {
		slog.Error("cancellation: flight otp send rejected", "message", msg)
		res.Error = ErrOTPSendFailed
	}
	return res
}

// FlightCancelParams carries the flight cancellation submission inputs. Pax
// id lists are comma-separated as supplied by the tool layer.
type FlightCancelParams struct {
	BookingID      string
	Email          string
	OTP            string
	OutboundPaxIDs string
	InboundPaxIDs  string
	Mode           string
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// RequestFlightCancellation submits the flight cancellation. The request is
// flagged partial when the selected passenger set is smaller than the
// cancellable count learned from the details fetch; the wire format joins
// pax ids with dashes rather than commas.
func (f *Flow) RequestFlightCancellation(ctx context.Context, p FlightCancelParams) CancelResult {
	if f.flightScreenID == "" {
		return CancelResult{
			Success: false,
			Message: "No flight transaction screen ID found. Please fetch booking details first.",
			Error:   ErrNoTransactionID,
		}
	}

	selected := make(map[string]bool)
	for _, id := range splitIDs(p.OutboundPaxIDs) {
		selected[id] = true
	}
	for _, id := range splitIDs(p.InboundPaxIDs) {
		selected[id] = true
	}

	doc, err := f.client.FlightCancel(ctx, emt.FlightCancelParams{
		TransactionScreenID: f.flightScreenID,
		Email:               p.Email,
		OTP:                 p.OTP,
		OutboundPaxIDs:      strings.Join(splitIDs(p.OutboundPaxIDs), "-"),
		InboundPaxIDs:       strings.Join(splitIDs(p.InboundPaxIDs), "-"),
		Mode:                p.Mode,
		IsPartialCancel:     len(selected) < f.totalCancellable,
	})
	if err != nil {
		slog.Error("cancellation: flight cancellation failed", "error", err)
		return CancelResult{
			Success: false,
			Message: "Flight cancellation request failed",
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
		success = doc.Bool("isRequested") || doc.Bool("isCancelled") || doc.Bool("isValidOTP")
		msg = doc.Str("msg", "Message", "Msg")
		requestID := doc.Str("RequestId")
		if requestID != "" && msg == "" {
			msg = "Cancellation request submitted (Request ID: " + requestID + ")"
		}
		if doc.Str("RefundAmount") != "" || doc.Str("CancellationCharges") != "" {
			refund = &RefundInfo{
				RefundAmount:        doc.Str("RefundAmount"),
				CancellationCharges: doc.Str("CancellationCharges"),
				RefundMode:          doc.Str("RefundMode"),
				RequestID:           requestID,
			}
		}
	}

	res := CancelResult{Success: success, Message: msg, Refund: refund, Raw: doc}
	if !success {
		if res.Message == "" {
			res.Message = "Flight cancellation request failed"
		}
		res.Error = ErrCancellationFailed
	}
	return res
}
