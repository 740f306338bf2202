// Package trains exposes Indian Railways PNR status and train route checks
// as MCP tools.
package trains

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	pnrToolName   = "train_pnr_status"
	routeToolName = "train_route_check"
)

// Error codes surfaced in tool results.
const (
	errInvalidPNR = "INVALID_PNR"
	errAPIError   = "API_ERROR"
)

var digitsRe = regexp.MustCompile(`^\d{10}$`)

// Toolkit implements the railways toolkit.
type Toolkit struct {
	name   string
	cfg    Config
	client *Client
}

// New creates a new trains toolkit.
func New(name string, cfg Config) (*Toolkit, error) {
	return &Toolkit{
		name:   name,
		cfg:    cfg.applyDefaults(),
		client: NewClient(cfg),
	}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "trains"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the railways endpoint for diagnostics.
func (t *Toolkit) Connection() string {
	return t.cfg.RailwaysURL
}

// RegisterTools registers the railway tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: pnrToolName,
		Description: "Check PNR status for Indian Railways train bookings. " +
			"Requires a 10-digit PNR number.",
	}, t.handlePNRStatus)

	mcp.AddTool(s, &mcp.Tool{
		Name: routeToolName,
		Description: "Check the route/schedule of a train by train number. Station codes " +
			"are optional; when omitted they are resolved from the train's terminals.",
	}, t.handleRouteCheck)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{pnrToolName, routeToolName}
}

// Close releases the railways client.
func (t *Toolkit) Close() error {
	return t.client.Close()
}

// pnrStatusInput defines the input schema for the train_pnr_status tool.
type pnrStatusInput struct {
	PNRNumber string `json:"pnr_number"`
}

// PassengerStatus is one passenger's booking and current status.
type PassengerStatus struct {
	SerialNumber  int    `json:"serial_number"`
	BookingStatus string `json:"booking_status"`
	CurrentStatus string `json:"current_status"`
	Coach         string `json:"coach,omitempty"`
	BerthNumber   string `json:"berth_number,omitempty"`
	BerthType     string `json:"berth_type,omitempty"`
}

// PNRStatusInfo is the normalized PNR status response.
type PNRStatusInfo struct {
	PNRNumber              string            `json:"pnr_number"`
	TrainNumber            string            `json:"train_number"`
	TrainName              string            `json:"train_name"`
	DateOfJourney          string            `json:"date_of_journey"`
	SourceStation          string            `json:"source_station"`
	SourceStationName      string            `json:"source_station_name"`
	DestinationStation     string            `json:"destination_station"`
	DestinationStationName string            `json:"destination_station_name"`
	BoardingPoint          string            `json:"boarding_point,omitempty"`
	BoardingPointName      string            `json:"boarding_point_name,omitempty"`
	ReservationUpto        string            `json:"reservation_upto,omitempty"`
	ReservationUptoName    string            `json:"reservation_upto_name,omitempty"`
	JourneyClass           string            `json:"journey_class"`
	ClassName              string            `json:"class_name,omitempty"`
	Quota                  string            `json:"quota"`
	QuotaName              string            `json:"quota_name,omitempty"`
	BookingStatus          string            `json:"booking_status,omitempty"`
	ChartStatus            string            `json:"chart_status"`
	BookingFare            string            `json:"booking_fare,omitempty"`
	TicketFare             string            `json:"ticket_fare,omitempty"`
	Passengers             []PassengerStatus `json:"passengers"`
}

func (t *Toolkit) handlePNRStatus(ctx context.Context, _ *mcp.CallToolRequest, input pnrStatusInput) (*mcp.CallToolResult, any, error) {
	cleaned := pnrSeparatorRe.ReplaceAllString(input.PNRNumber, "")
	if !digitsRe.MatchString(cleaned) {
		return errorResult("pnr_number must be exactly 10 digits"), nil, nil
	}

	encrypted, err := encryptPNR(cleaned)
	if err != nil {
		slog.Error("trains: encrypting pnr failed", "error", err)
		return errorResult("internal error preparing PNR request"), nil, nil
	}

	doc, err := t.client.PNRStatus(ctx, encrypted)
	if err != nil {
		slog.Error("trains: pnr status failed", "error", err)
		return errorResult("checking PNR status failed: " + err.Error()), nil, nil
	}

	if msg := doc.Str("errorMessage"); msg != "" {
		code := errAPIError
		if strings.Contains(msg, "Invalid PNR") ||
			strings.Contains(msg, "Flushed PNR") ||
			strings.Contains(msg, "PNR not yet generated") {
			code = errInvalidPNR
		}
		return errorResultCoded(code, msg), nil, nil
	}

	if doc.Str("pnrNumber") == "" {
		return errorResultCoded(errInvalidPNR, "Invalid PNR or PNR not found"), nil, nil
	}

	info := PNRStatusInfo{
		PNRNumber:              doc.Str("pnrNumber"),
		TrainNumber:            doc.Str("trainNumber"),
		TrainName:              doc.Str("trainName"),
		DateOfJourney:          doc.Str("dateOfJourney"),
		SourceStation:          doc.Str("sourceStation"),
		SourceStationName:      doc.Str("SrcStnName"),
		DestinationStation:     doc.Str("destinationStation"),
		DestinationStationName: doc.Str("DestStnName"),
		BoardingPoint:          doc.Str("boardingPoint"),
		BoardingPointName:      doc.Str("BrdPointName"),
		ReservationUpto:        doc.Str("reservationUpto"),
		ReservationUptoName:    doc.Str("reservationUptoName"),
		JourneyClass:           doc.Str("journeyClass"),
		ClassName:              doc.Str("className"),
		Quota:                  doc.Str("quota"),
		QuotaName:              doc.Str("quotaName"),
		BookingStatus:          doc.Str("bookingStatus"),
		ChartStatus:            doc.Str("chartStatus"),
		BookingFare:            doc.Str("bookingFare"),
		TicketFare:             doc.Str("ticketFare"),
	}
	if info.Quota == "" {
		info.Quota = "GN"
	}
	if info.ChartStatus == "" {
		info.ChartStatus = "Chart Not Prepared"
	}

	for i, pax := range doc.List("passengerList") {
		serial, err := strconv.Atoi(pax.Str("passengerSerialNumber"))
		if err != nil || serial == 0 {
			serial = i + 1
		}
		info.Passengers = append(info.Passengers, PassengerStatus{
			SerialNumber:  serial,
			BookingStatus: fallback(pax.Str("bookingStatus"), "N/A"),
			CurrentStatus: fallback(pax.Str("currentStatus"), "N/A"),
			Coach:         pax.Str("bookingCoachId", "currentCoachId"),
			BerthNumber:   pax.Str("bookingBerthNo", "currentBerthNo"),
			BerthType:     pax.Str("bookingBerthCode"),
		})
	}

	return successResult(map[string]any{
		"success":  true,
		"pnr_info": info,
	})
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// routeCheckInput defines the input schema for the train_route_check tool.
type routeCheckInput struct {
	TrainNo         string `json:"train_no"`
	FromStationCode string `json:"from_station_code,omitempty"`
	ToStationCode   string `json:"to_station_code,omitempty"`
}

// StationStop is a single stop in a train's route.
type StationStop struct {
	StationCode     string `json:"station_code"`
	StationName     string `json:"station_name"`
	ArrivalTime     string `json:"arrival_time"`
	DepartureTime   string `json:"departure_time"`
	HaltTime        string `json:"halt_time"`
	DayCount        string `json:"day_count"`
	Distance        string `json:"distance"`
	RouteNumber     string `json:"route_number"`
	StnSerialNumber string `json:"stn_serial_number"`
}

// routeCheckOutput is the success response for train_route_check.
type routeCheckOutput struct {
	Success     bool          `json:"success"`
	TrainNo     string        `json:"train_no"`
	TrainName   string        `json:"train_name"`
	StationFrom string        `json:"station_from"`
	StationTo   string        `json:"station_to"`
	StationList []StationStop `json:"station_list"`
	RunningDays []string      `json:"running_days"`
	TotalStops  int           `json:"total_stops"`
}

// runningDayKeys maps the vendor's per-day flags to day labels, in week order.
var runningDayKeys = []struct {
	key string
	day string
}{
	{"trainRunsOnMon", "Mon"},
	{"trainRunsOnTue", "Tue"},
	{"trainRunsOnWed", "Wed"},
	{"trainRunsOnThu", "Thu"},
	{"trainRunsOnFri", "Fri"},
	{"trainRunsOnSat", "Sat"},
	{"trainRunsOnSun", "Sun"},
}

func (t *Toolkit) handleRouteCheck(ctx context.Context, _ *mcp.CallToolRequest, input routeCheckInput) (*mcp.CallToolResult, any, error) {
	if input.TrainNo == "" {
		return errorResult("train_no is required"), nil, nil
	}

	from, to := input.FromStationCode, input.ToStationCode
	if from == "" || to == "" {
		details, err := t.client.TrainDetails(ctx, input.TrainNo)
		if err != nil {
			slog.Error("trains: train details lookup failed", "train_no", input.TrainNo, "error", err)
		}
		if details.Empty() {
			return errorResult(fmt.Sprintf(
				"could not fetch details for train %s; please verify the train number",
				input.TrainNo)), nil, nil
		}
		if from == "" {
			from = details.Str("SrcStnCode")
		}
		if to == "" {
			to = details.Str("DestStnCode")
		}
	}

	doc, err := t.client.ScheduleEnquiry(ctx, input.TrainNo, from, to)
	if err != nil {
		slog.Error("trains: route check failed", "train_no", input.TrainNo, "error", err)
		return errorResult(fmt.Sprintf(
			"could not fetch route for train %s; please try again", input.TrainNo)), nil, nil
	}

	if msg := doc.Str("errorMessage"); msg != "" {
		return errorResult(msg), nil, nil
	}

	stations := doc.List("stationList")
	if len(stations) == 0 {
		return errorResult(fmt.Sprintf("no route information found for train %s", input.TrainNo)), nil, nil
	}

	out := routeCheckOutput{
		Success:     true,
		TrainNo:     fallback(doc.Str("trainNumber"), input.TrainNo),
		TrainName:   fallback(doc.Str("trainName"), "Train "+input.TrainNo),
		StationFrom: fallback(doc.Str("stationFrom"), from),
		StationTo:   fallback(doc.Str("stationTo"), to),
	}

	for _, s := range stations {
		out.StationList = append(out.StationList, StationStop{
			StationCode:     s.Str("stationCode"),
			StationName:     s.Str("stationName"),
			ArrivalTime:     fallback(s.Str("arrivalTime"), "--"),
			DepartureTime:   fallback(s.Str("departureTime"), "--"),
			HaltTime:        fallback(s.Str("haltTime"), "--"),
			DayCount:        fallback(s.Str("dayCount"), "1"),
			Distance:        fallback(s.Str("distance"), "0"),
			RouteNumber:     fallback(s.Str("routeNumber"), "1"),
			StnSerialNumber: s.Str("stnSerialNumber"),
		})
	}
	out.TotalStops = len(out.StationList)

	for _, rd := range runningDayKeys {
		if doc.Str(rd.key) == "Y" {
			out.RunningDays = append(out.RunningDays, rd.day)
		}
	}

	return successResult(out)
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

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// errorResultCoded creates an error CallToolResult with an error code.
func errorResultCoded(code, msg string) *mcp.CallToolResult {
	data, _ := json.Marshal(map[string]string{"error": code, "message": msg})
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
