package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-travel-desk/pkg/platform"
	"github.com/txn2/mcp-travel-desk/pkg/registry"
)

// TestStreamableHTTP_RouteCheck exercises a full tool call through the
// Streamable HTTP transport against a fake railways backend.
func TestStreamableHTTP_RouteCheck(t *testing.T) {
	ctx := context.Background()

	railMux := http.NewServeMux()
	railMux.HandleFunc("/Train/TrainScheduleEnquiry", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"trainNumber": "12951",
			"trainName":   "MUMBAI RAJDHANI",
			"stationList": []map[string]any{
				{"stationCode": "BCT", "stationName": "Mumbai Central", "departureTime": "17:00"},
				{"stationCode": "NDLS", "stationName": "New Delhi", "arrivalTime": "08:32"},
			},
		})
	})
	railServer := httptest.NewServer(railMux)
	defer railServer.Close()

	p, err := platform.New(&platform.Config{
		Toolkits: map[string]registry.ToolkitKindConfig{
			"trains": {
				Enabled: true,
				Config:  map[string]any{"railways_url": railServer.URL},
			},
		},
	})
	if err != nil {
		t.Fatalf("creating platform: %v", err)
	}
	defer func() { _ = p.Close() }()

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return p.MCPServer() }, nil)
	httpServer := httptest.NewServer(handler)
	defer httpServer.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: httpServer.URL}, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer func() { _ = session.Close() }()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "train_route_check",
		Arguments: map[string]any{
			"train_no":          "12951",
			"from_station_code": "BCT",
			"to_station_code":   "NDLS",
		},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool call returned error: %v", result.Content)
	}

	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}

	var out struct {
		Success    bool   `json:"success"`
		TrainName  string `json:"train_name"`
		TotalStops int    `json:"total_stops"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &out); err != nil {
		t.Fatalf("unmarshaling tool result: %v", err)
	}
	if !out.Success {
		t.Error("expected success=true")
	}
	if out.TrainName != "MUMBAI RAJDHANI" {
		t.Errorf("train_name = %q, want %q", out.TrainName, "MUMBAI RAJDHANI")
	}
	if out.TotalStops != 2 {
		t.Errorf("total_stops = %d, want 2", out.TotalStops)
	}
}

func TestStartServerUnknownTransport(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "t", Version: "0"}, nil)

	err := startServer(context.Background(), server, serverOptions{transport: "sse"})
	if err == nil {
		t.Fatal("expected error for unknown transport")
	}
}
