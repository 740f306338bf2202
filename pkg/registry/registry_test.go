package registry

import (
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const regTestCancellation = "cancellation"

// mockToolkit is a simple mock for testing.
type mockToolkit struct {
	kind       string
	name       string
	connection string
	tools      []string
	closeCalls int
}

func (m *mockToolkit) Kind() string                { return m.kind }
func (m *mockToolkit) Name() string                { return m.name }
func (m *mockToolkit) Connection() string          { return m.connection }
func (m *mockToolkit) RegisterTools(_ *mcp.Server) {} //nolint:revive // unused-receiver: mock
func (m *mockToolkit) Tools() []string             { return m.tools }
func (m *mockToolkit) Close() error                { m.closeCalls++; return nil }

// mockToolkitWithCloseError is a toolkit that returns an error on Close.
type mockToolkitWithCloseError struct {
	mockToolkit
}

func (m *mockToolkitWithCloseError) Close() error { //nolint:revive // unused-receiver: mock
	return fmt.Errorf("close error")
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestCancellation, name: "emt"}

	if err := reg.Register(toolkit); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := reg.Get(regTestCancellation, "emt")
	if !ok {
		t.Fatal("Get() returned false")
	}
	if got.Kind() != regTestCancellation {
		t.Errorf("Kind() = %q, want %q", got.Kind(), regTestCancellation)
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestCancellation, name: "emt"}

	_ = reg.Register(toolkit)
	err := reg.Register(toolkit)
	if err == nil {
		t.Error("Register() expected error for duplicate")
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Get("nonexistent", "name")
	if ok {
		t.Error("Get() returned true for nonexistent toolkit")
	}
}

func TestRegistry_GetByKind(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: regTestCancellation, name: "emt"})
	_ = reg.Register(&mockToolkit{kind: regTestCancellation, name: "staging"})
	_ = reg.Register(&mockToolkit{kind: "trains", name: "main"})

	cancelToolkits := reg.GetByKind(regTestCancellation)
	if len(cancelToolkits) != 2 {
		t.Errorf("GetByKind(cancellation) returned %d toolkits, want 2", len(cancelToolkits))
	}
}

func TestRegistry_AllAndAllTools(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{
		kind: regTestCancellation, name: "emt",
		tools: []string{"cancellation_start", "cancellation_confirm"},
	})
	_ = reg.Register(&mockToolkit{kind: "trains", name: "main", tools: []string{"train_pnr_status"}})

	all := reg.All()
	if len(all) != 2 {
		t.Errorf("All() returned %d toolkits, want 2", len(all))
	}

	tools := reg.AllTools()
	if len(tools) != 3 {
		t.Errorf("AllTools() returned %d tools, want 3", len(tools))
	}
}

func TestRegistry_GetToolkitForTool(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{
		kind: regTestCancellation, name: "emt", connection: "https://easemytrip.example",
		tools: []string{"cancellation_start"},
	})

	kind, name, connection, found := reg.GetToolkitForTool("cancellation_start")
	if !found {
		t.Fatal("GetToolkitForTool() returned false")
	}
	if kind != regTestCancellation || name != "emt" {
		t.Errorf("GetToolkitForTool() = %q/%q, want %q/emt", kind, name, regTestCancellation)
	}
	if connection != "https://easemytrip.example" {
		t.Errorf("connection = %q", connection)
	}

	_, _, _, found = reg.GetToolkitForTool("unknown_tool")
	if found {
		t.Error("GetToolkitForTool() returned true for unknown tool")
	}
}

func TestRegistry_Close(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestCancellation, name: "emt"}
	_ = reg.Register(toolkit)

	if err := reg.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if toolkit.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", toolkit.closeCalls)
	}
}

func TestRegistry_CloseWithError(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkitWithCloseError{mockToolkit{kind: regTestCancellation, name: "bad"}})
	_ = reg.Register(&mockToolkit{kind: "trains", name: "ok"})

	if err := reg.Close(); err == nil {
		t.Error("Close() expected error from failing toolkit")
	}
}

func TestRegistry_CreateAndRegister(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFactory(regTestCancellation, func(name string, _ map[string]any) (Toolkit, error) {
		return &mockToolkit{kind: regTestCancellation, name: name}, nil
	})

	err := reg.CreateAndRegister(ToolkitConfig{Kind: regTestCancellation, Name: "emt", Enabled: true})
	if err != nil {
		t.Fatalf("CreateAndRegister() error = %v", err)
	}
	if _, ok := reg.Get(regTestCancellation, "emt"); !ok {
		t.Error("toolkit not registered")
	}
}

func TestRegistry_CreateAndRegisterUnknownKind(t *testing.T) {
	reg := NewRegistry()
	err := reg.CreateAndRegister(ToolkitConfig{Kind: "mystery", Name: "x", Enabled: true})
	if err == nil {
		t.Error("CreateAndRegister() expected error for unknown kind")
	}
}

func TestRegistry_CreateAndRegisterDisabled(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFactory(regTestCancellation, func(name string, _ map[string]any) (Toolkit, error) {
		return &mockToolkit{kind: regTestCancellation, name: name}, nil
	})

	err := reg.CreateAndRegister(ToolkitConfig{Kind: regTestCancellation, Name: "emt", Enabled: false})
	if err != nil {
		t.Fatalf("CreateAndRegister() error = %v", err)
	}
	if _, ok := reg.Get(regTestCancellation, "emt"); ok {
		t.Error("disabled toolkit was registered")
	}
}
