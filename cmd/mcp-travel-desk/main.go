// Package main provides the entry point for the mcp-travel-desk server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/txn2/mcp-travel-desk/internal/server"
	"github.com/txn2/mcp-travel-desk/pkg/health"
	"github.com/txn2/mcp-travel-desk/pkg/platform"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool
}

func parseFlags() serverOptions {
	opts := serverOptions{}
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio, http")
	flag.StringVar(&opts.address, "address", ":8080", "Server address for HTTP transport")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	flag.Parse()
	return opts
}

func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func createServer(opts serverOptions) (*mcp.Server, *platform.Platform, error) {
	if opts.configPath != "" {
		return mcpserver.NewWithConfig(opts.configPath)
	}
	return mcpserver.NewWithDefaults()
}

func run() error {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("mcp-travel-desk version %s\n", mcpserver.Version)
		return nil
	}

	ctx := setupSignalHandler()

	mcpServer, p, err := createServer(opts)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() { _ = p.Close() }()

	applyConfigOverrides(p, &opts)

	return startServer(ctx, mcpServer, opts)
}

func applyConfigOverrides(p *platform.Platform, opts *serverOptions) {
	if p.Config().Server.Transport != "" {
		opts.transport = p.Config().Server.Transport
	}
	if p.Config().Server.Address != "" {
		opts.address = p.Config().Server.Address
	}
}

func startServer(ctx context.Context, mcpServer *mcp.Server, opts serverOptions) error {
	switch opts.transport {
	case "stdio":
		return mcpServer.Run(ctx, &mcp.StdioTransport{})
	case "http":
		return serveHTTP(ctx, mcpServer, opts.address)
	default:
		return fmt.Errorf("unknown transport: %s", opts.transport)
	}
}

// serveHTTP runs the streamable HTTP transport until the context is
// canceled, then drains in-flight requests.
func serveHTTP(ctx context.Context, mcpServer *mcp.Server, address string) error {
	checker := health.NewChecker()

	mux := http.NewServeMux()
	checker.Routes(mux)
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpServer }, nil))

	httpServer := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	checker.SetReady()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		checker.SetDraining()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
