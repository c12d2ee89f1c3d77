package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	mcptools "github.com/giantswarm/llm-compare/internal/mcp"
	"github.com/giantswarm/llm-compare/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		transport     string
		httpAddr      string
		httpEndpoint  string
		streamTimeout time.Duration
		corsOrigins   []string
		debug         bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and MCP server",
		Long: `Start the comparison service.

Supports multiple transport types:
  - streamable-http: HTTP API with server-sent event progress, plus the MCP
    endpoint, health and Prometheus metrics (default)
  - stdio: MCP over standard input/output (for IDE integration)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}

			// Set up graceful shutdown.
			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			catalogDir := catalogDirFlag(cmd)
			a, err := newApp(shutdownCtx, catalogDir, envconfig.OsLookuper())
			if err != nil {
				return err
			}

			sc := &server.ServerContext{
				Catalog:       a.catalog,
				Evaluations:   a.service,
				Gatherer:      a.gatherer,
				Logger:        slog.Default(),
				StreamTimeout: streamTimeout,
			}

			mcpSrv := mcpserver.NewMCPServer("llm-compare", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)
			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			switch transport {
			case transportStdio:
				return runStdioServer(mcpSrv)
			case transportStreamableHTTP:
				srv := server.NewHTTPServer(sc, server.HTTPOptions{
					Addr: httpAddr,
					MCPHandler: mcpserver.NewStreamableHTTPServer(mcpSrv,
						mcpserver.WithEndpointPath(httpEndpoint),
					),
					MCPEndpoint:    httpEndpoint,
					AllowedOrigins: corsOrigins,
				})
				return runHTTPServer(shutdownCtx, srv, httpAddr, httpEndpoint)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: stdio, streamable-http)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStreamableHTTP, "Transport type: streamable-http or stdio")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "MCP endpoint path (for streamable-http)")
	cmd.Flags().DurationVar(&streamTimeout, "stream-timeout", server.DefaultStreamTimeout, "Wall-clock limit of a streamed evaluation")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "Origin allowed to call the API cross-origin (repeatable)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, srv *server.HTTPServer, addr, endpoint string) error {
	fmt.Printf("Starting llm-compare on %s\n", addr)
	fmt.Printf("  API: /api/evaluate, /api/use-cases, /api/models, /api/dimensions\n")
	fmt.Printf("  MCP endpoint: %s\n", endpoint)
	fmt.Printf("  Health: /healthz\n")
	fmt.Printf("  Metrics: /metrics\n")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	fmt.Println("HTTP server stopped")
	return nil
}
