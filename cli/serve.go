package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/hkomcp/config"
	"github.com/petal-labs/hkomcp/tool/mcp"
)

const serverInstructions = "Tools return Hong Kong Observatory open data unmodified. " +
	"Use weather-info for forecasts and warnings, earthquake-info for quake reports, " +
	"lunar-date-conversion for the Chinese calendar and hourly-rainfall for rain gauges."

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HKO tools over MCP",
		Long: "Serve the HKO tools over MCP. The stdio transport reads newline-delimited " +
			"JSON-RPC from stdin and writes responses to stdout; logs go to stderr.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("transport", "", "Transport: stdio | http (default from config)")
	cmd.Flags().String("addr", "", "HTTP listen address (default from config)")
	cmd.Flags().String("path", "", "HTTP endpoint path (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.shutdown()

	serverCfg := a.cfg.Server
	if v, _ := cmd.Flags().GetString("transport"); v != "" {
		serverCfg.Transport = strings.ToLower(v)
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		serverCfg.Addr = v
	}
	if v, _ := cmd.Flags().GetString("path"); v != "" {
		serverCfg.Path = v
	}

	server, err := mcp.NewServer(a.dispatcher, mcp.ServerOptions{
		Info:         mcp.ServerInfo{Name: "hkomcp", Version: cmd.Root().Version},
		Instructions: serverInstructions,
		Logger:       a.logger,
	})
	if err != nil {
		return exitError(exitRuntime, "creating mcp server: %v", err)
	}

	// Signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch serverCfg.Transport {
	case config.TransportStdio:
		a.logger.Info("serving mcp over stdio", "tools", a.registry.Len())
		err := server.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil && !errors.Is(err, context.Canceled) {
			return exitError(exitRuntime, "stdio server: %v", err)
		}
		return nil
	case config.TransportHTTP:
		return serveHTTP(ctx, a, server, serverCfg)
	default:
		return exitError(exitValidation, "unknown transport %q (want stdio or http)", serverCfg.Transport)
	}
}

func serveHTTP(ctx context.Context, a *app, server *mcp.Server, cfg config.Server) error {
	if !strings.HasPrefix(cfg.Path, "/") {
		return exitError(exitValidation, "http path %q must start with /", cfg.Path)
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, server.HTTPHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"ok","tools":%d}`, a.registry.Len())
	})

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return exitError(exitRuntime, "listen on %s: %v", cfg.Addr, err)
	}
	httpServer := &http.Server{
		Handler:      maxBodyMiddleware(mux, cfg.MaxBody),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving mcp over http", "addr", listener.Addr().String(), "path", cfg.Path)
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}

func maxBodyMiddleware(next http.Handler, maxBody int64) http.Handler {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		next.ServeHTTP(w, r)
	})
}
