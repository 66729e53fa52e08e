package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/hkomcp/config"
	"github.com/petal-labs/hkomcp/hko"
	hkootel "github.com/petal-labs/hkomcp/otel"
	"github.com/petal-labs/hkomcp/tool"
)

// app is the per-command runtime assembled from flags and config.
type app struct {
	cfg        config.Config
	configPath string
	logger     *slog.Logger
	registry   *tool.Registry
	dispatcher *tool.Dispatcher
	telemetry  *hkootel.Telemetry
}

// envLookup is swapped in tests.
var envLookup = os.LookupEnv

// loadApp resolves configuration and builds the tool stack. Persistent flags
// are applied after the file and the environment.
func loadApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	cfg, path, err := config.Resolve(configPath, envLookup)
	if err != nil {
		return nil, exitError(exitValidation, "%v", err)
	}
	if baseURL, _ := flags.GetString("base-url"); baseURL != "" {
		cfg.Upstream.BaseURL = baseURL
		if err := config.Validate(cfg); err != nil {
			return nil, exitError(exitValidation, "%v", err)
		}
	}

	verbose, _ := flags.GetBool("verbose")
	quiet, _ := flags.GetBool("quiet")
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format, verbose, quiet)
	if err != nil {
		return nil, exitError(exitValidation, "%v", err)
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}

	registry, err := hko.NewRegistry(
		hko.WithBaseURL(cfg.Upstream.BaseURL),
		hko.WithSingleSeparatorLunarDate(cfg.Upstream.LunarDateSingleSeparator),
	)
	if err != nil {
		return nil, exitError(exitRuntime, "building tool registry: %v", err)
	}

	a := &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		registry:   registry,
	}

	opts := []tool.DispatcherOption{tool.WithLogger(logger)}
	if cfg.Telemetry.Enabled {
		telemetry, err := hkootel.Setup(cmd.Context(), hkootel.SetupConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cmd.Root().Version,
			Endpoint:       cfg.Telemetry.OTLPEndpoint,
			Insecure:       cfg.Telemetry.Insecure,
			MetricInterval: cfg.Telemetry.MetricInterval.Std(),
		})
		if err != nil {
			return nil, exitError(exitRuntime, "initializing telemetry: %v", err)
		}
		a.telemetry = telemetry
		opts = append(opts, tool.WithObserver(telemetry.Observer))
	}

	dispatcher, err := tool.NewDispatcher(registry, opts...)
	if err != nil {
		_ = a.close(cmd.Context())
		return nil, exitError(exitRuntime, "creating dispatcher: %v", err)
	}
	a.dispatcher = dispatcher
	return a, nil
}

// shutdown flushes telemetry at the end of a command. A failed flush is
// logged rather than returned so it never masks the command's own result.
func (a *app) shutdown() {
	if err := a.close(context.Background()); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// close flushes telemetry.
func (a *app) close(ctx context.Context) error {
	if a == nil || a.telemetry == nil {
		return nil
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down telemetry: %w", err)
	}
	return nil
}
