// Package config loads hkomcp settings from YAML or TOML files with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/hkomcp/hko"
	"github.com/petal-labs/hkomcp/tool/mcp"
)

// Transport names accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Environment variables applied after the file is loaded.
const (
	EnvBaseURL      = "HKOMCP_BASE_URL"
	EnvLogLevel     = "HKOMCP_LOG_LEVEL"
	EnvTransport    = "HKOMCP_TRANSPORT"
	EnvAddr         = "HKOMCP_ADDR"
	EnvOTLPEndpoint = "HKOMCP_OTLP_ENDPOINT"
)

const (
	projectYAMLName = "hkomcp.yaml"
	projectTOMLName = "hkomcp.toml"
	homeConfigName  = "config.yaml"
)

// Config is the full settings tree.
type Config struct {
	Upstream  Upstream  `yaml:"upstream" toml:"upstream"`
	Server    Server    `yaml:"server" toml:"server"`
	Log       Log       `yaml:"log" toml:"log"`
	Telemetry Telemetry `yaml:"telemetry" toml:"telemetry"`
}

// Upstream configures the HKO open-data endpoints.
type Upstream struct {
	BaseURL                  string `yaml:"base_url" toml:"base_url" validate:"required,url"`
	LunarDateSingleSeparator bool   `yaml:"lunar_date_single_separator" toml:"lunar_date_single_separator"`
}

// Server configures the MCP transport.
type Server struct {
	Transport    string   `yaml:"transport" toml:"transport" validate:"oneof=stdio http"`
	Addr         string   `yaml:"addr" toml:"addr" validate:"required,hostname_port"`
	Path         string   `yaml:"path" toml:"path" validate:"required,startswith=/"`
	ReadTimeout  Duration `yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`
	WriteTimeout Duration `yaml:"write_timeout" toml:"write_timeout" validate:"gte=0"`
	MaxBody      int64    `yaml:"max_body" toml:"max_body" validate:"gt=0"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=text json"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	Insecure     bool   `yaml:"insecure" toml:"insecure"`
	ServiceName  string `yaml:"service_name" toml:"service_name" validate:"required"`

	// MetricInterval is how often metrics are pushed to the collector.
	MetricInterval Duration `yaml:"metric_interval" toml:"metric_interval" validate:"gte=0"`
}

// Duration is a time.Duration that decodes from strings such as "30s" in
// both YAML and TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders d as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		Upstream: Upstream{BaseURL: hko.DefaultBaseURL},
		Server: Server{
			Transport:    TransportStdio,
			Addr:         "127.0.0.1:8080",
			Path:         mcp.DefaultHTTPPath,
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
			MaxBody:      1 << 20,
		},
		Log: Log{Level: "info", Format: "text"},
		Telemetry: Telemetry{
			OTLPEndpoint:   "localhost:4318",
			Insecure:       true,
			ServiceName:    "hkomcp",
			MetricInterval: Duration(time.Minute),
		},
	}
}

// Load reads path over the defaults. The decoder is chosen by extension:
// .yaml/.yml use YAML, .toml uses TOML. Load does not apply environment
// overrides or validate; see Resolve.
func Load(path string) (Config, error) {
	cfg := Default()
	// #nosec G304 -- path comes from explicit flag or local discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config %q: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// Resolve discovers and loads the config file, applies environment
// overrides from lookup, and validates the result. The returned path is
// empty when defaults were used.
func Resolve(explicitPath string, lookup func(string) (string, bool)) (Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, "", fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return ResolveFrom(explicitPath, cwd, homeDir, lookup)
}

// ResolveFrom is a testable variant of Resolve.
func ResolveFrom(explicitPath, cwd, homeDir string, lookup func(string) (string, bool)) (Config, string, error) {
	path, found, err := DiscoverPathFrom(explicitPath, cwd, homeDir)
	if err != nil {
		return Config{}, "", err
	}
	cfg := Default()
	if found {
		if cfg, err = Load(path); err != nil {
			return Config{}, "", err
		}
	}
	if lookup != nil {
		ApplyEnv(&cfg, lookup)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// DiscoverPathFrom resolves the config location with first-match semantics:
// the explicit path, ./hkomcp.yaml, ./hkomcp.toml, ~/.hkomcp/config.yaml.
// A missing explicit path is an error; missing discovered paths are skipped.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		clean = filepath.Clean(clean)
		info, err := os.Stat(clean)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("config file %q not found", clean)
			}
			return "", false, fmt.Errorf("checking config path %q: %w", clean, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", clean)
		}
		return clean, true, nil
	}

	candidates := []string{
		filepath.Join(cwd, projectYAMLName),
		filepath.Join(cwd, projectTOMLName),
	}
	if homeDir != "" {
		candidates = append(candidates, filepath.Join(homeDir, ".hkomcp", homeConfigName))
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// ApplyEnv overrides cfg from HKOMCP_* variables. Setting
// HKOMCP_OTLP_ENDPOINT also enables telemetry.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookupNonEmpty(lookup, EnvBaseURL); ok {
		cfg.Upstream.BaseURL = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogLevel); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookupNonEmpty(lookup, EnvTransport); ok {
		cfg.Server.Transport = strings.ToLower(v)
	}
	if v, ok := lookupNonEmpty(lookup, EnvAddr); ok {
		cfg.Server.Addr = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvOTLPEndpoint); ok {
		cfg.Telemetry.OTLPEndpoint = v
		cfg.Telemetry.Enabled = true
	}
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg and reports every failing field.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("config: %s failed %q (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}

// fieldPath turns "Config.Server.MaxBody" into "Server.MaxBody".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
