package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hkomcp.yaml", `
upstream:
  base_url: http://mirror.local/opendata
  lunar_date_single_separator: true
server:
  transport: http
  addr: 0.0.0.0:9000
  read_timeout: 5s
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	want.Upstream = Upstream{BaseURL: "http://mirror.local/opendata", LunarDateSingleSeparator: true}
	want.Server.Transport = TransportHTTP
	want.Server.Addr = "0.0.0.0:9000"
	want.Server.ReadTimeout = Duration(5 * time.Second)
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hkomcp.toml", `
[server]
transport = "http"
write_timeout = "2m"
max_body = 4096

[telemetry]
enabled = true
otlp_endpoint = "collector:4318"
metric_interval = "15s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.WriteTimeout.Std() != 2*time.Minute {
		t.Fatalf("WriteTimeout = %v, want 2m", cfg.Server.WriteTimeout.Std())
	}
	if cfg.Server.MaxBody != 4096 || !cfg.Telemetry.Enabled || cfg.Telemetry.OTLPEndpoint != "collector:4318" {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.Telemetry.MetricInterval.Std() != 15*time.Second {
		t.Fatalf("MetricInterval = %v, want 15s", cfg.Telemetry.MetricInterval.Std())
	}
	if cfg.Upstream.BaseURL != Default().Upstream.BaseURL {
		t.Fatalf("BaseURL = %q, want default", cfg.Upstream.BaseURL)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "extension", file: "hkomcp.json", content: "{}", want: "unsupported extension"},
		{name: "bad yaml", file: "bad.yaml", content: "server: [", want: "parsing config"},
		{name: "bad duration", file: "dur.yaml", content: "server:\n  read_timeout: soon\n", want: "invalid duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("Load(missing) error = nil")
	}
}

func TestDiscoverPathFrom(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	if _, found, err := DiscoverPathFrom("", cwd, home); err != nil || found {
		t.Fatalf("empty dirs: found=%v err=%v", found, err)
	}

	homePath := writeFile(t, home, filepath.Join(".hkomcp", "config.yaml"), "{}")
	if got, found, _ := DiscoverPathFrom("", cwd, home); !found || got != homePath {
		t.Fatalf("home discovery = %q, %v", got, found)
	}

	tomlPath := writeFile(t, cwd, "hkomcp.toml", "")
	if got, _, _ := DiscoverPathFrom("", cwd, home); got != tomlPath {
		t.Fatalf("toml discovery = %q, want %q", got, tomlPath)
	}

	yamlPath := writeFile(t, cwd, "hkomcp.yaml", "")
	if got, _, _ := DiscoverPathFrom("", cwd, home); got != yamlPath {
		t.Fatalf("yaml discovery = %q, want %q", got, yamlPath)
	}

	if got, _, _ := DiscoverPathFrom(homePath, cwd, home); got != homePath {
		t.Fatalf("explicit = %q, want %q", got, homePath)
	}
	if _, _, err := DiscoverPathFrom(filepath.Join(cwd, "nope.yaml"), cwd, home); err == nil {
		t.Fatal("explicit missing path error = nil")
	}
}

func TestResolveFromAppliesEnv(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, cwd, "hkomcp.yaml", "log:\n  level: warn\n")

	cfg, path, err := ResolveFrom("", cwd, "", envMap(map[string]string{
		EnvBaseURL:      "http://127.0.0.1:8081/opendata",
		EnvTransport:    "HTTP",
		EnvAddr:         "127.0.0.1:9999",
		EnvOTLPEndpoint: "otel:4318",
		EnvLogLevel:     "  ",
	}))
	if err != nil {
		t.Fatalf("ResolveFrom() error = %v", err)
	}
	if path != filepath.Join(cwd, "hkomcp.yaml") {
		t.Fatalf("path = %q", path)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("blank env override replaced log level: %q", cfg.Log.Level)
	}
	if cfg.Upstream.BaseURL != "http://127.0.0.1:8081/opendata" || cfg.Server.Transport != TransportHTTP || cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.OTLPEndpoint != "otel:4318" {
		t.Fatalf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Upstream.BaseURL = "not a url"
	cfg.Server.Transport = "grpc"
	cfg.Server.MaxBody = 0
	cfg.Log.Level = "trace"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, field := range []string{"Upstream.BaseURL", "Server.Transport", "Server.MaxBody", "Log.Level"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("Validate() error %q missing %s", err, field)
		}
	}

	if _, _, err := ResolveFrom("", t.TempDir(), "", envMap(map[string]string{EnvTransport: "carrier-pigeon"})); err == nil {
		t.Fatal("ResolveFrom() accepted invalid transport")
	}
	if _, _, err := ResolveFrom("", t.TempDir(), "", noEnv); err != nil {
		t.Fatalf("ResolveFrom(defaults) error = %v", err)
	}
}
