package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/foundry/navigator/internal/api"
	"github.com/foundry/navigator/internal/config"
)

func newTestResolver(t *testing.T, yaml string) *config.Resolver {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	logger := zaptest.NewLogger(t)
	sources := config.NewSources(logger, config.WithEnvPrefix("NAVTEST_APP_"))
	sources.Configure(config.CLIArgs{DisableDefaultConfig: true, ConfigPaths: []string{path}})
	return config.NewResolver(sources, logger)
}

const baseConfig = `
server:
  host: 127.0.0.1
  port: 0
  enable_request_logging: false
  shutdown_grace_period: 50ms
  rate_limit:
    rps: 0
`

func TestNewInitializesDependencies(t *testing.T) {
	resolver := newTestResolver(t, baseConfig)

	app, err := New(resolver, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if app.server == nil || app.router == nil || app.settings == nil {
		t.Fatalf("expected server, router, and settings to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.Settings().Server.ShutdownGracePeriod != 50*time.Millisecond {
		t.Fatalf("expected shutdown grace period from config, got %s", app.Settings().Server.ShutdownGracePeriod)
	}

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health status 200, got %d", rec.Code)
	}
}

func TestNewMountsConfiguredRouteModules(t *testing.T) {
	dataDir := t.TempDir()
	resolver := newTestResolver(t, baseConfig+`
app:
  route_modules: [datalake]
datalake:
  data_directory: `+dataDir+`
  timeseries_column: ts
  key_column: device
  supported_types: [csv]
`)

	app, err := New(resolver, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/datalake/optimise", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected optimise status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRejectsUnknownRouteModule(t *testing.T) {
	resolver := newTestResolver(t, baseConfig+`
app:
  route_modules: [warehouse]
`)

	_, err := New(resolver, zaptest.NewLogger(t))
	if !errors.Is(err, ErrUnknownRouteModule) {
		t.Fatalf("expected ErrUnknownRouteModule, got %v", err)
	}
}

func TestNewReturnsSettingsError(t *testing.T) {
	resolver := newTestResolver(t, `
server:
  port: 70000
`)

	_, err := New(resolver, zaptest.NewLogger(t))
	if !errors.Is(err, config.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := api.ServerSettings{
		Host:              "127.0.0.1",
		Port:              9090,
		ReadHeaderTimeout: 20 * time.Millisecond,
		WriteTimeout:      30 * time.Millisecond,
		IdleTimeout:       40 * time.Millisecond,
	}
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != "127.0.0.1:9090" {
		t.Fatalf("expected address 127.0.0.1:9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestStartAndShutdown(t *testing.T) {
	app, err := New(newTestResolver(t, baseConfig), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	select {
	case err := <-app.Errors():
		t.Fatalf("unexpected server error: %v", err)
	default:
	}
}

func TestRunUnknownEntrypoint(t *testing.T) {
	resolver := newTestResolver(t, baseConfig)

	err := Run(context.Background(), "migrate", resolver, zaptest.NewLogger(t), &strings.Builder{})
	if !errors.Is(err, ErrUnknownEntrypoint) {
		t.Fatalf("expected ErrUnknownEntrypoint, got %v", err)
	}
}

func TestRunPrintConfig(t *testing.T) {
	resolver := newTestResolver(t, baseConfig+`
datalake:
  key_column: device
`)

	var out strings.Builder
	if err := Run(context.Background(), "print-config", resolver, zaptest.NewLogger(t), &out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for _, want := range []string{"entrypoint: api", "key_column: device", "host: 127.0.0.1"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	resolver := newTestResolver(t, baseConfig)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.DefaultEntrypoint, resolver, zaptest.NewLogger(t), nil)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not stop after cancellation")
	}
}

func TestRegistries(t *testing.T) {
	if got := Entrypoints(); len(got) != 2 || got[0] != "api" || got[1] != "print-config" {
		t.Fatalf("unexpected entrypoints %v", got)
	}
	if got := RouteModules(); len(got) != 1 || got[0] != "datalake" {
		t.Fatalf("unexpected route modules %v", got)
	}
}
