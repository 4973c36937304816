package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/foundry/navigator/internal/api"
	"github.com/foundry/navigator/internal/config"
	"github.com/foundry/navigator/internal/datalake"
)

// ErrUnknownRouteModule is returned when app.route_modules names a module
// that is not registered.
var ErrUnknownRouteModule = errors.New("unknown route module")

// RouteModuleFactory builds a route module from the shared resolver.
type RouteModuleFactory func(resolver *config.Resolver, responder *api.Responder, logger *zap.Logger) (api.RouteModule, error)

var routeModules = map[string]RouteModuleFactory{
	"datalake": func(resolver *config.Resolver, responder *api.Responder, logger *zap.Logger) (api.RouteModule, error) {
		return datalake.NewHandler(resolver, responder, logger).Module(), nil
	},
}

// RouteModules lists the registered route module names.
func RouteModules() []string {
	names := make([]string, 0, len(routeModules))
	for name := range routeModules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	resolver *config.Resolver
	settings *api.APISettings
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
	errs     chan error
}

// New resolves the API settings and builds the router, its route modules and
// the HTTP server.
func New(resolver *config.Resolver, logger *zap.Logger, opts ...api.RouterOption) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings, err := config.Get[api.APISettings](resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve api settings: %w", err)
	}

	responder := api.NewResponder(logger, settings.App.Debug)
	routerOpts := []api.RouterOption{api.WithResponder(responder)}
	for _, name := range settings.App.RouteModules {
		factory, ok := routeModules[name]
		if !ok {
			return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownRouteModule, name, RouteModules())
		}
		module, err := factory(resolver, responder, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build route module %s: %w", name, err)
		}
		routerOpts = append(routerOpts, api.WithRouteModule(name, module))
	}
	routerOpts = append(routerOpts, opts...)

	router, err := api.NewRouter(settings, logger, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP handler: %w", err)
	}

	return &App{
		resolver: resolver,
		settings: settings,
		router:   router,
		logger:   logger,
		server:   NewServer(settings.Server, router),
		errs:     make(chan error, 1),
	}, nil
}

// NewServer creates and configures an HTTP server from the server settings.
func NewServer(cfg api.ServerSettings, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the listener and serves in a goroutine. Bind failures are
// returned; later server failures are reported by Errors.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errs <- err
		}
	}()
	return nil
}

// Errors delivers the error that stopped the server, if any.
func (a *App) Errors() <-chan error {
	return a.errs
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Settings returns the API settings the app was built from.
func (a *App) Settings() *api.APISettings {
	return a.settings
}

// Shutdown stops the server gracefully, closing it outright when ctx expires
// first.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := a.server.Close(); closeErr != nil {
			a.logger.Error("forced close failed", zap.Error(closeErr))
			return errors.Join(err, closeErr)
		}
		return err
	}
	return nil
}
