package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RouteModule registers routes on the router mounted at the API prefix.
type RouteModule func(r chi.Router) error

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRateLimiter overrides the default request rate limiter (primarily for tests).
func WithRateLimiter(limiter rateLimiter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiter
	}
}

// WithRateLimit replaces the limiter with a token bucket. A non-positive rate
// disables limiting.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiterFromSettings(RateLimitSettings{RPS: rps, Burst: burst})
	}
}

// WithRouteModule mounts module under the API prefix. Modules are mounted in
// the order they are given.
func WithRouteModule(name string, module RouteModule) RouterOption {
	return func(cfg *routerConfig) {
		cfg.modules = append(cfg.modules, namedModule{name: name, mount: module})
	}
}

// WithResponder replaces the responder used for errors raised by the router.
func WithResponder(responder *Responder) RouterOption {
	return func(cfg *routerConfig) {
		cfg.responder = responder
	}
}

// WithHandlerOptions passes options to the core endpoint handler.
func WithHandlerOptions(opts ...HandlerOption) RouterOption {
	return func(cfg *routerConfig) {
		cfg.handlerOpts = append(cfg.handlerOpts, opts...)
	}
}

type namedModule struct {
	name  string
	mount RouteModule
}

type routerConfig struct {
	enableLogging bool
	logger        *zap.Logger
	rateLimiter   rateLimiter
	responder     *Responder
	modules       []namedModule
	handlerOpts   []HandlerOption
}

// NewRouter creates the HTTP router described by settings: the standard
// middleware chain, the core endpoints, every route module under the API
// prefix and the static paths.
func NewRouter(settings *APISettings, logger *zap.Logger, opts ...RouterOption) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := routerConfig{
		enableLogging: settings.Server.EnableRequestLogging,
		logger:        logger,
		rateLimiter:   limiterFromSettings(settings.Server.RateLimit),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.responder == nil {
		cfg.responder = NewResponder(logger, settings.App.Debug)
	}

	root := chi.NewRouter()
	root.Use(requestIDMiddleware)
	root.Use(rateLimitMiddleware(cfg.rateLimiter))
	if cfg.enableLogging {
		root.Use(loggingMiddleware(cfg.logger))
	}
	root.Use(recoveryMiddleware(cfg.logger, cfg.responder))
	if settings.CORS.Enabled {
		cors, err := corsMiddleware(settings.CORS)
		if err != nil {
			return nil, err
		}
		root.Use(cors)
	}
	if settings.SecurityHeaders.Enabled {
		secure, err := securityHeadersMiddleware(settings.SecurityHeaders)
		if err != nil {
			return nil, err
		}
		root.Use(secure)
	}

	appPrefix := normalizePrefix(settings.App.AppPrefix)
	var mountErr error
	withPrefix(root, appPrefix, func(app chi.Router) {
		withPrefix(app, normalizePrefix(settings.APIRoute.Prefix), func(api chi.Router) {
			if settings.IncludeCore {
				h := NewHandler(settings.App, cfg.responder, cfg.handlerOpts...)
				api.Get("/health", h.handleHealth)
				api.Get("/info", h.handleInfo)
			}
			for _, m := range cfg.modules {
				if err := m.mount(api); err != nil {
					mountErr = fmt.Errorf("mount route module %s: %w", m.name, err)
					return
				}
				cfg.logger.Debug("route module mounted", zap.String("module", m.name))
			}
		})
		if mountErr != nil {
			return
		}
		for _, sp := range settings.StaticPaths {
			h, err := newStaticHandler(sp)
			if err != nil {
				mountErr = fmt.Errorf("mount static path %s: %w", sp.Name, err)
				return
			}
			mountPath := normalizePrefix(sp.MountPath)
			strip := appPrefix + mountPath
			if mountPath == "" {
				app.Mount("/", http.StripPrefix(appPrefix, h))
				continue
			}
			app.Mount(mountPath, http.StripPrefix(strip, h))
		}
	})
	if mountErr != nil {
		return nil, mountErr
	}
	return root, nil
}

// withPrefix registers routes under prefix, or directly on r when the prefix
// is empty.
func withPrefix(r chi.Router, prefix string, fn func(chi.Router)) {
	if prefix == "" {
		r.Group(fn)
		return
	}
	r.Route(prefix, fn)
}

// normalizePrefix returns "" for the root, otherwise a path with a leading
// slash and no trailing slash.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
