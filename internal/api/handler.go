package api

import (
	"context"
	"net/http"
	"slices"
	"time"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler serves the core endpoints mounted when include_core is set.
type Handler struct {
	app       AppSettings
	responder *Responder

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler describing app.
func NewHandler(app AppSettings, responder *Responder, opts ...HandlerOption) *Handler {
	h := &Handler{
		app:       app,
		responder: responder,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	if h.responder == nil {
		h.responder = NewResponder(nil, app.Debug)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.responder.JSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	})
}

func (h *Handler) handleInfo(w http.ResponseWriter, _ *http.Request) {
	h.responder.JSON(w, http.StatusOK, infoResponse{
		Title:        h.app.Title,
		Description:  h.app.Description,
		Version:      h.app.Version,
		RootPath:     h.app.RootPath,
		RouteModules: slices.Clone(h.app.RouteModules),
	})
}

// RequestID returns the request id stored by the router middleware.
func RequestID(ctx context.Context) string {
	return requestIDFromContext(ctx)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
