package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := contextWithRequestID(r.Context(), requestID)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestIDFromContext(r.Context())),
			)
		})
	}
}

func recoveryMiddleware(logger *zap.Logger, responder *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("error", rec),
						zap.String("request_id", requestIDFromContext(r.Context())),
					)
					writeError(w, internalError(fmt.Errorf("panic: %v", rec)), responder.debug)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

var simpleHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Content-Type"}

func corsMiddleware(cfg CORSSettings) (func(http.Handler) http.Handler, error) {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowOrigins,
		AllowedMethods:   corsMethods(cfg.AllowMethods),
		AllowedHeaders:   append(slices.Clone(cfg.AllowHeaders), simpleHeaders...),
		ExposedHeaders:   cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	// An empty origin list means no origin, not every origin.
	if cfg.AllowOriginRegex != "" || len(cfg.AllowOrigins) == 0 {
		var re *regexp.Regexp
		if cfg.AllowOriginRegex != "" {
			var err error
			re, err = regexp.Compile("^(?:" + cfg.AllowOriginRegex + ")$")
			if err != nil {
				return nil, fmt.Errorf("compile allow_origin_regex: %w", err)
			}
		}
		opts.AllowOriginFunc = originMatcher(cfg.AllowOrigins, re)
	}
	return cors.Handler(opts), nil
}

func originMatcher(origins []string, re *regexp.Regexp) func(*http.Request, string) bool {
	return func(_ *http.Request, origin string) bool {
		if slices.Contains(origins, "*") || slices.Contains(origins, origin) {
			return true
		}
		return re != nil && re.MatchString(origin)
	}
}

func corsMethods(methods []string) []string {
	if slices.Contains(methods, "*") {
		return []string{
			http.MethodDelete, http.MethodGet, http.MethodHead, http.MethodOptions,
			http.MethodPatch, http.MethodPost, http.MethodPut,
		}
	}
	return methods
}

func securityHeadersMiddleware(cfg SecurityHeadersSettings) (func(http.Handler) http.Handler, error) {
	headers := make(map[string]string, len(cfg.AdditionalHeaders)+1)
	csp := cfg.CSP
	if csp == nil {
		csp = DefaultCSP()
	}
	policy, err := ParseCSP(csp)
	if err != nil {
		return nil, err
	}
	if policy != "" {
		headers["Content-Security-Policy"] = policy
	}
	for k, v := range cfg.AdditionalHeaders {
		headers[k] = v
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
