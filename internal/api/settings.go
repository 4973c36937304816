package api

import (
	"net"
	"strconv"
	"time"
)

// APISettings configures the HTTP surface. It is decoded from the root of the
// settings tree, so its sections sit beside entrypoint and logging.
type APISettings struct {
	App             AppSettings             `koanf:"app"`
	APIRoute        APIRouteSettings        `koanf:"api_route"`
	Server          ServerSettings          `koanf:"server"`
	CORS            CORSSettings            `koanf:"cors"`
	SecurityHeaders SecurityHeadersSettings `koanf:"security_headers"`
	StaticPaths     []StaticPathSettings    `koanf:"static_paths" validate:"dive"`
	IncludeCore     bool                    `koanf:"include_core"`
}

// AppSettings describes the application and the route modules it mounts.
type AppSettings struct {
	RouteModules []string       `koanf:"route_modules"`
	Debug        bool           `koanf:"debug"`
	Title        string         `koanf:"title"`
	Description  string         `koanf:"description"`
	Version      string         `koanf:"version"`
	RootPath     string         `koanf:"root_path"`
	AppPrefix    string         `koanf:"app_prefix"`
	Extra        map[string]any `koanf:",remain,omitempty"`
}

// APIRouteSettings controls where route modules are mounted.
type APIRouteSettings struct {
	Prefix string         `koanf:"prefix"`
	Extra  map[string]any `koanf:",remain,omitempty"`
}

// RateLimitSettings configures the token bucket applied to every request. A
// non-positive rate disables limiting.
type RateLimitSettings struct {
	RPS   float64 `koanf:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

// ServerSettings configures the listener and the http.Server timeouts.
type ServerSettings struct {
	Host                 string            `koanf:"host"`
	Port                 int               `koanf:"port" validate:"gte=0,lte=65535"`
	ReadHeaderTimeout    time.Duration     `koanf:"read_header_timeout"`
	WriteTimeout         time.Duration     `koanf:"write_timeout"`
	IdleTimeout          time.Duration     `koanf:"idle_timeout"`
	ShutdownGracePeriod  time.Duration     `koanf:"shutdown_grace_period"`
	EnableRequestLogging bool              `koanf:"enable_request_logging"`
	RateLimit            RateLimitSettings `koanf:"rate_limit"`
	Extra                map[string]any    `koanf:",remain,omitempty"`
}

// Addr returns the host:port the server listens on.
func (s ServerSettings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CORSSettings configures cross-origin request handling.
type CORSSettings struct {
	Enabled          bool           `koanf:"enabled"`
	AllowOrigins     []string       `koanf:"allow_origins"`
	AllowMethods     []string       `koanf:"allow_methods"`
	AllowHeaders     []string       `koanf:"allow_headers"`
	AllowCredentials bool           `koanf:"allow_credentials"`
	AllowOriginRegex string         `koanf:"allow_origin_regex"`
	ExposeHeaders    []string       `koanf:"expose_headers"`
	MaxAge           int            `koanf:"max_age" validate:"gte=0"`
	Extra            map[string]any `koanf:",remain,omitempty"`
}

// SecurityHeadersSettings configures the headers added to every response. CSP
// is either a policy string or a map of directive to a source or a list of
// sources. An unset CSP uses DefaultCSP; an empty string sends no policy.
type SecurityHeadersSettings struct {
	Enabled           bool              `koanf:"enabled"`
	CSP               any               `koanf:"csp"`
	AdditionalHeaders map[string]string `koanf:"additional_headers"`
}

// StaticPathSettings mounts a directory of files under MountPath.
type StaticPathSettings struct {
	Name            string `koanf:"name" validate:"required"`
	MountPath       string `koanf:"mount_path" validate:"required,startswith=/"`
	Directory       string `koanf:"directory" validate:"required"`
	HTML            bool   `koanf:"html"`
	CheckDir        *bool  `koanf:"check_dir"`
	Override404File string `koanf:"override_404_file"`
}

// ShouldCheckDir reports whether the directory must exist at startup. It
// defaults to true.
func (s StaticPathSettings) ShouldCheckDir() bool {
	return s.CheckDir == nil || *s.CheckDir
}

// DefaultCSP is the policy sent when security headers are enabled without a
// csp setting.
func DefaultCSP() map[string]any {
	return map[string]any{
		"default-src": "'self'",
		"img-src":     []any{"*"},
	}
}

// DefaultAPISettings returns the settings used for keys missing from every
// source.
func DefaultAPISettings() APISettings {
	return APISettings{
		App: AppSettings{
			RouteModules: []string{},
			Title:        "Navigator",
			Version:      "0.1.0",
			AppPrefix:    "/",
		},
		APIRoute: APIRouteSettings{Prefix: "/api"},
		Server: ServerSettings{
			Host:                 "0.0.0.0",
			Port:                 8002,
			ReadHeaderTimeout:    5 * time.Second,
			WriteTimeout:         15 * time.Second,
			IdleTimeout:          60 * time.Second,
			ShutdownGracePeriod:  10 * time.Second,
			EnableRequestLogging: true,
			RateLimit:            RateLimitSettings{RPS: 25, Burst: 50},
		},
		CORS: CORSSettings{
			AllowMethods: []string{"GET"},
			MaxAge:       600,
		},
		SecurityHeaders: SecurityHeadersSettings{
			AdditionalHeaders: map[string]string{
				"Cross-Origin-Opener-Policy": "same-origin",
				"Referrer-Policy":            "strict-origin-when-cross-origin",
				"Strict-Transport-Security":  "max-age=31556926; includeSubDomains",
				"X-Content-Type-Options":     "nosniff",
				"X-Frame-Options":            "DENY",
				"X-XSS-Protection":           "1; mode=block",
			},
		},
		StaticPaths: []StaticPathSettings{},
		IncludeCore: true,
	}
}

// SetDefaults resets s to DefaultAPISettings.
func (s *APISettings) SetDefaults() {
	*s = DefaultAPISettings()
}
