package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"go.uber.org/zap"
)

var defaultConfigPaths = []string{
	"./config.yml",
	"./uncommitted/config.yml",
	"/etc/foundry/foundry.yml",
	"/etc/foundry/navigator.yml",
	"~/.foundry/foundry.yaml",
	"~/.foundry/navigator.yaml",
}

// DefaultConfigPaths returns the built-in fallback locations of the base config
// file, with the home directory expanded.
func DefaultConfigPaths() []string {
	out := make([]string, len(defaultConfigPaths))
	for i, p := range defaultConfigPaths {
		out[i] = expandHome(p)
	}
	return out
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// CLIArgs carries the command-line choices that shape the config file list.
type CLIArgs struct {
	DisableDefaultConfig bool
	ConfigPaths          []string
}

// Source is one layer of settings data.
type Source struct {
	name string
	load func() (map[string]any, error)
}

// Name identifies the source in logs and errors.
func (s Source) Name() string { return s.name }

// Load returns the key/value data contributed by the source.
func (s Source) Load() (map[string]any, error) { return s.load() }

// Sources decides which files, environment variables and overrides feed the
// settings tree. The file list is configured once; later Configure calls only
// log a warning.
type Sources struct {
	logger       *zap.Logger
	envPrefix    string
	secretsDir   string
	overrides    map[string]any
	defaultPaths []string

	mu         sync.Mutex
	configured bool
	paths      []string
}

// SourcesOption configures a Sources at construction time.
type SourcesOption func(*Sources)

// WithEnvPrefix replaces DefaultEnvPrefix. Matching is case-insensitive.
func WithEnvPrefix(prefix string) SourcesOption {
	return func(s *Sources) {
		if prefix != "" {
			s.envPrefix = prefix
		}
	}
}

// WithSecretsDir enables the lowest-precedence secrets directory source, where
// each regular file contributes its trimmed contents under its own name.
func WithSecretsDir(dir string) SourcesOption {
	return func(s *Sources) {
		s.secretsDir = dir
	}
}

// WithOverrides sets explicit values that win over every other source. Keys
// may be dotted ("server.port") to address nested values.
func WithOverrides(overrides map[string]any) SourcesOption {
	return func(s *Sources) {
		s.overrides = overrides
	}
}

// WithDefaultPaths replaces the built-in default config paths.
func WithDefaultPaths(paths []string) SourcesOption {
	return func(s *Sources) {
		s.defaultPaths = slices.Clone(paths)
	}
}

// NewSources builds an unconfigured Sources.
func NewSources(logger *zap.Logger, opts ...SourcesOption) *Sources {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sources{
		logger:       logger.Named("config"),
		envPrefix:    DefaultEnvPrefix,
		defaultPaths: DefaultConfigPaths(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure fixes the config file list: the default paths unless disabled,
// followed by every CLI path that exists. Missing CLI paths are logged and
// skipped. Only the first call has an effect.
func (s *Sources) Configure(args CLIArgs) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configured {
		s.logger.Warn("config sources already configured, ignoring",
			zap.Strings("config_paths", args.ConfigPaths),
			zap.Bool("disable_default_config", args.DisableDefaultConfig),
		)
		return
	}

	paths := make([]string, 0, len(s.defaultPaths)+len(args.ConfigPaths))
	if !args.DisableDefaultConfig {
		paths = append(paths, s.defaultPaths...)
	}
	for _, p := range args.ConfigPaths {
		abs := absPath(p)
		if !isRegularFile(abs) {
			s.logger.Warn("could not find config path", zap.String("path", abs))
			continue
		}
		paths = append(paths, abs)
	}

	s.paths = paths
	s.configured = true
}

// Configured reports whether Configure has been called.
func (s *Sources) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured
}

// ConfigPaths returns the configured file list as de-duplicated absolute
// paths. Before Configure it falls back to the default paths without
// configuring, so a later Configure still takes effect.
func (s *Sources) ConfigPaths() []string {
	s.mu.Lock()
	paths := s.paths
	configured := s.configured
	s.mu.Unlock()

	if !configured {
		s.logger.Warn("config paths not configured, using defaults")
		paths = s.defaultPaths
	}

	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		abs := absPath(p)
		if !slices.Contains(unique, abs) {
			unique = append(unique, abs)
		}
	}
	return unique
}

// MergeOrder lists the sources from lowest to highest precedence: the secrets
// directory, the config files from last to first, the environment and the
// explicit overrides. The first configured file therefore wins among files.
func (s *Sources) MergeOrder() []Source {
	paths := s.ConfigPaths()
	order := make([]Source, 0, len(paths)+3)
	if s.secretsDir != "" {
		order = append(order, s.secretsSource())
	}
	for i := len(paths) - 1; i >= 0; i-- {
		order = append(order, fileSource(paths[i]))
	}
	order = append(order, s.envSource())
	if len(s.overrides) > 0 {
		order = append(order, overridesSource(s.overrides))
	}
	return order
}

func fileSource(path string) Source {
	return Source{
		name: "file:" + path,
		load: func() (map[string]any, error) {
			info, err := os.Stat(path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				return map[string]any{}, nil
			case err != nil:
				return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
			case !info.Mode().IsRegular():
				return map[string]any{}, nil
			}
			raw, err := file.Provider(path).ReadBytes()
			if err != nil {
				return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
			}
			data, err := kyaml.Parser().Unmarshal(raw)
			if err != nil {
				return nil, fmt.Errorf("%w %s: %w", ErrParse, path, err)
			}
			if data == nil {
				data = map[string]any{}
			}
			return data, nil
		},
	}
}

func (s *Sources) envSource() Source {
	prefix := strings.ToLower(s.envPrefix)
	return Source{
		name: "env:" + s.envPrefix,
		load: func() (map[string]any, error) {
			provider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
				lower := strings.ToLower(key)
				if !strings.HasPrefix(lower, prefix) || len(lower) == len(prefix) {
					return "", nil
				}
				return strings.TrimPrefix(lower, prefix), envValue(value)
			})
			return provider.Read()
		},
	}
}

// envValue decodes JSON objects and arrays so structured fields can be set
// from the environment. Anything else stays a string.
func envValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return raw
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return raw
	}
	return decoded
}

func (s *Sources) secretsSource() Source {
	dir := s.secretsDir
	return Source{
		name: "secrets:" + dir,
		load: func() (map[string]any, error) {
			entries, err := os.ReadDir(dir)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					s.logger.Warn("secrets directory does not exist", zap.String("path", dir))
					return map[string]any{}, nil
				}
				return nil, fmt.Errorf("%w %s: %w", ErrRead, dir, err)
			}
			out := make(map[string]any, len(entries))
			for _, entry := range entries {
				if !entry.Type().IsRegular() {
					continue
				}
				p := filepath.Join(dir, entry.Name())
				data, err := os.ReadFile(p)
				if err != nil {
					return nil, fmt.Errorf("%w %s: %w", ErrRead, p, err)
				}
				out[strings.ToLower(entry.Name())] = strings.TrimSpace(string(data))
			}
			return out, nil
		},
	}
}

func overridesSource(overrides map[string]any) Source {
	return Source{
		name: "overrides",
		load: func() (map[string]any, error) {
			return confmap.Provider(overrides, ".").Read()
		},
	}
}

func absPath(p string) string {
	abs, err := filepath.Abs(expandHome(p))
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
