package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/foundry/navigator/internal/config"
)

// ErrUnknownEntrypoint is returned by Run for names without a registered
// entrypoint.
var ErrUnknownEntrypoint = errors.New("unknown entrypoint")

// Entrypoint is a top-level mode of the process, selected by the entrypoint
// setting. It runs until ctx is cancelled or its work is done.
type Entrypoint func(ctx context.Context, resolver *config.Resolver, logger *zap.Logger, out io.Writer) error

var entrypoints = map[string]Entrypoint{
	config.DefaultEntrypoint: Serve,
	"print-config":           PrintConfig,
}

// Entrypoints lists the registered entrypoint names.
func Entrypoints() []string {
	names := make([]string, 0, len(entrypoints))
	for name := range entrypoints {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run starts the entrypoint registered under name.
func Run(ctx context.Context, name string, resolver *config.Resolver, logger *zap.Logger, out io.Writer) error {
	ep, ok := entrypoints[name]
	if !ok {
		return fmt.Errorf("%w %q (registered: %v)", ErrUnknownEntrypoint, name, Entrypoints())
	}
	logger.Debug("starting entrypoint", zap.String("entrypoint", name))
	return ep(ctx, resolver, logger, out)
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down within the
// configured grace period.
func Serve(ctx context.Context, resolver *config.Resolver, logger *zap.Logger, _ io.Writer) error {
	app, err := New(resolver, logger)
	if err != nil {
		return err
	}
	if err := app.Start(); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-app.Errors():
		logger.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.Settings().Server.ShutdownGracePeriod)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// PrintConfig writes the merged settings tree to out as YAML.
func PrintConfig(_ context.Context, resolver *config.Resolver, _ *zap.Logger, out io.Writer) error {
	tree, err := resolver.Tree()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}
