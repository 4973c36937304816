package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/foundry/navigator/internal/application"
	"github.com/foundry/navigator/internal/config"
	"github.com/foundry/navigator/internal/logging"
)

var signalNotify = signal.Notify

type cliOptions struct {
	disableDefaultConfig bool
	configPaths          []string
	trailingPaths        []string
	envPrefix            string
	secretsDir           string
}

func newCLI() (*kingpin.Application, *cliOptions) {
	opts := &cliOptions{}
	app := kingpin.New("navigator", "Navigator - layered settings and HTTP API bootstrap")
	app.Flag("disable-default-config", "Skip the default configuration file locations").BoolVar(&opts.disableDefaultConfig)
	app.Flag("config-path", "Configuration file to load; repeatable, earlier files take precedence").Short('C').StringsVar(&opts.configPaths)
	app.Flag("env-prefix", "Prefix of environment variables that override settings").Default(config.DefaultEnvPrefix).StringVar(&opts.envPrefix)
	app.Flag("secrets-dir", "Directory of files whose names are setting keys").StringVar(&opts.secretsDir)
	app.Arg("paths", "Additional configuration files").StringsVar(&opts.trailingPaths)
	return app, opts
}

func (o *cliOptions) args() config.CLIArgs {
	paths := make([]string, 0, len(o.configPaths)+len(o.trailingPaths))
	paths = append(paths, o.configPaths...)
	paths = append(paths, o.trailingPaths...)
	return config.CLIArgs{
		DisableDefaultConfig: o.disableDefaultConfig,
		ConfigPaths:          paths,
	}
}

func newResolver(opts *cliOptions, logger *zap.Logger) *config.Resolver {
	sourceOpts := []config.SourcesOption{config.WithEnvPrefix(opts.envPrefix)}
	if opts.secretsDir != "" {
		sourceOpts = append(sourceOpts, config.WithSecretsDir(opts.secretsDir))
	}
	sources := config.NewSources(logger, sourceOpts...)
	sources.Configure(opts.args())
	return config.NewResolver(sources, logger)
}

func main() {
	cli, opts := newCLI()
	kingpin.MustParse(cli.Parse(os.Args[1:]))

	bootstrap, err := logging.Bootstrap()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	resolver := newResolver(opts, bootstrap)
	settings, err := resolver.Root()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(settings.Logging)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signalContext(context.Background(), logger)
	defer stop()

	if err := application.Run(ctx, settings.Entrypoint, resolver, logger, os.Stdout); err != nil {
		logger.Fatal("entrypoint failed", zap.String("entrypoint", settings.Entrypoint), zap.Error(err))
	}
}

// signalContext returns a context cancelled on the first SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-quit:
			logger.Info("received signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(quit)
		cancel()
	}
}
