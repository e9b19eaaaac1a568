// Package cmd defines the CLI commands for the wpsite executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nailsmag/wpsite/internal/api"
	"github.com/nailsmag/wpsite/internal/app"
	"github.com/nailsmag/wpsite/internal/build"
	"github.com/nailsmag/wpsite/internal/cdn"
	"github.com/nailsmag/wpsite/internal/config"
	"github.com/nailsmag/wpsite/internal/logging"
	"github.com/nailsmag/wpsite/internal/seo"
	"github.com/nailsmag/wpsite/internal/wordpress"
)

type appKeyType string

const appKey appKeyType = "app"

// App is the service container the commands use. Tests inject their own.
type App interface {
	Close() error
	Logger() *zap.Logger
	Gateway() *wordpress.Client
	Resolver() seo.Resolver
	CDN() cdn.Rewriter
	Builder(ctx context.Context) (*build.Builder, error)
	Server() *api.Server
}

// newApp is the application factory; a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type rootFlags struct {
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "wpsite",
		Short: "Static site tooling for a WordPress-backed magazine.",
		Long: `wpsite reads posts, pages, menus and options from the WordPress REST API,
derives SEO metadata for each record, and writes the site's RSS feed and
sitemap. It can also run a preview server over the same content.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.cfgFile, flags.envFile)
			if err != nil {
				return err
			}
			if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
				cfg.Output.Backend = config.BackendMemory
				cfg.PubSub = config.PubSubConfig{}
			}
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.Server.Port = port
			}

			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			ctx = context.WithValue(ctx, configKey{}, cfg)
			cmd.SetContext(ctx)
			return nil
		},

	}

	cmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (YAML); environment variables override it")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMetaCmd())
	return cmd
}

type configKey struct{}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func resolveConfig(ctx context.Context) config.Config {
	cfg, _ := ctx.Value(configKey{}).(config.Config)
	return cfg
}

// execute runs root and then releases the application services. Cobra skips
// post-run hooks when RunE fails, so the cleanup lives here.
func execute(ctx context.Context, root *cobra.Command) error {
	cmd, err := root.ExecuteContextC(ctx)
	if cmd != nil && cmd.Context() != nil {
		closeApp(cmd.Context())
	}
	return err
}

func closeApp(ctx context.Context) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return
	}
	logger := appInstance.Logger()
	if err := appInstance.Close(); err != nil {
		logger.Warn("close application services", zap.Error(err))
	}
	_ = logger.Sync()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := execute(context.Background(), newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, "wpsite:", err)
		os.Exit(1)
	}
}
