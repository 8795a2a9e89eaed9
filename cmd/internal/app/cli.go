package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vidtube/cmd/identity/migrations"
)

// Build metadata, set with -ldflags "-X vidtube/cmd/internal/app.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type cliFlags struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the vidtube CLI. Running it without a subcommand serves HTTP.
func NewRootCommand() *cobra.Command {
	var flags cliFlags

	root := &cobra.Command{
		Use:           "vidtube",
		Short:         "vidtube account and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := flags.configPath
			if path == "" {
				path = os.Getenv(ConfigFileEnvKey)
			}
			_, err := LoadConfigFile(path)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML file with VIDTUBE_* defaults (env wins)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides VIDTUBE_LOG_LEVEL")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), flags)
			},
		},
		newMigrateCommand(&flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "vidtube %s (build: %s)\n", Version, BuildTime)
			},
		},
	)
	return root
}

func newMigrateCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect the account schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(migrations.Up), string(migrations.Down), string(migrations.Status)},
		RunE: func(cmd *cobra.Command, args []string) error {
			verb := migrations.Up
			if len(args) == 1 {
				verb = migrations.Command(strings.ToLower(args[0]))
			}

			cfg := loadCLIConfig(*flags)
			log := NewLogger(cfg.LogLevel, cfg.LogFormat)
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("%w: migrate needs VIDTUBE_DATABASE_URL", ErrConfig)
			}

			ctx := cmd.Context()
			pool, err := NewDBPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := Migrate(ctx, pool, verb); err != nil {
				return err
			}
			log.Info("db.migrate.done", "command", string(verb))
			return nil
		},
	}
}

func serve(ctx context.Context, flags cliFlags) error {
	cfg := loadCLIConfig(flags)
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("app.init.fail", "err", err)
		return err
	}
	return a.Run(ctx)
}

func loadCLIConfig(flags cliFlags) Config {
	cfg := LoadConfig()
	if lvl := strings.TrimSpace(flags.logLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg
}
