package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mcoot/letsplay/internal/factory"
)

var (
	cfg *Config
	app *factory.App
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "letsplay",
		Short: "Find the Steam games you and your friends all own",
		Long: `letsplay logs in to Steam through the lets-play backend, loads your
profile, friend list and game library, and lists the games that every
selected friend owns.

Fetched data is cached locally for 20 minutes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			logger := cfg.logger(os.Stderr)

			var err error
			app, err = factory.New(cfg.factoryConfig(logger))
			if err != nil {
				return fmt.Errorf("failed to initialise: %w", err)
			}

			// Restore the session from the last run
			return app.Credentials.Load(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	fs := rootCmd.PersistentFlags()
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Backend URL (env: LETSPLAY_SERVER)")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "Local storage: memory, file, redis (env: LETSPLAY_STORAGE)")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "State file for file storage (env: LETSPLAY_STORAGE_PATH)")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for redis storage (env: LETSPLAY_REDIS_URL)")
	fs.DurationVar(&cfg.StaleTime, "stale-time", cfg.StaleTime, "How long fetched data is reused (env: LETSPLAY_STALE_TIME)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout (env: LETSPLAY_TIMEOUT)")
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json (env: LETSPLAY_OUTPUT)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output (env: LETSPLAY_VERBOSE)")

	bindEnv(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newMeCmd())
	rootCmd.AddCommand(newFriendsCmd())
	rootCmd.AddCommand(newGamesCmd())
	rootCmd.AddCommand(newCommonCmd())
	rootCmd.AddCommand(newCacheCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if app != nil {
		_ = app.Close()
	}
	if err != nil {
		NewOutput(cfg.Output).PrintError(err)
		os.Exit(1)
	}
}
