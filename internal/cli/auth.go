package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cli/browser"
	"github.com/spf13/cobra"

	"github.com/mcoot/letsplay/internal/callback"
	"github.com/mcoot/letsplay/internal/factory"
)

func newLoginCmd() *cobra.Command {
	var (
		token     string
		wait      time.Duration
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with Steam",
		Long: `Log in with Steam through the backend.

By default a browser is opened on the backend's Steam login page and the
command waits for the redirect back to a local listener. With --token an
already issued session token is stored directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := NewOutput(cfg.Output)

			if token != "" {
				if err := app.Credentials.SetCredential(ctx, token); err != nil {
					return err
				}
			} else if err := waitForRedirect(ctx, wait, noBrowser); err != nil {
				return err
			}

			// A new session must not see the previous session's cache
			if err := app.Library.InvalidateAll(ctx); err != nil {
				out.PrintWarning(err)
			}

			profile, err := app.Library.LoadProfile(ctx)
			if err != nil {
				out.PrintWarning(fmt.Errorf("logged in, but the profile could not be loaded: %w", err))
				out.PrintMessage("Logged in")
				return nil
			}
			out.Print(profile)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Store this session token instead of logging in through the browser")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "How long to wait for the login redirect")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the login URL without opening a browser")

	return cmd
}

// waitForRedirect runs the loopback listener until the backend redirects back
func waitForRedirect(ctx context.Context, wait time.Duration, noBrowser bool) error {
	server := callback.NewServer(app.Credentials, callback.DefaultConfig(), app.Logger)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() { _ = server.Shutdown(context.WithoutCancel(ctx)) }()

	loginURL := app.API.LoginURL(server.URL())
	_, _ = fmt.Fprintf(os.Stderr, "Log in to Steam at:\n  %s\n", loginURL)

	if !noBrowser {
		if err := browser.OpenURL(loginURL); err != nil {
			app.Logger.Debug("could not open browser", slog.String("error", err.Error()))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := server.Wait(waitCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s waiting for the login redirect", wait)
		}
		return err
	}
	return nil
}

func newLogoutCmd() *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and drop the session's cached data",
		Long: `Log out. The profile and game library are dropped; the friend list stays
cached unless --forget is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Library.Logout(cmd.Context(), forget); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Logged out")
			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "forget", false, "Also drop the cached friend list")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := StatusResult{
				LoggedIn: app.Credentials.IsLoggedIn(),
				Storage:  storageDescription(),
			}

			if result.LoggedIn {
				if claims, ok := app.Credentials.Claims(); ok {
					result.Claims = &claims
				}
				if profile, err := app.Library.LoadProfile(cmd.Context()); err == nil {
					result.Profile = profile
				}
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func storageDescription() string {
	switch cfg.Storage {
	case factory.StorageTypeFile:
		return "file " + cfg.StoragePath
	case factory.StorageTypeRedis:
		return "redis"
	default:
		return cfg.Storage
	}
}
