package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/letsplay/internal/model"
)

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your Steam profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			profile, err := app.Library.LoadProfile(cmd.Context())
			if err := staleOrFail(out, err, profile != nil); err != nil {
				return err
			}

			out.Print(profile)
			return nil
		},
	}
}

func newFriendsCmd() *cobra.Command {
	var (
		refresh bool
		search  string
	)

	cmd := &cobra.Command{
		Use:   "friends",
		Short: "List your Steam friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			var (
				friends []model.Friend
				err     error
			)
			if refresh {
				friends, err = app.Library.RefetchFriends(cmd.Context())
			} else {
				friends, err = app.Library.LoadFriends(cmd.Context())
			}
			if err := staleOrFail(out, err, len(friends) > 0); err != nil {
				return err
			}

			if search != "" {
				friends = app.Library.SearchFriends(search)
			}
			if friends == nil {
				friends = []model.Friend{}
			}

			out.Print(friends)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch from the backend even if the cache is fresh")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show friends whose name contains this")

	return cmd
}

func newGamesCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "games",
		Short: "List the games you own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			var (
				lib model.GameLibrary
				err error
			)
			if refresh {
				lib, err = app.Library.RefetchOwnedGames(cmd.Context())
			} else {
				lib, err = app.Library.LoadOwnedGames(cmd.Context())
			}
			if err := staleOrFail(out, err, lib.Len() > 0); err != nil {
				return err
			}

			out.Print(lib.Sorted())
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch from the backend even if the cache is fresh")

	return cmd
}

// staleOrFail turns a failed refresh into a warning when older data is
// still available
func staleOrFail(out *Output, err error, hasData bool) error {
	if err == nil {
		return nil
	}
	if !hasData || !model.IsNetworkError(err) {
		return err
	}
	out.PrintWarning(err)
	return nil
}
