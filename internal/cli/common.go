package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcoot/letsplay/internal/model"
)

func newCommonCmd() *cobra.Command {
	var includeSelf bool

	cmd := &cobra.Command{
		Use:   "common <friend>...",
		Short: "List the games every given friend owns",
		Long: `List the games that every given friend owns. Friends are named by SteamID
or by their exact username (case-insensitive). With --include-self only games
you own as well are listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := NewOutput(cfg.Output)

			// Names resolve against the friend list
			friends, err := app.Library.LoadFriends(ctx)
			if err := staleOrFail(out, err, len(friends) > 0); err != nil {
				return err
			}

			if err := app.Library.SelectFriends(args); err != nil {
				return err
			}

			// Own playtime decorates the result; its absence is not fatal
			if !includeSelf {
				if _, err := app.Library.LoadOwnedGames(ctx); err != nil {
					app.Logger.Debug("own library unavailable", slog.String("error", err.Error()))
				}
			}

			if _, err := app.Library.FindCommonGames(ctx, includeSelf); err != nil {
				return err
			}

			sel := app.State.Selection()
			selected := make([]model.Friend, 0, sel.Len())
			for _, f := range app.State.Friends() {
				if sel.Has(f.SteamID) {
					selected = append(selected, f)
				}
			}

			out.Print(CommonGamesResult{
				Friends: selected,
				Games:   app.Library.CommonGameViews(),
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeSelf, "include-self", false, "Only list games you own too")

	return cmd
}
