package main

import (
	"github.com/spf13/cobra"

	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/tui"
)

func newNewCmd(opts *rootOptions) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "new [url]",
		Short: "Open the issue popup for a page",
		Long: `Open the issue popup for a page. Without a URL argument the URL on
the clipboard is used. The page title is fetched unless --title is given or
fetch_title is disabled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var rawURL string
			if len(args) == 1 {
				rawURL = args[0]
			}
			tab, err := opts.newResolver().Resolve(ctx, rawURL, title)
			if err != nil {
				return err
			}

			store, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.ErrorWithErr(err, "cli: failed to close store")
				}
			}()

			popup := tui.NewPopup(tui.PopupDeps{
				Session:   opts.newSession(store),
				Store:     store,
				Clipboard: opts.clipboard,
				Tab:       tab,
				Describe:  opts.cfg.Describe,
			})
			return popup.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "page title (fetched from the page when empty)")

	return cmd
}
