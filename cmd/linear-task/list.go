package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roeyazroel/linear-task/internal/datacache"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list [projects|teams|users|states]",
		Short:     "List the Linear collections the popup offers",
		Long:      "List one collection, or all of them when no kind is given. All kinds are fetched concurrently.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"projects", "teams", "users", "states"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kinds := datacache.Kinds
			if len(args) == 1 {
				kind, err := datacache.ParseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []datacache.Kind{kind}
			}

			store, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			session := opts.newSession(store)

			if len(kinds) > 1 {
				if err := session.Preload(ctx); err != nil {
					return friendly(err)
				}
			}

			out := cmd.OutOrStdout()
			for _, kind := range kinds {
				options, err := session.Options(ctx, kind)
				if err != nil {
					return friendly(err)
				}
				rows := make([][]string, 0, len(options))
				for _, opt := range options {
					rows = append(rows, []string{opt.ID, opt.Name})
				}
				if len(kinds) > 1 {
					fmt.Fprintln(out, headerStyle.Render(kind.Field().Label()))
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "NAME"}, rows))
			}
			return nil
		},
	}
	return cmd
}
