package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/storage"
	"github.com/roeyazroel/linear-task/internal/tui"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Edit the stored Linear API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			return tui.RunSettings(ctx, store)
		},
	}

	cmd.AddCommand(newSetKeyCmd(opts), newShowSettingsCmd(opts))
	return cmd
}

func newSetKeyCmd(opts *rootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the Linear API key (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var apiKey string
			if len(args) == 1 {
				apiKey = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read API key from stdin: %w", err)
				}
				apiKey = line
			}
			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				return errors.New("API key is empty")
			}

			if verify {
				viewer, err := opts.newClient(apiKey).GetViewer(ctx)
				if err != nil {
					return fmt.Errorf("verify API key: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Authenticated as "+viewer.Name))
			}

			store, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Save(ctx, storage.KeyAPIKey, apiKey); err != nil {
				return fmt.Errorf("save API key: %w", err)
			}
			logger.Info("cli: API key saved")
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(tui.SavedMessage))
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "check the key against the Linear API before saving")
	return cmd
}

func newShowSettingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with the API key masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			apiKey, found, err := storage.LoadString(ctx, store, storage.KeyAPIKey)
			if err != nil {
				return fmt.Errorf("load API key: %w", err)
			}
			keyText := mutedStyle.Render("not configured")
			if found && apiKey != "" {
				keyText = maskKey(apiKey)
			}

			cfg := opts.cfg
			rows := [][]string{
				{"api key", keyText},
				{"api endpoint", cfg.APIEndpoint},
				{"store", cfg.Store.Backend},
				{"timeout", cfg.Timeout.String()},
				{"log file", cfg.LogFile},
				{"log level", cfg.LogLevel},
				{"description", cfg.DescriptionTemplate},
				{"fetch title", fmt.Sprintf("%t", cfg.FetchTitle)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"SETTING", "VALUE"}, rows))
			return nil
		},
	}
}
