package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roeyazroel/linear-task/internal/config"
	"github.com/roeyazroel/linear-task/internal/datacache"
	"github.com/roeyazroel/linear-task/internal/issueflow"
	"github.com/roeyazroel/linear-task/internal/linearapi"
	"github.com/roeyazroel/linear-task/internal/logger"
	"github.com/roeyazroel/linear-task/internal/storage"
	"github.com/roeyazroel/linear-task/internal/tabinfo"
)

// rootOptions is shared by every subcommand. cfg is filled in before any
// RunE executes.
type rootOptions struct {
	configPath string
	logStderr  bool
	cfg        config.Config

	clipboard     issueflow.Clipboard
	readClipboard func() (string, error)
}

func newRootOptions() *rootOptions {
	return &rootOptions{clipboard: issueflow.SystemClipboard{}}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "linear-task",
		Short:         "Create Linear issues for web pages from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := logger.ParseLevel(cfg.LogLevel)
			if opts.logStderr {
				logger.InitWriter(cmd.ErrOrStderr(), level)
			} else if err := logger.Init(cfg.LogFile, level); err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			logger.Info("cli: starting command=%s version=%s", cmd.CommandPath(), Version)
			logger.Debug("cli: configuration endpoint=%s store=%s timeout=%s",
				cfg.APIEndpoint, cfg.Store.Backend, cfg.Timeout)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}
	cmd.SetVersionTemplate(VersionInfo() + "\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultFilePath()+")")
	cmd.PersistentFlags().BoolVar(&opts.logStderr, "log-stderr", false, "write logs to stderr instead of the log file")

	cmd.AddCommand(
		newNewCmd(opts),
		newCreateCmd(opts),
		newListCmd(opts),
		newSettingsCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, o.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", o.cfg.Store.Backend, err)
	}
	return store, nil
}

func (o *rootOptions) newClient(apiKey string) *linearapi.Client {
	return linearapi.NewClient(linearapi.ClientConfig{
		Token:    apiKey,
		Endpoint: o.cfg.APIEndpoint,
		Timeout:  o.cfg.Timeout,
	})
}

func (o *rootOptions) newSession(store storage.Store) *datacache.Session {
	return datacache.NewSession(store, func(apiKey string) datacache.Remote {
		return o.newClient(apiKey)
	})
}

// friendly rewrites errors a user can act on.
func friendly(err error) error {
	if errors.Is(err, datacache.ErrNoCredential) {
		return fmt.Errorf("%w; run `linear-task settings set-key <key>` first", err)
	}
	return err
}

func (o *rootOptions) newResolver() *tabinfo.Resolver {
	r := tabinfo.NewResolver(o.cfg.FetchTitle, o.cfg.Timeout)
	if o.readClipboard != nil {
		r.ReadClipboard = o.readClipboard
	}
	return r
}
