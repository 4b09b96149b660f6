/*
Package cli implements the blocker command line.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/npillmayer/blocker"
	"github.com/npillmayer/blocker/config"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/blocker/store"
	"github.com/npillmayer/schuko/tracing"
	"github.com/spf13/cobra"
)

// tracer traces with key 'blocker.cli'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.cli")
}

// Opener opens a storage backend for a configuration.
type Opener func(ctx context.Context, cfg config.Config) (storage.Store, error)

// app is the state shared by the commands of one invocation.
type app struct {
	open       Opener
	configFile string
	backend    string
	dataDir    string
	cfg        config.Config
	port       storage.Store
	store      *store.Store
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd(OpenBackend).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree; open selects the storage backend.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}
	root := &cobra.Command{
		Use:           "blocker",
		Short:         "Manage element blocking and styling rules",
		Version:       blocker.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default "+config.DefaultFile()+")")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "storage backend: memory, file, sqlite or redis")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory of the file and sqlite backends")
	root.AddCommand(
		a.addCmd(), a.rmCmd(), a.toggleCmd(), a.renameCmd(), a.listCmd(),
		a.toggleDomainCmd(), a.switchCmd("enable", true), a.switchCmd("disable", false),
		a.themeCmd(), a.cssCmd(), a.exportCmd(), a.importCmd(), a.backupsCmd(),
		a.serveCmd(), a.shortcutCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
		cfg.SQLitePath = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	tracer().Debugf("cli: backend %s", cfg.Backend)
	if a.port, err = a.open(ctx, cfg); err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	a.store = store.New(a.port, store.WithBackup(a.backup()))
	return a.store.Load(ctx)
}

func (a *app) teardown() error {
	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	return err
}
