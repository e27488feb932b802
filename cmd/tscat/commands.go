package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/justyntemme/tscat/internal/app"
	"github.com/justyntemme/tscat/internal/config"
	"github.com/justyntemme/tscat/internal/gui"
)

// rootOptions are the flags every command shares.
type rootOptions struct {
	ConfigPath string
	StorePath  string
	Debug      string

	configs *config.Manager
}

func New() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tscat",
		Short: "Catalogues of time-series events.",
		Long: `tscat keeps catalogues of time intervals in a local database. Without a
command it opens the catalogue window.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(o, nil)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.ConfigPath, "config", "", "Config file (default ~/.config/tscat/config.json).")
	flags.StringVar(&o.StorePath, "store", "", "Catalogue database, overrides store.path.")
	flags.StringVar(&o.Debug, "debug", "", `Debug categories, "all" or a list like "DRIVER,MODEL".`)

	addGUI(cmd, o)
	addLs(cmd, o)
	addImport(cmd, o)
	addExport(cmd, o)
	addTrash(cmd, o)
	addConfig(cmd, o)
	return cmd
}

func (o *rootOptions) load() error {
	path := o.ConfigPath
	if path == "" {
		path = config.ConfigPath()
	}
	o.configs = config.NewManager()
	if err := o.configs.LoadFrom(path); err != nil {
		return err
	}
	if err := o.configs.ParseError(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s: %v, using defaults\n", path, err)
	}
	return nil
}

// Config is the loaded configuration with command line overrides.
func (o *rootOptions) Config() config.Config {
	cfg := o.configs.Get()
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	if o.Debug != "" {
		cfg.Debug.Categories = o.Debug
	}
	return cfg
}

// withSession runs fn against an open session and closes it afterwards.
// Interrupts cancel the context.
func (o *rootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *app.Session) error) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := app.Open(ctx, o.Config())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}

func addGUI(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "gui [file or directory]...",
		Short: "Open the catalogue window (the default).",
		Long: `gui opens the catalogue window. Files given are imported once the window
is up, each as one step that can be undone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(o, args)
		},
	}
	topLevel.AddCommand(cmd)
}

func runGUI(o *rootOptions, imports []string) error {
	cfg := o.Config()
	manageConsole(cfg.Debug.Categories != "")

	s, err := app.Open(context.Background(), cfg)
	if err != nil {
		return err
	}
	gui.Main(o.configs, s, imports)
	return nil
}
