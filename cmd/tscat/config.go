package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/tscat/internal/config"
	"github.com/justyntemme/tscat/internal/exchange"
)

func addConfig(topLevel *cobra.Command, o *rootOptions) {
	var author, store, format string
	var reset bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration.",
		Example: `
tscat config
tscat config --author "Jane Doe" --export-format votable
tscat config --reset
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if reset {
				backup, err := config.GenerateConfig(o.configs.Path())
				if err != nil {
					return err
				}
				if backup != "" {
					fmt.Fprintf(out, "Backed up %s\n", backup)
				}
				return o.configs.LoadFrom(o.configs.Path())
			}
			if format != "" {
				if _, err := exchange.ParseFormat(format); err != nil {
					return err
				}
				o.configs.SetExportFormat(format)
			}
			if author != "" {
				o.configs.SetDefaultAuthor(author)
			}
			if store != "" {
				o.configs.SetStorePath(store)
			}

			cfg := o.configs.Get()
			fmt.Fprintf(out, "config:         %s\n", o.configs.Path())
			fmt.Fprintf(out, "store.path:     %s\n", cfg.Store.Path)
			fmt.Fprintf(out, "author:         %s\n", cfg.Catalogue.DefaultAuthor)
			fmt.Fprintf(out, "export.format:  %s\n", cfg.Export.Format)
			fmt.Fprintf(out, "driver.timeout: %s\n", cfg.Driver.Timeout())
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "Author of new catalogues and events.")
	cmd.Flags().StringVar(&store, "set-store", "", "Default catalogue database.")
	cmd.Flags().StringVar(&format, "export-format", "", `Default export format, "json" or "votable".`)
	cmd.Flags().BoolVar(&reset, "reset", false, "Back up the config file and write the defaults.")
	topLevel.AddCommand(cmd)
}
