package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/justyntemme/tscat/internal/app"
	"github.com/justyntemme/tscat/internal/exchange"
	"github.com/justyntemme/tscat/internal/printers"
)

// parseFormat accepts an empty flag, which leaves the choice to the file
// extension.
func parseFormat(s string) (exchange.Format, error) {
	if s == "" {
		return "", nil
	}
	return exchange.ParseFormat(s)
}

func addImport(topLevel *cobra.Command, o *rootOptions) {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file or directory>...",
		Short: "Import catalogues and events from JSON or VOTable files.",
		Long: `Import reads every file given, or every .json, .xml and .vot file below a
directory, and adds the catalogues and events to the database. Entities keep
their uuids: a catalogue or event already stored under the same uuid is
overwritten with the imported fields, and links from the file are added to
the ones it already has.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *app.Session) error {
				p := printers.New(cmd.OutOrStdout())
				for _, path := range args {
					d, err := s.Import(ctx, path, f)
					if err != nil {
						return err
					}
					p.Imported(path, d)
				}
				return s.SaveSync(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", `Input format, "json" or "votable" (default from the extension).`)
	topLevel.AddCommand(cmd)
}
