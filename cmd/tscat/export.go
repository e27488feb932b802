package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/tscat/internal/app"
)

func addExport(topLevel *cobra.Command, o *rootOptions) {
	var format string
	cmd := &cobra.Command{
		Use:   "export <file> <catalogue>...",
		Short: "Export catalogues with their assigned events.",
		Example: `
tscat export flares.json flares
tscat export out.xml flares shocks --format votable
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *app.Session) error {
				uuids, err := s.Resolve(ctx, args[1:])
				if err != nil {
					return err
				}
				if err := s.Export(ctx, args[0], f, uuids); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d catalogues to %s\n", len(uuids), args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", `Output format, "json" or "votable" (default from the extension, then export.format).`)
	topLevel.AddCommand(cmd)
}
