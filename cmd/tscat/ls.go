package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/justyntemme/tscat/internal/app"
	"github.com/justyntemme/tscat/internal/printers"
)

func addLs(topLevel *cobra.Command, o *rootOptions) {
	var (
		showID  bool
		removed bool
	)
	cmd := &cobra.Command{
		Use:   "ls [catalogue...]",
		Short: "List catalogues, or the events of the named catalogues.",
		Example: `
tscat ls
tscat ls flares --id
tscat ls 2b0c1f5e-8d1e-4a5e-9a53-2f0ab0f0e3b1 --trash
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *app.Session) error {
				p := printers.New(cmd.OutOrStdout())
				p.ShowID = showID

				if len(args) == 0 {
					live, err := s.Catalogues(ctx, false)
					if err != nil {
						return err
					}
					trashed, err := s.Catalogues(ctx, true)
					if err != nil {
						return err
					}
					p.Catalogues(live, trashed)
					return nil
				}

				uuids, err := s.Resolve(ctx, args)
				if err != nil {
					return err
				}
				for _, id := range uuids {
					c, events, err := s.Catalogue(ctx, id, removed)
					if err != nil {
						return err
					}
					p.Events(c, events)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showID, "id", false, "Show uuids.")
	cmd.Flags().BoolVar(&removed, "trash", false, "List the events of the catalogue that are in the trash.")
	topLevel.AddCommand(cmd)
}
