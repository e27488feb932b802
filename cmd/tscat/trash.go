package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/tscat/internal/app"
)

func addTrash(topLevel *cobra.Command, o *rootOptions) {
	var restore, purge bool
	cmd := &cobra.Command{
		Use:   "trash <catalogue>...",
		Short: "Move catalogues to the trash, restore them or delete them for good.",
		Example: `
tscat trash flares
tscat trash flares --restore
tscat trash flares --delete
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if restore && purge {
				return errors.New("--restore and --delete are exclusive")
			}
			return o.withSession(cmd, func(ctx context.Context, s *app.Session) error {
				uuids, err := s.Resolve(ctx, args)
				if err != nil {
					return err
				}
				verb := "Moved %d catalogues to the trash\n"
				switch {
				case restore:
					verb = "Restored %d catalogues\n"
					err = s.RestoreFromTrash(ctx, uuids)
				case purge:
					verb = "Deleted %d catalogues\n"
					err = s.DeletePermanently(ctx, uuids)
				default:
					err = s.MoveToTrash(ctx, uuids)
				}
				if err != nil {
					return err
				}
				if err := s.SaveSync(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), verb, len(uuids))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "Restore from the trash.")
	cmd.Flags().BoolVar(&purge, "delete", false, "Delete permanently.")
	topLevel.AddCommand(cmd)
}
