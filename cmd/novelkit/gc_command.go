package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelkit/internal/asset/cleanup"
)

func newGCCommand(ctx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Find orphaned blob files that no metadata row references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(nil, func(rt *runtime) error {
				result, err := cleanup.Scan(cmd.Context(), rt.store, remove, rt.logger)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(result.Orphans) == 0 {
					fmt.Fprintln(out, "No orphaned blobs found")
					return nil
				}
				for _, rel := range result.Orphans {
					fmt.Fprintln(out, rel)
				}
				if remove {
					fmt.Fprintf(out, "Removed %d of %d orphaned blobs\n", len(result.Removed), len(result.Orphans))
				} else {
					fmt.Fprintf(out, "%d orphaned blobs found (re-run with --remove to delete)\n", len(result.Orphans))
				}
				for _, scanErr := range result.Errors {
					fmt.Fprintf(out, "warning: %s: %v\n", scanErr.Path, scanErr.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Delete orphaned blobs instead of just listing them")
	return cmd
}
