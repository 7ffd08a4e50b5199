package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Build a standalone playable archive from a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(nil, func(rt *runtime) error {
				p, err := rt.projects.Load(args[0])
				if err != nil {
					return err
				}
				res, err := rt.exporter.Export(cmd.Context(), p)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, res)
				}

				out := cmd.OutOrStdout()
				size := "unknown size"
				if info, err := os.Stat(res.ArchivePath); err == nil {
					size = humanize.Bytes(uint64(info.Size()))
				}
				fmt.Fprintf(out, "Wrote %s (%s, %d assets)\n", res.ArchivePath, size, len(res.AssetPaths))

				paths := make([]string, 0, len(res.AssetPaths))
				for _, rel := range res.AssetPaths {
					paths = append(paths, rel)
				}
				sort.Strings(paths)
				for _, rel := range paths {
					fmt.Fprintf(out, "  %s\n", rel)
				}
				for _, warning := range res.Warnings {
					fmt.Fprintf(out, "warning: asset %s excluded: %v\n", warning.AssetID, warning.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the export result as JSON")
	return cmd
}
