package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStorageCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Show asset store usage and quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(nil, func(rt *runtime) error {
				info, err := rt.store.StorageInfo(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, info)
				}

				out := cmd.OutOrStdout()
				for _, line := range sectionHeader(out, "Asset storage") {
					fmt.Fprintln(out, line)
				}
				quota := "unlimited"
				available := "unlimited"
				if info.Total > 0 {
					quota = humanize.Bytes(uint64(info.Total))
					available = humanize.Bytes(uint64(info.Available))
				}
				rows := [][]string{
					{"Used", humanize.Bytes(uint64(info.Used))},
					{"Quota", quota},
					{"Available", available},
					{"Assets", fmt.Sprintf("%d", info.Assets)},
					{"Projects", fmt.Sprintf("%d", info.Projects)},
					{"Blob dir", rt.store.BlobDir()},
				}
				fmt.Fprintln(out, renderTable(
					[]string{"FIELD", "VALUE"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit storage info as JSON")
	return cmd
}
