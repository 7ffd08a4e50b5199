package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelkit/internal/asset/repair"
)

func newRepairCommand(ctx *commandContext) *cobra.Command {
	var strategyName string

	cmd := &cobra.Command{
		Use:   "repair <project-id>",
		Short: "Reconcile a project's asset urls against the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := repair.ParseStrategy(strategyName)
			if err != nil {
				return err
			}

			return ctx.withRuntime(nil, func(rt *runtime) error {
				p, err := rt.projects.Load(args[0])
				if err != nil {
					return err
				}
				warnings, err := rt.repairer.RepairProject(cmd.Context(), p, strategy)
				if err != nil {
					return err
				}
				if err := rt.projects.Save(p); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Repaired %d assets with %s strategy\n", len(p.Assets), strategy)
				for _, warning := range warnings {
					fmt.Fprintf(out, "warning: asset %s: %v\n", warning.AssetID, warning.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "validate", "Repair strategy (validate or proactive)")
	return cmd
}
