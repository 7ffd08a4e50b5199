package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelkit/internal/project"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect stored project documents",
	}

	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))

	return projectCmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List project documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ids, err := project.NewStore(cfg.ProjectsDir()).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No projects found")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project document summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p, err := project.NewStore(cfg.ProjectsDir()).Load(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, p)
			}

			out := cmd.OutOrStdout()
			for _, line := range sectionHeader(out, p.Title) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "ID:         %s\n", p.ID)
			fmt.Fprintf(out, "Paragraphs: %d\n", len(p.Paragraphs))
			fmt.Fprintf(out, "Assets:     %d\n", len(p.Assets))
			fmt.Fprintf(out, "Referenced: %d\n", len(p.ReferencedIDs()))
			fmt.Fprintf(out, "Updated:    %s\n", valueOrDash(p.UpdatedAt.Format("2006-01-02 15:04:05")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the full document as JSON")
	return cmd
}
