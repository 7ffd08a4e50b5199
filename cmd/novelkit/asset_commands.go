package main

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"novelkit/internal/asset"
	"novelkit/internal/project"
)

func newAssetCommand(ctx *commandContext) *cobra.Command {
	assetCmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage stored assets",
	}

	assetCmd.AddCommand(newAssetAddCommand(ctx))
	assetCmd.AddCommand(newAssetListCommand(ctx))
	assetCmd.AddCommand(newAssetRemoveCommand(ctx))

	return assetCmd
}

func newAssetAddCommand(ctx *commandContext) *cobra.Command {
	var category string
	var name string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "add <project-id> <file>",
		Short: "Upload a media file into a project's asset store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, path := args[0], args[1]

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %q: %w", path, err)
			}
			mimeType := mime.TypeByExtension(filepath.Ext(path))
			if mimeType == "" {
				mimeType = http.DetectContentType(data)
			}
			if idx := strings.Index(mimeType, ";"); idx > 0 {
				mimeType = mimeType[:idx]
			}
			displayName := strings.TrimSpace(name)
			if displayName == "" {
				displayName = filepath.Base(path)
			}

			a := asset.Asset{
				ID:       asset.NewID(),
				Name:     displayName,
				Type:     asset.TypeForMIME(mimeType),
				Category: asset.ParseCategory(category),
			}
			a.Metadata.Format = mimeType

			return ctx.withRuntime(nil, func(rt *runtime) error {
				h, err := rt.store.Save(cmd.Context(), projectID, a, data)
				if err != nil {
					return err
				}
				a.URL = h
				a.Metadata.Size = int64(len(data))

				if jsonOut {
					return writeJSON(cmd, a)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s as %s (%s, %s)\n",
					displayName, a.ID, a.Category, humanize.Bytes(uint64(len(data))))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "other", "Asset category (background, character, bgm, se, other)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the file name)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the stored asset as JSON")
	return cmd
}

func newAssetListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's stored assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(nil, func(rt *runtime) error {
				assets, err := rt.store.ListByProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, assets)
				}

				out := cmd.OutOrStdout()
				if len(assets) == 0 {
					fmt.Fprintln(out, "No assets stored for this project")
					return nil
				}
				rows := make([][]string, 0, len(assets))
				for _, a := range assets {
					rows = append(rows, []string{
						a.ID,
						a.Name,
						string(a.Type),
						string(a.Category),
						humanize.Bytes(uint64(a.Metadata.Size)),
						humanize.Time(a.Metadata.UploadedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "NAME", "TYPE", "CATEGORY", "SIZE", "UPLOADED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the asset list as JSON")
	return cmd
}

func newAssetRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <project-id> <asset-id>",
		Short: "Delete an asset and clear every reference to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, assetID := args[0], args[1]

			return ctx.withRuntime(nil, func(rt *runtime) error {
				rt.cache.Evict(projectID, assetID)
				if err := rt.store.Delete(cmd.Context(), projectID, assetID); err != nil {
					return err
				}

				p, err := rt.projects.Load(projectID)
				switch {
				case errors.Is(err, project.ErrNotFound):
					// No document to cascade into.
				case err != nil:
					return err
				default:
					p.RemoveAsset(assetID)
					if err := rt.projects.Save(p); err != nil {
						return err
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from project %s\n", assetID, projectID)
				return nil
			})
		},
	}
}
