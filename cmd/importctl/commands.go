package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	app "github.com/mohammadpnp/member-import/internal/application/importing"
	"github.com/mohammadpnp/member-import/internal/bootstrap"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

type controlExecutor interface {
	Execute(ctx context.Context, in app.ControlInput) (app.ControlOutput, error)
}

func ownerFlag(cmd *cobra.Command) (string, error) {
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		owner = os.Getenv("IMPORT_OWNER")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("--owner or IMPORT_OWNER is required")
	}
	return owner, nil
}

func newStartCmd() *cobra.Command {
	var affiliateID string

	cmd := &cobra.Command{
		Use:   "start <file.csv>",
		Short: "Upload a roster and queue its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			in := app.StartImportInput{Filename: filepath.Base(args[0]), Data: data, OwnerID: owner}
			if affiliateID != "" {
				in.AffiliateID = &affiliateID
			}

			return withApp(cmd, func(a *bootstrap.App) error {
				out, err := a.StartImport.Execute(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeJSON(out)
			})
		},
	}
	cmd.Flags().StringVar(&affiliateID, "affiliate", "", "Default affiliate id for rows without one")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <import-id>",
		Short: "Show import progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			return withApp(cmd, func(a *bootstrap.App) error {
				out, err := a.Status.Execute(cmd.Context(), app.StatusInput{ImportID: args[0], OwnerID: owner})
				if err != nil {
					return err
				}
				return writeJSON(out)
			})
		},
	}
}

func newResultsCmd() *cobra.Command {
	var (
		action     string
		search     string
		chunkIndex int
		page       int
		perPage    int
	)

	cmd := &cobra.Command{
		Use:   "results <import-id>",
		Short: "List per-row import results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			in := app.RowResultsInput{
				ImportID: args[0],
				OwnerID:  owner,
				Filter:   domain.RowResultFilter{Action: domain.RowAction(action), Search: search},
				Page:     domain.Page{Page: page, PerPage: perPage},
			}
			if cmd.Flags().Changed("chunk") {
				in.Filter.ChunkIndex = &chunkIndex
			}
			return withApp(cmd, func(a *bootstrap.App) error {
				out, err := a.RowResults.Execute(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeJSON(out)
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Only rows with this action (created, updated, skipped, failed)")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive match on message, errors and row data")
	cmd.Flags().IntVar(&chunkIndex, "chunk", 0, "Only rows of this chunk index")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", domain.DefaultPerPage, "Rows per page")
	return cmd
}

func newControlCmd(use, short string, pick func(a *bootstrap.App) controlExecutor) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <import-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *bootstrap.App) error {
				out, err := pick(a).Execute(cmd.Context(), app.ControlInput{ImportID: args[0], OwnerID: owner})
				if err != nil {
					return err
				}
				return writeJSON(out)
			})
		},
	}
}
