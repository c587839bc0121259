package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
	"github.com/drafthaus/cadindex/internal/domain"
)

var removeByID string

var removeCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Remove a drawing from the index by path or record id",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().StringVar(&removeByID, "id", "", "remove by record id instead of path")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	contentID := removeByID
	if contentID == "" {
		if len(args) == 0 {
			return errors.New("a path argument or --id is required")
		}
		contentID = domain.ContentID(args[0])
	}

	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	rec, err := application.Store.Get(ctx, contentID)
	if errors.Is(err, domain.ErrNotFound) {
		ui.Warning("Not in index.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := application.Store.Delete(ctx, contentID); err != nil {
		return err
	}
	ui.Success("Removed %s", rec.Filename)
	return nil
}
