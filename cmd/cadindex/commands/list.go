package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indexed drawings",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	records, err := application.Store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ui.Info("Index is empty.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ContentID[:12],
			rec.Filename,
			string(rec.FileKind),
			strconv.Itoa(rec.EntityCount),
			strconv.Itoa(rec.LayerCount),
		})
	}
	ui.Table([]string{"ID", "File", "Kind", "Entities", "Layers"}, rows)
	return nil
}
