package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
	"github.com/drafthaus/cadindex/internal/domain"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export a drawing's flattened entity table as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	rec, err := application.Store.Get(ctx, domain.ContentID(args[0]))
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s is not in the index", args[0])
	}
	if err != nil {
		return err
	}

	if exportOutput == "" {
		fmt.Print(rec.CSVData)
		return nil
	}
	if err := os.WriteFile(exportOutput, []byte(rec.CSVData), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	ui.Success("Wrote %s", exportOutput)
	return nil
}
