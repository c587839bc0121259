package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
	"github.com/drafthaus/cadindex/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest drawing files or directories into the index",
	Long: `Ingest one or more DWG, DXF or PDF files. Directory arguments are
scanned recursively for supported files. Files already in the index
are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	paths, err := collectPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		ui.Warning("No supported files found (looked for .dwg, .dxf, .pdf)")
		return nil
	}

	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	bar := ui.NewProgressBar(int64(len(paths)), "Ingesting")
	var added, present, skipped, failed int
	results := application.Orchestrator.IngestBatch(ctx, paths, func(res ingest.Result) {
		bar.Add(1)
		switch res.Status {
		case ingest.StatusAdded:
			added++
		case ingest.StatusAlreadyPresent:
			present++
		case ingest.StatusSkipped:
			skipped++
		case ingest.StatusFailed:
			failed++
		}
	})
	bar.Finish()

	ui.Success("Added %d", added)
	if present > 0 {
		ui.Info("Already present: %d", present)
	}
	if skipped > 0 {
		ui.Warning("Skipped %d (not drawings)", skipped)
	}
	if failed > 0 {
		ui.Error("Failed %d", failed)
		for _, res := range results {
			if res.Status == ingest.StatusFailed {
				ui.Error("  %s: %s", res.Path, res.Reason)
			}
		}
	}
	return nil
}

// collectPaths expands directory arguments into supported files.
func collectPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			found, err := ingest.ScanDir(arg)
			if err != nil {
				return nil, err
			}
			paths = append(paths, found...)
			continue
		}
		paths = append(paths, arg)
	}
	return paths, nil
}
