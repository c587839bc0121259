package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
	"github.com/drafthaus/cadindex/internal/domain"
)

var (
	queryTopK int
	queryKind string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Search the index for drawings matching a description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top", "k", 5, "number of results")
	queryCmd.Flags().StringVar(&queryKind, "kind", "", "filter by file kind (dwg or pdf)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind, err := parseKind(queryKind)
	if err != nil {
		return err
	}

	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	sp := ui.NewSpinner("Searching...")
	sp.Start()
	results, err := application.Search.Query(ctx, strings.Join(args, " "), queryTopK, kind)
	sp.Stop()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		ui.Info("No matches.")
		return nil
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			fmt.Sprintf("%.3f", r.Score),
			r.Record.Filename,
			string(r.Record.FileKind),
			truncate(r.Record.Description, 80),
		})
	}
	ui.Table([]string{"Score", "File", "Kind", "Description"}, rows)
	return nil
}

func parseKind(s string) (domain.FileKind, error) {
	switch s {
	case "":
		return "", nil
	case "dwg":
		return domain.KindDWG, nil
	case "pdf":
		return domain.KindPDF, nil
	default:
		return "", fmt.Errorf("invalid kind %q (want dwg or pdf)", s)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
