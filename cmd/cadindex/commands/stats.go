package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	stats, err := application.Store.Stats(ctx)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Total records", strconv.Itoa(stats.TotalRecords)},
		{"Indexed vectors", strconv.Itoa(stats.Indexed)},
	}
	for kind, n := range stats.ByKind {
		rows = append(rows, []string{"Kind " + string(kind), strconv.Itoa(n)})
	}
	ui.Table([]string{"Metric", "Value"}, rows)
	return nil
}
