package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask <question>...",
	Short: "Ask a question answered from the indexed drawings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top", "k", 3, "number of drawings used as context")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	sp := ui.NewSpinner("Thinking...")
	sp.Start()
	answer, err := application.Search.Ask(ctx, strings.Join(args, " "), askTopK)
	sp.Stop()
	if err != nil {
		return err
	}

	ui.Info("%s", answer.Text)
	if len(answer.Sources) > 0 {
		ui.Info("")
		ui.Info("Sources:")
		for _, src := range answer.Sources {
			ui.Info("  %s (%.3f)", src.Record.Filename, src.Score)
		}
	}
	return nil
}
