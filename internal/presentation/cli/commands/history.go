package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/presentation/cli/output"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reload cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of cycles to show")

	return cmd
}

func runHistory(limit int) error {
	app, err := requireApp()
	if err != nil {
		return err
	}
	formatter := app.Formatter

	repo := app.Container.HistoryRepository()
	if repo == nil {
		return fmt.Errorf("history persistence is disabled (history.enabled: false)")
	}

	results, err := repo.Recent(context.Background(), limit)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(results)
	}

	if len(results) == 0 {
		formatter.Info("no reload cycles recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := "ok"
		if !result.Success {
			status = "failed"
		}
		rows = append(rows, []string{
			result.StartedAt.Local().Format(time.DateTime),
			string(result.Strategy),
			string(result.Classification),
			fmt.Sprintf("%d", result.FileCount),
			result.Duration.Round(time.Millisecond).String(),
			status,
		})
	}

	return formatter.Table(
		[]string{"STARTED", "STRATEGY", "CLASSIFICATION", "FILES", "DURATION", "STATUS"},
		rows,
	)
}
