package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"deepscan/internal/config"
	"deepscan/internal/journal"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent analysis runs from the local journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.JournalPath == "" {
			return fmt.Errorf("run journal is disabled (journal_path is empty)")
		}

		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()

		runs, err := j.RecentRuns(context.Background(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		bold := color.New(color.Bold)
		bold.Printf("%-20s %-30s %-10s %6s %10s %6s\n", "WHEN", "REPOSITORY", "BRANCH", "ROUNDS", "DURATION", "SCORE")
		for _, r := range runs {
			branch := r.Branch
			if branch == "" {
				branch = "-"
			}
			fmt.Printf("%-20s %-30s %-10s %6d %10v %5d%%\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				truncate(r.Repository, 30), branch, r.Rounds,
				r.Duration.Round(10*time.Millisecond), r.Completeness)
		}
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
