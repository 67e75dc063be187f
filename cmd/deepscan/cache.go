package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"deepscan/internal/config"
	"deepscan/internal/journal"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Result cache operations",
}

// Hit/miss counters inside a running process die with it; the journal is
// the durable record, so stats are read from there.
var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit statistics from the run journal",
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

		stats, err := j.AggregateStats(context.Background())
		if err != nil {
			return err
		}
		if stats.TotalRuns == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		hitRate := float64(stats.CacheHits) / float64(stats.TotalRuns) * 100

		bold := color.New(color.Bold)
		bold.Println("Cache statistics")
		fmt.Printf("  runs:             %d\n", stats.TotalRuns)
		fmt.Printf("  cache hits:       %d (%.1f%%)\n", stats.CacheHits, hitRate)
		fmt.Printf("  avg rounds:       %.1f\n", stats.AvgRounds)
		fmt.Printf("  avg completeness: %.0f%%\n", stats.AvgCompleteness)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
