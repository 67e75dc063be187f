package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"deepscan/internal/ai"
	"deepscan/internal/analyst"
	"deepscan/internal/cache"
	"deepscan/internal/config"
	"deepscan/internal/journal"
	"deepscan/internal/orchestrator"
	"deepscan/internal/parser"
	"deepscan/internal/types"
)

var (
	analyzeBranch  string
	analyzeJSON    bool
	analyzeNoCache bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-url>",
	Short: "Run adaptive analysis against a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoURL := args[0]

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		service := analyst.NewClient(analyst.Options{
			BaseURL:           cfg.Analyst.BaseURL,
			Timeout:           cfg.Analyst.Timeout,
			RequestsPerMinute: cfg.Analyst.RequestsPerMinute,
		})

		// AI-assisted parsing is a capability, not a requirement: without an
		// API key the parser cascade is JSON → pattern.
		var completer parser.Completer
		if aiClient, err := ai.NewClient(ai.Config{}); err != nil {
			slog.Info("AI-assisted parsing disabled", "reason", err)
		} else {
			completer = aiClient
		}

		tiered := parser.New(parser.Options{
			AI:            completer,
			PrimaryModel:  cfg.Models.Primary,
			FallbackModel: cfg.Models.Fallback,
		})

		var sink orchestrator.MetricsSink
		if cfg.JournalPath != "" {
			j, err := journal.Open(cfg.JournalPath)
			if err != nil {
				slog.Warn("run journal unavailable", "path", cfg.JournalPath, "error", err)
			} else {
				defer j.Close()
				sink = j
			}
		}

		orch, err := orchestrator.New(orchestrator.Options{
			Service: service,
			Parser:  tiered,
			Sink:    sink,
		})
		if err != nil {
			return err
		}

		run := orch.Run
		var resultCache *cache.Cache
		if !analyzeNoCache {
			resultCache = cache.New(cache.Options{
				RedisAddr: cfg.Cache.RedisAddr,
				TTL:       cfg.Cache.TTL,
				Capacity:  cfg.Cache.Capacity,
				Sink:      sink,
			})
			defer resultCache.Close()

			run = func(ctx context.Context, repoURL, branch string) (*types.AdaptiveAnalysisResult, error) {
				return resultCache.GetOrCompute(ctx, repoURL, branch, func(ctx context.Context) (*types.AdaptiveAnalysisResult, error) {
					return orch.Run(ctx, repoURL, branch)
				})
			}
		}

		result, err := run(ctx, repoURL, analyzeBranch)
		if err != nil {
			return err
		}

		if resultCache != nil {
			stats := resultCache.Stats()
			slog.Debug("cache stats",
				"backend", stats.Backend, "hits", stats.Hits, "misses", stats.Misses)
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printReport(result)
		return nil
	},
}

func printReport(result *types.AdaptiveAnalysisResult) {
	bold := color.New(color.Bold)
	bold.Printf("Analysis of %s", result.Repository)
	if result.Branch != "" {
		fmt.Printf(" (%s)", result.Branch)
	}
	fmt.Printf("\n  rounds: %d  duration: %v  completeness: %d%%\n\n",
		len(result.Iterations), result.TotalDuration.Round(10*time.Millisecond), result.Completeness)

	if len(result.Result.Issues) > 0 {
		bold.Printf("Issues (%d)\n", len(result.Result.Issues))
		for _, issue := range result.Result.Issues {
			fmt.Printf("  %s %s", severityBadge(issue.Severity), issue.Title)
			if issue.Location != nil {
				fmt.Printf("  [%s:%d]", issue.Location.File, issue.Location.Line)
			}
			fmt.Println()
		}
		fmt.Println()
	}

	if len(result.Result.TestCoverage) > 0 {
		bold.Println("Test coverage")
		for metric, pct := range result.Result.TestCoverage {
			fmt.Printf("  %s: %.1f%%\n", metric, pct)
		}
		fmt.Println()
	}

	if deps := result.Result.Dependencies; !deps.Empty() {
		bold.Println("Dependencies")
		fmt.Printf("  vulnerable: %d  outdated: %d  deprecated: %d\n\n",
			len(deps.Vulnerable), len(deps.Outdated), len(deps.Deprecated))
	}

	if len(result.Result.BreakingChanges) > 0 {
		bold.Printf("Breaking changes (%d)\n", len(result.Result.BreakingChanges))
		for _, change := range result.Result.BreakingChanges {
			fmt.Printf("  - %s\n", change)
		}
		fmt.Println()
	}

	if len(result.Result.Recommendations) > 0 {
		bold.Println("Recommendations")
		for _, rec := range result.Result.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

func severityBadge(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint("[CRIT]")
	case types.SeverityHigh:
		return color.New(color.FgRed).Sprint("[HIGH]")
	case types.SeverityMedium:
		return color.New(color.FgYellow).Sprint("[MED ]")
	default:
		return color.New(color.FgCyan).Sprint("[LOW ]")
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeBranch, "branch", "", "branch to analyze (default: repository default)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the full result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "bypass the result cache")
	rootCmd.AddCommand(analyzeCmd)
}
