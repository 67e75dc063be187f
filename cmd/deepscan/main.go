// deepscan drives an LLM-backed repository-analysis service through
// adaptive rounds of querying and prints the converged structured report.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "deepscan",
	Short: "Adaptive iterative repository analysis",
	Long: `deepscan queries an external repository-analysis service in up to three
adaptive rounds. Round 0 asks for a complete report; later rounds target only
the sections still missing, until the report is complete enough or the round
budget is spent.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "deepscan.yaml", "config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
