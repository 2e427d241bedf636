package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display pattern cache and classifier route statistics",
	Long: `Show the pattern cache's hit/miss counters and the classifier's
per-route running success rates, the running counters the classifier
uses to damp its route confidence.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	cs := eng.CacheStats()
	bold := color.New(color.Bold)
	bold.Println("Pattern cache")
	fmt.Printf("  entries:   %d\n", cs.Size)
	fmt.Printf("  hits:      %d\n", cs.Hits)
	fmt.Printf("  misses:    %d\n", cs.Misses)
	fmt.Printf("  hit rate:  %.2f\n", cs.HitRate)

	bold.Println("\nClassifier routes")
	for _, rs := range eng.RouteStats() {
		fmt.Printf("  %-10s attempts=%-6d successes=%-6d success_rate=%.2f\n",
			rs.Route, rs.Attempts, rs.Successes, rs.SuccessRate)
	}
	return nil
}
