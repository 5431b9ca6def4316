package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/s0_data/collector"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a titled block header
func PrintHeader(title string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// printCollectResult prints the collection and quality summary
func printCollectResult(out io.Writer, result *collector.Result, elapsed time.Duration) {
	fmt.Fprintf(out, "   %-14s : %d\n", "Fetched", len(result.Tickers))
	fmt.Fprintf(out, "   %-14s : %d\n", "Failed", len(result.Failed()))
	fmt.Fprintf(out, "   %-14s : %.1fs\n", "Duration", elapsed.Seconds())

	q := result.Quality
	if q == nil {
		return
	}

	status := "PASSED"
	if !q.Passed {
		status = "FAILED"
	}
	fmt.Fprintf(out, "   %-14s : %s (score %.2f)\n", "Quality", status, q.QualityScore)
	for _, key := range []string{"price", "history", "volume", "aligned", "profile", "market_cap"} {
		if v, ok := q.Coverage[key]; ok {
			fmt.Fprintf(out, "     %-12s : %5.1f%%\n", key, v*100)
		}
	}
	if len(q.Stale) > 0 {
		fmt.Fprintf(out, "   %-14s : %d tickers behind as-of\n", "Stale", len(q.Stale))
	}
}

// printRunResult prints the run header lines shown before the top-N summary
func printRunResult(out io.Writer, run *contracts.RankingRun, path string) {
	admitted := 0
	if run.Universe != nil {
		admitted = run.Universe.Count()
	}

	fmt.Fprintf(out, "   %-14s : %s\n", "Run ID", run.RunID.String())
	fmt.Fprintf(out, "   %-14s : %s\n", "As of", run.AsOf.Format("2006-01-02"))
	fmt.Fprintf(out, "   %-14s : %s\n", "Benchmark", run.Benchmark)
	fmt.Fprintf(out, "   %-14s : %d\n", "Admitted", admitted)
	fmt.Fprintf(out, "   %-14s : %d\n", "Ranked", len(run.Entries))
	fmt.Fprintf(out, "   %-14s : %d\n", "Dropped", len(run.Faults))
	fmt.Fprintf(out, "   %-14s : %d\n", "Table", len(run.Table))
	if path != "" {
		fmt.Fprintf(out, "   %-14s : %s\n", "Output", path)
	}
	fmt.Fprintf(out, "   %-14s : %.1fs\n", "Duration", run.Duration().Seconds())
}
