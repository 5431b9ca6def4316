package report

import (
	"fmt"
	"io"

	"github.com/wonny/rsrank/internal/contracts"
)

// SummaryRows is how many entries the console summary shows
const SummaryRows = 20

// WriteSummary prints the top entries of the display table
func WriteSummary(out io.Writer, run *contracts.RankingRun, minPercentile int) {
	fmt.Fprintf(out, "✅ %d%% 이상: %d개 종목 (전체 %d, 제외 %d)\n",
		minPercentile, len(run.Table), len(run.Entries), len(run.Faults))
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(out, "  🏆 상위 %d개 종목 (as of %s, vs %s)\n", SummaryRows, run.AsOf.Format("2006-01-02"), run.Benchmark)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")

	n := len(run.Table)
	if n > SummaryRows {
		n = SummaryRows
	}
	for _, e := range run.Table[:n] {
		fmt.Fprintf(out, "%3d. %-6s | RS: %7.2f | Percentile: %3d | %s\n",
			e.Rank, e.Symbol, e.RawScore, e.Percentile, e.Sector)
	}
}
