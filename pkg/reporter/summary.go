package reporter

import (
	"fmt"
	"io"
	"sort"

	"github.com/opscart/finops-scan/pkg/review"
)

// PrintSummary writes the per-label row counts to the given writer,
// the operator-facing end-of-run digest.
func PrintSummary(w io.Writer, rows []review.Row) {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[string(row.Result.Label)]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintf(w, "=== Review Summary ===\n")
	fmt.Fprintf(w, "Rows: %d\n", len(rows))
	for _, label := range labels {
		fmt.Fprintf(w, "  %-22s %d\n", label, counts[label])
	}
}
