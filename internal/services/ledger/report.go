package ledger

import (
	"fmt"
	"strings"
	"time"
)

// DailyReport renders a human-readable usage report for one UTC day.
func (l *Ledger) DailyReport(date time.Time) string {
	stats := l.DailyStats(date)

	if stats.Queries == 0 {
		return fmt.Sprintf("=== Daily Report: %s ===\nNo queries recorded.", stats.Date)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Daily Report: %s ===\n", stats.Date)
	fmt.Fprintf(&b, "Queries: %d (successful: %d, failed: %d)\n", stats.Queries, stats.Successful, stats.Failed)
	fmt.Fprintf(&b, "Prompt tokens: %d\n", stats.PromptTokens)
	fmt.Fprintf(&b, "Response tokens: %d\n", stats.ResponseTokens)
	fmt.Fprintf(&b, "Total tokens: %d\n", stats.TotalTokens)
	fmt.Fprintf(&b, "Estimated cost: $%.4f\n", stats.TotalCost)
	fmt.Fprintf(&b, "Average cost per query: $%.6f\n", stats.TotalCost/float64(stats.Queries))
	return b.String()
}

// MonthlyReport renders a human-readable usage report for one UTC month.
func (l *Ledger) MonthlyReport(year int, month time.Month) string {
	stats := l.MonthlyStats(year, month)

	if stats.Queries == 0 {
		return fmt.Sprintf("=== Monthly Report: %s ===\nNo queries recorded.", stats.Month)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Monthly Report: %s ===\n", stats.Month)
	fmt.Fprintf(&b, "Total queries: %d\n", stats.Queries)
	fmt.Fprintf(&b, "Total tokens: %d\n", stats.TotalTokens)
	fmt.Fprintf(&b, "Total cost: $%.2f\n", stats.TotalCost)
	fmt.Fprintf(&b, "Average cost per query: $%.6f\n", stats.TotalCost/float64(stats.Queries))
	return b.String()
}
