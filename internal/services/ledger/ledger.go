// Package ledger is the source of truth for usage and cost accounting.
// Every request attempt appends exactly one immutable record to a JSONL
// file; all budget and stats queries aggregate that file on demand.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const usageFileName = "usage.jsonl"

// Ledger tracks token usage and cost across all sessions.
type Ledger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	pricing models.PricingConfig
}

// New opens (creating if needed) the usage ledger under logDir.
func New(logDir string, pricing models.PricingConfig) (*Ledger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	path := filepath.Join(logDir, usageFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage ledger %s: %w", path, err)
	}

	return &Ledger{
		path:    path,
		file:    file,
		pricing: pricing,
	}, nil
}

// Close releases the underlying ledger file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Cost computes the USD cost of a single request from its token counts.
func (l *Ledger) Cost(promptTokens, responseTokens int) float64 {
	inputCost := float64(promptTokens) / 1_000_000.0 * l.pricing.InputPerMillion
	outputCost := float64(responseTokens) / 1_000_000.0 * l.pricing.OutputPerMillion
	return inputCost + outputCost
}

// RecordUsage appends one record to the ledger. It never fails the caller:
// persistence errors are logged and swallowed so that accounting can not
// take down the chat path.
func (l *Ledger) RecordUsage(sessionID string, questionLength, promptTokens, responseTokens, totalTokens int, latency time.Duration, success bool, errMsg string) {
	record := models.UsageRecord{
		Timestamp:      time.Now().UTC(),
		SessionID:      models.SessionPrefix(sessionID),
		QuestionLength: questionLength,
		PromptTokens:   promptTokens,
		ResponseTokens: responseTokens,
		TotalTokens:    totalTokens,
		CostUSD:        math.Round(l.Cost(promptTokens, responseTokens)*1e6) / 1e6,
		ResponseTimeMs: latency.Milliseconds(),
		Success:        success,
		Error:          errMsg,
	}

	line, err := json.Marshal(record)
	if err != nil {
		fiberlog.Errorf("ledger: failed to marshal usage record: %v", err)
		return
	}
	line = append(line, '\n')

	// One write call per record under the lock keeps concurrent appends
	// from interleaving within a single line.
	l.mu.Lock()
	_, err = l.file.Write(line)
	l.mu.Unlock()
	if err != nil {
		fiberlog.Errorf("ledger: failed to append usage record: %v", err)
		fmt.Fprintf(os.Stderr, "ledger write failed: %v\n", err)
	}
}

// DailyStats aggregates the ledger for one UTC day (defaulting to today
// when date is the zero value).
func (l *Ledger) DailyStats(date time.Time) models.DailyStats {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	prefix := date.UTC().Format("2006-01-02")

	stats := models.DailyStats{Date: prefix}
	l.scan(prefix, func(r models.UsageRecord) {
		stats.Queries++
		stats.PromptTokens += r.PromptTokens
		stats.ResponseTokens += r.ResponseTokens
		stats.TotalTokens += r.TotalTokens
		stats.TotalCost += r.CostUSD
		if r.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
	})
	return stats
}

// MonthlyStats aggregates the ledger for one UTC month.
func (l *Ledger) MonthlyStats(year int, month time.Month) models.MonthlyStats {
	prefix := fmt.Sprintf("%04d-%02d", year, month)

	stats := models.MonthlyStats{Month: prefix}
	l.scan(prefix, func(r models.UsageRecord) {
		stats.Queries++
		stats.TotalTokens += r.TotalTokens
		stats.TotalCost += r.CostUSD
	})
	return stats
}

// WithinDailyLimit reports whether today's query count is strictly under
// the limit, along with the current count.
func (l *Ledger) WithinDailyLimit(limit int) (bool, int) {
	count := l.DailyStats(time.Time{}).Queries
	return count < limit, count
}

// WithinMonthlyBudget reports whether this month's cost is strictly under
// the budget, along with the current cost. The budget itself is not an
// allowed value.
func (l *Ledger) WithinMonthlyBudget(budget float64) (bool, float64) {
	now := time.Now().UTC()
	cost := l.MonthlyStats(now.Year(), now.Month()).TotalCost
	return cost < budget, cost
}

// scan streams every ledger record whose UTC timestamp starts with prefix
// into fn. Malformed lines are skipped; readers tolerate a ledger that is
// being appended to concurrently because records are whole-line atomic.
func (l *Ledger) scan(prefix string, fn func(models.UsageRecord)) {
	f, err := os.Open(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fiberlog.Warnf("ledger: failed to open %s for scan: %v", l.path, err)
		}
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fiberlog.Warnf("ledger: failed to close %s: %v", l.path, cerr)
		}
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var record models.UsageRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		if record.Timestamp.UTC().Format("2006-01-02")[:len(prefix)] != prefix {
			continue
		}
		fn(record)
	}
}
