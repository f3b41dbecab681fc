// Package ratelimit enforces per-session query limits with a sliding
// window over the last hour and the last 24 hours.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const violationFileName = "rate_limits.jsonl"

// Limiter tracks request timestamps per session and decides
// allow / allow-with-warning / deny for each turn.
type Limiter struct {
	maxPerHour       int
	maxPerDay        int
	warningThreshold float64

	mu       sync.Mutex
	sessions map[string][]time.Time

	logMu   sync.Mutex
	logFile *os.File

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// New creates a Limiter writing violations under logDir.
func New(cfg models.LimitsConfig, logDir string) (*Limiter, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	path := filepath.Join(logDir, violationFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open violation log %s: %w", path, err)
	}

	rl := &Limiter{
		maxPerHour:       cfg.RateLimitPerHour,
		maxPerDay:        cfg.RateLimitPerDay,
		warningThreshold: cfg.RateLimitWarningThreshold,
		sessions:         make(map[string][]time.Time),
		logFile:          file,
		quit:             make(chan struct{}),
		done:             make(chan struct{}),
		now:              time.Now,
	}
	go rl.cleanup()
	return rl, nil
}

// Check evaluates the session's window without consuming a slot. The
// hourly cap is evaluated before the daily cap so the user always gets
// the denial with the fastest-resetting limit.
func (rl *Limiter) Check(sessionID string) models.RateDecision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	// Prune to the daily window first; the hourly window is a subset of
	// the pruned list so nothing is double-counted.
	daily := pruneOlderThan(rl.sessions[sessionID], now.Add(-24*time.Hour))
	rl.sessions[sessionID] = daily

	var hourly []time.Time
	hourCutoff := now.Add(-time.Hour)
	for _, t := range daily {
		if t.After(hourCutoff) {
			hourly = append(hourly, t)
		}
	}

	hourlyCount := len(hourly)
	hourlyRemaining := rl.maxPerHour - hourlyCount

	if hourlyCount >= rl.maxPerHour {
		rl.logViolation(sessionID, models.LimitTypeHourly, hourlyCount)

		oldest := hourly[0]
		for _, t := range hourly[1:] {
			if t.Before(oldest) {
				oldest = t
			}
		}
		minutes := int(oldest.Add(time.Hour).Sub(now).Minutes())
		if minutes < 1 {
			minutes = 1
		}
		return models.RateDecision{
			Allowed: false,
			Message: fmt.Sprintf(
				"Rate limit reached: you've asked %d questions this hour. Please wait %d minutes before asking another question.",
				rl.maxPerHour, minutes),
			LimitType: models.LimitTypeHourly,
		}
	}

	dailyCount := len(daily)
	dailyRemaining := rl.maxPerDay - dailyCount

	if dailyCount >= rl.maxPerDay {
		rl.logViolation(sessionID, models.LimitTypeDaily, dailyCount)
		return models.RateDecision{
			Allowed: false,
			Message: fmt.Sprintf(
				"Daily limit reached: you've asked %d questions in the last 24 hours. Please come back tomorrow.",
				rl.maxPerDay),
			LimitType: models.LimitTypeDaily,
		}
	}

	if float64(hourlyCount)/float64(rl.maxPerHour) >= rl.warningThreshold {
		return models.RateDecision{
			Allowed: true,
			Message: fmt.Sprintf(
				"You have %d questions remaining this hour (%d/%d used).",
				hourlyRemaining, hourlyCount, rl.maxPerHour),
			Remaining: hourlyRemaining,
		}
	}

	return models.RateDecision{
		Allowed:   true,
		Remaining: min(hourlyRemaining, dailyRemaining),
	}
}

// Record consumes one slot in the session's window. Called only after the
// turn has passed both gates.
func (rl *Limiter) Record(sessionID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sessions[sessionID] = append(rl.sessions[sessionID], rl.now())
}

// Close stops the cleanup goroutine and releases the violation log.
func (rl *Limiter) Close() error {
	rl.stopOnce.Do(func() { close(rl.quit) })
	<-rl.done

	rl.logMu.Lock()
	defer rl.logMu.Unlock()
	return rl.logFile.Close()
}

func (rl *Limiter) logViolation(sessionID string, limitType models.LimitType, count int) {
	violation := models.RateLimitViolation{
		Timestamp: time.Now().UTC(),
		SessionID: models.SessionPrefix(sessionID),
		LimitType: limitType,
		Count:     count,
	}

	line, err := json.Marshal(violation)
	if err != nil {
		fiberlog.Errorf("ratelimit: failed to marshal violation: %v", err)
		return
	}
	line = append(line, '\n')

	rl.logMu.Lock()
	_, err = rl.logFile.Write(line)
	rl.logMu.Unlock()
	if err != nil {
		fiberlog.Errorf("ratelimit: failed to log violation: %v", err)
	}
}

// cleanup drops idle sessions so the map does not grow unbounded. It
// runs until Close.
func (rl *Limiter) cleanup() {
	defer close(rl.done)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-rl.quit:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		cutoff := rl.now().Add(-24 * time.Hour)
		for sessionID, times := range rl.sessions {
			filtered := pruneOlderThan(times, cutoff)
			if len(filtered) == 0 {
				delete(rl.sessions, sessionID)
			} else {
				rl.sessions[sessionID] = filtered
			}
		}
		rl.mu.Unlock()
	}
}

func pruneOlderThan(times []time.Time, cutoff time.Time) []time.Time {
	filtered := times[:0:0]
	for _, t := range times {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
