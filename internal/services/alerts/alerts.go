// Package alerts sends best-effort operator notifications via ntfy.sh.
// Dispatch never blocks or fails the request that triggered it: failures
// return false and are logged.
package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
)

// Priority is the ntfy.sh message priority.
type Priority string

const (
	PriorityMin     Priority = "min"
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
	PriorityUrgent  Priority = "urgent"
)

// Dispatcher posts notifications to a single ntfy.sh topic.
type Dispatcher struct {
	url     string
	enabled bool
	timeout time.Duration
	client  *fasthttp.Client
}

// New creates a Dispatcher. It is disabled (Send returns false) when no
// topic is configured.
func New(cfg models.AlertsConfig) *Dispatcher {
	enabled := cfg.Enabled && cfg.Topic != ""
	url := ""
	if enabled {
		url = strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.Topic
	}

	return &Dispatcher{
		url:     url,
		enabled: enabled,
		timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		client:  &fasthttp.Client{},
	}
}

// Enabled reports whether the dispatcher has a destination topic.
func (d *Dispatcher) Enabled() bool {
	return d.enabled
}

// Send posts one notification. Returns true only when the topic accepted
// the message; every failure path returns false without an error.
func (d *Dispatcher) Send(title, message string, priority Priority, tags ...string) bool {
	if !d.enabled {
		return false
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Title", title)
	req.Header.Set("Priority", string(priority))
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	req.SetBodyString(message)

	if err := d.client.DoTimeout(req, resp, d.timeout); err != nil {
		fiberlog.Warnf("alerts: failed to send %q: %v", title, err)
		return false
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		fiberlog.Warnf("alerts: ntfy returned status %d for %q", resp.StatusCode(), title)
		return false
	}

	return true
}

// RateLimitHit notifies that one session exhausted a rate limit.
func (d *Dispatcher) RateLimitHit(sessionID string, count int, limitType models.LimitType) bool {
	return d.Send(
		"Rate Limit Hit",
		fmt.Sprintf("Session %s hit %s rate limit (%d queries)", models.SessionPrefix(sessionID), limitType, count),
		PriorityHigh,
		"warning",
	)
}

// GlobalLimitHit notifies that a service-wide cap paused the assistant.
func (d *Dispatcher) GlobalLimitHit(count int, limitType string) bool {
	return d.Send(
		"GLOBAL LIMIT - Service Paused",
		fmt.Sprintf("Global %s limit reached: %d queries. Service auto-paused.", limitType, count),
		PriorityUrgent,
		"rotating_light", "stop_sign",
	)
}

// SuspiciousActivity notifies about input rejected by the validator.
func (d *Dispatcher) SuspiciousActivity(sessionID, reason string) bool {
	return d.Send(
		"Suspicious Activity",
		fmt.Sprintf("Session %s: %s", models.SessionPrefix(sessionID), reason),
		PriorityHigh,
		"mag", "warning",
	)
}

// CostThreshold notifies that spend crossed a budget threshold. Escalates
// to high priority once the threshold itself is reached.
func (d *Dispatcher) CostThreshold(current, threshold float64, period string) bool {
	percentage := current / threshold * 100

	priority := PriorityDefault
	tags := []string{"money_with_wings"}
	if percentage >= 100 {
		priority = PriorityHigh
		tags = append(tags, "warning")
	}

	return d.Send(
		"Cost Alert",
		fmt.Sprintf("%s cost: $%.2f (%.0f%% of $%.2f budget)", capitalize(period), current, percentage, threshold),
		priority,
		tags...,
	)
}

// ErrorSpike notifies about a burst of upstream failures.
func (d *Dispatcher) ErrorSpike(errorCount int, timeWindow string) bool {
	return d.Send(
		"Error Spike Detected",
		fmt.Sprintf("%d errors in %s", errorCount, timeWindow),
		PriorityHigh,
		"warning", "fire",
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Test sends a low-priority alert to verify the topic configuration.
func (d *Dispatcher) Test() bool {
	return d.Send(
		"Test Alert",
		fmt.Sprintf("Alert system configured successfully at %s", time.Now().Format("2006-01-02 15:04:05")),
		PriorityLow,
		"white_check_mark",
	)
}
