package models

import "time"

// LimitType identifies which sliding window a session exhausted.
type LimitType string

const (
	LimitTypeHourly LimitType = "hourly"
	LimitTypeDaily  LimitType = "daily"
)

// RateDecision is the transient outcome of a rate-limit check. It is
// never persisted; denials are logged separately as violations.
type RateDecision struct {
	Allowed   bool
	Message   string // warning or denial text shown to the user, empty on silent allow
	Remaining int
	LimitType LimitType // set on denial only
}

// RateLimitViolation is one line of the append-only violation log.
type RateLimitViolation struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	LimitType LimitType `json:"limit_type"`
	Count     int       `json:"query_count"`
}
