package models

import "time"

// ValidationResult is the transient outcome of input validation.
type ValidationResult struct {
	Valid     bool
	Sanitized string // trimmed input, empty when rejected
	Reason    string // user-facing rejection message, empty when valid
	Flagged   bool   // true when rejected as suspicious, not merely malformed
}

// SecurityEvent is one line of the append-only security log, written when
// input matches a suspicious pattern. The matched pattern identifier stays
// in the log and is never echoed back to the user.
type SecurityEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	ContentLength int       `json:"content_length"`
	Preview       string    `json:"content_preview"`
	Reason        string    `json:"reason"`
}
