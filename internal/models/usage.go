package models

import "time"

// UsageRecord is one line of the append-only usage ledger. A record is
// written for every request attempt, successful or not, and is never
// mutated afterwards.
type UsageRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id"` // truncated prefix, not the full token
	QuestionLength int       `json:"question_length"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
	TotalTokens    int       `json:"total_tokens"`
	CostUSD        float64   `json:"estimated_cost_usd"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
}

// DailyStats aggregates ledger records for one UTC day.
type DailyStats struct {
	Date           string  `json:"date"`
	Queries        int     `json:"queries"`
	Successful     int     `json:"successful_queries"`
	Failed         int     `json:"failed_queries"`
	PromptTokens   int     `json:"prompt_tokens"`
	ResponseTokens int     `json:"response_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	TotalCost      float64 `json:"total_cost"`
}

// MonthlyStats aggregates ledger records for one UTC month.
type MonthlyStats struct {
	Month       string  `json:"month"`
	Queries     int     `json:"queries"`
	TotalTokens int     `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
}
