package models

// LimitsConfig holds every knob of the safety layer: service-wide budget
// gates, per-session rate limits, and input validation bounds.
type LimitsConfig struct {
	DailyQueryLimit           int     `json:"daily_query_limit" yaml:"daily_query_limit"`
	MonthlyBudgetUSD          float64 `json:"monthly_budget_usd" yaml:"monthly_budget_usd"`
	DailyBudgetWarningUSD     float64 `json:"daily_budget_warning_usd" yaml:"daily_budget_warning_usd"`
	RateLimitPerHour          int     `json:"rate_limit_per_hour" yaml:"rate_limit_per_hour"`
	RateLimitPerDay           int     `json:"rate_limit_per_day" yaml:"rate_limit_per_day"`
	RateLimitWarningThreshold float64 `json:"rate_limit_warning_threshold" yaml:"rate_limit_warning_threshold"`
	MaxInputLength            int     `json:"max_input_length" yaml:"max_input_length"`
	MinInputLength            int     `json:"min_input_length" yaml:"min_input_length"`
	ConversationHistoryLength int     `json:"conversation_history_length" yaml:"conversation_history_length"`
}

// AlertsConfig configures the ntfy.sh alert dispatcher. An empty topic
// disables dispatch regardless of Enabled.
type AlertsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Topic     string `json:"-" yaml:"topic"`
	BaseURL   string `json:"base_url,omitzero" yaml:"base_url"`
	TimeoutMs int    `json:"timeout_ms,omitzero" yaml:"timeout_ms"`
}

// LoggingConfig locates the append-only JSONL logs (usage ledger,
// rate-limit violations, security events).
type LoggingConfig struct {
	Dir string `json:"dir,omitzero" yaml:"dir"`
}
