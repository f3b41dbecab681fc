package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the deployed assistant: a small public service with a
// tight monthly budget.
const (
	defaultModel            = "gemini-2.5-flash"
	defaultStoreDisplayName = "hickey-lab-knowledge-base"
	defaultKnowledgeDir     = "assets/knowledge_base"
	defaultLogDir           = "logs"
	defaultAlertBaseURL     = "https://ntfy.sh"
	defaultAlertTimeoutMs   = 10_000
	defaultRequestTimeoutMs = 60_000
	defaultInputPerMillion  = 0.075
	defaultOutputPerMillion = 0.30
	defaultDailyQueryLimit  = 200
	defaultMonthlyBudgetUSD = 50.0
	defaultDailyWarningUSD  = 5.0
	defaultRatePerHour      = 20
	defaultRatePerDay       = 200
	defaultWarningThreshold = 0.8
	defaultMaxInputLength   = 2000
	defaultMinInputLength   = 1
	defaultHistoryExchanges = 5
)

// DefaultSystemPrompt grounds answers in the lab's document corpus.
const DefaultSystemPrompt = `You are a warm, caring assistant for anyone curious about the Hickey Lab at Duke University.
Explain spatial omics and our research in friendly, plain language while staying accurate.
Use the uploaded documents to ground your answers. If the documents don't contain relevant information,
gently say you don't have that info yet and invite another question.

When answering:
- Be specific and cite which paper or document the information comes from when relevant
- Provide context about why the research matters
- Use accessible language for non-experts
`

// Config represents the complete application configuration
type Config struct {
	Server    models.ServerConfig    `yaml:"server"`
	Assistant models.AssistantConfig `yaml:"assistant"`
	Pricing   models.PricingConfig   `yaml:"pricing"`
	Limits    models.LimitsConfig    `yaml:"limits"`
	Alerts    models.AlertsConfig    `yaml:"alerts"`
	Logging   models.LoggingConfig   `yaml:"logging"`
}

// LoadFromFile loads configuration from a YAML file with environment variable substitution
func LoadFromFile(configPath string) (*Config, error) {
	// Validate and clean the file path to prevent directory traversal
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// LoadEnvFiles loads environment variables from .env files in order of precedence
// Loads files in the order provided (first has highest priority)
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// New creates a new Config instance by loading from the specified config file path
func New(configPath string) (*Config, error) {
	return LoadFromFile(configPath)
}

// Default returns a Config carrying only defaults and the GEMINI_API_KEY
// environment variable; used by storectl where no YAML file is required.
func Default() *Config {
	cfg := &Config{}
	cfg.Assistant.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Assistant.Model == "" {
		c.Assistant.Model = defaultModel
	}
	if c.Assistant.StoreDisplayName == "" {
		c.Assistant.StoreDisplayName = defaultStoreDisplayName
	}
	if c.Assistant.SystemPrompt == "" {
		c.Assistant.SystemPrompt = DefaultSystemPrompt
	}
	if c.Assistant.KnowledgeDir == "" {
		c.Assistant.KnowledgeDir = defaultKnowledgeDir
	}
	if c.Pricing.InputPerMillion == 0 {
		c.Pricing.InputPerMillion = defaultInputPerMillion
	}
	if c.Pricing.OutputPerMillion == 0 {
		c.Pricing.OutputPerMillion = defaultOutputPerMillion
	}
	if c.Limits.DailyQueryLimit == 0 {
		c.Limits.DailyQueryLimit = defaultDailyQueryLimit
	}
	if c.Limits.MonthlyBudgetUSD == 0 {
		c.Limits.MonthlyBudgetUSD = defaultMonthlyBudgetUSD
	}
	if c.Limits.DailyBudgetWarningUSD == 0 {
		c.Limits.DailyBudgetWarningUSD = defaultDailyWarningUSD
	}
	if c.Limits.RateLimitPerHour == 0 {
		c.Limits.RateLimitPerHour = defaultRatePerHour
	}
	if c.Limits.RateLimitPerDay == 0 {
		c.Limits.RateLimitPerDay = defaultRatePerDay
	}
	if c.Limits.RateLimitWarningThreshold == 0 {
		c.Limits.RateLimitWarningThreshold = defaultWarningThreshold
	}
	if c.Limits.MaxInputLength == 0 {
		c.Limits.MaxInputLength = defaultMaxInputLength
	}
	if c.Limits.MinInputLength == 0 {
		c.Limits.MinInputLength = defaultMinInputLength
	}
	if c.Limits.ConversationHistoryLength == 0 {
		c.Limits.ConversationHistoryLength = defaultHistoryExchanges
	}
	if c.Alerts.BaseURL == "" {
		c.Alerts.BaseURL = defaultAlertBaseURL
	}
	if c.Alerts.TimeoutMs == 0 {
		c.Alerts.TimeoutMs = defaultAlertTimeoutMs
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Server.RequestTimeoutMs == 0 {
		c.Server.RequestTimeoutMs = defaultRequestTimeoutMs
	}
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variables
func substituteEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		submatches := re.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""

		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// GetNormalizedLogLevel returns the log level in lowercase for consistent comparison
func (c *Config) GetNormalizedLogLevel() string {
	return strings.ToLower(c.Server.LogLevel)
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate checks if all required configuration values are set
func (c *Config) Validate() error {
	var missing []string

	if c.Server.Port == "" {
		missing = append(missing, "server.port")
	}
	if c.Assistant.APIKey == "" {
		missing = append(missing, "assistant.api_key")
	}

	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}

	return nil
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "missing required configuration fields: " + strings.Join(e.MissingFields, ", ")
}
