package models

// AssistantConfig configures the Gemini collaborator and its grounding
// corpus.
type AssistantConfig struct {
	APIKey           string `json:"-" yaml:"api_key"`
	Model            string `json:"model,omitzero" yaml:"model"`
	StoreDisplayName string `json:"store_display_name,omitzero" yaml:"store_display_name"`
	SystemPrompt     string `json:"system_prompt,omitzero" yaml:"system_prompt"`
	KnowledgeDir     string `json:"knowledge_dir,omitzero" yaml:"knowledge_dir"`
}

// PricingConfig holds the provider's per-million-token prices in USD.
type PricingConfig struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
}
