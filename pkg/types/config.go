package types

import "time"

// RetrievalConfig holds the budgets of the context-retrieval stages.
type RetrievalConfig struct {
	// TopK is the number of studies surfaced across all detected topics (default 8).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// SectionBudget caps each serialized topic section, in characters (default 800).
	SectionBudget int `json:"section_budget" yaml:"section_budget" mapstructure:"section_budget"`

	// StudyBudget caps each formatted study entry, in characters (default 700).
	StudyBudget int `json:"study_budget" yaml:"study_budget" mapstructure:"study_budget"`

	// HistoryWindow is the maximum number of trailing conversation turns
	// forwarded to a backend (default 10).
	HistoryWindow int `json:"history_window" yaml:"history_window" mapstructure:"history_window"`
}

// ProviderConfig holds settings for one remote answer backend.
type ProviderConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5", "gpt-4o").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// MaxTokens caps the length of the generated answer.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// BaseURL overrides the API endpoint. Empty uses the provider default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the credential. Empty means the backend is not configured.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`
}

// ProvidersConfig groups the two remote backends in fallback order.
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic" yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    ProviderConfig `json:"openai" yaml:"openai" mapstructure:"openai"`

	// Timeout bounds each remote call at the transport level (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// CorpusConfig locates the evidence corpus.
type CorpusConfig struct {
	// Dir is a directory of corpus YAML files. Empty loads the embedded corpus.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// IndexDir holds the SQLite full-text index built by "corpus index".
	IndexDir string `json:"index_dir" yaml:"index_dir" mapstructure:"index_dir"`
}

// LogConfig selects the log level and encoding ("json" or "console").
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Port           int      `json:"port" yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AssistantConfig groups all settings for the evidence-engine binary.
type AssistantConfig struct {
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Providers ProvidersConfig `json:"providers" yaml:"providers" mapstructure:"providers"`
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
}
