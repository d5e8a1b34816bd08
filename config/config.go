package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
	"loanqa/internal/domain"
)

// Config holds all configuration for the assistant.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Build     BuildConfig     `yaml:"build"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Server    ServerConfig    `yaml:"server"`
	UI        UIConfig        `yaml:"ui"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig locates the vector index artifact.
type IndexConfig struct {
	Dir  string `yaml:"dir"`
	Name string `yaml:"name"`
}

// Path returns <dir>/<name>.db.
func (c IndexConfig) Path() string {
	return filepath.Join(c.Dir, c.Name+".db")
}

// BuildConfig holds settings for the offline index builder.
type BuildConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	ChunkTokens  int      `yaml:"chunk_tokens"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Metric       string   `yaml:"metric"` // "cosine" or "l2"
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`    // "openai" or "hash"
	Model       string `yaml:"model"`       // e.g., "sentence-transformers/all-mpnet-base-v2"
	BaseURL     string `yaml:"base_url"`    // empty means the completion base URL
	APIKeyEnv   string `yaml:"api_key_env"` // empty means the completion credential
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig holds completion defaults and the choices offered to users.
type LLMConfig struct {
	Models           []string `yaml:"models"`
	Model            string   `yaml:"model"`
	Temperature      float64  `yaml:"temperature"`
	MaxTokens        int      `yaml:"max_tokens"`
	MaxTokensChoices []int    `yaml:"max_tokens_choices"`
	TimeoutSecs      int      `yaml:"timeout_secs"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"` // 0 = disabled
}

// PromptConfig holds prompt assembly configuration.
type PromptConfig struct {
	MaxContextTokens int    `yaml:"max_context_tokens"` // 0 = no truncation
	TemplatePath     string `yaml:"template_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type UIConfig struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Footer   string `yaml:"footer"`
}

// SecretsConfig says where credentials are looked up.
type SecretsConfig struct {
	Path           string `yaml:"path"`
	Section        string `yaml:"section"`
	APIKeyName     string `yaml:"api_key_name"`
	BaseURLName    string `yaml:"base_url_name"`
	DefaultBaseURL string `yaml:"default_base_url"`
	DotEnv         string `yaml:"dotenv"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Dir:  "index_bom",
			Name: "index",
		},
		Build: BuildConfig{
			Includes:     []string{"**/*.pdf", "**/*.md", "**/*.txt"},
			Excludes:     []string{"**/.git/**", "**/index_bom/**", "**/node_modules/**"},
			ChunkTokens:  300,
			ChunkOverlap: 40,
			Metric:       "cosine",
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "sentence-transformers/all-mpnet-base-v2",
			Dimension:   768,
			BatchSize:   64,
			TimeoutSecs: 60,
		},
		LLM: LLMConfig{
			Models:           []string{"gpt-4.1-nano", "gpt-4o-mini", "gpt-3.5-turbo"},
			Model:            "gpt-4.1-nano",
			Temperature:      0.7,
			MaxTokens:        512,
			MaxTokensChoices: []int{256, 512, 1024},
			TimeoutSecs:      60,
		},
		Retrieve: RetrieveConfig{
			TopK: 4,
		},
		Prompt: PromptConfig{
			MaxContextTokens: 3000,
		},
		Server: ServerConfig{
			Addr: ":8501",
		},
		UI: UIConfig{
			Title:    "Bank of Maharashtra Loan Product Assistant",
			Subtitle: "Ask anything about loan products: eligibility, interest rates, tenure, documents.",
			Footer:   "Answers are generated from the indexed loan product documents and may be incomplete.",
		},
		Secrets: SecretsConfig{
			Path:           filepath.Join(".secrets", "secrets.yaml"),
			Section:        "api_keys",
			APIKeyName:     "EURI_API_KEY",
			BaseURLName:    "EURI_BASE_URL",
			DefaultBaseURL: "https://api.euron.one/api/v1/euri",
			DotEnv:         ".env",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for loanqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "loanqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".loanqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve makes relative paths absolute against dir. It returns a copy.
func (c *Config) Resolve(dir string) *Config {
	out := *c
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	out.Index.Dir = abs(c.Index.Dir)
	out.Prompt.TemplatePath = abs(c.Prompt.TemplatePath)
	out.Secrets.Path = abs(c.Secrets.Path)
	out.Secrets.DotEnv = abs(c.Secrets.DotEnv)
	return &out
}

// DefaultSettings returns the generation settings used when a caller supplies none.
func (c *Config) DefaultSettings() domain.GenerationSettings {
	return domain.GenerationSettings{
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// Validate checks value ranges. Errors wrap domain.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Index.Dir == "" || c.Index.Name == "" {
		return fmt.Errorf("%w: index.dir and index.name are required", domain.ErrConfiguration)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("%w: retrieve.top_k must be positive, got %d", domain.ErrConfiguration, c.Retrieve.TopK)
	}
	if c.Prompt.MaxContextTokens < 0 {
		return fmt.Errorf("%w: prompt.max_context_tokens must not be negative", domain.ErrConfiguration)
	}
	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		return fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrConfiguration, c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("%w: embedding.dimension must be positive", domain.ErrConfiguration)
	}
	switch c.Build.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("%w: unsupported metric %q", domain.ErrConfiguration, c.Build.Metric)
	}
	if len(c.LLM.Models) == 0 {
		return fmt.Errorf("%w: llm.models must list at least one model", domain.ErrConfiguration)
	}
	if !slices.Contains(c.LLM.Models, c.LLM.Model) {
		return fmt.Errorf("%w: default model %q is not in llm.models", domain.ErrConfiguration, c.LLM.Model)
	}
	for _, n := range c.LLM.MaxTokensChoices {
		if n <= 0 {
			return fmt.Errorf("%w: llm.max_tokens_choices must be positive", domain.ErrConfiguration)
		}
	}
	return c.DefaultSettings().Validate()
}
