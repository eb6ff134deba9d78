// Package config holds all inquest configuration. Defaults are production
// sane; a YAML file and a small set of environment variables can override
// them. Components never read configuration ambiently - the composition root
// loads one Config and injects the pieces each component needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all inquest configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration (reasoning capability)
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval / corpus settings
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Agent behaviour guardrails
	Agents AgentConfig `yaml:"agents"`

	// Human-in-the-loop settings
	HITL HITLConfig `yaml:"hitl"`
}

// LLMConfig routes calls to the two model tiers: a large reasoning model for
// the supervisor and skeptic, a cheaper drafting model for the researcher.
type LLMConfig struct {
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	PrimaryModel       string  `yaml:"primary_model"`
	SecondaryModel     string  `yaml:"secondary_model"`
	ReasoningTemp      float64 `yaml:"temperature_reasoning"`
	CreativeTemp       float64 `yaml:"temperature_creative"`
	Timeout            string  `yaml:"timeout"`
	MaxRetries         int     `yaml:"max_retries"`
	RateLimitPerMinute int     `yaml:"rate_limit_rpm"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "ollama" or "genai"
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIModel     string `yaml:"genai_model"`
}

// RetrievalConfig controls chunking and hybrid search.
type RetrievalConfig struct {
	DatabasePath string `yaml:"database_path"`
	DocumentDir  string `yaml:"document_dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopKSemantic int    `yaml:"top_k_semantic"`
	TopKKeyword  int    `yaml:"top_k_keyword"`
	TopKFinal    int    `yaml:"top_k_final"`
	CacheTTL     string `yaml:"cache_ttl"`
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	MaxIterations          int     `yaml:"max_iterations"`
	MaxResearchIterations  int     `yaml:"max_research_iterations"`
	MaxSkepticRounds       int     `yaml:"max_skeptic_rounds"`
	MaxTaskRetries         int     `yaml:"max_task_retries"`
	MessageLogCap          int     `yaml:"message_log_cap"`
	AuditCoverageThreshold float64 `yaml:"audit_coverage_threshold"`
}

// HITLConfig controls the human-in-the-loop pause point.
type HITLConfig struct {
	Enabled bool   `yaml:"enabled"`
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "inquest",
		Version: "0.3.0",
		LLM: LLMConfig{
			BaseURL:            "https://generativelanguage.googleapis.com/v1beta",
			PrimaryModel:       "gemini-2.5-pro",
			SecondaryModel:     "gemini-2.5-flash",
			ReasoningTemp:      0.1,
			CreativeTemp:       0.4,
			Timeout:            "2m",
			MaxRetries:         3,
			RateLimitPerMinute: 60,
		},
		Embedding: EmbeddingConfig{
			Provider:       "genai",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		Retrieval: RetrievalConfig{
			DatabasePath: filepath.Join(".inquest", "corpus.db"),
			DocumentDir:  filepath.Join("data", "documents"),
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopKSemantic: 8,
			TopKKeyword:  5,
			TopKFinal:    6,
			CacheTTL:     "5m",
		},
		Agents: AgentConfig{
			MaxIterations:          15,
			MaxResearchIterations:  5,
			MaxSkepticRounds:       3,
			MaxTaskRetries:         2,
			MessageLogCap:          50,
			AuditCoverageThreshold: 0.7,
		},
		HITL: HITLConfig{
			Enabled: true,
			Timeout: "5m",
		},
	}
}

// Load reads a config file, layering it over defaults, then applies
// environment overrides. A missing file is not an error: defaults plus env
// overrides are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides layers environment variables over the loaded values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("INQUEST_PRIMARY_MODEL"); v != "" {
		c.LLM.PrimaryModel = v
	}
	if v := os.Getenv("INQUEST_SECONDARY_MODEL"); v != "" {
		c.LLM.SecondaryModel = v
	}
	if v := os.Getenv("INQUEST_DOCUMENT_DIR"); v != "" {
		c.Retrieval.DocumentDir = v
	}
	if v := os.Getenv("INQUEST_DATABASE_PATH"); v != "" {
		c.Retrieval.DatabasePath = v
	}
	if v := os.Getenv("INQUEST_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Agents.MaxIterations = n
		}
	}
	if v := os.Getenv("INQUEST_RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.LLM.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("INQUEST_HITL_ENABLED"); v != "" {
		c.HITL.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
}

// Validate checks the config for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set GEMINI_API_KEY)")
	}
	if c.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize)
	}
	if c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be in [0, chunk_size), got %d", c.Retrieval.ChunkOverlap)
	}
	if c.Agents.MaxIterations < 0 {
		return fmt.Errorf("agents.max_iterations must be >= 0, got %d", c.Agents.MaxIterations)
	}
	if c.Agents.MessageLogCap < 6 {
		return fmt.Errorf("agents.message_log_cap must be at least 6, got %d", c.Agents.MessageLogCap)
	}
	if c.Agents.AuditCoverageThreshold < 0 || c.Agents.AuditCoverageThreshold > 1 {
		return fmt.Errorf("agents.audit_coverage_threshold must be in [0,1], got %f", c.Agents.AuditCoverageThreshold)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return fmt.Errorf("llm.timeout: %w", err)
	}
	if _, err := c.CacheTTL(); err != nil {
		return fmt.Errorf("retrieval.cache_ttl: %w", err)
	}
	if _, err := c.HITLTimeout(); err != nil {
		return fmt.Errorf("hitl.timeout: %w", err)
	}
	return nil
}

// LLMTimeout parses the LLM call timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration(c.LLM.Timeout, 2*time.Minute)
}

// CacheTTL parses the retrieval cache time-to-live.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parseDuration(c.Retrieval.CacheTTL, 5*time.Minute)
}

// HITLTimeout parses the human-response timeout.
func (c *Config) HITLTimeout() (time.Duration, error) {
	return parseDuration(c.HITL.Timeout, 5*time.Minute)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
