// Package config loads agent settings from an optional YAML file, environment
// variables (FIGARO_ prefix) and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Model     ModelConfig     `mapstructure:"model"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
}

type ModelConfig struct {
	Name           string  `mapstructure:"name"`
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutMS      int     `mapstructure:"timeout_ms"`
	Retries        int     `mapstructure:"retries"`
	RetryBackoffMS int     `mapstructure:"retry_backoff_ms"`

	// TokenBudget caps the estimated size of history sent per call; 0 sends everything.
	TokenBudget int `mapstructure:"token_budget"`
}

type AgentConfig struct {
	MaxSteps     int    `mapstructure:"max_steps"`
	SystemPrompt string `mapstructure:"system_prompt"`
	Transcript   string `mapstructure:"transcript"`
}

type RetrievalConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	IndexPath      string `mapstructure:"index_path"`
	Embedder       string `mapstructure:"embedder"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	Dimensions     int    `mapstructure:"dimensions"`
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
}

type ToolsConfig struct {
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	Concurrency    int    `mapstructure:"concurrency"`
	FilesRoot      string `mapstructure:"files_root"`
	PythonBin      string `mapstructure:"python_bin"`
	MaxResultRunes int    `mapstructure:"max_result_runes"`
	TavilyAPIKey   string `mapstructure:"tavily_api_key"`
	UserAgent      string `mapstructure:"user_agent"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TurnTimeoutMS  int      `mapstructure:"turn_timeout_ms"`
}

type TelemetryConfig struct {
	Observe    bool   `mapstructure:"observe"`
	EventsPath string `mapstructure:"events_path"`
}

const (
	EmbedderHash   = "hash"
	EmbedderGemini = "gemini"
)

// Load reads path (if non-empty) over the defaults and applies FIGARO_* env overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("figaro")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	applyProviderEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.name", "claude-3-7-sonnet-latest")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.max_tokens", 1024)
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.timeout_ms", 60000)
	v.SetDefault("model.retries", 0)
	v.SetDefault("model.retry_backoff_ms", 500)
	v.SetDefault("model.token_budget", 0)
	v.SetDefault("agent.max_steps", 8)
	v.SetDefault("agent.system_prompt", "")
	v.SetDefault("agent.transcript", "conversation.json")
	v.SetDefault("retrieval.enabled", true)
	v.SetDefault("retrieval.index_path", "examples_index.jsonl")
	v.SetDefault("retrieval.embedder", EmbedderHash)
	v.SetDefault("retrieval.embedding_model", "text-embedding-004")
	v.SetDefault("retrieval.dimensions", 384)
	v.SetDefault("retrieval.gemini_api_key", "")
	v.SetDefault("tools.timeout_ms", 30000)
	v.SetDefault("tools.concurrency", 4)
	v.SetDefault("tools.files_root", "")
	v.SetDefault("tools.python_bin", "python3")
	v.SetDefault("tools.max_result_runes", 12000)
	v.SetDefault("tools.tavily_api_key", "")
	v.SetDefault("tools.user_agent", "figaro-agent/1.0")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.turn_timeout_ms", 300000)
	v.SetDefault("telemetry.observe", false)
	v.SetDefault("telemetry.events_path", ".agent/events.jsonl")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// applyProviderEnv falls back to the provider SDKs' conventional variables for secrets.
func applyProviderEnv(cfg *Config) {
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Retrieval.GeminiAPIKey == "" {
		cfg.Retrieval.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Tools.TavilyAPIKey == "" {
		cfg.Tools.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if c.Model.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("model.max_tokens must be > 0, got %d", c.Model.MaxTokens))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		errs = append(errs, fmt.Errorf("model.temperature must be within [0,1], got %v", c.Model.Temperature))
	}
	if c.Model.Retries < 0 {
		errs = append(errs, fmt.Errorf("model.retries must be >= 0, got %d", c.Model.Retries))
	}
	if c.Model.TokenBudget < 0 {
		errs = append(errs, fmt.Errorf("model.token_budget must be >= 0, got %d", c.Model.TokenBudget))
	}
	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_steps must be > 0, got %d", c.Agent.MaxSteps))
	}
	if c.Retrieval.Enabled {
		if strings.TrimSpace(c.Retrieval.IndexPath) == "" {
			errs = append(errs, errors.New("retrieval.index_path is required when retrieval is enabled"))
		}
		switch c.Retrieval.Embedder {
		case EmbedderHash:
			if c.Retrieval.Dimensions <= 0 {
				errs = append(errs, fmt.Errorf("retrieval.dimensions must be > 0, got %d", c.Retrieval.Dimensions))
			}
		case EmbedderGemini:
		default:
			errs = append(errs, fmt.Errorf("retrieval.embedder must be %q or %q, got %q", EmbedderHash, EmbedderGemini, c.Retrieval.Embedder))
		}
	}
	if c.Tools.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("tools.concurrency must be > 0, got %d", c.Tools.Concurrency))
	}
	if c.Tools.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("tools.timeout_ms must be > 0, got %d", c.Tools.TimeoutMS))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func (m ModelConfig) Timeout() time.Duration { return time.Duration(m.TimeoutMS) * time.Millisecond }
func (m ModelConfig) RetryBackoff() time.Duration { return time.Duration(m.RetryBackoffMS) * time.Millisecond }
func (t ToolsConfig) Timeout() time.Duration { return time.Duration(t.TimeoutMS) * time.Millisecond }
func (s ServerConfig) TurnTimeout() time.Duration { return time.Duration(s.TurnTimeoutMS) * time.Millisecond }
