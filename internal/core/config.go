package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"triage/internal/llm"
)

// DefaultConfigPath is read when no config path is given and the file exists.
const DefaultConfigPath = "config.yaml"

// Config holds the application configuration.
type Config struct {
	LogLevel  string       `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string       `yaml:"log_format"` // json or console
	LLM       LLMConfig    `yaml:"llm"`
	Cache     CacheConfig  `yaml:"cache"`
	Triage    TriageConfig `yaml:"triage"`
	Report    ReportConfig `yaml:"report"`
	Events    EventsConfig `yaml:"events"`
	Server    ServerConfig `yaml:"server"`
}

// LLMConfig selects and configures the generation backend.
type LLMConfig struct {
	Provider string        `yaml:"provider"` // openai, ollama, gemini
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`

	// Genkit routes every call through a Genkit model wrapping the backend
	Genkit bool `yaml:"genkit"`

	// RecordDir saves every live response as a fixture
	RecordDir string `yaml:"record_dir"`

	// ReplayDir answers from recorded fixtures instead of the backend
	ReplayDir string `yaml:"replay_dir"`
}

// CacheConfig configures the response cache. Disabled when RedisAddr is empty.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// TriageConfig configures the batch run.
type TriageConfig struct {
	EmailsFile  string `yaml:"emails_file"` // empty uses the built-in set
	Concurrency int    `yaml:"concurrency"`
}

// ReportConfig configures where the report is persisted.
type ReportConfig struct {
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// EventsConfig configures event publishing. Disabled when no brokers are set.
type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		LLM: LLMConfig{
			Provider: llm.ProviderOpenAI,
			Timeout:  60 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Triage: TriageConfig{
			Concurrency: 1,
		},
		Report: ReportConfig{
			Path: "results.json",
		},
		Events: EventsConfig{
			KafkaTopic: "triage-events",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// and environment overrides, in that order. An empty path reads
// DefaultConfigPath if it exists.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Field: path, Message: "invalid YAML", Err: err}
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file; defaults and environment only
	default:
		return nil, &ConfigError{Field: path, Message: "cannot read config file", Err: err}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		c.LogLevel = "debug"
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerAPIKey(c.LLM.Provider)
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("REPORT_PATH"); v != "" {
		c.Report.Path = v
	}
	if v := os.Getenv("REPORT_POSTGRES_DSN"); v != "" {
		c.Report.PostgresDSN = v
	}
	if v := os.Getenv("TRIAGE_EMAILS_FILE"); v != "" {
		c.Triage.EmailsFile = v
	}
	if v := os.Getenv("TRIAGE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "TRIAGE_CONCURRENCY", Message: "must be an integer", Err: err}
		}
		c.Triage.Concurrency = n
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}

	return nil
}

// providerAPIKey returns the first key set for the provider. LLM_API_KEY
// applies to every provider.
func providerAPIKey(provider string) string {
	keys := []string{"LLM_API_KEY"}
	switch provider {
	case llm.ProviderGemini:
		keys = append(keys, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	case llm.ProviderOpenAI, "":
		keys = append(keys, "GROQ_API_KEY", "OPENROUTER_API_KEY")
	}

	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports the first configuration problem.
// The API key is checked later, when a live backend is built.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderOllama, llm.ProviderGemini:
	default:
		return &ConfigError{Field: "llm.provider", Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return &ConfigError{Field: "log_format", Message: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}

	if c.Triage.Concurrency < 1 {
		return &ConfigError{Field: "triage.concurrency", Message: "must be at least 1"}
	}

	if c.Report.Path == "" && c.Report.PostgresDSN == "" {
		return &ConfigError{Field: "report", Message: "need a report path or a postgres DSN"}
	}

	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		return &ConfigError{Field: "events.kafka_topic", Message: "required when brokers are set"}
	}

	if c.LLM.RecordDir != "" && c.LLM.ReplayDir != "" {
		return &ConfigError{Field: "llm", Message: "record_dir and replay_dir are mutually exclusive"}
	}

	return nil
}

// LLMBackendConfig converts the llm section into a transport config.
func (c *Config) LLMBackendConfig() *llm.Config {
	return &llm.Config{
		Provider: c.LLM.Provider,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
		Model:    c.LLM.Model,
		Timeout:  c.LLM.Timeout,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
