package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ValidationPrompts are the judge prompt templates. Empty fields fall back to
// the built-in defaults of the validation package.
type ValidationPrompts struct {
	System       string `toml:"system"`
	Instructions string `toml:"instructions"`
	Strict       string `toml:"strict"`
	Moderate     string `toml:"moderate"`
	Lenient      string `toml:"lenient"`
}

type LLMConfig struct {
	Provider            string `toml:"provider"`
	Model               string `toml:"model"`
	EmbeddingModel      string `toml:"embedding_model"`
	EmbeddingDimensions int    `toml:"embedding_dimensions"`
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
}

type StoreConfig struct {
	// Driver is one of postgres, sqlite or memgraph.
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Migrate  bool   `toml:"migrate"`
}

type SearchConfig struct {
	DefaultThreshold float64 `toml:"default_threshold"`
	DefaultLevel     string  `toml:"default_level"`
	MaxResults       int     `toml:"max_results"`
}

type ValidationConfig struct {
	Prompts        ValidationPrompts `toml:"prompts"`
	Temperature    float32           `toml:"temperature"`
	MaxRetries     int               `toml:"max_retries"`
	InitialBackoff Duration          `toml:"initial_backoff"`
	MaxBackoff     Duration          `toml:"max_backoff"`
	Timeout        Duration          `toml:"timeout"`
	RatePerSecond  float64           `toml:"rate_per_second"`
}

type ServerConfig struct {
	Port string `toml:"port"`
	Mode string `toml:"mode"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	LLM        LLMConfig        `toml:"llm"`
	Store      StoreConfig      `toml:"store"`
	Search     SearchConfig     `toml:"search"`
	Validation ValidationConfig `toml:"validation"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
}

// Duration reads TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:            "openai",
			Model:               "gpt-4o-mini",
			EmbeddingModel:      "text-embedding-3-small",
			EmbeddingDimensions: 1024,
		},
		Store: StoreConfig{
			Driver: "postgres",
		},
		Search: SearchConfig{
			DefaultThreshold: 0.75,
			DefaultLevel:     "moderate",
			MaxResults:       50,
		},
		Validation: ValidationConfig{
			Temperature:    0.1,
			MaxRetries:     2,
			InitialBackoff: Duration{time.Second},
			MaxBackoff:     Duration{30 * time.Second},
			Timeout:        Duration{60 * time.Second},
			RatePerSecond:  2,
		},
		Server: ServerConfig{
			Port: "3001",
			Mode: "release",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("LLM_PROVIDER", &c.LLM.Provider)
	setString("LLM_MODEL", &c.LLM.Model)
	setString("LLM_EMBEDDING_MODEL", &c.LLM.EmbeddingModel)
	setString("LLM_API_KEY", &c.LLM.APIKey)
	setString("LLM_BASE_URL", &c.LLM.BaseURL)
	if v, err := strconv.Atoi(os.Getenv("LLM_EMBEDDING_DIMENSIONS")); err == nil {
		c.LLM.EmbeddingDimensions = v
	}

	setString("STORE_DRIVER", &c.Store.Driver)
	setString("DATABASE_DSN", &c.Store.DSN)
	setString("MEMGRAPH_URI", &c.Store.URI)
	setString("MEMGRAPH_USER", &c.Store.User)
	setString("MEMGRAPH_PASSWORD", &c.Store.Password)

	setString("PORT", &c.Server.Port)
	setString("GIN_MODE", &c.Server.Mode)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
}

func (c *Config) Validate() error {
	if math.IsNaN(c.Search.DefaultThreshold) || c.Search.DefaultThreshold < 0 || c.Search.DefaultThreshold > 1 {
		return fmt.Errorf("search.default_threshold must be between 0.0 and 1.0 (got %.2f)", c.Search.DefaultThreshold)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive (got %d)", c.Search.MaxResults)
	}
	switch c.Search.DefaultLevel {
	case "strict", "moderate", "lenient":
	default:
		return fmt.Errorf("search.default_level must be strict, moderate or lenient (got %q)", c.Search.DefaultLevel)
	}
	switch c.Store.Driver {
	case "postgres", "sqlite":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
		}
	case "memgraph":
		if c.Store.URI == "" {
			return fmt.Errorf("store.uri is required for driver memgraph")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if c.Validation.MaxRetries < 0 || c.Validation.MaxRetries > 10 {
		return fmt.Errorf("validation.max_retries must be between 0 and 10 (got %d)", c.Validation.MaxRetries)
	}
	if c.Validation.RatePerSecond < 0 {
		return fmt.Errorf("validation.rate_per_second cannot be negative (got %.2f)", c.Validation.RatePerSecond)
	}
	if c.Validation.Temperature < 0 || c.Validation.Temperature > 2 {
		return fmt.Errorf("validation.temperature must be between 0 and 2 (got %.2f)", c.Validation.Temperature)
	}
	return nil
}
