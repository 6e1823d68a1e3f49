// Package config loads CLI configuration: defaults, then an optional YAML file, then
// .env files, then environment variables (environment wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/internal/duration"
	"github.com/rickchristie/reactlm/internal/telemetry"
)

// Model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGitHub = "github"
	ProviderMock   = "mock"
)

// Memory backends.
const (
	MemoryNone   = "none"
	MemoryInMem  = "inmem"
	MemoryRedis  = "redis"
	MemorySQLite = "sqlite"
)

// Config is the full CLI configuration.
type Config struct {
	Agent     reactlm.AgentConfig `yaml:"agent"`
	Model     ModelConfig         `yaml:"model"`
	Memory    MemoryConfig        `yaml:"memory"`
	Tools     ToolsConfig         `yaml:"tools"`
	Log       LogConfig           `yaml:"log"`
	Telemetry TelemetryConfig     `yaml:"telemetry"`
}

type ModelConfig struct {
	// Provider is openai, github or mock. Empty picks openai when an API key is set.
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

type MemoryConfig struct {
	Backend string `yaml:"backend"`

	// TTL is a number of seconds or a duration string. Zero keeps records forever.
	TTL           time.Duration `yaml:"ttl"`
	Size          int           `yaml:"size"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	SQLitePath    string        `yaml:"sqlite_path"`
}

// UnmarshalYAML reads ttl as bare seconds or a duration string.
func (c *MemoryConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain MemoryConfig
	return duration.DecodeYAML(value, (*plain)(c), map[string]*time.Duration{
		"ttl": &c.TTL,
	})
}

type ToolsConfig struct {
	// Enabled lists tools to register: search, wikipedia, echo.
	Enabled     []string `yaml:"enabled"`
	BraveAPIKey string   `yaml:"brave_api_key"`

	// BraveRPS throttles Brave requests per second. Zero disables throttling.
	BraveRPS float64 `yaml:"brave_rps"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TelemetryConfig enables OTLP span export for the tracing hook.
type TelemetryConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Endpoint    string            `yaml:"endpoint"`
	Protocol    string            `yaml:"protocol"`
	Insecure    bool              `yaml:"insecure"`
	ServiceName string            `yaml:"service_name"`
	Headers     map[string]string `yaml:"headers"`
}

// Options converts the config into telemetry provider options.
func (t TelemetryConfig) Options() telemetry.Config {
	return telemetry.Config{
		Endpoint:    t.Endpoint,
		Protocol:    t.Protocol,
		Insecure:    t.Insecure,
		ServiceName: t.ServiceName,
		Headers:     t.Headers,
	}
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Agent: reactlm.DefaultAgentConfig(),
		Model: ModelConfig{Name: "gpt-4o-mini"},
		Memory: MemoryConfig{
			Backend:    MemoryInMem,
			RedisAddr:  "localhost:6379",
			SQLitePath: "reactlm.db",
		},
		Tools: ToolsConfig{Enabled: []string{"search", "wikipedia"}, BraveRPS: 1},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (skipped when empty), loads envFiles (".env" when
// none are given; missing files are ignored), applies environment overrides and
// validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	parse := func(key string, fn func(string) error) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		if err := fn(v); err != nil {
			errs = append(errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
		}
	}

	parse("REACTLM_MAX_ITERATIONS", func(v string) (err error) {
		cfg.Agent.MaxIterations, err = strconv.Atoi(v)
		return err
	})
	parse("REACTLM_TEMPERATURE", func(v string) (err error) {
		cfg.Agent.Temperature, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("REACTLM_TIMEOUT", func(v string) (err error) {
		cfg.Agent.Timeout, err = duration.Parse(v)
		return err
	})
	parse("REACTLM_TRACE", func(v string) (err error) {
		cfg.Agent.TraceEnabled, err = strconv.ParseBool(v)
		return err
	})
	parse("REACTLM_MODE", func(v string) error {
		cfg.Agent.Mode = reactlm.Mode(strings.ToLower(v))
		return nil
	})

	setString("REACTLM_PROVIDER", &cfg.Model.Provider)
	setString("REACTLM_MODEL", &cfg.Model.Name)
	setString("OPENAI_API_KEY", &cfg.Model.APIKey)
	setString("OPENAI_BASE_URL", &cfg.Model.BaseURL)
	if cfg.Model.Provider == ProviderGitHub {
		setString("GITHUB_TOKEN", &cfg.Model.APIKey)
	}

	setString("BRAVE_API_KEY", &cfg.Tools.BraveAPIKey)

	setString("REACTLM_MEMORY", &cfg.Memory.Backend)
	setString("REDIS_ADDR", &cfg.Memory.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.Memory.RedisPassword)
	setString("REACTLM_SQLITE_PATH", &cfg.Memory.SQLitePath)
	parse("REACTLM_MEMORY_TTL", func(v string) (err error) {
		cfg.Memory.TTL, err = duration.Parse(v)
		return err
	})

	setString("REACTLM_LOG_LEVEL", &cfg.Log.Level)

	parse("REACTLM_TELEMETRY", func(v string) (err error) {
		cfg.Telemetry.Enabled, err = strconv.ParseBool(v)
		return err
	})
	setString("REACTLM_OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	setString("REACTLM_OTLP_PROTOCOL", &cfg.Telemetry.Protocol)
	parse("REACTLM_OTLP_INSECURE", func(v string) (err error) {
		cfg.Telemetry.Insecure, err = strconv.ParseBool(v)
		return err
	})
	setString("OTEL_SERVICE_NAME", &cfg.Telemetry.ServiceName)

	return errors.Join(errs...)
}

func (c *Config) fillDefaults() {
	if c.Model.Provider == "" {
		if c.Model.APIKey != "" {
			c.Model.Provider = ProviderOpenAI
		} else {
			c.Model.Provider = ProviderMock
		}
	}
	c.Model.Provider = strings.ToLower(c.Model.Provider)
	c.Memory.Backend = strings.ToLower(c.Memory.Backend)
	c.Telemetry.Protocol = strings.ToLower(c.Telemetry.Protocol)
	if c.Memory.Backend == "" {
		c.Memory.Backend = MemoryNone
	}
}

// Validate checks the agent config and the provider, backend and log level names.
func (c Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderGitHub:
		if c.Model.APIKey == "" {
			return fmt.Errorf("%w: provider %s requires an api key", reactlm.ErrInvalidConfig, c.Model.Provider)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("%w: unknown model provider %q", reactlm.ErrInvalidConfig, c.Model.Provider)
	}
	switch c.Memory.Backend {
	case MemoryNone, MemoryInMem, MemoryRedis, MemorySQLite:
	default:
		return fmt.Errorf("%w: unknown memory backend %q", reactlm.ErrInvalidConfig, c.Memory.Backend)
	}
	if c.Memory.TTL < 0 {
		return fmt.Errorf("%w: memory ttl must not be negative", reactlm.ErrInvalidConfig)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %v", reactlm.ErrInvalidConfig, err)
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("%w: telemetry requires an otlp endpoint", reactlm.ErrInvalidConfig)
		}
		switch c.Telemetry.Protocol {
		case "", telemetry.ProtocolGRPC, telemetry.ProtocolHTTP:
		default:
			return fmt.Errorf("%w: unknown otlp protocol %q", reactlm.ErrInvalidConfig, c.Telemetry.Protocol)
		}
	}
	return nil
}

// SlogLevel parses the configured log level (debug, info, warn, error).
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// ToolEnabled reports whether the named tool is listed in Tools.Enabled.
func (c Config) ToolEnabled(name string) bool {
	for _, n := range c.Tools.Enabled {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
