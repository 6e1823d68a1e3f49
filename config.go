package reactlm

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rickchristie/reactlm/internal/duration"
)

// Mode selects how autonomously the agent is expected to act. The loop forwards it to
// the model query; it does not change loop semantics.
type Mode string

const (
	// ModeStandard is step by step execution.
	ModeStandard Mode = "standard"

	// ModeAutonomous is unattended execution.
	ModeAutonomous Mode = "autonomous"
)

// WildcardTool in AgentConfig.AllowedTools allows every registered tool.
const WildcardTool = "*"

// AgentConfig holds the immutable run parameters of an agent.
type AgentConfig struct {
	// MaxIterations is the hard cap on loop passes. Must be at least 1 to pass Validate.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`

	// Temperature is forwarded to the model as-is.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// Mode is forwarded to the model query.
	Mode Mode `yaml:"mode" json:"mode"`

	// AllowedTools lists tool names the model may call. [WildcardTool] allows all.
	AllowedTools []string `yaml:"allowed_tools" json:"allowed_tools"`

	// TraceEnabled turns trace recording (and memory mirroring) on.
	TraceEnabled bool `yaml:"trace_enabled" json:"trace_enabled"`

	// Timeout bounds each model call and each tool call. Zero disables the deadline.
	// In YAML it is a number of seconds or a duration string.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxTokens caps the model reply. Zero leaves it to the model.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// StopSequences are forwarded to the model in order.
	StopSequences []string `yaml:"stop_sequences" json:"stop_sequences"`

	// Metadata is free-form and copied into the model query metadata.
	Metadata map[string]any `yaml:"metadata" json:"metadata"`
}

// DefaultAgentConfig returns a config with the library defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations: 10,
		Temperature:   0.7,
		Mode:          ModeStandard,
		AllowedTools:  []string{WildcardTool},
		TraceEnabled:  true,
		Timeout:       30 * time.Second,
	}
}

// UnmarshalYAML reads timeout as bare seconds or a duration string.
func (c *AgentConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain AgentConfig
	return duration.DecodeYAML(value, (*plain)(c), map[string]*time.Duration{
		"timeout": &c.Timeout,
	})
}

// Validate checks the config invariants.
func (c AgentConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	switch c.Mode {
	case ModeStandard, ModeAutonomous:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ToolAllowed reports whether the model may call the named tool.
func (c AgentConfig) ToolAllowed(name string) bool {
	for _, allowed := range c.AllowedTools {
		if allowed == WildcardTool || allowed == name {
			return true
		}
	}
	return false
}

// GenerateOptions derives the model call options from the config.
func (c AgentConfig) GenerateOptions() GenerateOptions {
	return GenerateOptions{
		Temperature:   c.Temperature,
		MaxTokens:     c.MaxTokens,
		StopSequences: slices.Clone(c.StopSequences),
	}
}

// Clone returns a deep copy of the slices and maps in the config.
func (c AgentConfig) Clone() AgentConfig {
	out := c
	out.AllowedTools = slices.Clone(c.AllowedTools)
	out.StopSequences = slices.Clone(c.StopSequences)
	out.Metadata = maps.Clone(c.Metadata)
	return out
}
