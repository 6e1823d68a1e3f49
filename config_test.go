package reactlm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rickchristie/reactlm"
)

func TestDefaultAgentConfig(t *testing.T) {
	cfg := reactlm.DefaultAgentConfig()

	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, reactlm.ModeStandard, cfg.Mode)
	assert.Equal(t, []string{"*"}, cfg.AllowedTools)
	assert.True(t, cfg.TraceEnabled)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestAgentConfig_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{name: "bare seconds", input: "timeout: 30", expected: 30 * time.Second},
		{name: "fractional seconds", input: "timeout: 0.25", expected: 250 * time.Millisecond},
		{name: "duration string", input: "timeout: 2m", expected: 2 * time.Minute},
		{name: "absent keeps default", input: "max_iterations: 3", expected: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := reactlm.DefaultAgentConfig()
			require.NoError(t, yaml.Unmarshal([]byte(tt.input), &cfg))
			assert.Equal(t, tt.expected, cfg.Timeout)
			assert.Equal(t, reactlm.ModeStandard, cfg.Mode)
		})
	}

	cfg := reactlm.DefaultAgentConfig()
	assert.Error(t, yaml.Unmarshal([]byte("timeout: soon"), &cfg))
}

func TestAgentConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*reactlm.AgentConfig)
		valid  bool
	}{
		{name: "one iteration", modify: func(c *reactlm.AgentConfig) { c.MaxIterations = 1 }, valid: true},
		{name: "zero iterations", modify: func(c *reactlm.AgentConfig) { c.MaxIterations = 0 }},
		{name: "negative iterations", modify: func(c *reactlm.AgentConfig) { c.MaxIterations = -3 }},
		{name: "autonomous", modify: func(c *reactlm.AgentConfig) { c.Mode = reactlm.ModeAutonomous }, valid: true},
		{name: "unknown mode", modify: func(c *reactlm.AgentConfig) { c.Mode = "yolo" }},
		{name: "no timeout", modify: func(c *reactlm.AgentConfig) { c.Timeout = 0 }, valid: true},
		{name: "negative timeout", modify: func(c *reactlm.AgentConfig) { c.Timeout = -time.Second }},
		{name: "negative max tokens", modify: func(c *reactlm.AgentConfig) { c.MaxTokens = -1 }},
		{name: "temperature is opaque", modify: func(c *reactlm.AgentConfig) { c.Temperature = 7 }, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := reactlm.DefaultAgentConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, reactlm.ErrInvalidConfig)
			}
		})
	}
}

func TestAgentConfig_ToolAllowed(t *testing.T) {
	type input struct {
		allowed []string
		name    string
	}

	tests := []struct {
		name     string
		input    input
		expected bool
	}{
		{name: "wildcard", input: input{allowed: []string{"*"}, name: "search"}, expected: true},
		{name: "listed", input: input{allowed: []string{"calc", "search"}, name: "search"}, expected: true},
		{name: "not listed", input: input{allowed: []string{"calc"}, name: "search"}},
		{name: "empty list", input: input{name: "search"}},
		{name: "case sensitive", input: input{allowed: []string{"Search"}, name: "search"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := reactlm.AgentConfig{AllowedTools: tt.input.allowed}
			assert.Equal(t, tt.expected, cfg.ToolAllowed(tt.input.name))
		})
	}
}

func TestAgentConfig_GenerateOptions(t *testing.T) {
	cfg := reactlm.DefaultAgentConfig()
	cfg.Temperature = 0.2
	cfg.MaxTokens = 64
	cfg.StopSequences = []string{"\n\n", "END"}

	opts := cfg.GenerateOptions()
	assert.Equal(t, reactlm.GenerateOptions{
		Temperature:   0.2,
		MaxTokens:     64,
		StopSequences: []string{"\n\n", "END"},
	}, opts)

	opts.StopSequences[0] = "x"
	assert.Equal(t, "\n\n", cfg.StopSequences[0])
}

func TestAgentConfig_Clone(t *testing.T) {
	cfg := reactlm.DefaultAgentConfig()
	cfg.Metadata = map[string]any{"team": "a"}

	clone := cfg.Clone()
	clone.AllowedTools[0] = "search"
	clone.Metadata["team"] = "b"

	require.Equal(t, []string{"*"}, cfg.AllowedTools)
	assert.Equal(t, "a", cfg.Metadata["team"])
}
