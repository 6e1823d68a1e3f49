package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/agents/react"
	"github.com/rickchristie/reactlm/hooks"
	"github.com/rickchristie/reactlm/internal/config"
	"github.com/rickchristie/reactlm/internal/telemetry"
	"github.com/rickchristie/reactlm/memory/inmem"
	"github.com/rickchristie/reactlm/memory/redis"
	"github.com/rickchristie/reactlm/memory/sqlite"
	"github.com/rickchristie/reactlm/models"
	"github.com/rickchristie/reactlm/tools"
)

const telemetryFlushTimeout = 5 * time.Second

var errNoMemory = errors.New("memory backend is none; set REACTLM_MEMORY to inmem, redis or sqlite")

// keyLister is implemented by every bundled memory backend.
type keyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// app holds what the subcommands share once configuration is loaded.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer

	// newModel overrides model construction in tests.
	newModel func(cfg config.Config) (reactlm.Model, error)
}

func (a *app) model() (reactlm.Model, error) {
	if a.newModel != nil {
		return a.newModel(a.cfg)
	}
	m := a.cfg.Model
	switch m.Provider {
	case config.ProviderOpenAI:
		return models.NewOpenAIModel(m.Name, m.APIKey, m.BaseURL)
	case config.ProviderGitHub:
		return models.NewGitHubModel(m.Name, m.APIKey)
	default:
		return newDemoModel(a.firstTool()), nil
	}
}

// memory opens the configured backend. The returned close func is never nil.
func (a *app) memory() (reactlm.Memory, func() error, error) {
	m := a.cfg.Memory
	noop := func() error { return nil }

	switch m.Backend {
	case config.MemoryInMem:
		return inmem.New(inmem.Options{Size: m.Size, TTL: m.TTL}), noop, nil
	case config.MemoryRedis:
		mem := redis.New(redis.Options{
			Addr:     m.RedisAddr,
			Password: m.RedisPassword,
			DB:       m.RedisDB,
			Prefix:   m.RedisPrefix,
			TTL:      m.TTL,
		})
		return mem, mem.Close, nil
	case config.MemorySQLite:
		mem, err := sqlite.Open(m.SQLitePath, m.TTL)
		if err != nil {
			return nil, noop, err
		}
		return mem, mem.Close, nil
	default:
		return nil, noop, nil
	}
}

func (a *app) tools() []reactlm.Tool {
	var out []reactlm.Tool
	if a.cfg.ToolEnabled("search") {
		if a.cfg.Tools.BraveAPIKey != "" {
			search := tools.NewBraveSearch(a.cfg.Tools.BraveAPIKey)
			if a.cfg.Tools.BraveRPS > 0 {
				search = search.WithRateLimit(a.cfg.Tools.BraveRPS, 1)
			}
			out = append(out, search)
		} else {
			out = append(out, tools.NewMockSearch())
		}
	}
	if a.cfg.ToolEnabled("wikipedia") {
		out = append(out, tools.NewWikipedia())
	}
	if a.cfg.ToolEnabled("echo") {
		out = append(out, tools.NewEcho())
	}
	return out
}

func (a *app) firstTool() string {
	for _, t := range a.tools() {
		if a.cfg.Agent.ToolAllowed(t.Name()) {
			return t.Name()
		}
	}
	return ""
}

// tracer returns the OTLP-backed tracer when telemetry is enabled, or nil. The
// returned close flushes pending spans even after ctx is canceled.
func (a *app) tracer(ctx context.Context) (trace.Tracer, func() error, error) {
	if !a.cfg.Telemetry.Enabled {
		return nil, func() error { return nil }, nil
	}
	p, err := telemetry.New(ctx, a.cfg.Telemetry.Options())
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("otlp span export enabled",
		"endpoint", a.cfg.Telemetry.Endpoint,
		"protocol", a.cfg.Telemetry.Protocol,
	)
	return p.Tracer(), func() error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushTimeout)
		defer cancel()
		return p.Shutdown(ctx)
	}, nil
}

// agent builds the agent. The tracing hook is registered only when tracer is set.
func (a *app) agent(mem reactlm.Memory, tracer trace.Tracer) (*react.Agent, error) {
	model, err := a.model()
	if err != nil {
		return nil, err
	}
	registry := hooks.NewRegistry().Register(hooks.NewLogger(a.logger))
	if tracer != nil {
		registry.Register(hooks.NewTracing(tracer))
	}
	agent := react.NewAgent(model, a.cfg.Agent).
		WithTools(a.tools()...).
		WithHooks(registry).
		WithLogger(a.logger)
	if mem != nil {
		agent = agent.WithMemory(mem)
	}
	return agent, nil
}

// answerText renders an answer envelope for the terminal. A final answer object with a
// "response" field prints just the response.
func answerText(env reactlm.Envelope) string {
	switch c := env.Content.(type) {
	case string:
		return c
	case map[string]any:
		if r, ok := c["response"].(string); ok {
			return r
		}
	}
	b, err := json.MarshalIndent(env.Content, "", "  ")
	if err != nil {
		return fmt.Sprint(env.Content)
	}
	return string(b)
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
