package reactlm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Trace action labels recorded by the loop.
const (
	// ActionLLMGeneration labels the trace of a model call.
	ActionLLMGeneration = "llm_generation"

	// ActionToolExecutionPrefix prefixes the tool name in tool call traces.
	ActionToolExecutionPrefix = "tool_execution:"
)

// ToolAction returns the trace action label for a call to the named tool.
func ToolAction(name string) string {
	return ActionToolExecutionPrefix + name
}

// TraceKey returns the memory key a trace is mirrored under.
// The model trace and the tool trace of one iteration share a key; the later one wins.
func TraceKey(sessionID string, iteration int) string {
	return fmt.Sprintf("trace:%s:%d", sessionID, iteration)
}

// Trace is the immutable record of one step (model call or tool call) of a session.
type Trace struct {
	SessionID string        `json:"session_id" yaml:"session_id"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Action    string        `json:"action" yaml:"action"`
	Input     Envelope      `json:"input" yaml:"input"`
	Output    Envelope      `json:"output" yaml:"output"`
	Metadata  TraceMetadata `json:"metadata" yaml:"metadata"`
}

// TraceMetadata is the loop position a trace was recorded at.
type TraceMetadata struct {
	Iteration int        `json:"iteration" yaml:"iteration"`
	State     AgentState `json:"state" yaml:"state"`
}

// -----------------------------------------------------------------------------
// Trace Recorder
// -----------------------------------------------------------------------------

// TraceRecorder is the append-only trace log of one session, optionally mirrored to
// a Memory. Mirroring is best-effort: a failed store is logged and counted, never
// returned to the loop.
type TraceRecorder struct {
	sessionID string
	mirror    Memory
	logger    *slog.Logger
	clock     TimeProvider

	mu             sync.Mutex
	traces         []Trace
	mirrorFailures int
}

// NewTraceRecorder creates a recorder for the given session.
func NewTraceRecorder(sessionID string) *TraceRecorder {
	return &TraceRecorder{
		sessionID: sessionID,
		logger:    slog.Default(),
		clock:     NewDefaultTimeProvider(),
		traces:    make([]Trace, 0),
	}
}

// WithMirror sets the memory traces are copied to. Nil disables mirroring.
func (r *TraceRecorder) WithMirror(m Memory) *TraceRecorder {
	r.mirror = m
	return r
}

// WithLogger sets the logger used to report mirror failures.
func (r *TraceRecorder) WithLogger(l *slog.Logger) *TraceRecorder {
	if l != nil {
		r.logger = l
	}
	return r
}

// WithTimeProvider sets the clock used for trace timestamps.
func (r *TraceRecorder) WithTimeProvider(tp TimeProvider) *TraceRecorder {
	if tp != nil {
		r.clock = tp
	}
	return r
}

// SessionID returns the session this recorder belongs to.
func (r *TraceRecorder) SessionID() string {
	return r.sessionID
}

// Record appends a trace and mirrors it to memory if one is set.
func (r *TraceRecorder) Record(
	ctx context.Context,
	action string,
	iteration int,
	state AgentState,
	input, output Envelope,
) Trace {
	trace := Trace{
		SessionID: r.sessionID,
		Timestamp: r.clock.Now(),
		Action:    action,
		Input:     input.DeepClone(),
		Output:    output.DeepClone(),
		Metadata: TraceMetadata{
			Iteration: iteration,
			State:     state,
		},
	}

	r.mu.Lock()
	r.traces = append(r.traces, trace)
	r.mu.Unlock()

	if r.mirror != nil {
		r.store(ctx, trace.clone())
	}
	return trace.clone()
}

// clone returns a copy that shares no mutable state with t.
func (t Trace) clone() Trace {
	t.Input = t.Input.DeepClone()
	t.Output = t.Output.DeepClone()
	return t
}

func (r *TraceRecorder) store(ctx context.Context, trace Trace) {
	key := TraceKey(trace.SessionID, trace.Metadata.Iteration)
	err := r.mirror.Store(ctx, key, trace, map[string]any{
		"session_id": trace.SessionID,
		"action":     trace.Action,
	})
	if err == nil {
		return
	}

	r.mu.Lock()
	r.mirrorFailures++
	r.mu.Unlock()

	r.logger.WarnContext(ctx, "trace mirror failed",
		"session_id", trace.SessionID,
		"iteration", trace.Metadata.Iteration,
		"action", trace.Action,
		"key", key,
		"error", err,
	)
}

// Traces returns a deep copy of all recorded traces in order. Changing a returned
// trace never changes the recorder.
func (r *TraceRecorder) Traces() []Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Trace, len(r.traces))
	for i, t := range r.traces {
		out[i] = t.clone()
	}
	return out
}

// Len returns the number of recorded traces.
func (r *TraceRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.traces)
}

// MirrorFailures returns how many mirror writes failed.
func (r *TraceRecorder) MirrorFailures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mirrorFailures
}
