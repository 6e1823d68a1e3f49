package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/rickchristie/reactlm"
)

// defaultPreviewLen is the rune limit for envelope content in log lines.
const defaultPreviewLen = 200

// Logger implements every hook interface and writes each event to a slog logger.
// Lifecycle events are logged at info, per-step events at debug, failures at error.
type Logger struct {
	logger     *slog.Logger
	previewLen int
}

// NewLogger creates a Logger. A nil logger uses slog.Default().
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		logger:     logger,
		previewLen: defaultPreviewLen,
	}
}

// WithPreviewLen sets how many runes of envelope content are logged. Zero omits content.
func (h *Logger) WithPreviewLen(n int) *Logger {
	h.previewLen = n
	return h
}

// OnBeforeExecution logs execution start with the input.
func (h *Logger) OnBeforeExecution(ctx context.Context, e reactlm.BeforeExecutionEvent) {
	h.logger.InfoContext(ctx, "execution started",
		"session_id", e.SessionID,
		"input_kind", e.Input.Kind,
		"input", h.preview(e.Input),
		"context_keys", len(e.Context),
	)
}

// OnAfterExecution logs the outcome.
func (h *Logger) OnAfterExecution(ctx context.Context, e reactlm.AfterExecutionEvent) {
	if e.Err != nil {
		h.logger.ErrorContext(ctx, "execution failed",
			"session_id", e.SessionID,
			"iterations", e.Iterations,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Err,
		)
		return
	}
	h.logger.InfoContext(ctx, "execution completed",
		"session_id", e.SessionID,
		"iterations", e.Iterations,
		"duration_ms", e.Duration.Milliseconds(),
		"answer", h.preview(e.Answer),
	)
}

// OnBeforeIteration logs the iteration number.
func (h *Logger) OnBeforeIteration(ctx context.Context, e reactlm.BeforeIterationEvent) {
	h.logger.DebugContext(ctx, "iteration started",
		"session_id", e.SessionID,
		"iteration", e.Iteration,
	)
}

// OnBeforeModelCall logs the query size.
func (h *Logger) OnBeforeModelCall(ctx context.Context, e reactlm.BeforeModelCallEvent) {
	h.logger.DebugContext(ctx, "model call",
		"session_id", e.SessionID,
		"iteration", e.Iteration,
		"query_kind", e.Query.Kind,
	)
}

// OnAfterModelCall logs the model action.
func (h *Logger) OnAfterModelCall(ctx context.Context, e reactlm.AfterModelCallEvent) {
	if e.Err != nil {
		h.logger.ErrorContext(ctx, "model call failed",
			"session_id", e.SessionID,
			"iteration", e.Iteration,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Err,
		)
		return
	}
	h.logger.DebugContext(ctx, "model replied",
		"session_id", e.SessionID,
		"iteration", e.Iteration,
		"duration_ms", e.Duration.Milliseconds(),
		"action_kind", e.Action.Kind,
		"action", h.preview(e.Action),
	)
}

// OnBeforeToolCall logs the tool and its input.
func (h *Logger) OnBeforeToolCall(ctx context.Context, e reactlm.BeforeToolCallEvent) {
	h.logger.DebugContext(ctx, "tool call",
		"session_id", e.SessionID,
		"iteration", e.Iteration,
		"tool", e.Tool,
		"input", h.preview(e.Input),
	)
}

// OnAfterToolCall logs the tool result.
func (h *Logger) OnAfterToolCall(ctx context.Context, e reactlm.AfterToolCallEvent) {
	if e.Err != nil {
		h.logger.ErrorContext(ctx, "tool call failed",
			"session_id", e.SessionID,
			"iteration", e.Iteration,
			"tool", e.Tool,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Err,
		)
		return
	}
	h.logger.DebugContext(ctx, "tool returned",
		"session_id", e.SessionID,
		"iteration", e.Iteration,
		"tool", e.Tool,
		"duration_ms", e.Duration.Milliseconds(),
		"output", h.preview(e.Output),
	)
}

// OnStateChange logs the transition.
func (h *Logger) OnStateChange(ctx context.Context, e reactlm.StateChangeEvent) {
	h.logger.DebugContext(ctx, "state changed",
		"session_id", e.SessionID,
		"iteration", e.Iteration,
		"from", e.From,
		"to", e.To,
	)
}

// OnTraceRecorded logs the trace action.
func (h *Logger) OnTraceRecorded(ctx context.Context, e reactlm.TraceRecordedEvent) {
	h.logger.DebugContext(ctx, "trace recorded",
		"session_id", e.Trace.SessionID,
		"iteration", e.Trace.Metadata.Iteration,
		"action", e.Trace.Action,
	)
}

func (h *Logger) preview(env reactlm.Envelope) string {
	if h.previewLen <= 0 || env.Content == nil {
		return ""
	}
	s, ok := env.Content.(string)
	if !ok {
		s = fmt.Sprintf("%v", env.Content)
	}
	if utf8.RuneCountInString(s) <= h.previewLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:h.previewLen]) + "..."
}

// Compile-time checks that Logger implements every hook interface.
var (
	_ reactlm.BeforeExecutionHook = (*Logger)(nil)
	_ reactlm.AfterExecutionHook  = (*Logger)(nil)
	_ reactlm.BeforeIterationHook = (*Logger)(nil)
	_ reactlm.BeforeModelCallHook = (*Logger)(nil)
	_ reactlm.AfterModelCallHook  = (*Logger)(nil)
	_ reactlm.BeforeToolCallHook  = (*Logger)(nil)
	_ reactlm.AfterToolCallHook   = (*Logger)(nil)
	_ reactlm.StateChangeHook     = (*Logger)(nil)
	_ reactlm.TraceRecordedHook   = (*Logger)(nil)
)
