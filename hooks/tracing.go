package hooks

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickchristie/reactlm"
)

// TracerName is the instrumentation name used when no tracer is supplied.
const TracerName = "github.com/rickchristie/reactlm"

// Span names emitted by Tracing.
const (
	SpanExecute   = "reactlm.execute"
	SpanModelCall = "reactlm.model.generate"
	SpanToolCall  = "reactlm.tool.execute"
)

// Attribute keys set on spans.
const (
	AttrSessionID  = attribute.Key("reactlm.session_id")
	AttrIteration  = attribute.Key("reactlm.iteration")
	AttrIterations = attribute.Key("reactlm.iterations")
	AttrState      = attribute.Key("reactlm.state")
	AttrTool       = attribute.Key("reactlm.tool")
	AttrKind       = attribute.Key("reactlm.kind")
)

// Tracing opens an OpenTelemetry span per execution, with child spans for every
// model call and tool call. Spans are correlated by session id and iteration, so a
// single Tracing can serve concurrent executions.
type Tracing struct {
	tracer trace.Tracer

	mu         sync.Mutex
	executions map[string]executionSpan
	steps      map[string]trace.Span
}

type executionSpan struct {
	ctx  context.Context
	span trace.Span
}

// NewTracing creates a Tracing hook. A nil tracer uses the global tracer provider.
func NewTracing(tracer trace.Tracer) *Tracing {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Tracing{
		tracer:     tracer,
		executions: make(map[string]executionSpan),
		steps:      make(map[string]trace.Span),
	}
}

func stepKey(step reactlm.Step, sessionID string, iteration int) string {
	return fmt.Sprintf("%s:%s:%d", step, sessionID, iteration)
}

// parent returns the execution span context for a session, or ctx when unknown.
func (h *Tracing) parent(ctx context.Context, sessionID string) context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if exec, ok := h.executions[sessionID]; ok {
		return exec.ctx
	}
	return ctx
}

// OnBeforeExecution starts the execution span.
func (h *Tracing) OnBeforeExecution(ctx context.Context, e reactlm.BeforeExecutionEvent) {
	spanCtx, span := h.tracer.Start(ctx, SpanExecute,
		trace.WithAttributes(
			AttrSessionID.String(e.SessionID),
			AttrKind.String(string(e.Input.Kind)),
		),
	)
	h.mu.Lock()
	h.executions[e.SessionID] = executionSpan{ctx: spanCtx, span: span}
	h.mu.Unlock()
}

// OnAfterExecution ends the execution span.
func (h *Tracing) OnAfterExecution(_ context.Context, e reactlm.AfterExecutionEvent) {
	h.mu.Lock()
	exec, ok := h.executions[e.SessionID]
	delete(h.executions, e.SessionID)
	h.mu.Unlock()
	if !ok {
		return
	}

	exec.span.SetAttributes(
		AttrIterations.Int(e.Iterations),
		AttrState.String(string(e.State)),
	)
	endSpan(exec.span, e.Err)
}

// OnBeforeModelCall starts a model call span.
func (h *Tracing) OnBeforeModelCall(ctx context.Context, e reactlm.BeforeModelCallEvent) {
	_, span := h.tracer.Start(h.parent(ctx, e.SessionID), SpanModelCall,
		trace.WithAttributes(
			AttrSessionID.String(e.SessionID),
			AttrIteration.Int(e.Iteration),
		),
	)
	h.mu.Lock()
	h.steps[stepKey(reactlm.StepModel, e.SessionID, e.Iteration)] = span
	h.mu.Unlock()
}

// OnAfterModelCall ends the model call span.
func (h *Tracing) OnAfterModelCall(_ context.Context, e reactlm.AfterModelCallEvent) {
	span := h.takeStep(stepKey(reactlm.StepModel, e.SessionID, e.Iteration))
	if span == nil {
		return
	}
	span.SetAttributes(AttrKind.String(string(e.Action.Kind)))
	endSpan(span, e.Err)
}

// OnBeforeToolCall starts a tool call span.
func (h *Tracing) OnBeforeToolCall(ctx context.Context, e reactlm.BeforeToolCallEvent) {
	_, span := h.tracer.Start(h.parent(ctx, e.SessionID), SpanToolCall,
		trace.WithAttributes(
			AttrSessionID.String(e.SessionID),
			AttrIteration.Int(e.Iteration),
			AttrTool.String(e.Tool),
		),
	)
	h.mu.Lock()
	h.steps[stepKey(reactlm.StepTool, e.SessionID, e.Iteration)] = span
	h.mu.Unlock()
}

// OnAfterToolCall ends the tool call span.
func (h *Tracing) OnAfterToolCall(_ context.Context, e reactlm.AfterToolCallEvent) {
	span := h.takeStep(stepKey(reactlm.StepTool, e.SessionID, e.Iteration))
	if span == nil {
		return
	}
	span.SetAttributes(AttrKind.String(string(e.Output.Kind)))
	endSpan(span, e.Err)
}

// StepContext puts the open model or tool span on ctx, making it the parent of spans
// the Model or Tool starts.
func (h *Tracing) StepContext(ctx context.Context, e reactlm.StepContextEvent) context.Context {
	h.mu.Lock()
	span, ok := h.steps[stepKey(e.Step, e.SessionID, e.Iteration)]
	h.mu.Unlock()
	if !ok {
		return ctx
	}
	return trace.ContextWithSpan(ctx, span)
}

func (h *Tracing) takeStep(key string) trace.Span {
	h.mu.Lock()
	defer h.mu.Unlock()
	span, ok := h.steps[key]
	if !ok {
		return nil
	}
	delete(h.steps, key)
	return span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Compile-time checks.
var (
	_ reactlm.BeforeExecutionHook = (*Tracing)(nil)
	_ reactlm.AfterExecutionHook  = (*Tracing)(nil)
	_ reactlm.BeforeModelCallHook = (*Tracing)(nil)
	_ reactlm.AfterModelCallHook  = (*Tracing)(nil)
	_ reactlm.BeforeToolCallHook  = (*Tracing)(nil)
	_ reactlm.AfterToolCallHook   = (*Tracing)(nil)
	_ reactlm.StepContextHook     = (*Tracing)(nil)
)
