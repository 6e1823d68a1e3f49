package reactlm

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Hook Interfaces
// -----------------------------------------------------------------------------
//
// Hooks observe a running execution. To use hooks:
//
//  1. Implement the desired hook interface(s)
//  2. Register with hooks.Registry
//  3. Pass the registry to the agent with WithHooks
//
// Example:
//
//	type CountingHook struct{ calls atomic.Int64 }
//
//	func (h *CountingHook) OnAfterToolCall(ctx context.Context, e reactlm.AfterToolCallEvent) {
//	    h.calls.Add(1)
//	}
//
//	registry := hooks.NewRegistry().Register(&CountingHook{})
//	agent := react.NewAgent(model, cfg).WithHooks(registry)
//
// Hooks are called synchronously on the loop goroutine, in registration order. They
// must not block and cannot change the outcome of the execution. Paired hooks
// (Before/After) always fire together: the After hook fires even on error.
// -----------------------------------------------------------------------------

// BeforeExecutionHook is notified once when an execution starts.
type BeforeExecutionHook interface {
	OnBeforeExecution(ctx context.Context, event BeforeExecutionEvent)
}

// AfterExecutionHook is notified once when an execution ends, successfully or not.
type AfterExecutionHook interface {
	OnAfterExecution(ctx context.Context, event AfterExecutionEvent)
}

// BeforeIterationHook is notified at the start of every loop pass.
type BeforeIterationHook interface {
	OnBeforeIteration(ctx context.Context, event BeforeIterationEvent)
}

// BeforeModelCallHook is notified before each model call.
type BeforeModelCallHook interface {
	OnBeforeModelCall(ctx context.Context, event BeforeModelCallEvent)
}

// AfterModelCallHook is notified after each model call.
type AfterModelCallHook interface {
	OnAfterModelCall(ctx context.Context, event AfterModelCallEvent)
}

// BeforeToolCallHook is notified before each tool call.
type BeforeToolCallHook interface {
	OnBeforeToolCall(ctx context.Context, event BeforeToolCallEvent)
}

// AfterToolCallHook is notified after each tool call.
type AfterToolCallHook interface {
	OnAfterToolCall(ctx context.Context, event AfterToolCallEvent)
}

// StateChangeHook is notified on every state transition of a session.
type StateChangeHook interface {
	OnStateChange(ctx context.Context, event StateChangeEvent)
}

// TraceRecordedHook is notified after a trace is appended.
type TraceRecordedHook interface {
	OnTraceRecorded(ctx context.Context, event TraceRecordedEvent)
}

// StepContextHook derives the context a model call or tool call runs under. It is
// consulted right after the matching Before hook, so a value started there (such
// as a span) reaches the Model or Tool. Returning nil keeps ctx.
type StepContextHook interface {
	StepContext(ctx context.Context, event StepContextEvent) context.Context
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// BeforeExecutionEvent carries the normalized input of an execution.
type BeforeExecutionEvent struct {
	SessionID string
	Input     Envelope
	Context   map[string]any
}

// AfterExecutionEvent carries the outcome of an execution.
type AfterExecutionEvent struct {
	SessionID  string
	Answer     Envelope
	Iterations int
	State      AgentState
	Duration   time.Duration
	Err        error
}

// BeforeIterationEvent marks the start of a loop pass.
type BeforeIterationEvent struct {
	SessionID string
	Iteration int
}

// Step names the kind of call a StepContextEvent is for.
type Step string

const (
	StepModel Step = "model"
	StepTool  Step = "tool"
)

// StepContextEvent identifies the call a context is derived for. Tool is empty for
// model calls.
type StepContextEvent struct {
	SessionID string
	Iteration int
	Step      Step
	Tool      string
}

// BeforeModelCallEvent carries the query about to be sent.
type BeforeModelCallEvent struct {
	SessionID string
	Iteration int
	Query     Envelope
}

// AfterModelCallEvent carries the model reply or failure.
type AfterModelCallEvent struct {
	SessionID string
	Iteration int
	Query     Envelope
	Action    Envelope
	Duration  time.Duration
	Err       error
}

// BeforeToolCallEvent carries the resolved tool and its input.
type BeforeToolCallEvent struct {
	SessionID string
	Iteration int
	Tool      string
	Input     Envelope
}

// AfterToolCallEvent carries the tool result or failure.
type AfterToolCallEvent struct {
	SessionID string
	Iteration int
	Tool      string
	Input     Envelope
	Output    Envelope
	Duration  time.Duration
	Err       error
}

// StateChangeEvent describes one state transition.
type StateChangeEvent struct {
	SessionID string
	Iteration int
	From      AgentState
	To        AgentState
}

// TraceRecordedEvent carries a freshly recorded trace.
type TraceRecordedEvent struct {
	Trace Trace
}
