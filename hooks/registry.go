package hooks

import (
	"context"
	"slices"
	"sync"

	"github.com/rickchristie/reactlm"
)

// Registry manages a collection of hooks and dispatches events to them.
//
// # Overview
//
// Registry is the central coordination point for hooks. It:
//   - Stores registered hooks in order
//   - Dispatches events to hooks that implement the relevant interface
//
// Hooks can implement any combination of hook interfaces - they only receive
// events for the interfaces they implement.
//
// # Creating and Using
//
//	registry := hooks.NewRegistry().
//	    Register(hooks.NewLogger(slog.Default())).
//	    Register(hooks.NewTracing(otel.Tracer("reactlm")))
//
//	agent := react.NewAgent(model, cfg).WithHooks(registry)
//
// # Thread Safety
//
// Registry may be shared by concurrent executions. Fire methods dispatch to a snapshot
// of the hooks registered at the time of the call.
type Registry struct {
	mu    sync.RWMutex
	hooks []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make([]any, 0),
	}
}

// Register adds a hook to the registry. The hook can implement any combination
// of hook interfaces. Hooks are called in the order they are registered.
func (r *Registry) Register(hook any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
	return r
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// Clear removes all registered hooks.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = make([]any, 0)
}

func (r *Registry) snapshot() []any {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.hooks)
}

// FireBeforeExecution dispatches to all BeforeExecutionHook implementations.
func (r *Registry) FireBeforeExecution(ctx context.Context, event reactlm.BeforeExecutionEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.BeforeExecutionHook); ok {
			hook.OnBeforeExecution(ctx, event)
		}
	}
}

// FireAfterExecution dispatches to all AfterExecutionHook implementations.
func (r *Registry) FireAfterExecution(ctx context.Context, event reactlm.AfterExecutionEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.AfterExecutionHook); ok {
			hook.OnAfterExecution(ctx, event)
		}
	}
}

// FireBeforeIteration dispatches to all BeforeIterationHook implementations.
func (r *Registry) FireBeforeIteration(ctx context.Context, event reactlm.BeforeIterationEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.BeforeIterationHook); ok {
			hook.OnBeforeIteration(ctx, event)
		}
	}
}

// FireBeforeModelCall dispatches to all BeforeModelCallHook implementations.
func (r *Registry) FireBeforeModelCall(ctx context.Context, event reactlm.BeforeModelCallEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.BeforeModelCallHook); ok {
			hook.OnBeforeModelCall(ctx, event)
		}
	}
}

// FireAfterModelCall dispatches to all AfterModelCallHook implementations.
func (r *Registry) FireAfterModelCall(ctx context.Context, event reactlm.AfterModelCallEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.AfterModelCallHook); ok {
			hook.OnAfterModelCall(ctx, event)
		}
	}
}

// FireBeforeToolCall dispatches to all BeforeToolCallHook implementations.
func (r *Registry) FireBeforeToolCall(ctx context.Context, event reactlm.BeforeToolCallEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.BeforeToolCallHook); ok {
			hook.OnBeforeToolCall(ctx, event)
		}
	}
}

// StepContext threads ctx through every StepContextHook in registration order and
// returns the result.
func (r *Registry) StepContext(ctx context.Context, event reactlm.StepContextEvent) context.Context {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.StepContextHook); ok {
			if next := hook.StepContext(ctx, event); next != nil {
				ctx = next
			}
		}
	}
	return ctx
}

// FireAfterToolCall dispatches to all AfterToolCallHook implementations.
func (r *Registry) FireAfterToolCall(ctx context.Context, event reactlm.AfterToolCallEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.AfterToolCallHook); ok {
			hook.OnAfterToolCall(ctx, event)
		}
	}
}

// FireStateChange dispatches to all StateChangeHook implementations.
func (r *Registry) FireStateChange(ctx context.Context, event reactlm.StateChangeEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.StateChangeHook); ok {
			hook.OnStateChange(ctx, event)
		}
	}
}

// FireTraceRecorded dispatches to all TraceRecordedHook implementations.
func (r *Registry) FireTraceRecorded(ctx context.Context, event reactlm.TraceRecordedEvent) {
	for _, h := range r.snapshot() {
		if hook, ok := h.(reactlm.TraceRecordedHook); ok {
			hook.OnTraceRecorded(ctx, event)
		}
	}
}
