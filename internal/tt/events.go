package tt

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rickchristie/reactlm"
)

// -----------------------------------------------------------------------------
// Action builders
// -----------------------------------------------------------------------------

// ToolCall builds a model action requesting a tool.
func ToolCall(name string, input any) reactlm.Envelope {
	content := map[string]any{"tool": name}
	if input != nil {
		content["input"] = input
	}
	return reactlm.JSON(content)
}

// FinalAnswer builds a model action carrying a final answer.
func FinalAnswer(answer any) reactlm.Envelope {
	return reactlm.JSON(map[string]any{"final_answer": answer})
}

// -----------------------------------------------------------------------------
// EventRecorder - a hook that records every event it receives
// -----------------------------------------------------------------------------

// Event names recorded by EventRecorder.
const (
	EventBeforeExecution = "before_execution"
	EventAfterExecution  = "after_execution"
	EventBeforeIteration = "before_iteration"
	EventBeforeModelCall = "before_model_call"
	EventAfterModelCall  = "after_model_call"
	EventBeforeToolCall  = "before_tool_call"
	EventAfterToolCall   = "after_tool_call"
	EventStateChange     = "state_change"
	EventTraceRecorded   = "trace_recorded"
)

// EventRecorder implements every hook interface. Names are recorded as
// "<event>" or "<event>:<detail>" for state changes and tool calls.
type EventRecorder struct {
	mu     sync.Mutex
	names  []string
	events []any
}

// NewEventRecorder creates an empty EventRecorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) add(name string, event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.events = append(r.events, event)
}

// Names returns the recorded event names in order.
func (r *EventRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.names)
}

// Events returns the recorded events in order.
func (r *EventRecorder) Events() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// StateChanges returns the "from->to" transitions in order.
func (r *EventRecorder) StateChanges() []string {
	var out []string
	for _, e := range r.Events() {
		if sc, ok := e.(reactlm.StateChangeEvent); ok {
			out = append(out, fmt.Sprintf("%s->%s", sc.From, sc.To))
		}
	}
	return out
}

// Count returns the number of recorded events named name or name:<detail>.
func (r *EventRecorder) Count(name string) int {
	n := 0
	for _, got := range r.Names() {
		if got == name || (len(got) > len(name) && got[:len(name)+1] == name+":") {
			n++
		}
	}
	return n
}

func (r *EventRecorder) OnBeforeExecution(_ context.Context, e reactlm.BeforeExecutionEvent) {
	r.add(EventBeforeExecution, e)
}

func (r *EventRecorder) OnAfterExecution(_ context.Context, e reactlm.AfterExecutionEvent) {
	r.add(EventAfterExecution, e)
}

func (r *EventRecorder) OnBeforeIteration(_ context.Context, e reactlm.BeforeIterationEvent) {
	r.add(EventBeforeIteration, e)
}

func (r *EventRecorder) OnBeforeModelCall(_ context.Context, e reactlm.BeforeModelCallEvent) {
	r.add(EventBeforeModelCall, e)
}

func (r *EventRecorder) OnAfterModelCall(_ context.Context, e reactlm.AfterModelCallEvent) {
	r.add(EventAfterModelCall, e)
}

func (r *EventRecorder) OnBeforeToolCall(_ context.Context, e reactlm.BeforeToolCallEvent) {
	r.add(EventBeforeToolCall+":"+e.Tool, e)
}

func (r *EventRecorder) OnAfterToolCall(_ context.Context, e reactlm.AfterToolCallEvent) {
	r.add(EventAfterToolCall+":"+e.Tool, e)
}

func (r *EventRecorder) OnStateChange(_ context.Context, e reactlm.StateChangeEvent) {
	r.add(fmt.Sprintf("%s:%s", EventStateChange, e.To), e)
}

func (r *EventRecorder) OnTraceRecorded(_ context.Context, e reactlm.TraceRecordedEvent) {
	r.add(EventTraceRecorded+":"+e.Trace.Action, e)
}

// Compile-time checks.
var (
	_ reactlm.BeforeExecutionHook = (*EventRecorder)(nil)
	_ reactlm.AfterExecutionHook  = (*EventRecorder)(nil)
	_ reactlm.BeforeIterationHook = (*EventRecorder)(nil)
	_ reactlm.BeforeModelCallHook = (*EventRecorder)(nil)
	_ reactlm.AfterModelCallHook  = (*EventRecorder)(nil)
	_ reactlm.BeforeToolCallHook  = (*EventRecorder)(nil)
	_ reactlm.AfterToolCallHook   = (*EventRecorder)(nil)
	_ reactlm.StateChangeHook     = (*EventRecorder)(nil)
	_ reactlm.TraceRecordedHook   = (*EventRecorder)(nil)
)
