// Package hooks provides a registry for execution lifecycle hooks, plus two ready-made
// hooks: a structured logger and an OpenTelemetry span exporter.
//
// Hooks observe events during agent execution. Each hook interface corresponds to a
// specific event type - implement only the interfaces you need.
//
// # Hook Interfaces
//
// Execution lifecycle hooks:
//   - [reactlm.BeforeExecutionHook] - Called once before the first iteration
//   - [reactlm.AfterExecutionHook] - Called once after execution ends
//   - [reactlm.BeforeIterationHook] - Called before each iteration
//   - [reactlm.StateChangeHook] - Called on each state transition
//
// Collaborator hooks:
//   - [reactlm.BeforeModelCallHook], [reactlm.AfterModelCallHook]
//   - [reactlm.BeforeToolCallHook], [reactlm.AfterToolCallHook]
//   - [reactlm.TraceRecordedHook] - Called after a trace is recorded
//
// # Creating a Hook
//
//	type MetricsHook struct{}
//
//	func (h *MetricsHook) OnAfterToolCall(ctx context.Context, event reactlm.AfterToolCallEvent) {
//	    metrics.RecordToolCall(event.Tool, event.Duration)
//	}
//
//	// Compile-time check
//	var _ reactlm.AfterToolCallHook = (*MetricsHook)(nil)
//
// # Provided Hooks
//
//   - [Logger] writes every event to a log/slog logger.
//   - [Tracing] opens OpenTelemetry spans for executions, model calls and tool calls.
package hooks
