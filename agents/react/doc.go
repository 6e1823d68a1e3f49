// Package react implements the bounded ReAct (Reasoning and Acting) loop.
//
// # Overview
//
// Each iteration asks the model for one decision and acts on it:
//
//  1. Render the prompt from the input, the session context and the tool catalog
//  2. Call the model; the reply is the iteration's action
//  3. A {"final_answer": ...} action ends the loop with that value as a JSON answer
//  4. A {"tool": ..., "input": ...} action runs that one tool and stores its output
//     content in the context under "last_tool_result"
//  5. Anything else is undecided and the loop continues
//
// Tools never run in parallel: a decision yields at most one tool call, and its
// result is visible to the next model call.
//
// # Termination
//
// Config.MaxIterations is a hard cap. When it is reached without a final answer, the
// last action the model produced is returned as the answer, tagged or not. This
// degrades a run that never converged into its best available output instead of
// failing it. Only when no action exists at all (a non-positive bound) does the
// execution fail with [reactlm.ErrMaxIterationsExceeded].
//
// An unknown tool fails the execution with [reactlm.ErrToolNotFound]. Model and tool
// errors are returned as-is, never retried. A failure to mirror a trace to memory is
// logged and otherwise ignored.
//
// # Concurrency
//
// Every Run allocates its own [Session]. Concurrent runs on one Agent share only the
// config and the tool registry; each iteration reads one registry snapshot, so tools
// added or removed mid-iteration take effect from the next iteration.
//
// # Timeouts
//
// When Config.Timeout is positive, the model call and the tool call of each iteration
// each run under their own deadline. Cancellation of the caller's context is checked
// before every iteration.
//
// # Templates
//
// The prompt is a text/template executed with [PromptData]:
//   - {{range .Tools}}{{.Name}}: {{.Description}}{{end}}
//   - {{.Context}} (YAML) and {{.Vars}}
//   - {{.Query}}, {{.Mode}}, {{.Iteration}}, {{.MaxIterations}}
//   - {{.Time.Today}}, {{.Time.Format "2006-01-02"}}
package react
