package reactlm

// AgentState is the position of a running session in the loop state machine:
//
//	Idle -> Thinking -> {Executing <-> Thinking} -> Completed | Error
type AgentState string

const (
	StateIdle      AgentState = "idle"
	StateThinking  AgentState = "thinking"
	StateExecuting AgentState = "executing"
	StateWaiting   AgentState = "waiting" // not entered by the loop
	StateError     AgentState = "error"
	StateCompleted AgentState = "completed"
)

// Terminal reports whether no further transitions follow s.
func (s AgentState) Terminal() bool {
	return s == StateCompleted || s == StateError
}
