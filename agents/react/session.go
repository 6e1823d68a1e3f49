package react

import (
	"maps"

	"github.com/rickchristie/reactlm"
)

// LastToolResultKey is the context key holding the content of the latest tool output.
const LastToolResultKey = "last_tool_result"

// Session is the record of one execution. It is owned by a single Run call and must
// not be modified until that call returns.
type Session struct {
	// ID is the unique session token; it prefixes mirrored trace keys.
	ID string

	// Iteration is the number of loop passes started.
	Iteration int

	// State is the state the session ended in.
	State reactlm.AgentState

	// Context is the context map as of the last completed iteration.
	Context map[string]any

	// Answer is the returned envelope. It is zero when the execution failed.
	Answer reactlm.Envelope

	recorder *reactlm.TraceRecorder
}

func newSession(id string, vars map[string]any) *Session {
	ctx := maps.Clone(vars)
	if ctx == nil {
		ctx = make(map[string]any)
	}
	return &Session{
		ID:      id,
		State:   reactlm.StateIdle,
		Context: ctx,
	}
}

// Traces returns a copy of the traces recorded so far. It is empty when tracing is
// disabled.
func (s *Session) Traces() []reactlm.Trace {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Traces()
}

// MirrorFailures returns how many traces could not be written to memory.
func (s *Session) MirrorFailures() int {
	if s.recorder == nil {
		return 0
	}
	return s.recorder.MirrorFailures()
}

// Succeeded reports whether the session completed with an answer.
func (s *Session) Succeeded() bool {
	return s.State == reactlm.StateCompleted
}
