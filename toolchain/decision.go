package toolchain

import (
	"encoding/json"
	"fmt"

	"github.com/rickchristie/reactlm"
)

// Keys of the model decision object.
const (
	KeyFinalAnswer = "final_answer"
	KeyTool        = "tool"
	KeyInput       = "input"
)

// DecisionType classifies a model action.
type DecisionType int

const (
	// DecisionNone means the action carries neither a final answer nor a tool call.
	DecisionNone DecisionType = iota

	// DecisionFinal means the action carries a final answer.
	DecisionFinal

	// DecisionTool means the action requests a tool call.
	DecisionTool
)

func (d DecisionType) String() string {
	switch d {
	case DecisionFinal:
		return "final"
	case DecisionTool:
		return "tool"
	default:
		return "none"
	}
}

// Decision is a decoded model action.
type Decision struct {
	Type DecisionType

	// FinalAnswer is the value under "final_answer" (DecisionFinal only).
	FinalAnswer any

	// Tool is the requested tool name (DecisionTool only).
	Tool string

	// Input is the raw "input" value, nil when absent (DecisionTool only).
	Input any
}

// ParseDecision decodes a model action.
//
// Actions that are not [reactlm.KindJSON] are DecisionNone. JSON actions must decode to
// an object, and a "tool" value must be a string; otherwise ParseDecision fails with
// [reactlm.ErrMalformedAction].
func ParseDecision(action reactlm.Envelope) (Decision, error) {
	if action.Kind != reactlm.KindJSON {
		return Decision{Type: DecisionNone}, nil
	}

	m, err := action.AsMap()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", reactlm.ErrMalformedAction, err)
	}

	if answer, ok := m[KeyFinalAnswer]; ok {
		return Decision{Type: DecisionFinal, FinalAnswer: answer}, nil
	}

	rawTool, ok := m[KeyTool]
	if !ok {
		return Decision{Type: DecisionNone}, nil
	}
	name, ok := rawTool.(string)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q must be a string, got %T",
			reactlm.ErrMalformedAction, KeyTool, rawTool)
	}
	return Decision{Type: DecisionTool, Tool: name, Input: m[KeyInput]}, nil
}

// WrapInput turns the "input" value of a tool decision into the envelope passed to the
// tool: strings become text, objects become JSON, a missing input becomes empty text,
// and any other value becomes text holding its JSON encoding.
func WrapInput(input any) reactlm.Envelope {
	switch v := input.(type) {
	case nil:
		return reactlm.Text("")
	case string:
		return reactlm.Text(v)
	case map[string]any:
		return reactlm.JSON(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return reactlm.Text(fmt.Sprint(v))
		}
		return reactlm.Text(string(b))
	}
}
