package reactlm

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound is returned when the model requests a tool that is not registered
	// (or not allowed by the agent config). It is fatal for the running execution.
	ErrToolNotFound = errors.New("reactlm: tool not found")

	// ErrDuplicateTool is returned when adding a tool whose name is already registered.
	ErrDuplicateTool = errors.New("reactlm: tool already registered")

	// ErrMaxIterationsExceeded is returned when the iteration bound is reached and no
	// action was ever produced to fall back on.
	ErrMaxIterationsExceeded = errors.New("reactlm: max iterations reached without completion")

	// ErrMalformedAction is returned when the model replies with a JSON envelope that
	// does not decode to a map, or names a tool with a non-string value.
	ErrMalformedAction = errors.New("reactlm: malformed model action")

	// ErrInvalidKind is returned when a string does not name a known Kind.
	ErrInvalidKind = errors.New("reactlm: invalid envelope kind")

	// ErrNotJSONMap is returned by Envelope.AsMap when the content is not a JSON object.
	ErrNotJSONMap = errors.New("reactlm: envelope content is not a JSON object")

	// ErrInvalidConfig is returned by AgentConfig.Validate.
	ErrInvalidConfig = errors.New("reactlm: invalid agent config")

	// ErrInvalidToolInput is returned by tools whose ValidateInput rejected the input.
	ErrInvalidToolInput = errors.New("reactlm: invalid tool input")
)

// ToolNotFoundError names the tool that could not be resolved.
// It matches [ErrToolNotFound] with errors.Is.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("reactlm: tool %q not found", e.Name)
}

// Is reports whether target is ErrToolNotFound.
func (e *ToolNotFoundError) Is(target error) bool {
	return target == ErrToolNotFound
}

// DuplicateToolError names the tool that was already registered.
// It matches [ErrDuplicateTool] with errors.Is.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("reactlm: tool %q already exists", e.Name)
}

// Is reports whether target is ErrDuplicateTool.
func (e *DuplicateToolError) Is(target error) bool {
	return target == ErrDuplicateTool
}
