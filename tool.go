package reactlm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rickchristie/reactlm/schema"
)

// Tool is a named capability the loop may invoke once per iteration.
//
// Responsibility design:
//   - Tool: validate and execute one input, return one output envelope
//   - Registry: hold tools by unique name
//   - Agent: decide when to call which tool and fold the result into the context
type Tool interface {
	// Name returns the unique identifier the model uses to request this tool.
	Name() string

	// Description is shown to the model in the tool catalog.
	Description() string

	// InputKinds lists the envelope kinds the tool accepts.
	InputKinds() []Kind

	// OutputKind is the kind of envelope Execute returns.
	OutputKind() Kind

	// Version identifies the tool implementation.
	Version() string

	// Execute runs the tool.
	Execute(ctx context.Context, input Envelope) (Envelope, error)

	// ValidateInput reports whether input meets the tool's requirements.
	ValidateInput(input Envelope) bool
}

// DefaultToolVersion is used by ToolFunc when no version is set.
const DefaultToolVersion = "1.0.0"

// ToolFunc is a convenience Tool built from a function.
type ToolFunc struct {
	name        string
	description string
	inputKinds  []Kind
	outputKind  Kind
	version     string
	schema      *schema.Schema
	fn          func(ctx context.Context, input Envelope) (Envelope, error)
}

// NewToolFunc creates a tool that accepts text and produces JSON by default.
func NewToolFunc(
	name, description string,
	fn func(ctx context.Context, input Envelope) (Envelope, error),
) *ToolFunc {
	return &ToolFunc{
		name:        name,
		description: description,
		inputKinds:  []Kind{KindText},
		outputKind:  KindJSON,
		version:     DefaultToolVersion,
		fn:          fn,
	}
}

// WithInputKinds replaces the accepted input kinds.
func (t *ToolFunc) WithInputKinds(kinds ...Kind) *ToolFunc {
	t.inputKinds = kinds
	return t
}

// WithOutputKind sets the produced output kind.
func (t *ToolFunc) WithOutputKind(kind Kind) *ToolFunc {
	t.outputKind = kind
	return t
}

// WithVersion sets the tool version.
func (t *ToolFunc) WithVersion(version string) *ToolFunc {
	t.version = version
	return t
}

// WithSchema sets the JSON schema JSON inputs are validated against.
// Adding a schema also makes the tool accept [KindJSON] inputs.
func (t *ToolFunc) WithSchema(s *schema.Schema) *ToolFunc {
	t.schema = s
	if !slices.Contains(t.inputKinds, KindJSON) {
		t.inputKinds = append(t.inputKinds, KindJSON)
	}
	return t
}

// Schema returns the input schema, nil when none is set.
func (t *ToolFunc) Schema() *schema.Schema { return t.schema }

// Name implements Tool.
func (t *ToolFunc) Name() string { return t.name }

// Description implements Tool.
func (t *ToolFunc) Description() string { return t.description }

// InputKinds implements Tool.
func (t *ToolFunc) InputKinds() []Kind { return slices.Clone(t.inputKinds) }

// OutputKind implements Tool.
func (t *ToolFunc) OutputKind() Kind { return t.outputKind }

// Version implements Tool.
func (t *ToolFunc) Version() string { return t.version }

// ValidateInput accepts inputs of a declared kind. Text must be non-blank; JSON must
// be an object and, when a schema is set, conform to it.
func (t *ToolFunc) ValidateInput(input Envelope) bool {
	return t.validate(input) == nil
}

func (t *ToolFunc) validate(input Envelope) error {
	if !slices.Contains(t.inputKinds, input.Kind) {
		return fmt.Errorf("%w: %s does not accept %q input", ErrInvalidToolInput, t.name, input.Kind)
	}
	switch input.Kind {
	case KindText:
		text, ok := input.Text()
		if !ok || strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: %s requires non-empty text", ErrInvalidToolInput, t.name)
		}
	case KindJSON:
		m, err := input.AsMap()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidToolInput, err)
		}
		if err := t.schema.Validate(m); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidToolInput, err)
		}
	}
	return nil
}

// Execute validates the input and calls the function.
func (t *ToolFunc) Execute(ctx context.Context, input Envelope) (Envelope, error) {
	if err := t.validate(input); err != nil {
		return Envelope{}, err
	}
	return t.fn(ctx, input)
}

// Compile-time check that ToolFunc implements Tool.
var _ Tool = (*ToolFunc)(nil)
