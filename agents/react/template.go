package react

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/toolchain"
)

//go:embed react.tmpl
var defaultPromptContent string

// DefaultPromptTemplate is the query template sent to the model on every iteration.
// It lists the visible tools, the session context and the user query, and asks for a
// JSON tool call or final answer.
var DefaultPromptTemplate = template.Must(
	template.New("react_prompt").Parse(defaultPromptContent),
)

// PromptData is the data passed to prompt templates.
type PromptData struct {
	// Tools is the catalog visible in this iteration, in registration order.
	Tools []toolchain.Entry

	// Catalog is Tools rendered by toolchain.CatalogText.
	Catalog string

	// Context is the session context rendered as YAML ("{}" when empty).
	Context string

	// Vars is the raw session context.
	Vars map[string]any

	// Query is the input rendered as text.
	Query string

	// Input is the original input envelope.
	Input reactlm.Envelope

	Mode          reactlm.Mode
	Iteration     int
	MaxIterations int

	// Time provides {{.Time.Today}} and {{.Time.Format "layout"}}.
	Time reactlm.TimeProvider
}

// RenderPrompt executes tmpl with data.
func RenderPrompt(tmpl *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderContext renders the session context as YAML.
func renderContext(vars map[string]any) (string, error) {
	if len(vars) == 0 {
		return "{}", nil
	}
	b, err := yaml.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("render context: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// queryText renders an input envelope for the prompt.
func queryText(input reactlm.Envelope) string {
	if text, ok := input.Text(); ok {
		return text
	}
	switch c := input.Content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		if input.Kind == reactlm.KindJSON {
			return string(c)
		}
		return fmt.Sprintf("<%s: %d bytes>", input.Kind, len(c))
	}
	if input.Kind == reactlm.KindJSON {
		if b, err := json.Marshal(input.Content); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(input.Content)
}
