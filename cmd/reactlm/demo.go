package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/agents/react"
)

const userQueryPrefix = "User Query: "

// newDemoModel is the offline model used when no provider is configured. It calls
// tool once with the user query, then answers from the tool result.
func newDemoModel(tool string) reactlm.Model {
	return reactlm.ModelFunc(func(_ context.Context, query reactlm.Envelope, _ reactlm.GenerateOptions) (reactlm.Envelope, error) {
		prompt, _ := query.Text()
		question := userQuery(prompt)
		iteration, _ := query.Metadata["iteration"].(int)

		if iteration <= 1 && tool != "" {
			return reactlm.JSON(map[string]any{"tool": tool, "input": question}), nil
		}

		response := fmt.Sprintf("I have no tools to answer %q offline.", question)
		if tool != "" {
			response = fmt.Sprintf("The %s tool returned results for %q; see %s in the context.",
				tool, question, react.LastToolResultKey)
		}
		return reactlm.JSON(map[string]any{
			"final_answer": map[string]any{"response": response, "confidence": 0.5},
		}), nil
	})
}

func userQuery(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, userQueryPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, userQueryPrefix))
		}
	}
	return ""
}
