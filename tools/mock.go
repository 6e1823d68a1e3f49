package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/rickchristie/reactlm"
)

// MockSearch returns two synthetic results for any query. It registers as "search" so
// it can stand in for BraveSearch in demos.
type MockSearch struct {
	*reactlm.ToolFunc

	clock reactlm.TimeProvider
}

// NewMockSearch creates the mock "search" tool.
func NewMockSearch() *MockSearch {
	m := &MockSearch{clock: reactlm.NewDefaultTimeProvider()}
	m.ToolFunc = reactlm.NewToolFunc("search", "Search for information (simulated results)", m.search).
		WithSchema(querySchema)
	return m
}

// WithTimeProvider sets the clock used for result timestamps.
func (m *MockSearch) WithTimeProvider(tp reactlm.TimeProvider) *MockSearch {
	if tp != nil {
		m.clock = tp
	}
	return m
}

func (m *MockSearch) search(_ context.Context, input reactlm.Envelope) (reactlm.Envelope, error) {
	query, err := queryOf(input)
	if err != nil {
		return reactlm.Envelope{}, err
	}
	now := m.clock.Now()
	published := now.UTC().Format(time.RFC3339)

	results := []map[string]any{
		{
			"title":     fmt.Sprintf("Result 1 for %s", query),
			"snippet":   "This is a simulated search result with relevant information.",
			"url":       "https://example.com/1",
			"published": published,
		},
		{
			"title":     fmt.Sprintf("Result 2 for %s", query),
			"snippet":   "Another simulated result with different information.",
			"url":       "https://example.com/2",
			"published": published,
		},
	}
	return searchOutput(query, results, "mock", now, nil), nil
}

// Echo returns its input unchanged. It accepts every kind, including blank text, so a
// model that omits the input still gets a result back.
type Echo struct{}

// NewEcho creates the "echo" tool.
func NewEcho() *Echo {
	return &Echo{}
}

// Name implements reactlm.Tool.
func (*Echo) Name() string { return "echo" }

// Description implements reactlm.Tool.
func (*Echo) Description() string { return "Repeat the input back unchanged" }

// InputKinds implements reactlm.Tool.
func (*Echo) InputKinds() []reactlm.Kind { return reactlm.Kinds() }

// OutputKind reports text, the kind of the input the loop sends most often. The
// returned envelope carries the input's own kind.
func (*Echo) OutputKind() reactlm.Kind { return reactlm.KindText }

// Version implements reactlm.Tool.
func (*Echo) Version() string { return reactlm.DefaultToolVersion }

// ValidateInput accepts any envelope with a valid kind.
func (*Echo) ValidateInput(in reactlm.Envelope) bool {
	return in.Kind.Valid()
}

// Execute returns the input content under the input kind.
func (e *Echo) Execute(_ context.Context, in reactlm.Envelope) (reactlm.Envelope, error) {
	if !e.ValidateInput(in) {
		return reactlm.Envelope{}, fmt.Errorf("%w: echo does not accept %q input", reactlm.ErrInvalidToolInput, in.Kind)
	}
	return reactlm.NewEnvelope(in.Kind, in.Content, nil), nil
}
