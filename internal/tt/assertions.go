package tt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rickchristie/reactlm"
)

// TraceActions returns the action label of each trace.
func TraceActions(traces []reactlm.Trace) []string {
	out := make([]string, 0, len(traces))
	for _, tr := range traces {
		out = append(out, tr.Action)
	}
	return out
}

// AssertTraceActions checks the action labels of traces, in order.
func AssertTraceActions(t *testing.T, expected []string, traces []reactlm.Trace) bool {
	t.Helper()
	return assert.Equal(t, expected, TraceActions(traces))
}

// AssertEnvelope compares envelopes with reactlm.Envelope.Equal and prints both on failure.
func AssertEnvelope(t *testing.T, expected, actual reactlm.Envelope) bool {
	t.Helper()
	if expected.Equal(actual) {
		return true
	}
	return assert.Fail(t, "envelopes differ", "expected: %#v\nactual:   %#v", expected, actual)
}
