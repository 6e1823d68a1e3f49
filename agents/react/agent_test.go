package react

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/hooks"
	"github.com/rickchristie/reactlm/internal/tt"
	"github.com/rickchristie/reactlm/tools"
)

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func testConfig(maxIterations int) reactlm.AgentConfig {
	cfg := reactlm.DefaultAgentConfig()
	cfg.MaxIterations = maxIterations
	cfg.Timeout = 0
	return cfg
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

func newTestAgent(model reactlm.Model, cfg reactlm.AgentConfig, toolset ...reactlm.Tool) *Agent {
	return NewAgent(model, cfg).
		WithTools(toolset...).
		WithSessionIDGenerator(sequentialIDs("sess")).
		WithTimeProvider(reactlm.NewMockTimeProvider(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
}

// ----------------------------------------------------------------------------
// Loop outcomes
// ----------------------------------------------------------------------------

func TestAgent_Execute(t *testing.T) {
	type input struct {
		maxIterations int
		replies       []reactlm.Envelope
		repeat        *reactlm.Envelope
	}

	type expected struct {
		answer     reactlm.Envelope
		err        error
		modelCalls int
		toolCalls  int
		iterations int
		state      reactlm.AgentState
		traces     []string
	}

	undecided := reactlm.JSON(map[string]any{"thought": "still thinking"})
	echoHello := tt.ToolCall("echo", "hello")

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name: "first reply is a final answer",
			input: input{
				maxIterations: 1,
				replies:       []reactlm.Envelope{tt.FinalAnswer(map[string]any{"response": "ok"})},
			},
			expected: expected{
				answer:     reactlm.JSON(map[string]any{"response": "ok"}),
				modelCalls: 1,
				iterations: 1,
				state:      reactlm.StateCompleted,
				traces:     []string{reactlm.ActionLLMGeneration},
			},
		},
		{
			name: "undecided model falls back to the last action after N calls",
			input: input{
				maxIterations: 3,
				repeat:        &undecided,
			},
			expected: expected{
				answer:     undecided,
				modelCalls: 3,
				iterations: 3,
				state:      reactlm.StateCompleted,
				traces: []string{
					reactlm.ActionLLMGeneration,
					reactlm.ActionLLMGeneration,
					reactlm.ActionLLMGeneration,
				},
			},
		},
		{
			name: "echo forever returns the second tool call action",
			input: input{
				maxIterations: 2,
				repeat:        &echoHello,
			},
			expected: expected{
				answer:     echoHello,
				modelCalls: 2,
				toolCalls:  2,
				iterations: 2,
				state:      reactlm.StateCompleted,
				traces: []string{
					reactlm.ActionLLMGeneration,
					reactlm.ToolAction("echo"),
					reactlm.ActionLLMGeneration,
					reactlm.ToolAction("echo"),
				},
			},
		},
		{
			name: "two tool calls then a final answer records five traces",
			input: input{
				maxIterations: 5,
				replies: []reactlm.Envelope{
					tt.ToolCall("echo", "one"),
					tt.ToolCall("echo", "two"),
					tt.FinalAnswer("done"),
				},
			},
			expected: expected{
				answer:     reactlm.JSON("done"),
				modelCalls: 3,
				toolCalls:  2,
				iterations: 3,
				state:      reactlm.StateCompleted,
				traces: []string{
					reactlm.ActionLLMGeneration,
					reactlm.ToolAction("echo"),
					reactlm.ActionLLMGeneration,
					reactlm.ToolAction("echo"),
					reactlm.ActionLLMGeneration,
				},
			},
		},
		{
			name: "unregistered tool fails without a tool trace",
			input: input{
				maxIterations: 3,
				replies:       []reactlm.Envelope{tt.ToolCall("missing", "x")},
			},
			expected: expected{
				err:        reactlm.ErrToolNotFound,
				modelCalls: 1,
				iterations: 1,
				state:      reactlm.StateError,
				traces:     []string{reactlm.ActionLLMGeneration},
			},
		},
		{
			name: "non-positive bound fails without calling the model",
			input: input{
				maxIterations: 0,
				repeat:        &echoHello,
			},
			expected: expected{
				err:        reactlm.ErrMaxIterationsExceeded,
				modelCalls: 0,
				iterations: 0,
				state:      reactlm.StateError,
				traces:     []string{},
			},
		},
		{
			name: "non-JSON reply is undecided",
			input: input{
				maxIterations: 1,
				replies:       []reactlm.Envelope{reactlm.Text("I think the answer is 4")},
			},
			expected: expected{
				answer:     reactlm.Text("I think the answer is 4"),
				modelCalls: 1,
				iterations: 1,
				state:      reactlm.StateCompleted,
				traces:     []string{reactlm.ActionLLMGeneration},
			},
		},
		{
			name: "final answer wins over a tool key",
			input: input{
				maxIterations: 3,
				replies: []reactlm.Envelope{reactlm.JSON(map[string]any{
					"tool":         "echo",
					"input":        "ignored",
					"final_answer": "both",
				})},
			},
			expected: expected{
				answer:     reactlm.JSON("both"),
				modelCalls: 1,
				iterations: 1,
				state:      reactlm.StateCompleted,
				traces:     []string{reactlm.ActionLLMGeneration},
			},
		},
		{
			name: "JSON reply that is not an object is malformed",
			input: input{
				maxIterations: 3,
				replies:       []reactlm.Envelope{reactlm.JSON("not an object")},
			},
			expected: expected{
				err:        reactlm.ErrMalformedAction,
				modelCalls: 1,
				iterations: 1,
				state:      reactlm.StateError,
				traces:     []string{reactlm.ActionLLMGeneration},
			},
		},
		{
			name: "non-string tool name is malformed",
			input: input{
				maxIterations: 3,
				replies:       []reactlm.Envelope{reactlm.JSON(map[string]any{"tool": 42})},
			},
			expected: expected{
				err:        reactlm.ErrMalformedAction,
				modelCalls: 1,
				iterations: 1,
				state:      reactlm.StateError,
				traces:     []string{reactlm.ActionLLMGeneration},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := tt.NewMockModel()
			for _, r := range tc.input.replies {
				model.AddAction(r)
			}
			if tc.input.repeat != nil {
				model.Repeat(*tc.input.repeat)
			}
			echo := tt.NewMockTool("echo")
			agent := newTestAgent(model, testConfig(tc.input.maxIterations), echo)

			sess, err := agent.Run(context.Background(), reactlm.Text("what is 2+2?"), nil)

			require.NotNil(t, sess)
			if tc.expected.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expected.err)
				assert.True(t, sess.Answer.IsZero())
			} else {
				require.NoError(t, err)
				tt.AssertEnvelope(t, tc.expected.answer, sess.Answer)
			}
			assert.Equal(t, tc.expected.modelCalls, model.CallCount())
			assert.Equal(t, tc.expected.toolCalls, echo.CallCount())
			assert.Equal(t, tc.expected.iterations, sess.Iteration)
			assert.Equal(t, tc.expected.state, sess.State)
			assert.Equal(t, tc.expected.state, agent.State())
			tt.AssertTraceActions(t, tc.expected.traces, sess.Traces())
		})
	}
}

func TestAgent_ExecuteText_FinalAnswerKeepsActionMetadata(t *testing.T) {
	action := tt.FinalAnswer(map[string]any{"response": "ok"}).
		WithMetadata("model", "gpt-test").
		WithMetadata("prompt_tokens", 12)
	model := tt.NewMockModel().AddAction(action)
	agent := newTestAgent(model, testConfig(1))

	answer, err := agent.ExecuteText(context.Background(), "hi", nil)

	require.NoError(t, err)
	assert.Equal(t, reactlm.KindJSON, answer.Kind)
	assert.Equal(t, map[string]any{"response": "ok"}, answer.Content)
	assert.Equal(t, map[string]any{"model": "gpt-test", "prompt_tokens": 12}, answer.Metadata)
}

// ----------------------------------------------------------------------------
// Collaborator failures
// ----------------------------------------------------------------------------

func TestAgent_CollaboratorErrorsPropagateUnchanged(t *testing.T) {
	errModel := errors.New("model exploded")
	errTool := errors.New("tool exploded")

	type input struct {
		model func() *tt.MockModel
		tool  func() *tt.MockTool
	}

	type expected struct {
		err    error
		traces []string
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name: "model failure on first call",
			input: input{
				model: func() *tt.MockModel { return tt.NewMockModel().AddError(errModel) },
				tool:  func() *tt.MockTool { return tt.NewMockTool("echo") },
			},
			expected: expected{err: errModel, traces: []string{}},
		},
		{
			name: "model failure after a tool call",
			input: input{
				model: func() *tt.MockModel {
					return tt.NewMockModel().AddToolCall("echo", "a").AddError(errModel)
				},
				tool: func() *tt.MockTool { return tt.NewMockTool("echo") },
			},
			expected: expected{
				err:    errModel,
				traces: []string{reactlm.ActionLLMGeneration, reactlm.ToolAction("echo")},
			},
		},
		{
			name: "tool failure",
			input: input{
				model: func() *tt.MockModel { return tt.NewMockModel().AddToolCall("echo", "a") },
				tool:  func() *tt.MockTool { return tt.NewMockTool("echo").WithError(errTool) },
			},
			expected: expected{err: errTool, traces: []string{reactlm.ActionLLMGeneration}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agent := newTestAgent(tc.input.model(), testConfig(5), tc.input.tool())

			sess, err := agent.Run(context.Background(), reactlm.Text("q"), nil)

			assert.Same(t, tc.expected.err, err)
			assert.Equal(t, reactlm.StateError, sess.State)
			assert.False(t, sess.Succeeded())
			tt.AssertTraceActions(t, tc.expected.traces, sess.Traces())
		})
	}
}

func TestAgent_ToolTimeout(t *testing.T) {
	cfg := testConfig(3)
	cfg.Timeout = 20 * time.Millisecond
	slow := tt.NewMockTool("slow").WithDelay(5 * time.Second)
	model := tt.NewMockModel().AddToolCall("slow", "x")
	agent := newTestAgent(model, cfg, slow)

	start := time.Now()
	_, err := agent.ExecuteText(context.Background(), "q", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, reactlm.StateError, agent.State())
}

func TestAgent_ModelTimeout(t *testing.T) {
	cfg := testConfig(3)
	cfg.Timeout = 20 * time.Millisecond
	model := tt.NewMockModel().WithDelay(5 * time.Second)
	agent := newTestAgent(model, cfg)

	_, err := agent.ExecuteText(context.Background(), "q", nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAgent_CanceledContext(t *testing.T) {
	model := tt.NewMockModel().AddFinalAnswer("never")
	agent := newTestAgent(model, testConfig(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess, err := agent.Run(ctx, reactlm.Text("q"), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, model.CallCount())
	assert.Equal(t, 0, sess.Iteration)
	assert.Equal(t, reactlm.StateError, sess.State)
}

func TestAgent_InvalidInputKind(t *testing.T) {
	model := tt.NewMockModel().AddFinalAnswer("never")
	agent := newTestAgent(model, testConfig(3))

	_, err := agent.Execute(context.Background(), reactlm.Envelope{Kind: "hologram", Content: "x"}, nil)

	assert.ErrorIs(t, err, reactlm.ErrInvalidKind)
	assert.Equal(t, 0, model.CallCount())
}

// ----------------------------------------------------------------------------
// Context and tool input
// ----------------------------------------------------------------------------

func TestAgent_ContextThreading(t *testing.T) {
	tool := tt.NewMockTool("lookup").WithOutput(reactlm.JSON(map[string]any{"temp": "31C"}))
	model := tt.NewMockModel().
		AddToolCall("lookup", "weather jakarta").
		AddFinalAnswer("hot")
	agent := newTestAgent(model, testConfig(5), tool)

	vars := map[string]any{"user": "dina"}
	sess, err := agent.Run(context.Background(), reactlm.Text("weather?"), vars)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user": "dina"}, vars, "caller map must not be modified")
	assert.Equal(t, map[string]any{
		"user":            "dina",
		LastToolResultKey: map[string]any{"temp": "31C"},
	}, sess.Context)

	queries := model.Queries()
	require.Len(t, queries, 2)
	first, _ := queries[0].Text()
	second, _ := queries[1].Text()
	assert.Contains(t, first, "user: dina")
	assert.NotContains(t, first, LastToolResultKey)
	assert.Contains(t, second, LastToolResultKey)
	assert.Contains(t, second, "temp: 31C")
	assert.Contains(t, second, "User Query: weather?")
	assert.Equal(t, sess.ID, queries[1].Metadata["session_id"])
	assert.Equal(t, 2, queries[1].Metadata["iteration"])
}

func TestAgent_ToolInputWrapping(t *testing.T) {
	type input struct {
		toolInput any
	}

	type expected struct {
		envelope reactlm.Envelope
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "string becomes text",
			input:    input{toolInput: "golang"},
			expected: expected{envelope: reactlm.Text("golang")},
		},
		{
			name:     "object becomes JSON",
			input:    input{toolInput: map[string]any{"q": "golang", "count": 3}},
			expected: expected{envelope: reactlm.JSON(map[string]any{"q": "golang", "count": 3})},
		},
		{
			name:     "missing input becomes empty text",
			input:    input{toolInput: nil},
			expected: expected{envelope: reactlm.Text("")},
		},
		{
			name:     "list becomes its JSON encoding",
			input:    input{toolInput: []any{"a", "b"}},
			expected: expected{envelope: reactlm.Text(`["a","b"]`)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := tt.NewMockTool("recorder")
			model := tt.NewMockModel().
				AddToolCall("recorder", tc.input.toolInput).
				AddFinalAnswer("ok")
			agent := newTestAgent(model, testConfig(3), tool)

			sess, err := agent.Run(context.Background(), reactlm.Text("q"), nil)

			require.NoError(t, err)
			inputs := tool.Inputs()
			require.Len(t, inputs, 1)
			tt.AssertEnvelope(t, tc.expected.envelope, inputs[0])

			traces := sess.Traces()
			require.Len(t, traces, 3)
			tt.AssertEnvelope(t, tc.expected.envelope, traces[1].Input)
			assert.Equal(t, reactlm.StateExecuting, traces[1].Metadata.State)
			assert.Equal(t, reactlm.StateThinking, traces[0].Metadata.State)
		})
	}
}

func TestAgent_EchoToolAcceptsEveryWrappedInput(t *testing.T) {
	tests := []struct {
		name      string
		toolInput any
		expected  reactlm.Envelope
	}{
		{name: "string", toolInput: "hello", expected: reactlm.Text("hello")},
		{name: "object", toolInput: map[string]any{"text": "hello"}, expected: reactlm.JSON(map[string]any{"text": "hello"})},
		{name: "missing", toolInput: nil, expected: reactlm.Text("")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			action := tt.ToolCall("echo", tc.toolInput)
			model := tt.NewMockModel().Repeat(action)
			agent := newTestAgent(model, testConfig(2), tools.NewEcho())

			sess, err := agent.Run(context.Background(), reactlm.Text("repeat after me"), nil)

			require.NoError(t, err)
			assert.Equal(t, reactlm.StateCompleted, sess.State)
			tt.AssertEnvelope(t, action, sess.Answer)
			tt.AssertTraceActions(t, []string{
				reactlm.ActionLLMGeneration,
				reactlm.ToolAction("echo"),
				reactlm.ActionLLMGeneration,
				reactlm.ToolAction("echo"),
			}, sess.Traces())

			traces := sess.Traces()
			tt.AssertEnvelope(t, tc.expected, traces[1].Input)
			tt.AssertEnvelope(t, tc.expected, traces[1].Output)
		})
	}
}

func TestAgent_AllowedTools(t *testing.T) {
	cfg := testConfig(3)
	cfg.AllowedTools = []string{"search"}
	search := tt.NewMockTool("search").WithDescription("web search")
	shell := tt.NewMockTool("shell").WithDescription("runs shell commands")
	model := tt.NewMockModel().AddToolCall("shell", "rm -rf /")
	agent := newTestAgent(model, cfg, search, shell)

	_, err := agent.ExecuteText(context.Background(), "q", nil)

	var notFound *reactlm.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "shell", notFound.Name)
	assert.Equal(t, 0, shell.CallCount())

	prompt, _ := model.Queries()[0].Text()
	assert.Contains(t, prompt, "- search: web search")
	assert.NotContains(t, prompt, "shell")
}

func TestAgent_GenerateOptionsForwarded(t *testing.T) {
	cfg := testConfig(1)
	cfg.Temperature = 0.2
	cfg.MaxTokens = 256
	cfg.StopSequences = []string{"\n\n", "END"}
	model := tt.NewMockModel().AddFinalAnswer("ok")
	agent := newTestAgent(model, cfg)

	_, err := agent.ExecuteText(context.Background(), "q", nil)

	require.NoError(t, err)
	assert.Equal(t, []reactlm.GenerateOptions{{
		Temperature:   0.2,
		MaxTokens:     256,
		StopSequences: []string{"\n\n", "END"},
	}}, model.Options())
}

// ----------------------------------------------------------------------------
// Tracing and memory
// ----------------------------------------------------------------------------

func TestAgent_TraceMirror(t *testing.T) {
	memory := tt.NewMockMemory()
	model := tt.NewMockModel().AddToolCall("echo", "a").AddFinalAnswer("ok")
	agent := newTestAgent(model, testConfig(3), tt.NewMockTool("echo")).WithMemory(memory)

	sess, err := agent.Run(context.Background(), reactlm.Text("q"), nil)

	require.NoError(t, err)
	assert.Len(t, sess.Traces(), 3)
	// The tool trace of iteration 1 overwrites its model trace under the same key.
	assert.Equal(t, []string{"trace:sess-1:1", "trace:sess-1:2"}, memory.Keys())
	assert.Equal(t, 3, memory.StoreCount())

	rec, ok, err := memory.Retrieve(context.Background(), reactlm.TraceKey(sess.ID, 1))
	require.NoError(t, err)
	require.True(t, ok)
	var stored reactlm.Trace
	require.NoError(t, rec.Decode(&stored))
	assert.Equal(t, reactlm.ToolAction("echo"), stored.Action)
	assert.Equal(t, "sess-1", stored.SessionID)
	assert.Equal(t, "sess-1", rec.Metadata["session_id"])
}

func TestAgent_TraceMirrorFailureIsIgnored(t *testing.T) {
	memory := &tt.FailingMemory{}
	model := tt.NewMockModel().AddToolCall("echo", "a").AddFinalAnswer("ok")
	agent := newTestAgent(model, testConfig(3), tt.NewMockTool("echo")).WithMemory(memory)

	sess, err := agent.Run(context.Background(), reactlm.Text("q"), nil)

	require.NoError(t, err)
	assert.Equal(t, reactlm.StateCompleted, sess.State)
	assert.Len(t, sess.Traces(), 3)
	assert.Equal(t, 3, memory.Attempts())
	assert.Equal(t, 3, sess.MirrorFailures())
}

func TestAgent_TracingDisabled(t *testing.T) {
	cfg := testConfig(3)
	cfg.TraceEnabled = false
	memory := tt.NewMockMemory()
	recorder := tt.NewEventRecorder()
	model := tt.NewMockModel().AddToolCall("echo", "a").AddFinalAnswer("ok")
	agent := newTestAgent(model, cfg, tt.NewMockTool("echo")).
		WithMemory(memory).
		RegisterHook(recorder)

	sess, err := agent.Run(context.Background(), reactlm.Text("q"), nil)

	require.NoError(t, err)
	tt.AssertEnvelope(t, reactlm.JSON("ok"), sess.Answer)
	assert.Empty(t, sess.Traces())
	assert.Empty(t, memory.Keys())
	assert.Equal(t, 0, recorder.Count(tt.EventTraceRecorded))
}

// ----------------------------------------------------------------------------
// Hooks
// ----------------------------------------------------------------------------

func TestAgent_HookSequence(t *testing.T) {
	recorder := tt.NewEventRecorder()
	model := tt.NewMockModel().AddToolCall("echo", "a").AddFinalAnswer("ok")
	agent := newTestAgent(model, testConfig(3), tt.NewMockTool("echo")).RegisterHook(recorder)

	_, err := agent.ExecuteText(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		tt.EventBeforeExecution,
		"state_change:thinking",
		tt.EventBeforeIteration,
		tt.EventBeforeModelCall,
		tt.EventAfterModelCall,
		"trace_recorded:llm_generation",
		"state_change:executing",
		"before_tool_call:echo",
		"after_tool_call:echo",
		"trace_recorded:tool_execution:echo",
		tt.EventBeforeIteration,
		"state_change:thinking",
		tt.EventBeforeModelCall,
		tt.EventAfterModelCall,
		"trace_recorded:llm_generation",
		"state_change:completed",
		tt.EventAfterExecution,
	}, recorder.Names())
	assert.Equal(t, []string{
		"idle->thinking",
		"thinking->executing",
		"executing->thinking",
		"thinking->completed",
	}, recorder.StateChanges())

	events := recorder.Events()
	after, ok := events[len(events)-1].(reactlm.AfterExecutionEvent)
	require.True(t, ok)
	assert.Equal(t, 2, after.Iterations)
	assert.Equal(t, reactlm.StateCompleted, after.State)
	assert.NoError(t, after.Err)
}

func TestAgent_StepSpansReachModelAndTool(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var modelSpans []trace.SpanContext
	model := reactlm.ModelFunc(func(ctx context.Context, _ reactlm.Envelope, _ reactlm.GenerateOptions) (reactlm.Envelope, error) {
		modelSpans = append(modelSpans, trace.SpanFromContext(ctx).SpanContext())
		if len(modelSpans) == 1 {
			return tt.ToolCall("echo", "a"), nil
		}
		return tt.FinalAnswer("ok"), nil
	})

	var toolSpan trace.SpanContext
	echo := tt.NewMockTool("echo").WithHandler(func(ctx context.Context, in reactlm.Envelope) (reactlm.Envelope, error) {
		toolSpan = trace.SpanFromContext(ctx).SpanContext()
		return in, nil
	})

	agent := newTestAgent(model, testConfig(3), echo).RegisterHook(hooks.NewTracing(tp.Tracer("test")))
	_, err := agent.ExecuteText(context.Background(), "q", nil)
	require.NoError(t, err)

	var modelEnded, toolEnded []trace.SpanContext
	for _, span := range sr.Ended() {
		switch span.Name() {
		case hooks.SpanModelCall:
			modelEnded = append(modelEnded, span.SpanContext())
		case hooks.SpanToolCall:
			toolEnded = append(toolEnded, span.SpanContext())
		}
	}
	require.Len(t, modelEnded, 2)
	require.Len(t, toolEnded, 1)
	assert.ElementsMatch(t, modelEnded, modelSpans)
	assert.Equal(t, toolEnded[0], toolSpan)
}

func TestAgent_HookSeesFailure(t *testing.T) {
	recorder := tt.NewEventRecorder()
	model := tt.NewMockModel().AddToolCall("nope", nil)
	agent := newTestAgent(model, testConfig(3)).RegisterHook(recorder)

	_, err := agent.ExecuteText(context.Background(), "q", nil)
	require.Error(t, err)

	assert.Equal(t, []string{
		"idle->thinking",
		"thinking->executing",
		"executing->error",
	}, recorder.StateChanges())
	events := recorder.Events()
	after := events[len(events)-1].(reactlm.AfterExecutionEvent)
	assert.ErrorIs(t, after.Err, reactlm.ErrToolNotFound)
	assert.Equal(t, reactlm.StateError, after.State)
}

// ----------------------------------------------------------------------------
// Templates
// ----------------------------------------------------------------------------

func TestAgent_WithTemplateString(t *testing.T) {
	model := tt.NewMockModel().AddFinalAnswer("ok")
	agent, err := newTestAgent(model, testConfig(1), tt.NewMockTool("echo")).
		WithTemplateString(`{{range .Tools}}{{.Name}};{{end}}|{{.Query}}|{{.Mode}}|{{.Time.Today}}`)
	require.NoError(t, err)

	_, err = agent.ExecuteText(context.Background(), "hello", nil)
	require.NoError(t, err)

	prompt, _ := model.Queries()[0].Text()
	assert.Equal(t, "echo;|hello|standard|2026-03-01", prompt)
}

func TestAgent_WithTemplateString_ParseError(t *testing.T) {
	_, err := NewAgent(tt.NewMockModel(), testConfig(1)).WithTemplateString("{{.Broken")
	assert.Error(t, err)
}

func TestAgent_TemplateExecutionErrorFails(t *testing.T) {
	model := tt.NewMockModel().AddFinalAnswer("ok")
	agent, err := newTestAgent(model, testConfig(1)).WithTemplateString(`{{.Missing.Field}}`)
	require.NoError(t, err)

	_, err = agent.ExecuteText(context.Background(), "hello", nil)

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "react: render prompt"))
	assert.Equal(t, 0, model.CallCount())
}

// ----------------------------------------------------------------------------
// Tool management and concurrency
// ----------------------------------------------------------------------------

func TestAgent_ToolManagement(t *testing.T) {
	agent := NewAgent(tt.NewMockModel(), testConfig(1))

	require.NoError(t, agent.AddTool(tt.NewMockTool("echo")))
	err := agent.AddTool(tt.NewMockTool("echo"))
	assert.ErrorIs(t, err, reactlm.ErrDuplicateTool)
	assert.Equal(t, []string{"echo"}, agent.Tools().Names())

	agent.RemoveTool("absent")
	assert.Equal(t, []string{"echo"}, agent.Tools().Names())

	agent.RemoveTool("echo")
	assert.Equal(t, 0, agent.Tools().Len())
	assert.Equal(t, reactlm.StateIdle, agent.State())
}

func TestAgent_ToolAddedBetweenExecutions(t *testing.T) {
	model := tt.NewMockModel().
		AddToolCall("late", "x").
		AddToolCall("late", "x").
		AddFinalAnswer("ok")
	agent := newTestAgent(model, testConfig(3))

	_, err := agent.ExecuteText(context.Background(), "q", nil)
	require.ErrorIs(t, err, reactlm.ErrToolNotFound)

	late := tt.NewMockTool("late")
	require.NoError(t, agent.AddTool(late))

	_, err = agent.ExecuteText(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, late.CallCount())
}

func TestAgent_ConcurrentExecutions(t *testing.T) {
	const executions = 16
	const toolCalls = 2

	// Replies depend only on the query metadata, so concurrent sessions cannot
	// consume each other's script.
	model := reactlm.ModelFunc(func(_ context.Context, q reactlm.Envelope, _ reactlm.GenerateOptions) (reactlm.Envelope, error) {
		sid := q.Metadata["session_id"].(string)
		if q.Metadata["iteration"].(int) <= toolCalls {
			return tt.ToolCall("echo", sid), nil
		}
		return tt.FinalAnswer(map[string]any{"session": sid}), nil
	})
	agent := NewAgent(model, testConfig(5)).WithTools(tt.NewMockTool("echo"))

	var g errgroup.Group
	stop := make(chan struct{})

	// Registry churn alongside the executions.
	churn := make(chan struct{})
	go func() {
		defer close(churn)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			name := fmt.Sprintf("extra-%d", i%4)
			_ = agent.AddTool(tt.NewMockTool(name))
			agent.RemoveTool(name)
		}
	}()

	sessions := make([]*Session, executions)
	for i := range executions {
		g.Go(func() error {
			sess, err := agent.Run(context.Background(), reactlm.Text(fmt.Sprintf("q%d", i)), map[string]any{"n": i})
			sessions[i] = sess
			return err
		})
	}
	require.NoError(t, g.Wait())
	close(stop)
	<-churn

	seen := make(map[string]bool, executions)
	for i, sess := range sessions {
		require.NotNil(t, sess)
		assert.False(t, seen[sess.ID], "session ids must be unique")
		seen[sess.ID] = true

		assert.Equal(t, toolCalls+1, sess.Iteration)
		assert.Equal(t, i, sess.Context["n"])
		assert.Equal(t, sess.ID, sess.Context[LastToolResultKey])
		tt.AssertEnvelope(t, reactlm.JSON(map[string]any{"session": sess.ID}), sess.Answer)

		traces := sess.Traces()
		require.Len(t, traces, 2*toolCalls+1)
		for _, tr := range traces {
			assert.Equal(t, sess.ID, tr.SessionID)
		}
	}
	assert.Equal(t, reactlm.StateCompleted, agent.State())
}
