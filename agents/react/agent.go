package react

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"text/template"

	"github.com/google/uuid"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/hooks"
	"github.com/rickchristie/reactlm/toolchain"
)

// Agent runs the bounded ReAct loop against a model and a tool registry.
//
// An Agent may serve concurrent executions: each call gets its own Session, and the
// only shared mutable state is the tool registry, which is safe for concurrent use.
// Configure the agent with the With* methods before the first execution.
type Agent struct {
	model    reactlm.Model
	config   reactlm.AgentConfig
	registry *toolchain.Registry
	memory   reactlm.Memory
	hooks    *hooks.Registry
	template *template.Template
	clock    reactlm.TimeProvider
	logger   *slog.Logger
	newID    func() string

	state atomic.Value // reactlm.AgentState
}

// NewAgent creates an Agent with an empty tool registry and no memory.
func NewAgent(model reactlm.Model, config reactlm.AgentConfig) *Agent {
	a := &Agent{
		model:    model,
		config:   config.Clone(),
		registry: toolchain.MustNewRegistry(),
		hooks:    hooks.NewRegistry(),
		template: DefaultPromptTemplate,
		clock:    reactlm.NewDefaultTimeProvider(),
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	a.state.Store(reactlm.StateIdle)
	return a
}

// WithTools registers tools, panicking on a duplicate name. Use AddTool to handle the
// error instead.
func (a *Agent) WithTools(tools ...reactlm.Tool) *Agent {
	for _, t := range tools {
		if err := a.registry.Add(t); err != nil {
			panic(err)
		}
	}
	return a
}

// WithRegistry replaces the tool registry, for example to share one between agents.
func (a *Agent) WithRegistry(r *toolchain.Registry) *Agent {
	if r != nil {
		a.registry = r
	}
	return a
}

// WithMemory sets the store traces are mirrored to.
func (a *Agent) WithMemory(m reactlm.Memory) *Agent {
	a.memory = m
	return a
}

// WithHooks replaces the hook registry.
func (a *Agent) WithHooks(r *hooks.Registry) *Agent {
	if r != nil {
		a.hooks = r
	}
	return a
}

// RegisterHook adds a hook to the agent's hook registry.
func (a *Agent) RegisterHook(hook any) *Agent {
	a.hooks.Register(hook)
	return a
}

// WithTemplate sets the prompt template.
func (a *Agent) WithTemplate(tmpl *template.Template) *Agent {
	if tmpl != nil {
		a.template = tmpl
	}
	return a
}

// WithTemplateString parses text as the prompt template.
func (a *Agent) WithTemplateString(text string) (*Agent, error) {
	tmpl, err := template.New("react_prompt").Parse(text)
	if err != nil {
		return a, fmt.Errorf("react: parse template: %w", err)
	}
	a.template = tmpl
	return a, nil
}

// WithTimeProvider sets the clock used for traces and templates.
func (a *Agent) WithTimeProvider(tp reactlm.TimeProvider) *Agent {
	if tp != nil {
		a.clock = tp
	}
	return a
}

// WithLogger sets the logger.
func (a *Agent) WithLogger(l *slog.Logger) *Agent {
	if l != nil {
		a.logger = l
	}
	return a
}

// WithSessionIDGenerator replaces the uuid-based session id generator.
func (a *Agent) WithSessionIDGenerator(fn func() string) *Agent {
	if fn != nil {
		a.newID = fn
	}
	return a
}

// -----------------------------------------------------------------------------
// Tool management
// -----------------------------------------------------------------------------

// AddTool registers a tool. A duplicate name fails with reactlm.ErrDuplicateTool.
func (a *Agent) AddTool(t reactlm.Tool) error {
	return a.registry.Add(t)
}

// RemoveTool unregisters a tool. Removing an unknown name does nothing.
func (a *Agent) RemoveTool(name string) {
	a.registry.Remove(name)
}

// Tools returns the registry.
func (a *Agent) Tools() *toolchain.Registry {
	return a.registry
}

// Config returns a copy of the agent config.
func (a *Agent) Config() reactlm.AgentConfig {
	return a.config.Clone()
}

// State returns the state most recently entered by any session of this agent.
// Use Session.State for the state of a specific execution.
func (a *Agent) State() reactlm.AgentState {
	return a.state.Load().(reactlm.AgentState)
}

// -----------------------------------------------------------------------------
// Execution
// -----------------------------------------------------------------------------

// ExecuteText runs the loop for a plain text input.
func (a *Agent) ExecuteText(ctx context.Context, text string, vars map[string]any) (reactlm.Envelope, error) {
	return a.Execute(ctx, reactlm.Text(text), vars)
}

// Execute runs the loop and returns the answer.
func (a *Agent) Execute(ctx context.Context, input reactlm.Envelope, vars map[string]any) (reactlm.Envelope, error) {
	sess, err := a.Run(ctx, input, vars)
	if err != nil {
		return reactlm.Envelope{}, err
	}
	return sess.Answer, nil
}

// Run runs the loop and returns the full session. The session is returned even when
// the execution fails so its traces can be inspected; its Answer is then zero.
//
// The vars map is copied and never modified.
func (a *Agent) Run(ctx context.Context, input reactlm.Envelope, vars map[string]any) (*Session, error) {
	sess := newSession(a.newID(), vars)
	if a.config.TraceEnabled {
		sess.recorder = reactlm.NewTraceRecorder(sess.ID).
			WithMirror(a.memory).
			WithLogger(a.logger).
			WithTimeProvider(a.clock)
	}

	start := a.clock.Now()
	a.hooks.FireBeforeExecution(ctx, reactlm.BeforeExecutionEvent{
		SessionID: sess.ID,
		Input:     input,
		Context:   maps.Clone(sess.Context),
	})

	answer, err := a.loop(ctx, sess, input)
	if err == nil {
		sess.Answer = answer
	}

	a.hooks.FireAfterExecution(ctx, reactlm.AfterExecutionEvent{
		SessionID:  sess.ID,
		Answer:     sess.Answer,
		Iterations: sess.Iteration,
		State:      sess.State,
		Duration:   a.clock.Now().Sub(start),
		Err:        err,
	})
	return sess, err
}

func (a *Agent) loop(ctx context.Context, sess *Session, input reactlm.Envelope) (reactlm.Envelope, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return a.fail(ctx, sess, err)
	}

	a.transition(ctx, sess, reactlm.StateThinking)

	var (
		last      reactlm.Envelope
		hasAction bool
		vars      = sess.Context
	)
	for sess.Iteration < a.config.MaxIterations {
		if err := ctx.Err(); err != nil {
			return a.fail(ctx, sess, err)
		}

		sess.Iteration++
		a.hooks.FireBeforeIteration(ctx, reactlm.BeforeIterationEvent{
			SessionID: sess.ID,
			Iteration: sess.Iteration,
		})

		res, next, err := a.iterate(ctx, sess, input, vars)
		vars = next
		sess.Context = vars
		if err != nil {
			return a.fail(ctx, sess, err)
		}

		last, hasAction = res.action, true
		if res.final {
			a.transition(ctx, sess, reactlm.StateCompleted)
			return res.answer, nil
		}
	}

	if !hasAction {
		return a.fail(ctx, sess, reactlm.ErrMaxIterationsExceeded)
	}

	// The bound was reached without a final answer: the last action is returned as
	// the answer rather than failing the execution.
	a.logger.DebugContext(ctx, "max iterations reached, returning last action",
		"session_id", sess.ID,
		"iteration", sess.Iteration,
	)
	a.transition(ctx, sess, reactlm.StateCompleted)
	return last, nil
}

// stepResult is the outcome of one iteration.
type stepResult struct {
	action reactlm.Envelope
	answer reactlm.Envelope
	final  bool
}

// iterate runs one model call and at most one tool call. It returns the context map
// to use for the next iteration; vars itself is never modified.
func (a *Agent) iterate(
	ctx context.Context,
	sess *Session,
	input reactlm.Envelope,
	vars map[string]any,
) (stepResult, map[string]any, error) {
	a.transition(ctx, sess, reactlm.StateThinking)

	catalog := a.registry.Snapshot().Filter(a.config.ToolAllowed)
	query, err := a.buildQuery(sess, input, vars, catalog)
	if err != nil {
		return stepResult{}, vars, err
	}

	action, err := a.callModel(ctx, sess, query)
	if err != nil {
		return stepResult{}, vars, err
	}
	a.record(ctx, sess, reactlm.ActionLLMGeneration, input, action)

	decision, err := toolchain.ParseDecision(action)
	if err != nil {
		return stepResult{action: action}, vars, err
	}

	switch decision.Type {
	case toolchain.DecisionFinal:
		answer := reactlm.NewEnvelope(reactlm.KindJSON, decision.FinalAnswer, action.Metadata)
		return stepResult{action: action, answer: answer, final: true}, vars, nil

	case toolchain.DecisionTool:
		a.transition(ctx, sess, reactlm.StateExecuting)

		tool, ok := catalog.Lookup(decision.Tool)
		if !ok {
			return stepResult{action: action}, vars, &reactlm.ToolNotFoundError{Name: decision.Tool}
		}

		toolInput := toolchain.WrapInput(decision.Input)
		output, err := a.callTool(ctx, sess, tool, toolInput)
		if err != nil {
			return stepResult{action: action}, vars, err
		}
		// Tool traces carry the wrapped tool input; the user query is on the model trace.
		a.record(ctx, sess, reactlm.ToolAction(tool.Name()), toolInput, output)

		next := maps.Clone(vars)
		if next == nil {
			next = make(map[string]any, 1)
		}
		next[LastToolResultKey] = output.Content
		return stepResult{action: action}, next, nil
	}

	return stepResult{action: action}, vars, nil
}

func (a *Agent) buildQuery(
	sess *Session,
	input reactlm.Envelope,
	vars map[string]any,
	catalog *toolchain.Snapshot,
) (reactlm.Envelope, error) {
	rendered, err := renderContext(vars)
	if err != nil {
		return reactlm.Envelope{}, fmt.Errorf("react: %w", err)
	}
	entries := catalog.Entries()
	catalogText, err := toolchain.CatalogText(entries)
	if err != nil {
		return reactlm.Envelope{}, fmt.Errorf("react: %w", err)
	}
	prompt, err := RenderPrompt(a.template, PromptData{
		Tools:         entries,
		Catalog:       catalogText,
		Context:       rendered,
		Vars:          vars,
		Query:         queryText(input),
		Input:         input,
		Mode:          a.config.Mode,
		Iteration:     sess.Iteration,
		MaxIterations: a.config.MaxIterations,
		Time:          a.clock,
	})
	if err != nil {
		return reactlm.Envelope{}, fmt.Errorf("react: render prompt: %w", err)
	}

	meta := maps.Clone(a.config.Metadata)
	if meta == nil {
		meta = make(map[string]any, 2)
	}
	meta["session_id"] = sess.ID
	meta["iteration"] = sess.Iteration
	return reactlm.NewEnvelope(reactlm.KindText, prompt, meta), nil
}

func (a *Agent) callModel(ctx context.Context, sess *Session, query reactlm.Envelope) (reactlm.Envelope, error) {
	a.hooks.FireBeforeModelCall(ctx, reactlm.BeforeModelCallEvent{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		Query:     query,
	})

	callCtx, cancel := a.deadline(a.hooks.StepContext(ctx, reactlm.StepContextEvent{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		Step:      reactlm.StepModel,
	}))
	defer cancel()

	start := a.clock.Now()
	action, err := a.model.Generate(callCtx, query, a.config.GenerateOptions())

	a.hooks.FireAfterModelCall(ctx, reactlm.AfterModelCallEvent{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		Query:     query,
		Action:    action,
		Duration:  a.clock.Now().Sub(start),
		Err:       err,
	})
	return action, err
}

func (a *Agent) callTool(
	ctx context.Context,
	sess *Session,
	tool reactlm.Tool,
	input reactlm.Envelope,
) (reactlm.Envelope, error) {
	a.hooks.FireBeforeToolCall(ctx, reactlm.BeforeToolCallEvent{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		Tool:      tool.Name(),
		Input:     input,
	})

	callCtx, cancel := a.deadline(a.hooks.StepContext(ctx, reactlm.StepContextEvent{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		Step:      reactlm.StepTool,
		Tool:      tool.Name(),
	}))
	defer cancel()

	start := a.clock.Now()
	output, err := tool.Execute(callCtx, input)

	a.hooks.FireAfterToolCall(ctx, reactlm.AfterToolCallEvent{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		Tool:      tool.Name(),
		Input:     input,
		Output:    output,
		Duration:  a.clock.Now().Sub(start),
		Err:       err,
	})
	return output, err
}

// deadline derives the context for one model or tool call.
func (a *Agent) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.Timeout > 0 {
		return context.WithTimeout(ctx, a.config.Timeout)
	}
	return ctx, func() {}
}

func (a *Agent) record(ctx context.Context, sess *Session, action string, input, output reactlm.Envelope) {
	if sess.recorder == nil {
		return
	}
	trace := sess.recorder.Record(ctx, action, sess.Iteration, sess.State, input, output)
	a.hooks.FireTraceRecorded(ctx, reactlm.TraceRecordedEvent{Trace: trace})
}

func (a *Agent) transition(ctx context.Context, sess *Session, to reactlm.AgentState) {
	from := sess.State
	sess.State = to
	a.state.Store(to)
	if from == to {
		return
	}

	a.logger.DebugContext(ctx, "agent state changed",
		"session_id", sess.ID,
		"iteration", sess.Iteration,
		"from", from,
		"to", to,
	)
	a.hooks.FireStateChange(ctx, reactlm.StateChangeEvent{
		SessionID: sess.ID,
		Iteration: sess.Iteration,
		From:      from,
		To:        to,
	})
}

func (a *Agent) fail(ctx context.Context, sess *Session, err error) (reactlm.Envelope, error) {
	a.transition(ctx, sess, reactlm.StateError)
	return reactlm.Envelope{}, err
}

func normalizeInput(input reactlm.Envelope) (reactlm.Envelope, error) {
	if input.Kind == "" {
		input.Kind = reactlm.KindText
	}
	if !input.Kind.Valid() {
		return input, fmt.Errorf("%w: %q", reactlm.ErrInvalidKind, input.Kind)
	}
	if input.Kind == reactlm.KindText && input.Content == nil {
		input.Content = ""
	}
	return input, nil
}
