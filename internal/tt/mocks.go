package tt

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rickchristie/reactlm"
)

// -----------------------------------------------------------------------------
// MockModel - implements reactlm.Model with scripted replies
// -----------------------------------------------------------------------------

type reply struct {
	action reactlm.Envelope
	err    error
}

// MockModel replays queued replies in order. Once the queue is exhausted it returns
// the repeated reply if one is set, otherwise an empty text action.
// It is safe for concurrent use.
type MockModel struct {
	mu      sync.Mutex
	replies []reply
	repeat  *reply
	delay   time.Duration
	calls   int

	queries []reactlm.Envelope
	options []reactlm.GenerateOptions
}

// NewMockModel creates an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// AddAction queues a reply envelope.
func (m *MockModel) AddAction(action reactlm.Envelope) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply{action: action})
	return m
}

// AddJSON queues a JSON reply.
func (m *MockModel) AddJSON(content map[string]any) *MockModel {
	return m.AddAction(reactlm.JSON(content))
}

// AddToolCall queues a {"tool": name, "input": input} reply.
func (m *MockModel) AddToolCall(name string, input any) *MockModel {
	return m.AddAction(ToolCall(name, input))
}

// AddFinalAnswer queues a {"final_answer": answer} reply.
func (m *MockModel) AddFinalAnswer(answer any) *MockModel {
	return m.AddAction(FinalAnswer(answer))
}

// AddError queues a failing reply.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply{err: err})
	return m
}

// Repeat sets the reply returned after the queue is exhausted.
func (m *MockModel) Repeat(action reactlm.Envelope) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeat = &reply{action: action}
	return m
}

// WithDelay makes each call wait d or until the context is done.
func (m *MockModel) WithDelay(d time.Duration) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Generate implements reactlm.Model.
func (m *MockModel) Generate(
	ctx context.Context,
	query reactlm.Envelope,
	opts reactlm.GenerateOptions,
) (reactlm.Envelope, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.queries = append(m.queries, query)
	m.options = append(m.options, opts)
	delay := m.delay
	var r reply
	switch {
	case idx < len(m.replies):
		r = m.replies[idx]
	case m.repeat != nil:
		r = *m.repeat
	default:
		r = reply{action: reactlm.Text("")}
	}
	m.mu.Unlock()

	if delay > 0 {
		if err := sleep(ctx, delay); err != nil {
			return reactlm.Envelope{}, err
		}
	}
	if r.err != nil {
		return reactlm.Envelope{}, r.err
	}
	return r.action.Clone(), nil
}

// Stream implements reactlm.Model by emitting the Generate result as one chunk.
func (m *MockModel) Stream(
	ctx context.Context,
	query reactlm.Envelope,
	opts reactlm.GenerateOptions,
) (reactlm.Stream, error) {
	return reactlm.ModelFunc(m.Generate).Stream(ctx, query, opts)
}

// CallCount returns how many times Generate was called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Queries returns the query envelopes passed to Generate, in call order.
func (m *MockModel) Queries() []reactlm.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queries)
}

// Options returns the options passed to Generate, in call order.
func (m *MockModel) Options() []reactlm.GenerateOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.options)
}

// -----------------------------------------------------------------------------
// MockTool - implements reactlm.Tool
// -----------------------------------------------------------------------------

// MockTool echoes its input content as text unless a handler, output or error is set.
// It is safe for concurrent use.
type MockTool struct {
	name        string
	description string
	inputKinds  []reactlm.Kind
	outputKind  reactlm.Kind

	mu      sync.Mutex
	handler func(ctx context.Context, input reactlm.Envelope) (reactlm.Envelope, error)
	delay   time.Duration
	inputs  []reactlm.Envelope
}

// NewMockTool creates an echoing tool with the given name.
func NewMockTool(name string) *MockTool {
	return &MockTool{
		name:        name,
		description: "mock tool " + name,
		inputKinds:  []reactlm.Kind{reactlm.KindText, reactlm.KindJSON},
		outputKind:  reactlm.KindText,
	}
}

// WithDescription sets the catalog description.
func (t *MockTool) WithDescription(d string) *MockTool {
	t.description = d
	return t
}

// WithOutput makes the tool return out.
func (t *MockTool) WithOutput(out reactlm.Envelope) *MockTool {
	t.outputKind = out.Kind
	return t.WithHandler(func(context.Context, reactlm.Envelope) (reactlm.Envelope, error) {
		return out, nil
	})
}

// WithError makes the tool fail with err.
func (t *MockTool) WithError(err error) *MockTool {
	return t.WithHandler(func(context.Context, reactlm.Envelope) (reactlm.Envelope, error) {
		return reactlm.Envelope{}, err
	})
}

// WithHandler sets the function called on Execute.
func (t *MockTool) WithHandler(fn func(ctx context.Context, input reactlm.Envelope) (reactlm.Envelope, error)) *MockTool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
	return t
}

// WithDelay makes each call wait d or until the context is done.
func (t *MockTool) WithDelay(d time.Duration) *MockTool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = d
	return t
}

func (t *MockTool) Name() string                { return t.name }
func (t *MockTool) Description() string         { return t.description }
func (t *MockTool) InputKinds() []reactlm.Kind { return slices.Clone(t.inputKinds) }
func (t *MockTool) OutputKind() reactlm.Kind    { return t.outputKind }
func (t *MockTool) Version() string             { return reactlm.DefaultToolVersion }

// ValidateInput accepts any declared kind.
func (t *MockTool) ValidateInput(input reactlm.Envelope) bool {
	return slices.Contains(t.inputKinds, input.Kind)
}

// Execute implements reactlm.Tool.
func (t *MockTool) Execute(ctx context.Context, input reactlm.Envelope) (reactlm.Envelope, error) {
	t.mu.Lock()
	t.inputs = append(t.inputs, input)
	handler, delay := t.handler, t.delay
	t.mu.Unlock()

	if delay > 0 {
		if err := sleep(ctx, delay); err != nil {
			return reactlm.Envelope{}, err
		}
	}
	if handler != nil {
		return handler(ctx, input)
	}
	return reactlm.NewEnvelope(reactlm.KindText, input.Content, nil), nil
}

// CallCount returns how many times Execute was called.
func (t *MockTool) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inputs)
}

// Inputs returns the inputs passed to Execute, in call order.
func (t *MockTool) Inputs() []reactlm.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.inputs)
}

// -----------------------------------------------------------------------------
// MockMemory - implements reactlm.Memory in a map
// -----------------------------------------------------------------------------

// MockMemory stores records in a map. It is safe for concurrent use.
type MockMemory struct {
	mu      sync.Mutex
	records map[string]reactlm.MemoryRecord
	stores  int
}

// NewMockMemory creates an empty MockMemory.
func NewMockMemory() *MockMemory {
	return &MockMemory{records: make(map[string]reactlm.MemoryRecord)}
}

// Store implements reactlm.Memory.
func (m *MockMemory) Store(_ context.Context, key string, value any, metadata map[string]any) error {
	rec, err := reactlm.NewMemoryRecord(value, metadata, time.Now())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = rec
	m.stores++
	return nil
}

// Retrieve implements reactlm.Memory.
func (m *MockMemory) Retrieve(_ context.Context, key string) (reactlm.MemoryRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

// Delete implements reactlm.Memory.
func (m *MockMemory) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[key]
	delete(m.records, key)
	return ok, nil
}

// Clear implements reactlm.Memory.
func (m *MockMemory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]reactlm.MemoryRecord)
	return nil
}

// Keys returns the stored keys, sorted.
func (m *MockMemory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.records))
}

// StoreCount returns how many Store calls succeeded, overwrites included.
func (m *MockMemory) StoreCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores
}

// ErrMemoryUnavailable is returned by FailingMemory.
var ErrMemoryUnavailable = errors.New("tt: memory unavailable")

// FailingMemory fails every operation with ErrMemoryUnavailable and counts attempts.
type FailingMemory struct {
	mu       sync.Mutex
	attempts int
}

// Store implements reactlm.Memory.
func (m *FailingMemory) Store(context.Context, string, any, map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	return ErrMemoryUnavailable
}

// Retrieve implements reactlm.Memory.
func (m *FailingMemory) Retrieve(context.Context, string) (reactlm.MemoryRecord, bool, error) {
	return reactlm.MemoryRecord{}, false, ErrMemoryUnavailable
}

// Delete implements reactlm.Memory.
func (m *FailingMemory) Delete(context.Context, string) (bool, error) {
	return false, ErrMemoryUnavailable
}

// Clear implements reactlm.Memory.
func (m *FailingMemory) Clear(context.Context) error {
	return ErrMemoryUnavailable
}

// Attempts returns how many Store calls were made.
func (m *FailingMemory) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Compile-time checks.
var (
	_ reactlm.Model  = (*MockModel)(nil)
	_ reactlm.Tool   = (*MockTool)(nil)
	_ reactlm.Memory = (*MockMemory)(nil)
	_ reactlm.Memory = (*FailingMemory)(nil)
)
