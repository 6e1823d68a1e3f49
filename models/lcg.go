package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/toolchain"
)

// DefaultMaxTokens is the reply cap used when the caller does not request one.
const DefaultMaxTokens = 500

// DefaultSystemPrompt instructs the model to stay within the JSON decision format.
const DefaultSystemPrompt = "You are a helpful AI assistant that always responds in valid JSON format. " +
	"Your responses should either be tool usage requests or final answers. " +
	"Always maintain the specified JSON structure in your responses."

// Metadata keys set on generated envelopes.
const (
	MetaModel            = "model"
	MetaTimestamp        = "timestamp"
	MetaPromptTokens     = "prompt_tokens"
	MetaCompletionTokens = "completion_tokens"
	MetaTotalTokens      = "total_tokens"
	MetaStopReason       = "stop_reason"
	MetaChunk            = "chunk"
)

var (
	// ErrEmptyResponse is returned when the backend replies without choices.
	ErrEmptyResponse = errors.New("models: empty response")

	// ErrNonJSONReply is returned in strict mode when the reply holds no JSON object.
	ErrNonJSONReply = errors.New("models: reply is not a JSON object")
)

// ModelError is returned for every failure of an LCGModel call.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("models: generate: %v", e.Err)
	}
	return fmt.Sprintf("models: %s: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// LCGModel adapts a LangChainGo llms.Model to reactlm.Model.
//
//	llm, _ := openai.New(openai.WithToken(apiKey), openai.WithModel("gpt-4o-mini"))
//	model := models.NewLCGModel(llm).WithModelName("gpt-4o-mini")
//
// Generate sends the system prompt and the query text, asks the backend for JSON
// output, and decodes the reply with toolchain.ParseActionText. Replies carry the
// model name, a UTC timestamp and token counts as metadata.
type LCGModel struct {
	model        llms.Model
	name         string
	systemPrompt string
	jsonMode     bool
	strict       bool
	maxTokens    int
	clock        reactlm.TimeProvider
}

// NewLCGModel wraps model with JSON mode and strict decoding enabled.
func NewLCGModel(model llms.Model) *LCGModel {
	return &LCGModel{
		model:        model,
		systemPrompt: DefaultSystemPrompt,
		jsonMode:     true,
		strict:       true,
		maxTokens:    DefaultMaxTokens,
		clock:        reactlm.NewDefaultTimeProvider(),
	}
}

// WithModelName sets the name reported in metadata and errors.
func (m *LCGModel) WithModelName(name string) *LCGModel {
	m.name = name
	return m
}

// WithSystemPrompt replaces the system prompt. An empty prompt sends no system message.
func (m *LCGModel) WithSystemPrompt(prompt string) *LCGModel {
	m.systemPrompt = prompt
	return m
}

// WithJSONMode toggles the backend JSON response format.
func (m *LCGModel) WithJSONMode(enabled bool) *LCGModel {
	m.jsonMode = enabled
	return m
}

// WithStrict toggles strict decoding. When off, a reply without a JSON object is
// returned as a text envelope instead of failing.
func (m *LCGModel) WithStrict(strict bool) *LCGModel {
	m.strict = strict
	return m
}

// WithDefaultMaxTokens sets the cap used when GenerateOptions.MaxTokens is zero.
func (m *LCGModel) WithDefaultMaxTokens(n int) *LCGModel {
	m.maxTokens = n
	return m
}

// WithTimeProvider sets the clock used for metadata timestamps.
func (m *LCGModel) WithTimeProvider(tp reactlm.TimeProvider) *LCGModel {
	if tp != nil {
		m.clock = tp
	}
	return m
}

// Name returns the configured model name.
func (m *LCGModel) Name() string {
	return m.name
}

// Unwrap returns the underlying llms.Model.
func (m *LCGModel) Unwrap() llms.Model {
	return m.model
}

func (m *LCGModel) callOptions(opts reactlm.GenerateOptions) []llms.CallOption {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = m.maxTokens
	}
	out := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if maxTokens > 0 {
		out = append(out, llms.WithMaxTokens(maxTokens))
	}
	if len(opts.StopSequences) > 0 {
		out = append(out, llms.WithStopWords(opts.StopSequences))
	}
	if m.name != "" {
		out = append(out, llms.WithModel(m.name))
	}
	return out
}

func (m *LCGModel) messages(query reactlm.Envelope, withSystem bool) []llms.MessageContent {
	var msgs []llms.MessageContent
	if withSystem && m.systemPrompt != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, m.systemPrompt))
	}
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, promptText(query)))
}

// Generate implements reactlm.Model.
func (m *LCGModel) Generate(
	ctx context.Context,
	query reactlm.Envelope,
	opts reactlm.GenerateOptions,
) (reactlm.Envelope, error) {
	callOpts := m.callOptions(opts)
	if m.jsonMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := m.model.GenerateContent(ctx, m.messages(query, true), callOpts...)
	if err != nil {
		return reactlm.Envelope{}, &ModelError{Model: m.name, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return reactlm.Envelope{}, &ModelError{Model: m.name, Err: ErrEmptyResponse}
	}

	choice := resp.Choices[0]
	action := toolchain.ParseActionText(choice.Content)
	if m.strict && action.Kind != reactlm.KindJSON {
		return reactlm.Envelope{}, &ModelError{
			Model: m.name,
			Err:   fmt.Errorf("%w: %q", ErrNonJSONReply, truncate(choice.Content, 120)),
		}
	}

	meta := map[string]any{
		MetaModel:     m.name,
		MetaTimestamp: m.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if info := choice.GenerationInfo; info != nil {
		in, out := extractInputTokens(info), extractOutputTokens(info)
		meta[MetaPromptTokens] = in
		meta[MetaCompletionTokens] = out
		meta[MetaTotalTokens] = extractTotalTokens(info, in, out)
	}
	if choice.StopReason != "" {
		meta[MetaStopReason] = choice.StopReason
	}
	action.Metadata = meta
	return action, nil
}

// Stream implements reactlm.Model. Every content chunk is emitted as a text envelope
// marked with the "chunk" metadata key. The returned stream never blocks the backend
// callback, even when the consumer is slow.
func (m *LCGModel) Stream(
	ctx context.Context,
	query reactlm.Envelope,
	opts reactlm.GenerateOptions,
) (reactlm.Stream, error) {
	w := reactlm.NewStreamWriter()

	callOpts := append(m.callOptions(opts), llms.WithStreamingFunc(
		func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			w.Send(reactlm.NewEnvelope(reactlm.KindText, string(chunk), map[string]any{
				MetaModel:     m.name,
				MetaTimestamp: m.clock.Now().UTC().Format(time.RFC3339Nano),
				MetaChunk:     true,
			}))
			return nil
		},
	))

	go func() {
		_, err := m.model.GenerateContent(ctx, m.messages(query, false), callOpts...)
		if err != nil {
			err = &ModelError{Model: m.name, Err: err}
		}
		w.Complete(err)
	}()
	return w, nil
}

func promptText(query reactlm.Envelope) string {
	if s, ok := query.Content.(string); ok {
		return s
	}
	if query.Content == nil {
		return ""
	}
	return fmt.Sprint(query.Content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// -----------------------------------------------------------------------------
// Token usage
// -----------------------------------------------------------------------------

// Providers report usage under different GenerationInfo keys.
var (
	inputTokenKeys  = []string{"PromptTokens", "InputTokens", "input_tokens", "prompt_tokens"}
	outputTokenKeys = []string{"CompletionTokens", "OutputTokens", "output_tokens", "completion_tokens"}
	totalTokenKeys  = []string{"TotalTokens", "total_tokens"}
)

func extractInputTokens(info map[string]any) int  { return firstInt(info, inputTokenKeys) }
func extractOutputTokens(info map[string]any) int { return firstInt(info, outputTokenKeys) }

func extractTotalTokens(info map[string]any, input, output int) int {
	if v := firstInt(info, totalTokenKeys); v > 0 {
		return v
	}
	return input + output
}

func firstInt(info map[string]any, keys []string) int {
	for _, k := range keys {
		if v := intValue(info[k]); v > 0 {
			return v
		}
	}
	return 0
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Compile-time check that LCGModel implements reactlm.Model.
var _ reactlm.Model = (*LCGModel)(nil)
