package reactlm

import (
	"context"
)

// Model is the language model collaborator consumed by the reasoning loop.
//
// Generate must resolve to a [KindJSON] envelope whose content is a map holding either a
// "final_answer" key or a "tool" key (with an optional "input"). Anything else is treated
// as an undecided action and the loop keeps iterating.
//
// Stream is part of the collaborator surface but is not used by the loop itself.
type Model interface {
	// Generate produces one complete reply for the query.
	Generate(ctx context.Context, query Envelope, opts GenerateOptions) (Envelope, error)

	// Stream produces the reply incrementally. The returned Stream must be drained or
	// the context canceled.
	Stream(ctx context.Context, query Envelope, opts GenerateOptions) (Stream, error)
}

// GenerateOptions are the per-call model parameters taken from AgentConfig.
type GenerateOptions struct {
	// Temperature is forwarded opaquely.
	Temperature float64

	// MaxTokens caps the reply length. Zero means no cap requested.
	MaxTokens int

	// StopSequences are passed in order.
	StopSequences []string
}

// ModelFunc adapts a function to a Model whose Stream emits the single Generate result.
type ModelFunc func(ctx context.Context, query Envelope, opts GenerateOptions) (Envelope, error)

// Generate calls f.
func (f ModelFunc) Generate(ctx context.Context, query Envelope, opts GenerateOptions) (Envelope, error) {
	return f(ctx, query, opts)
}

// Stream calls f and emits its result as one chunk.
func (f ModelFunc) Stream(ctx context.Context, query Envelope, opts GenerateOptions) (Stream, error) {
	w := NewStreamWriter()
	go func() {
		out, err := f(ctx, query, opts)
		if err == nil {
			w.Send(out)
		}
		w.Complete(err)
	}()
	return w, nil
}

// Compile-time check that ModelFunc implements Model.
var _ Model = ModelFunc(nil)
