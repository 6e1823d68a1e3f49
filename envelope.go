package reactlm

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Kind declares the shape of an Envelope's Content.
// The same set is used for inputs and outputs.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindAudio  Kind = "audio"
	KindVideo  Kind = "video"
	KindBinary Kind = "binary"
	KindJSON   Kind = "json"
)

// Kinds returns every valid Kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindText, KindImage, KindAudio, KindVideo, KindBinary, KindJSON}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo, KindBinary, KindJSON:
		return true
	}
	return false
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Envelope is the uniform container for every value crossing the loop boundary:
// user queries, model replies and tool results.
//
// Content is opaque unless Kind is [KindJSON], in which case it must decode to a
// string-keyed map (see [Envelope.AsMap]).
type Envelope struct {
	Kind     Kind           `json:"kind" yaml:"kind"`
	Content  any            `json:"content" yaml:"content"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewEnvelope creates an Envelope. The metadata map is copied.
func NewEnvelope(kind Kind, content any, metadata map[string]any) Envelope {
	return Envelope{
		Kind:     kind,
		Content:  content,
		Metadata: maps.Clone(metadata),
	}
}

// Text wraps plain text in a [KindText] Envelope.
func Text(text string) Envelope {
	return Envelope{Kind: KindText, Content: text}
}

// JSON wraps a structured payload in a [KindJSON] Envelope.
func JSON(content any) Envelope {
	return Envelope{Kind: KindJSON, Content: content}
}

// Text returns the content as a string when the envelope holds text.
func (e Envelope) Text() (string, bool) {
	if e.Kind != KindText {
		return "", false
	}
	s, ok := e.Content.(string)
	return s, ok
}

// AsMap decodes the content of a [KindJSON] envelope into a string-keyed map.
// Maps are returned as-is; raw JSON ([]byte, json.RawMessage, string) is decoded.
func (e Envelope) AsMap() (map[string]any, error) {
	if e.Kind != KindJSON {
		return nil, fmt.Errorf("%w: envelope kind is %q", ErrNotJSONMap, e.Kind)
	}

	var raw []byte
	switch c := e.Content.(type) {
	case map[string]any:
		return c, nil
	case nil:
		return nil, fmt.Errorf("%w: content is nil", ErrNotJSONMap)
	case json.RawMessage:
		raw = c
	case []byte:
		raw = c
	case string:
		raw = []byte(c)
	default:
		// Structs and typed maps go through a JSON round trip.
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotJSONMap, err)
		}
		raw = b
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSONMap, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: content is null", ErrNotJSONMap)
	}
	return m, nil
}

// WithMetadata returns a copy of the envelope with key set in its metadata.
func (e Envelope) WithMetadata(key string, value any) Envelope {
	out := e.Clone()
	if out.Metadata == nil {
		out.Metadata = make(map[string]any, 1)
	}
	out.Metadata[key] = value
	return out
}

// Clone returns a copy whose metadata map can be modified independently.
// Content is shared.
func (e Envelope) Clone() Envelope {
	return Envelope{
		Kind:     e.Kind,
		Content:  e.Content,
		Metadata: maps.Clone(e.Metadata),
	}
}

// DeepClone returns a copy that shares no maps, slices or byte buffers with e.
// Other content values are copied as-is.
func (e Envelope) DeepClone() Envelope {
	out := Envelope{Kind: e.Kind, Content: cloneValue(e.Content)}
	if e.Metadata != nil {
		out.Metadata = cloneMap(e.Metadata)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch c := v.(type) {
	case map[string]any:
		if c == nil {
			return c
		}
		return cloneMap(c)
	case []any:
		if c == nil {
			return c
		}
		out := make([]any, len(c))
		for i, item := range c {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		if c == nil {
			return c
		}
		out := make([]map[string]any, len(c))
		for i, item := range c {
			if item != nil {
				out[i] = cloneMap(item)
			}
		}
		return out
	case []string:
		return slices.Clone(c)
	case []byte:
		return slices.Clone(c)
	case json.RawMessage:
		return slices.Clone(c)
	}
	return v
}

// Equal reports whether two envelopes have the same kind, content and metadata.
// A nil and an empty metadata map compare equal.
func (e Envelope) Equal(other Envelope) bool {
	if e.Kind != other.Kind {
		return false
	}
	if !reflect.DeepEqual(e.Content, other.Content) {
		return false
	}
	if len(e.Metadata) == 0 && len(other.Metadata) == 0 {
		return true
	}
	return reflect.DeepEqual(e.Metadata, other.Metadata)
}

// IsZero reports whether the envelope was never populated.
func (e Envelope) IsZero() bool {
	return e.Kind == "" && e.Content == nil && len(e.Metadata) == 0
}
