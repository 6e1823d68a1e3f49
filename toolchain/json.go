package toolchain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rickchristie/reactlm"
)

// ParseActionText decodes a raw model reply into an action.
//
// Replies are trimmed and stripped of a surrounding Markdown code fence. When the
// remainder holds a JSON object (possibly with prose around it), the object becomes a
// [reactlm.KindJSON] action. Otherwise the trimmed reply is returned as text, which the
// loop treats as undecided.
func ParseActionText(text string) reactlm.Envelope {
	content := stripFence(strings.TrimSpace(text))
	if m, ok := decodeObject(content); ok {
		return reactlm.JSON(m)
	}

	// Models sometimes wrap the object in an explanation.
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		if m, ok := decodeObject(content[start : end+1]); ok {
			return reactlm.JSON(m)
		}
	}
	return reactlm.Text(content)
}

func decodeObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	// Trailing content after the object means this was not a single object.
	if dec.More() {
		return nil, false
	}
	return m, true
}

// stripFence removes a ```json ... ``` or ``` ... ``` wrapper.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		lang := strings.TrimSpace(body[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{}\"") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// CatalogJSON renders the catalog as a JSON array, one object per tool.
func CatalogJSON(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("toolchain: encode catalog: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
