package toolchain

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rickchristie/reactlm"
	"github.com/rickchristie/reactlm/schema"
)

// Entry is the catalog description of a registered tool.
type Entry struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	InputKinds  []reactlm.Kind `json:"input_kinds" yaml:"input_kinds"`
	OutputKind  reactlm.Kind   `json:"output_kind" yaml:"output_kind"`
	Version     string         `json:"version" yaml:"version"`

	// Parameters is the JSON schema of JSON inputs, when the tool publishes one.
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// SchemaProvider is implemented by tools that publish an input schema, such as
// [reactlm.ToolFunc].
type SchemaProvider interface {
	Schema() *schema.Schema
}

// EntryOf describes a tool.
func EntryOf(t reactlm.Tool) Entry {
	e := Entry{
		Name:        t.Name(),
		Description: t.Description(),
		InputKinds:  slices.Clone(t.InputKinds()),
		OutputKind:  t.OutputKind(),
		Version:     t.Version(),
	}
	if sp, ok := t.(SchemaProvider); ok {
		e.Parameters = sp.Schema().Raw()
	}
	return e
}

// Snapshot is an immutable view of the registry at one point in time.
type Snapshot struct {
	order []string
	tools map[string]reactlm.Tool
}

var emptySnapshot = &Snapshot{tools: map[string]reactlm.Tool{}}

// Lookup returns the tool registered under exactly name.
func (s *Snapshot) Lookup(name string) (reactlm.Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (s *Snapshot) Names() []string {
	return slices.Clone(s.order)
}

// Len returns the number of tools in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Entries returns catalog entries in registration order.
func (s *Snapshot) Entries() []Entry {
	entries := make([]Entry, 0, len(s.order))
	for _, name := range s.order {
		entries = append(entries, EntryOf(s.tools[name]))
	}
	return entries
}

// Filter returns a snapshot holding only the tools for which keep returns true.
func (s *Snapshot) Filter(keep func(name string) bool) *Snapshot {
	out := &Snapshot{tools: make(map[string]reactlm.Tool, len(s.order))}
	for _, name := range s.order {
		if keep(name) {
			out.order = append(out.order, name)
			out.tools[name] = s.tools[name]
		}
	}
	return out
}

// Registry is the mutable, concurrency-safe mapping from tool name to tool.
type Registry struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry holding the given tools.
// It fails with ErrDuplicateTool if two tools share a name.
func NewRegistry(tools ...reactlm.Tool) (*Registry, error) {
	r := &Registry{}
	r.current.Store(emptySnapshot)
	for _, t := range tools {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(tools ...reactlm.Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Add registers a tool. It fails with a *reactlm.DuplicateToolError when the name is
// already taken, leaving the registry unchanged.
func (r *Registry) Add(t reactlm.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	name := t.Name()
	if _, exists := cur.tools[name]; exists {
		return &reactlm.DuplicateToolError{Name: name}
	}

	next := &Snapshot{
		order: append(slices.Clone(cur.order), name),
		tools: make(map[string]reactlm.Tool, len(cur.tools)+1),
	}
	for k, v := range cur.tools {
		next.tools[k] = v
	}
	next.tools[name] = t
	r.current.Store(next)
	return nil
}

// Remove unregisters the named tool. Removing an absent name does nothing.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	if _, exists := cur.tools[name]; !exists {
		return
	}

	next := &Snapshot{
		order: slices.DeleteFunc(slices.Clone(cur.order), func(n string) bool { return n == name }),
		tools: make(map[string]reactlm.Tool, len(cur.tools)-1),
	}
	for k, v := range cur.tools {
		if k != name {
			next.tools[k] = v
		}
	}
	r.current.Store(next)
}

// Get returns the tool registered under exactly name.
func (r *Registry) Get(name string) (reactlm.Tool, bool) {
	return r.Snapshot().Lookup(name)
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return r.Snapshot().Names()
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return r.Snapshot().Len()
}

// Snapshot returns the current immutable view of the registry.
func (r *Registry) Snapshot() *Snapshot {
	if s := r.current.Load(); s != nil {
		return s
	}
	return emptySnapshot
}
