// Package toolchain holds the tool registry and the decoding of model decisions into
// tool calls.
//
// # Overview
//
// The toolchain is responsible for:
//  1. Keeping the set of registered tools, keyed by unique name
//  2. Publishing an immutable catalog snapshot for each loop iteration
//  3. Decoding the model's JSON action into a final answer or a tool call
//  4. Wrapping the requested tool input into an Envelope
//
// # Registry semantics
//
// [Registry.Add] rejects a name that is already present with
// [reactlm.ErrDuplicateTool] and leaves the registry unchanged. [Registry.Remove] of an
// absent name is a silent no-op. Lookup is by exact name; there is no fuzzy matching
// and no default tool.
//
// Writers are serialized with a mutex and publish a fresh [Snapshot]; readers load the
// current snapshot without locking, so an iteration in flight keeps a consistent view
// while tools are added or removed concurrently.
//
// # Decision format
//
// The model answers with a JSON object, either
//
//	{"final_answer": {"response": "...", "confidence": 0.9}}
//
// or
//
//	{"tool": "search", "input": "weather in Jakarta"}
//
// See [ParseDecision]. When both keys are present the final answer wins.
package toolchain
