// Package tools holds the tool descriptor, the ordered registry the MCP
// servers expose, and the {status, ...} result envelope.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	// ErrToolNotFound is returned by Call for unknown tool names.
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned by Register when a name is taken.
	ErrDuplicateTool = errors.New("duplicate tool")
)

// Annotations are behaviour hints surfaced to MCP hosts.
type Annotations struct {
	ReadOnly    bool
	Destructive bool
	Idempotent  bool
	OpenWorld   bool
}

// Tool is a named callable that runs against a client of type C.
type Tool[C any] struct {
	Name        string
	Description string
	// Plugin groups related tools so a server can allow them together.
	Plugin string
	// Schema validates params before Execute runs. Nil disables validation.
	Schema      *jsonschema.Schema
	Annotations Annotations
	// Execute never returns a Go error; failures are reported in the Result.
	Execute func(ctx context.Context, client C, params json.RawMessage) Result
}

type entry[C any] struct {
	tool     Tool[C]
	resolved *jsonschema.Resolved
}

// Registry is an ordered, name-unique set of tools.
type Registry[C any] struct {
	mu    sync.RWMutex
	order []string
	tools map[string]entry[C]
}

// NewRegistry creates an empty registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{tools: make(map[string]entry[C])}
}

// Register adds tools in order. It stops at the first invalid or duplicate tool.
func (r *Registry[C]) Register(tools ...Tool[C]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		if t.Name == "" {
			return errors.New("register tool: empty name")
		}
		if t.Execute == nil {
			return fmt.Errorf("register tool %s: nil Execute", t.Name)
		}
		if _, ok := r.tools[t.Name]; ok {
			return fmt.Errorf("register tool %s: %w", t.Name, ErrDuplicateTool)
		}
		e := entry[C]{tool: t}
		if t.Schema != nil {
			resolved, err := t.Schema.Resolve(nil)
			if err != nil {
				return fmt.Errorf("register tool %s: resolve schema: %w", t.Name, err)
			}
			e.resolved = resolved
		}
		r.tools[t.Name] = e
		r.order = append(r.order, t.Name)
	}
	return nil
}

// Get returns the tool registered under name.
func (r *Registry[C]) Get(name string) (Tool[C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.tool, ok
}

// Tools returns the registered tools in registration order.
func (r *Registry[C]) Tools() []Tool[C] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool[C], 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].tool)
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry[C]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Filter returns a registry with the tools whose name or plugin is in allowed,
// keeping registration order.
func (r *Registry[C]) Filter(allowed []string) *Registry[C] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry[C]()
	for _, name := range r.order {
		e := r.tools[name]
		if slices.Contains(allowed, name) || (e.tool.Plugin != "" && slices.Contains(allowed, e.tool.Plugin)) {
			out.tools[name] = e
			out.order = append(out.order, name)
		}
	}
	return out
}

// Call validates params and runs the named tool. Only unknown names produce an
// error; everything else is reported through the Result.
func (r *Registry[C]) Call(ctx context.Context, client C, name string, params json.RawMessage) (Result, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}
	if e.resolved != nil {
		var instance any
		if err := json.Unmarshal(params, &instance); err != nil {
			return Failure(fmt.Errorf("invalid params: %w", err)), nil
		}
		if err := e.resolved.Validate(instance); err != nil {
			return Failure(fmt.Errorf("invalid params: %w", err)), nil
		}
	}
	return e.tool.Execute(ctx, client, params), nil
}

// Decode unmarshals tool params into P.
func Decode[P any](params json.RawMessage) (P, error) {
	var p P
	if len(params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return p, fmt.Errorf("decode params: %w", err)
	}
	return p, nil
}

// SchemaFor infers the params schema of P. Unknown properties are tolerated
// and dropped by Decode. It panics on types that cannot be described.
func SchemaFor[P any]() *jsonschema.Schema {
	s, err := jsonschema.For[P](nil)
	if err != nil {
		panic(fmt.Sprintf("tools: schema for %T: %v", *new(P), err))
	}
	s.AdditionalProperties = nil
	return s
}
