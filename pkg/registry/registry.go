// Package registry maps tool names to node handlers so that graph
// definitions loaded from YAML, JSON or the HTTP API can reference
// executable code by name.
package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/stateflow/pkg/domain"
)

// Tool is a named node handler plus the metadata surfaced by the tool
// listing endpoints.
type Tool struct {
	Name        string
	Description string
	Handler     domain.Handler
}

// Registry manages the available tools. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Registering a second tool under an existing name is
// an error so that a definition never silently binds to the wrong handler.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("register tool: name is empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("register tool %s: handler is nil", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("register tool %s: already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister is like Register but panics on error. Intended for wiring
// built-in tools at startup.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
