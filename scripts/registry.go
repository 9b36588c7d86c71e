// Package scripts holds named server-side atomic script definitions and the
// built-in catalogue shipped with the module.
package scripts

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInvalidDefinition rejects definitions with a non-positive key arity or
// an empty body.
var ErrInvalidDefinition = errors.New("scripts: invalid definition")

// Definition describes one server-executed atomic script. KeyArity is the
// number of explicit key arguments the script consumes; Body is the script
// source handed verbatim to the transport.
type Definition struct {
	Name     string
	KeyArity int
	Body     string
}

// Registry maps script names to their latest registered definition.
// Registration is last-write-wins; there is no versioning. Safe for
// concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// NewBuiltinRegistry returns a registry preloaded with the built-in
// catalogue.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, def := range Builtins() {
		// Builtins are statically valid.
		_ = r.Register(def)
	}
	return r
}

// Register stores the definition under its name, overwriting any previous
// definition with the same name.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if def.KeyArity < 1 {
		return fmt.Errorf("%w: script %s: key arity must be positive", ErrInvalidDefinition, def.Name)
	}
	if def.Body == "" {
		return fmt.Errorf("%w: script %s: body is empty", ErrInvalidDefinition, def.Name)
	}
	r.mu.Lock()
	r.defs[def.Name] = def
	r.mu.Unlock()
	return nil
}

// Get returns the latest definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	return def, ok
}

// GetMany resolves the requested names, silently omitting unknown ones.
// Callers that need completeness must compare the result against the
// request.
func (r *Registry) GetMany(names []string) map[string]Definition {
	result := make(map[string]Definition, len(names))
	r.mu.RLock()
	for _, name := range names {
		if def, ok := r.defs[name]; ok {
			result[name] = def
		}
	}
	r.mu.RUnlock()
	return result
}

// Available lists every registered script name in lexical order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
