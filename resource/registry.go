package resource

import (
	"slices"
	"sync"
)

// Registry maps collection names to resource types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

func NewRegistry(types ...*Type) *Registry {
	registry := &Registry{types: make(map[string]*Type, len(types))}
	for _, typ := range types {
		registry.Register(typ)
	}
	return registry
}

// Register adds typ under its collection. Types without a collection are
// ignored.
func (r *Registry) Register(typ *Type) {
	if typ == nil || typ.Collection == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = map[string]*Type{}
	}
	r.types[typ.Collection] = typ
}

// Resolve returns the registered type for collection and whether it was
// found.
func (r *Registry) Resolve(collection string) (*Type, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.types[collection]
	return typ, ok
}

// Lookup is Resolve with a generic fallback for unknown collections.
func (r *Registry) Lookup(collection string) *Type {
	if typ, ok := r.Resolve(collection); ok {
		return typ
	}
	return GenericType(collection)
}

func (r *Registry) Collections() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for key := range r.types {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
