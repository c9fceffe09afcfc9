package framegraph

import "sync"

// Registry maps node type names to their slot schemas and factories.
// It is a pure mapping: Register has no side effect beyond insertion.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*NodeType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*NodeType)}
}

// Register stores a node type under its name.
// Registering an already-registered name fails with *DuplicateTypeError.
func (r *Registry) Register(t *NodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.name]; exists {
		return &DuplicateTypeError{TypeName: t.name}
	}
	r.types[t.name] = t
	return nil
}

// MustRegister builds and registers a node type, panicking on error.
// Use for static registration of built-in node types.
func (r *Registry) MustRegister(name string, schema Schema, factory Factory) *NodeType {
	t, err := NewNodeType(name, schema, factory)
	if err != nil {
		panic(err)
	}
	if err := r.Register(t); err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the node type registered under name, or false.
func (r *Registry) Lookup(name string) (*NodeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// CreateInstance instantiates the node type registered under typeName.
// An unregistered name fails with *UnknownTypeError.
func (r *Registry) CreateInstance(typeName, instanceName string) (*NodeInstance, error) {
	r.mu.RLock()
	t, ok := r.types[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownTypeError{TypeName: typeName}
	}
	return newNodeInstance(instanceName, t), nil
}
