package framegraph

import (
	"github.com/gogpu/framegraph/resource"
)

// CleanupEntry is one node's teardown action. Its dependency list is always
// derived from the connection graph; there is deliberately no way to author
// dependency names by hand.
type CleanupEntry struct {
	// Name is the owning node's instance name.
	Name string

	// DependsOn lists the producer nodes whose resources this node
	// consumes. Producers tear down strictly after this entry.
	DependsOn []string

	run  func(*CleanupContext) error
	node *NodeInstance
	done bool
}

// DependencyTracker records, for every produced resource, the node that
// produced it, and derives teardown ordering from the connection graph.
type DependencyTracker struct {
	producers map[*resource.Resource]*NodeInstance
	entries   map[string]*CleanupEntry
	order     []string // registration order, for deterministic iteration
}

func newDependencyTracker() *DependencyTracker {
	return &DependencyTracker{
		producers: make(map[*resource.Resource]*NodeInstance),
		entries:   make(map[string]*CleanupEntry),
	}
}

// recordProduced associates each published resource with its producer.
func (t *DependencyTracker) recordProduced(n *NodeInstance, rs []*resource.Resource) {
	for _, r := range rs {
		if r != nil {
			t.producers[r] = n
		}
	}
}

// Producer resolves the node that produced r, or false.
func (t *DependencyTracker) Producer(r *resource.Resource) (*NodeInstance, bool) {
	n, ok := t.producers[r]
	return n, ok
}

// registerCleanup derives n's cleanup entry from its connected input slots,
// expanding array slots element by element. A connected input whose producer
// cannot be resolved is a *MissingDependencyError, never silently skipped.
func (t *DependencyTracker) registerCleanup(n *NodeInstance) error {
	seen := make(map[string]bool)
	var deps []string

	for i, d := range n.typ.schema.Inputs {
		for _, r := range n.inputs[i] {
			if r == nil {
				// Element never published: legal only when the slot is
				// optional (the producer was skipped or unhealthy).
				if d.Optional {
					continue
				}
				return &MissingDependencyError{Node: n.name, Slot: d.Name, Reason: "connected input has no resource"}
			}
			producer, ok := t.producers[r]
			if !ok {
				if r.Type().Ref {
					// Borrowed references point at externally owned
					// objects; no graph node tears them down.
					continue
				}
				return &MissingDependencyError{
					Node: n.name, Slot: d.Name,
					Reason: "producer of connected input cannot be resolved",
				}
			}
			if producer != n && !seen[producer.name] {
				seen[producer.name] = true
				deps = append(deps, producer.name)
			}
		}
	}

	entry := &CleanupEntry{
		Name:      n.name,
		DependsOn: deps,
		node:      n,
		run: func(ctx *CleanupContext) error {
			return n.body.Cleanup(ctx)
		},
	}
	if _, exists := t.entries[n.name]; !exists {
		t.order = append(t.order, n.name)
	}
	t.entries[n.name] = entry
	return nil
}

// Entry returns the cleanup entry registered for a node name, or nil.
func (t *DependencyTracker) Entry(name string) *CleanupEntry {
	return t.entries[name]
}

// cleanupOrder returns entries so that every consumer precedes each of its
// producers: the exact inverse of the compile-time topological order. Root
// nodes (no dependencies) come last. Ties follow registration order, so the
// result is deterministic.
func (t *DependencyTracker) cleanupOrder() []*CleanupEntry {
	// consumers[p] counts entries that must run before p.
	pending := make(map[string]int, len(t.entries))
	for _, name := range t.order {
		pending[name] = 0
	}
	for _, name := range t.order {
		for _, dep := range t.entries[name].DependsOn {
			if _, ok := pending[dep]; ok {
				pending[dep]++
			}
		}
	}

	ordered := make([]*CleanupEntry, 0, len(t.entries))
	done := make(map[string]bool, len(t.entries))
	for len(ordered) < len(t.entries) {
		progressed := false
		for _, name := range t.order {
			if done[name] || pending[name] != 0 {
				continue
			}
			done[name] = true
			e := t.entries[name]
			ordered = append(ordered, e)
			for _, dep := range e.DependsOn {
				if _, ok := pending[dep]; ok {
					pending[dep]--
				}
			}
			progressed = true
		}
		if !progressed {
			// Impossible while the connection graph is acyclic.
			break
		}
	}
	return ordered
}

// forget drops a node's cleanup entry after it has run.
func (t *DependencyTracker) forget(name string) {
	if _, ok := t.entries[name]; !ok {
		return
	}
	delete(t.entries, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// forgetProduced drops producer records for a node's resources, called when
// the node is cleaned and its resources no longer exist.
func (t *DependencyTracker) forgetProduced(n *NodeInstance) {
	for r, p := range t.producers {
		if p == n {
			delete(t.producers, r)
		}
	}
}
