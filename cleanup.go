package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/cache"
	"github.com/gogpu/framegraph/device"
	"github.com/gogpu/framegraph/resource"
)

// CleanupScope selects which nodes a cleanup request targets.
type CleanupScope uint8

// Cleanup scopes.
const (
	// ScopeSpecific targets one node by instance name.
	ScopeSpecific CleanupScope = iota

	// ScopeByTag targets every node carrying a tag.
	ScopeByTag

	// ScopeByType targets every instance of a node type.
	ScopeByType

	// ScopeFull tears down the whole graph.
	ScopeFull
)

func (s CleanupScope) String() string {
	switch s {
	case ScopeSpecific:
		return "specific"
	case ScopeByTag:
		return "by-tag"
	case ScopeByType:
		return "by-type"
	case ScopeFull:
		return "full"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// CleanupRequest asks the graph to release the resources of a subset of its
// nodes. It is also the payload type for TopicInvalidate events.
type CleanupRequest struct {
	// Scope selects the targeting mode.
	Scope CleanupScope

	// Node is the instance name, for ScopeSpecific.
	Node string

	// Tag is the tag, for ScopeByTag.
	Tag string

	// TypeName is the node type name, for ScopeByType.
	TypeName string
}

// CleanupContext is passed to a node body's Cleanup.
type CleanupContext struct {
	// Graph is the owning graph.
	Graph *Graph

	// Node is the instance being cleaned.
	Node *NodeInstance

	// Device is the graph's device. The device is idle when Cleanup runs.
	Device device.Device

	// Cache is the shared resource store. Cached entries are released, not
	// destroyed; the cache tears its entries down itself.
	Cache *cache.Store
}

// Input returns the single resource on the named input slot, or nil.
// Slots carrying RoleCleanupOnly are read exclusively here.
func (c *CleanupContext) Input(slot string) *resource.Resource {
	i := c.Node.typ.schema.InputIndex(slot)
	if i < 0 || len(c.Node.inputs[i]) == 0 {
		return nil
	}
	return c.Node.inputs[i][0]
}

// Inputs returns all resources on the named array input slot.
func (c *CleanupContext) Inputs(slot string) []*resource.Resource {
	i := c.Node.typ.schema.InputIndex(slot)
	if i < 0 {
		return nil
	}
	return c.Node.inputs[i]
}

// RequestCleanup releases the resources of the nodes the request targets,
// plus every downstream consumer of those nodes, in consumer-before-producer
// order. Cleaned nodes are marked dirty and skipped by Execute until the next
// Compile reallocates them. ScopeFull is equivalent to Cleanup.
func (g *Graph) RequestCleanup(req CleanupRequest) error {
	if g.tornDown {
		return ErrGraphTornDown
	}
	if req.Scope == ScopeFull {
		return g.Cleanup()
	}

	targets := make(map[*NodeInstance]struct{})
	for _, n := range g.nodes {
		switch req.Scope {
		case ScopeSpecific:
			if n.name == req.Node {
				targets[n] = struct{}{}
			}
		case ScopeByTag:
			if n.HasTag(req.Tag) {
				targets[n] = struct{}{}
			}
		case ScopeByType:
			if n.typ.name == req.TypeName {
				targets[n] = struct{}{}
			}
		}
	}
	if len(targets) == 0 {
		Logger().Debug("framegraph: cleanup request matched no nodes", "scope", req.Scope)
		return nil
	}

	// A cleaned producer invalidates everything downstream of it.
	for _, n := range g.nodes {
		if _, in := targets[n]; !in {
			continue
		}
		g.expandDescendants(n, targets)
	}

	g.dev.WaitIdle()

	var firstErr error
	for _, e := range g.tracker.cleanupOrder() {
		if _, in := targets[e.node]; !in {
			continue
		}
		if err := g.cleanNode(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Targets without a cleanup entry (never compiled, or cleaned already)
	// still need the next partial compile to revisit them.
	for n := range targets {
		g.MarkDirty(n)
	}

	Logger().Info("framegraph: scoped cleanup complete",
		"scope", req.Scope, "nodes", len(targets))
	return firstErr
}

// expandDescendants adds every transitive consumer of n to set.
func (g *Graph) expandDescendants(n *NodeInstance, set map[*NodeInstance]struct{}) {
	for _, c := range g.outgoing(n) {
		if _, in := set[c.dst]; in {
			continue
		}
		set[c.dst] = struct{}{}
		g.expandDescendants(c.dst, set)
	}
}

// cleanNode runs one entry's teardown and returns the node to the
// pre-compiled state: dirty, unhealthy until recompiled, slots cleared.
func (g *Graph) cleanNode(e *CleanupEntry) error {
	n := e.node
	err := e.run(&CleanupContext{Graph: g, Node: n, Device: g.dev, Cache: g.cache})
	if err != nil {
		Logger().Warn("framegraph: node cleanup failed", "node", n.name, "error", err)
		err = fmt.Errorf("framegraph: cleanup of node %q: %w", n.name, err)
	}

	g.tracker.forgetProduced(n)
	g.tracker.forget(n.name)
	n.clearSlots()
	n.recorded = false
	n.lastStreams = nil
	n.healthy = false
	n.compErr = nil
	n.state = StateReady
	g.MarkDirty(n)
	return err
}

// Cleanup tears the whole graph down: the device is drained, every node's
// Cleanup runs in consumer-before-producer order, owned cache entries are
// destroyed in reverse creation order, and the frame ring is released.
//
// Cleanup is idempotent. After it returns, the graph rejects every mutating
// operation with ErrGraphTornDown.
func (g *Graph) Cleanup() error {
	if g.tornDown {
		return nil
	}

	g.dev.WaitIdle()

	var errs []error
	for _, e := range g.tracker.cleanupOrder() {
		n := e.node
		if err := e.run(&CleanupContext{Graph: g, Node: n, Device: g.dev, Cache: g.cache}); err != nil {
			Logger().Warn("framegraph: node cleanup failed", "node", n.name, "error", err)
			errs = append(errs, fmt.Errorf("framegraph: cleanup of node %q: %w", n.name, err))
		}
		g.tracker.forgetProduced(n)
		n.clearSlots()
		n.lastStreams = nil
		n.state = StateCleaned
	}
	g.tracker = newDependencyTracker()

	if g.ownCache {
		g.cache.Teardown()
	}
	g.sync.destroy()

	if g.unsub != nil {
		g.unsub()
		g.unsub = nil
	}

	g.execOrder = nil
	g.tornDown = true

	Logger().Info("framegraph: graph torn down", "nodes", len(g.nodes))
	return errors.Join(errs...)
}
