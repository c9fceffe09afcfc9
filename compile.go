package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/cache"
	"github.com/gogpu/framegraph/device"
	"github.com/gogpu/framegraph/resource"
)

// CompileContext is passed to a node body's Compile. It exposes the node's
// connected inputs, the output slots, and the shared allocation machinery.
type CompileContext struct {
	// Graph is the owning graph.
	Graph *Graph

	// Node is the instance being compiled.
	Node *NodeInstance

	// Device is the graph's device.
	Device device.Device

	// Cache is the content-addressed resource store. Derived state that
	// other nodes may also request (shader modules, pipelines) belongs in
	// the cache; per-node state does not.
	Cache *cache.Store

	// FramesInFlight is the ring depth for per-frame resources. A resource
	// mutated once per frame must exist in this many instances.
	FramesInFlight int

	// SurfaceFormat is the host surface format, or Undefined when the
	// graph has no device provider attached.
	SurfaceFormat gputypes.TextureFormat
}

// Input returns the single resource connected to the named input slot,
// or nil if the slot is optional and unconnected.
func (c *CompileContext) Input(slot string) *resource.Resource {
	i := c.Node.typ.schema.InputIndex(slot)
	if i < 0 || len(c.Node.inputs[i]) == 0 {
		return nil
	}
	return c.Node.inputs[i][0]
}

// Inputs returns all resources connected to the named array input slot.
func (c *CompileContext) Inputs(slot string) []*resource.Resource {
	i := c.Node.typ.schema.InputIndex(slot)
	if i < 0 {
		return nil
	}
	return c.Node.inputs[i]
}

// SetOutput publishes a resource on the named single output slot.
func (c *CompileContext) SetOutput(slot string, r *resource.Resource) error {
	return c.setOutputs(slot, []*resource.Resource{r}, AritySingle)
}

// SetOutputs publishes an ordered array on the named array output slot.
func (c *CompileContext) SetOutputs(slot string, rs []*resource.Resource) error {
	return c.setOutputs(slot, rs, ArityArray)
}

func (c *CompileContext) setOutputs(slot string, rs []*resource.Resource, arity Arity) error {
	i := c.Node.typ.schema.OutputIndex(slot)
	if i < 0 {
		return fmt.Errorf("framegraph: node %q has no output slot %q", c.Node.name, slot)
	}
	d := c.Node.typ.schema.Outputs[i]
	if d.Arity != arity {
		return fmt.Errorf("framegraph: output slot %s.%s is %s", c.Node.name, slot, d.Arity)
	}
	for _, r := range rs {
		if r == nil {
			return fmt.Errorf("framegraph: nil resource on output %s.%s", c.Node.name, slot)
		}
		if !elementCompatible(r.Type(), d.Type) {
			return fmt.Errorf("framegraph: resource %s does not satisfy output slot %s.%s (%s)",
				r, c.Node.name, slot, d.Type)
		}
	}
	c.Node.setOutput(i, rs)
	c.Graph.tracker.recordProduced(c.Node, rs)
	return nil
}

// PipelineRequest is the derived pipeline state a node asks for during the
// pipeline-generation phase.
type PipelineRequest struct {
	// Desc is the full pipeline state; its hash is the cache key.
	Desc *resource.PipelineDescriptor

	// Module is the compiled shader module to build the pipeline from.
	Module resource.ShaderModuleID
}

// PipelineUser is an optional body extension for nodes that want the
// compiler's pipeline-generation phase to create (and share) their pipeline.
// Nodes with structurally identical requests receive the same physical
// pipeline resource.
type PipelineUser interface {
	// PipelineRequest returns the requested state, or nil for none.
	PipelineRequest() *PipelineRequest

	// SetPipeline delivers the (possibly shared) pipeline resource.
	SetPipeline(r *resource.Resource)
}

// Compile turns the current topology into a frozen execution plan, running
// the five phases in fixed order: Validate, AnalyzeDependencies,
// AllocateResources, GeneratePipelines, BuildExecutionOrder.
//
// If the graph already has a plan, the topology is unchanged, and nodes have
// been marked dirty, Compile performs a partial recompile: phases 3-5 re-run
// restricted to the dirty nodes and their topological descendants. Nodes
// outside that subgraph keep their resource identities.
//
// Structural errors (*CycleError, *MissingDependencyError, *ConnectionError)
// are returned synchronously. A node body failure surfaces as *CompileError
// only when a required downstream node depends on the failed node; otherwise
// the node is marked unhealthy and skipped at execution.
func (g *Graph) Compile() error {
	if g.tornDown {
		return ErrGraphTornDown
	}

	partial := g.execOrder != nil && len(g.dirty) > 0

	// Phase 1: Validate.
	if err := g.validate(); err != nil {
		return err
	}

	// Phase 2: AnalyzeDependencies.
	order, err := g.topoOrder()
	if err != nil {
		return err
	}

	scope := g.compileScope(order, partial)

	// Phase 3: AllocateResources.
	if err := g.allocateResources(order, scope); err != nil {
		return err
	}

	// Phase 4: GeneratePipelines.
	if err := g.generatePipelines(order, scope); err != nil {
		return err
	}

	// Pipelines are published after the allocation pass, so inputs flow a
	// second time before cleanup entries are derived from them.
	for _, n := range order {
		if _, in := scope[n]; !in {
			continue
		}
		if !n.healthy {
			continue
		}
		if err := g.flowInputs(n); err != nil {
			return err
		}
		if err := g.tracker.registerCleanup(n); err != nil {
			return err
		}
	}

	// Phase 5: BuildExecutionOrder.
	g.execOrder = order
	for _, n := range order {
		if n.healthy {
			n.state = StateCompiled
		}
		n.dirty = false
	}
	g.dirty = make(map[*NodeInstance]struct{})

	Logger().Info("framegraph: graph compiled",
		"nodes", len(order), "partial", partial, "cache", g.cache.Stats())
	return nil
}

// validate checks that every required input is satisfied and the graph is
// acyclic.
func (g *Graph) validate() error {
	for _, n := range g.nodes {
		grouped := g.inputConnections(n)
		for i, d := range n.typ.schema.Inputs {
			cs := grouped[i]
			switch {
			case d.Arity == AritySingle:
				if len(cs) == 0 && !d.Optional {
					return &MissingDependencyError{Node: n.name, Slot: d.Name, Reason: "required input is unconnected"}
				}
			case d.Arity == ArityArray:
				if len(cs) == 0 && !d.Optional {
					return &MissingDependencyError{Node: n.name, Slot: d.Name, Reason: "required array input has no connections"}
				}
				for want, c := range cs {
					if c.dstElem != want {
						return &MissingDependencyError{
							Node: n.name, Slot: d.Name,
							Reason: fmt.Sprintf("array input has a gap at element %d", want),
						}
					}
				}
			}
		}
	}
	return g.checkAcyclic()
}

// checkAcyclic runs a depth-first search over the connection graph and
// reports the full cycle path on failure.
func (g *Graph) checkAcyclic() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // finished
	)
	color := make(map[*NodeInstance]int, len(g.nodes))
	var path []*NodeInstance

	var visit func(n *NodeInstance) *CycleError
	visit = func(n *NodeInstance) *CycleError {
		color[n] = gray
		path = append(path, n)
		for _, c := range g.outgoing(n) {
			switch color[c.dst] {
			case white:
				if err := visit(c.dst); err != nil {
					return err
				}
			case gray:
				// Cycle: slice the path from the first occurrence of dst.
				start := 0
				for i, p := range path {
					if p == c.dst {
						start = i
						break
					}
				}
				names := make([]string, 0, len(path)-start+1)
				for _, p := range path[start:] {
					names = append(names, p.name)
				}
				names = append(names, c.dst.name)
				return &CycleError{Path: names}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return nil
	}

	for _, n := range g.nodes {
		if color[n] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoOrder computes a topological order over the connection graph.
// Ties between independent nodes are broken by node insertion order, making
// the result deterministic and reproducible across identical rebuilds.
func (g *Graph) topoOrder() ([]*NodeInstance, error) {
	indegree := make(map[*NodeInstance]int, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n] = 0
	}
	for _, c := range g.conns {
		indegree[c.dst]++
	}

	order := make([]*NodeInstance, 0, len(g.nodes))
	done := make(map[*NodeInstance]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		progressed := false
		for _, n := range g.nodes { // insertion order is the tie-break
			if done[n] || indegree[n] != 0 {
				continue
			}
			done[n] = true
			order = append(order, n)
			for _, c := range g.outgoing(n) {
				indegree[c.dst]--
			}
			progressed = true
		}
		if !progressed {
			// Unreachable when checkAcyclic passed; kept as a guard.
			return nil, &CycleError{Path: []string{"<unresolved>"}}
		}
	}
	return order, nil
}

// compileScope returns the set of nodes whose phases 3-5 must run.
// A full compile scopes every node; a partial compile scopes the dirty
// nodes plus their topological descendants.
func (g *Graph) compileScope(order []*NodeInstance, partial bool) map[*NodeInstance]struct{} {
	scope := make(map[*NodeInstance]struct{}, len(order))
	if !partial {
		for _, n := range order {
			scope[n] = struct{}{}
		}
		return scope
	}
	for n := range g.dirty {
		scope[n] = struct{}{}
	}
	// Propagate downstream in topological order.
	for _, n := range order {
		if _, in := scope[n]; !in {
			continue
		}
		for _, c := range g.outgoing(n) {
			scope[c.dst] = struct{}{}
		}
	}
	Logger().Debug("framegraph: partial recompile", "scope", len(scope), "total", len(order))
	return scope
}

// allocateResources visits scoped nodes in topological order, flows input
// resources along connections, and invokes each body's Compile.
//
// A body failure is fatal the moment a required downstream input depends on
// the failed node; no consumer compiles against an input its connection
// proved present but the producer never published. Failures with only
// optional consumers isolate: the node is marked unhealthy and skipped.
func (g *Graph) allocateResources(order []*NodeInstance, scope map[*NodeInstance]struct{}) error {
	for _, n := range order {
		if _, in := scope[n]; !in {
			continue // keeps its existing resource identities
		}

		n.healthy = true
		n.compErr = nil
		n.recorded = false
		for i := range n.outputs {
			n.outputs[i] = nil
		}

		if err := g.flowInputs(n); err != nil {
			return err
		}

		ctx := &CompileContext{
			Graph:          g,
			Node:           n,
			Device:         g.dev,
			Cache:          g.cache,
			FramesInFlight: g.sync.depth,
			SurfaceFormat:  g.surfaceFormat,
		}
		if err := n.body.Compile(ctx); err != nil {
			n.healthy = false
			n.compErr = &CompileError{Node: n.name, Err: err}
			Logger().Warn("framegraph: node compile failed, marked unhealthy",
				"node", n.name, "error", err)
			for _, c := range g.outgoing(n) {
				if !c.dst.typ.schema.Inputs[c.dstSlot].Optional {
					return fmt.Errorf("framegraph: node %q requires failed node %q: %w",
						c.dst.name, n.name, n.compErr)
				}
			}
			continue
		}
	}
	return nil
}

// flowInputs copies each producer's published outputs into n's input slot
// storage. A producer that has not published (unhealthy, or optional and
// skipped) leaves the element nil; required inputs from unhealthy producers
// are caught by the fatal-propagation check in allocateResources.
func (g *Graph) flowInputs(n *NodeInstance) error {
	grouped := g.inputConnections(n)
	for i, d := range n.typ.schema.Inputs {
		cs := grouped[i]
		if len(cs) == 0 {
			n.inputs[i] = nil
			continue
		}
		if d.Arity == AritySingle {
			n.inputs[i] = []*resource.Resource{g.flowOne(cs[0])}
			continue
		}
		// Array destination: one source array fans in whole, otherwise
		// one element per connection.
		src := cs[0].src.typ.schema.Outputs[cs[0].srcSlot]
		if len(cs) == 1 && src.Arity == ArityArray {
			n.inputs[i] = append([]*resource.Resource(nil), cs[0].src.outputs[cs[0].srcSlot]...)
			continue
		}
		elems := make([]*resource.Resource, len(cs))
		for _, c := range cs {
			elems[c.dstElem] = g.flowOne(c)
		}
		n.inputs[i] = elems
	}
	return nil
}

func (g *Graph) flowOne(c *Connection) *resource.Resource {
	out := c.src.outputs[c.srcSlot]
	if len(out) == 0 {
		return nil
	}
	return out[0]
}

// generatePipelines serves PipelineUser nodes through the cache. The cache
// confirms full-key equality on every hit, so structurally identical requests
// share one pipeline and hash collisions surface as errors instead of
// silently sharing the wrong state.
func (g *Graph) generatePipelines(order []*NodeInstance, scope map[*NodeInstance]struct{}) error {
	created := 0
	served := 0

	for _, n := range order {
		if _, in := scope[n]; !in {
			continue
		}
		if !n.healthy {
			continue
		}
		user, ok := n.body.(PipelineUser)
		if !ok {
			continue
		}
		req := user.PipelineRequest()
		if req == nil {
			continue
		}

		shared, err := cache.GetOrCreateAs(g.cache, req.Desc, func() (*resource.Resource, cache.Teardown, error) {
			id, err := g.dev.CreatePipeline(req.Desc, req.Module)
			if err != nil {
				return nil, nil, err
			}
			created++
			dev := g.dev
			return resource.NewPipeline(req.Desc.Label, id, req.Desc), func() { dev.DestroyPipeline(id) }, nil
		})
		if err != nil {
			return fmt.Errorf("framegraph: pipeline generation for node %q: %w", n.name, err)
		}
		user.SetPipeline(shared)
		g.deliverPipelineOutput(n, shared)
		served++
	}

	if served > 0 {
		Logger().Debug("framegraph: pipelines generated", "nodes", served, "created", created)
	}
	return nil
}

// deliverPipelineOutput publishes a shared pipeline on the node's first
// pipeline-kind output slot, if it declares one.
func (g *Graph) deliverPipelineOutput(n *NodeInstance, r *resource.Resource) {
	for i, d := range n.typ.schema.Outputs {
		if d.Type.Kind == resource.KindPipeline && d.Arity == AritySingle {
			n.setOutput(i, []*resource.Resource{r})
			g.tracker.recordProduced(n, n.outputs[i])
			return
		}
	}
}
