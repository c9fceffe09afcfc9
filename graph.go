package framegraph

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/cache"
	"github.com/gogpu/framegraph/device"
	"github.com/gogpu/framegraph/event"
)

// TopicInvalidate is the event-bus topic the graph subscribes to when
// constructed with WithEventBus. The payload must be a CleanupRequest.
const TopicInvalidate = "framegraph.invalidate"

// Graph is a directed acyclic graph of typed nodes, compiled once into a
// frozen execution plan and then executed once per rendered frame.
//
// Exactly one goroutine drives the whole lifecycle: building, Compile,
// RenderFrame, and Cleanup. The graph never synchronizes topology mutation
// against a frame in flight.
type Graph struct {
	registry *Registry
	dev      device.Device
	cache    *cache.Store
	ownCache bool
	bus      *event.Bus
	unsub    func()

	surfaceFormat gputypes.TextureFormat

	nodes  []*NodeInstance // insertion order
	byName map[string]*NodeInstance

	// conns[dst][slot][elem] is the connection feeding one input element.
	conns []*Connection

	tracker *DependencyTracker
	sync    *frameSync

	// Frozen plan. Nil until Compile succeeds.
	execOrder []*NodeInstance

	// dirty is the set of nodes whose resources must be recompiled.
	dirty map[*NodeInstance]struct{}

	frame     uint64
	lastFrame time.Time
	tornDown  bool
}

// New creates an empty graph over the given device.
func New(dev device.Device, opts ...Option) (*Graph, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.framesInFlight < MinFramesInFlight {
		o.framesInFlight = MinFramesInFlight
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}

	g := &Graph{
		registry:      o.registry,
		dev:           dev,
		cache:         o.cache,
		ownCache:      o.cache == nil,
		bus:           o.bus,
		surfaceFormat: o.surfaceFormat(),
		byName:        make(map[string]*NodeInstance),
		tracker:       newDependencyTracker(),
		dirty:         make(map[*NodeInstance]struct{}),
		sync:          newFrameSync(dev, o.framesInFlight),
	}
	if g.cache == nil {
		g.cache = cache.NewStore()
	}

	if g.bus != nil {
		g.unsub = g.bus.Subscribe(TopicInvalidate, func(ev event.Event) {
			req, ok := ev.Payload.(CleanupRequest)
			if !ok {
				Logger().Warn("framegraph: ignoring invalidate event with unexpected payload",
					"payload", fmt.Sprintf("%T", ev.Payload))
				return
			}
			g.RequestCleanup(req)
		})
	}

	return g, nil
}

// Registry returns the node type registry the graph resolves names against.
func (g *Graph) Registry() *Registry { return g.registry }

// Device returns the device the graph allocates on.
func (g *Graph) Device() device.Device { return g.dev }

// Cache returns the resource cache.
func (g *Graph) Cache() *cache.Store { return g.cache }

// FramesInFlight returns the ring depth for per-frame resources.
func (g *Graph) FramesInFlight() int { return g.sync.depth }

// FrameNumber returns the number of frames submitted so far.
func (g *Graph) FrameNumber() uint64 { return g.frame }

// AddNode instantiates the registered type typeName under instanceName and
// inserts it into the graph. Instance names are unique per graph.
//
// Adding a node invalidates the frozen plan; the next Compile is a full
// compile.
func (g *Graph) AddNode(typeName, instanceName string) (*NodeInstance, error) {
	if g.tornDown {
		return nil, ErrGraphTornDown
	}
	if instanceName == "" {
		return nil, fmt.Errorf("framegraph: instance name is empty")
	}
	if _, exists := g.byName[instanceName]; exists {
		return nil, fmt.Errorf("framegraph: duplicate instance name %q", instanceName)
	}

	n, err := g.registry.CreateInstance(typeName, instanceName)
	if err != nil {
		return nil, err
	}
	n.order = len(g.nodes)

	if err := n.body.Setup(&SetupContext{Graph: g, Node: n}); err != nil {
		return nil, fmt.Errorf("framegraph: node %q setup failed: %w", instanceName, err)
	}
	n.state = StateReady

	g.nodes = append(g.nodes, n)
	g.byName[instanceName] = n
	g.execOrder = nil // topology changed, plan is stale

	Logger().Debug("framegraph: node added", "node", instanceName, "type", typeName)
	return n, nil
}

// Node returns the instance registered under name, or nil.
func (g *Graph) Node(name string) *NodeInstance { return g.byName[name] }

// Nodes returns the instances in insertion order. Callers must not mutate
// the slice.
func (g *Graph) Nodes() []*NodeInstance { return g.nodes }

// MarkDirty flags a node (and, transitively at compile time, its
// topological descendants) for partial recompilation.
func (g *Graph) MarkDirty(n *NodeInstance) {
	n.dirty = true
	g.dirty[n] = struct{}{}
}

// SetupContext is passed to a node body's Setup.
type SetupContext struct {
	// Graph is the owning graph.
	Graph *Graph

	// Node is the instance being set up.
	Node *NodeInstance
}

// Param reads a node parameter with a typed default.
func Param[T any](n *NodeInstance, name string, def T) T {
	if v, ok := n.params[name]; ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	return def
}

// inputConnections returns the connections feeding n, grouped by input slot
// index and ordered by array element.
func (g *Graph) inputConnections(n *NodeInstance) [][]*Connection {
	grouped := make([][]*Connection, len(n.typ.schema.Inputs))
	for _, c := range g.conns {
		if c.dst == n {
			grouped[c.dstSlot] = append(grouped[c.dstSlot], c)
		}
	}
	for _, cs := range grouped {
		sortConnectionsByElement(cs)
	}
	return grouped
}

// outgoing returns the consumers downstream of n, one entry per connection.
func (g *Graph) outgoing(n *NodeInstance) []*Connection {
	var out []*Connection
	for _, c := range g.conns {
		if c.src == n {
			out = append(out, c)
		}
	}
	return out
}

func sortConnectionsByElement(cs []*Connection) {
	// Insertion sort: element counts are tiny and usually already ordered.
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j-1].dstElem > cs[j].dstElem; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}
