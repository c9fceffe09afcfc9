package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// State is a node instance's lifecycle state.
type State uint8

// Lifecycle states. The legal order is Created -> Ready -> Compiled ->
// Executing -> Complete -> Ready (next frame), with Cleaned terminal.
const (
	StateCreated State = iota
	StateReady
	StateCompiled
	StateExecuting
	StateComplete
	StateCleaned
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateCompiled:
		return "compiled"
	case StateExecuting:
		return "executing"
	case StateComplete:
		return "complete"
	case StateCleaned:
		return "cleaned"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Node is the body of a node instance: the unit of work the graph schedules.
// The graph owns the lifecycle; bodies only ever see it through the context
// passed to each phase.
type Node interface {
	// Setup runs once when the instance joins a graph, before any
	// compilation. Parameter defaults belong here.
	Setup(ctx *SetupContext) error

	// Compile allocates the node's resources. It runs in topological order
	// during graph compilation and may consult the resource cache.
	Compile(ctx *CompileContext) error

	// Execute records or submits the node's per-frame work.
	Execute(ctx *ExecuteContext) error

	// Cleanup destroys resources the node owns outside the cache.
	// It runs in reverse dependency order during teardown.
	Cleanup(ctx *CleanupContext) error
}

// Updater is an optional body extension for per-frame simulation updates.
// Update runs before Execute on every frame, regardless of execution cadence.
type Updater interface {
	Update(dt float64)
}

// FrameGate is an optional body extension for nodes that execute at a slower
// cadence than the main frame loop.
type FrameGate interface {
	ShouldExecuteThisFrame(frame uint64) bool
}

// NodeInstance is a named, mutable graph participant created from a NodeType.
// Instances hold concrete slot storage, a lifecycle state, and a dirty flag.
//
// NodeInstance is not safe for concurrent use; one goroutine drives the
// whole graph lifecycle.
type NodeInstance struct {
	name string
	typ  *NodeType
	body Node

	state    State
	dirty    bool
	recorded bool
	healthy  bool
	compErr  error

	strategy        RecordingStrategy
	executeInterval uint64

	tags   map[string]struct{}
	params map[string]any

	// Slot storage. Outer index is the slot index from the schema; the
	// inner slice holds one element for single slots and N for arrays.
	inputs  [][]*resource.Resource
	outputs [][]*resource.Resource

	// lastStreams holds the command streams the body submitted on its most
	// recent Execute, for resubmission under reuse strategies.
	lastStreams []resource.CommandStreamID

	// order is the insertion index in the owning graph; it breaks
	// topological-sort ties deterministically.
	order int
}

func newNodeInstance(name string, t *NodeType) *NodeInstance {
	n := &NodeInstance{
		name:     name,
		typ:      t,
		body:     t.factory(),
		state:    StateCreated,
		healthy:  true,
		strategy: t.strategy,
		tags:     make(map[string]struct{}),
		params:   make(map[string]any),
		inputs:   make([][]*resource.Resource, len(t.schema.Inputs)),
		outputs:  make([][]*resource.Resource, len(t.schema.Outputs)),
	}
	return n
}

// Name returns the instance name, unique within its graph.
func (n *NodeInstance) Name() string { return n.name }

// Type returns the node type this instance was created from.
func (n *NodeInstance) Type() *NodeType { return n.typ }

// State returns the current lifecycle state.
func (n *NodeInstance) State() State { return n.state }

// Healthy reports whether the node's last Compile succeeded.
func (n *NodeInstance) Healthy() bool { return n.healthy }

// CompileErr returns the last Compile failure, or nil.
func (n *NodeInstance) CompileErr() error { return n.compErr }

// Dirty reports whether the node's outputs are stale.
func (n *NodeInstance) Dirty() bool { return n.dirty }

// Strategy returns the node's command recording strategy.
func (n *NodeInstance) Strategy() RecordingStrategy { return n.strategy }

// SetStrategy overrides the recording strategy for this instance.
func (n *NodeInstance) SetStrategy(s RecordingStrategy) { n.strategy = s }

// SetExecuteInterval makes the node execute every k-th frame. Zero or one
// means every frame. A body implementing FrameGate takes precedence.
func (n *NodeInstance) SetExecuteInterval(k uint64) { n.executeInterval = k }

// AddTag attaches a tag for bulk cleanup scoping.
func (n *NodeInstance) AddTag(tag string) { n.tags[tag] = struct{}{} }

// HasTag reports whether the instance carries tag.
func (n *NodeInstance) HasTag(tag string) bool {
	_, ok := n.tags[tag]
	return ok
}

// SetParameter stores a named parameter read by the node body.
func (n *NodeInstance) SetParameter(name string, value any) { n.params[name] = value }

// Parameter returns a named parameter, or false.
func (n *NodeInstance) Parameter(name string) (any, bool) {
	v, ok := n.params[name]
	return v, ok
}

// Output returns the single resource produced on the named output slot,
// or nil if the slot is empty or unknown.
func (n *NodeInstance) Output(slot string) *resource.Resource {
	i := n.typ.schema.OutputIndex(slot)
	if i < 0 || len(n.outputs[i]) == 0 {
		return nil
	}
	return n.outputs[i][0]
}

// Outputs returns all resources produced on the named output slot.
func (n *NodeInstance) Outputs(slot string) []*resource.Resource {
	i := n.typ.schema.OutputIndex(slot)
	if i < 0 {
		return nil
	}
	return n.outputs[i]
}

// input returns the resources present on an input slot index.
func (n *NodeInstance) input(i int) []*resource.Resource { return n.inputs[i] }

// setOutput replaces the resources on an output slot index.
func (n *NodeInstance) setOutput(i int, rs []*resource.Resource) { n.outputs[i] = rs }

// clearSlots drops all slot storage; used when a node is recompiled.
func (n *NodeInstance) clearSlots() {
	for i := range n.inputs {
		n.inputs[i] = nil
	}
	for i := range n.outputs {
		n.outputs[i] = nil
	}
}

func (n *NodeInstance) String() string {
	return fmt.Sprintf("%s[%s]", n.name, n.typ.name)
}
