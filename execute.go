package framegraph

import (
	"fmt"
	"time"

	"github.com/gogpu/framegraph/device"
	"github.com/gogpu/framegraph/resource"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// FrameContext carries the parameters of one execution pass over the frozen
// plan. RenderFrame fills one in from the frames-in-flight ring; callers
// driving their own synchronization construct it directly and call Execute.
type FrameContext struct {
	// Frame is the monotonically increasing frame number.
	Frame uint64

	// InFlightIndex is Frame modulo the ring depth. Nodes holding per-frame
	// resources index their ring with it.
	InFlightIndex int

	// DeltaTime is the wall-clock seconds since the previous frame, zero on
	// the first.
	DeltaTime float64

	// Fence, when non-nil, is signaled by the device once this frame's
	// submission completes.
	Fence device.Fence
}

// ExecuteContext is passed to a node body's Execute.
type ExecuteContext struct {
	// Graph is the owning graph.
	Graph *Graph

	// Node is the instance being executed.
	Node *NodeInstance

	// Device is the graph's device.
	Device device.Device

	// Frame is the current frame number.
	Frame uint64

	// InFlightIndex is the per-frame ring slot for this frame.
	InFlightIndex int

	// DeltaTime is the seconds elapsed since the previous frame.
	DeltaTime float64

	streams *[]resource.CommandStreamID
}

// Input returns the single resource connected to the named input slot,
// or nil if the slot is optional and unconnected.
func (c *ExecuteContext) Input(slot string) *resource.Resource {
	i := c.Node.typ.schema.InputIndex(slot)
	if i < 0 || len(c.Node.inputs[i]) == 0 {
		return nil
	}
	return c.Node.inputs[i][0]
}

// Inputs returns all resources connected to the named array input slot.
func (c *ExecuteContext) Inputs(slot string) []*resource.Resource {
	i := c.Node.typ.schema.InputIndex(slot)
	if i < 0 {
		return nil
	}
	return c.Node.inputs[i]
}

// Submit queues a recorded command stream into this frame's submission.
// Streams are submitted together, in queue order, after every node has run.
func (c *ExecuteContext) Submit(stream resource.CommandStreamID) {
	*c.streams = append(*c.streams, stream)
	c.Node.lastStreams = append(c.Node.lastStreams, stream)
}

// RenderFrame executes one frame, blocking first until the frame slot from
// FramesInFlight frames ago has been released by the GPU.
func (g *Graph) RenderFrame() error {
	return g.renderFrame(false)
}

// TryRenderFrame is RenderFrame without the wait: if the frame slot is still
// in flight it returns ErrWouldBlock and performs no work.
func (g *Graph) TryRenderFrame() error {
	return g.renderFrame(true)
}

func (g *Graph) renderFrame(try bool) error {
	if g.tornDown {
		return ErrGraphTornDown
	}
	if g.execOrder == nil {
		return ErrNotCompiled
	}

	slot, fence, err := g.sync.acquire(g.frame, try)
	if err != nil {
		return err
	}

	return g.Execute(&FrameContext{
		Frame:         g.frame,
		InFlightIndex: slot,
		DeltaTime:     g.tickDelta(),
		Fence:         fence,
	})
}

// tickDelta measures wall-clock time since the previous frame.
func (g *Graph) tickDelta() float64 {
	now := timeNow()
	var dt float64
	if !g.lastFrame.IsZero() {
		dt = now.Sub(g.lastFrame).Seconds()
	}
	g.lastFrame = now
	return dt
}

// Execute runs one pass over the frozen plan: per-frame updates first, then
// every node in execution order, then a single batched submission.
//
// A node body failure during Execute never aborts the frame; the node is
// skipped for this frame and logged. Unhealthy nodes (failed Compile) are
// skipped silently.
func (g *Graph) Execute(fc *FrameContext) error {
	if g.tornDown {
		return ErrGraphTornDown
	}
	if g.execOrder == nil {
		return ErrNotCompiled
	}

	for _, n := range g.execOrder {
		if u, ok := n.body.(Updater); ok {
			u.Update(fc.DeltaTime)
		}
	}

	var streams []resource.CommandStreamID
	for _, n := range g.execOrder {
		if !n.healthy {
			continue
		}
		if !shouldExecute(n, fc.Frame) {
			continue
		}
		if reuseRecording(n) {
			streams = append(streams, n.lastStreams...)
			continue
		}

		n.state = StateExecuting
		n.lastStreams = n.lastStreams[:0]
		ctx := &ExecuteContext{
			Graph:         g,
			Node:          n,
			Device:        g.dev,
			Frame:         fc.Frame,
			InFlightIndex: fc.InFlightIndex,
			DeltaTime:     fc.DeltaTime,
			streams:       &streams,
		}
		if err := n.body.Execute(ctx); err != nil {
			n.state = StateReady
			n.lastStreams = n.lastStreams[:0]
			Logger().Warn("framegraph: node execute failed, skipped this frame",
				"node", n.name, "frame", fc.Frame, "error", err)
			continue
		}
		n.recorded = true
		n.state = StateComplete
	}

	if err := g.dev.Submit(streams, fc.Fence); err != nil {
		return fmt.Errorf("framegraph: frame %d submit: %w", fc.Frame, err)
	}

	for _, n := range g.execOrder {
		if n.state == StateComplete {
			n.state = StateReady
		}
	}
	g.frame = fc.Frame + 1
	return nil
}

// shouldExecute applies the node's execution cadence. A body implementing
// FrameGate decides itself; otherwise an execute interval of k runs the node
// on every k-th frame.
func shouldExecute(n *NodeInstance, frame uint64) bool {
	if gate, ok := n.body.(FrameGate); ok {
		return gate.ShouldExecuteThisFrame(frame)
	}
	if n.executeInterval > 1 {
		return frame%n.executeInterval == 0
	}
	return true
}

// reuseRecording reports whether the node's previous command streams can be
// resubmitted instead of calling Execute again.
func reuseRecording(n *NodeInstance) bool {
	switch n.strategy {
	case RecordOnceAndReuse:
		return n.recorded
	case RecordWhenDirty:
		return n.recorded && !n.dirty
	default:
		return false
	}
}
