package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/device"
	"github.com/gogpu/framegraph/resource"
)

// dispatchOp is one retained compute dispatch.
type dispatchOp struct {
	pipeline resource.PipelineID
	set      resource.DescriptorSetID
	gx       uint32
	gy       uint32
	gz       uint32
}

// commandStream is a retained list of recorded operations. Submit re-encodes
// the ops each time, so a stream recorded once can be submitted every frame.
type commandStream struct {
	label string
	ops   []dispatchOp
}

// CreateCommandStream allocates an empty command stream for recording.
func (d *Device) CreateCommandStream(label string) (resource.CommandStreamID, error) {
	id := resource.CommandStreamID(d.newID())
	d.mu.Lock()
	d.streams[id] = &commandStream{label: label}
	d.mu.Unlock()
	return id, nil
}

// DestroyCommandStream releases a command stream.
func (d *Device) DestroyCommandStream(id resource.CommandStreamID) {
	d.mu.Lock()
	delete(d.streams, id)
	d.mu.Unlock()
}

// ResetCommandStream discards a stream's recorded commands.
func (d *Device) ResetCommandStream(id resource.CommandStreamID) {
	d.mu.Lock()
	if s, ok := d.streams[id]; ok {
		s.ops = s.ops[:0]
	}
	d.mu.Unlock()
}

// RecordDispatch appends a compute dispatch to a command stream.
func (d *Device) RecordDispatch(stream resource.CommandStreamID, pipeline resource.PipelineID,
	set resource.DescriptorSetID, groupsX, groupsY, groupsZ uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.streams[stream]
	if !ok {
		return fmt.Errorf("wgpu: command stream %d not found", stream)
	}
	if _, ok := d.pipelines[pipeline]; !ok {
		return fmt.Errorf("wgpu: pipeline %d not found", pipeline)
	}
	if _, ok := d.sets[set]; !ok {
		return fmt.Errorf("wgpu: descriptor set %d not found", set)
	}

	s.ops = append(s.ops, dispatchOp{
		pipeline: pipeline, set: set,
		gx: groupsX, gy: groupsY, gz: groupsZ,
	})
	return nil
}

// fencePollInterval spaces out completion polls while a fence wait blocks.
const fencePollInterval = 100 * time.Microsecond

// fence implements device.Fence over queue submission indices. The HAL
// synchronizes submissions internally; Submit stores the index it returns,
// and the fence is signaled once the queue reports that index complete.
type fence struct {
	queue hal.Queue

	// target is the submission index to reach; zero means no submission
	// is pending and the fence reads as signaled.
	target uint64
}

// CreateFence creates a fence with no pending submission.
func (d *Device) CreateFence() (device.Fence, error) {
	return &fence{queue: d.queue}, nil
}

// DestroyFence releases a fence. Submission-index fences hold no HAL state.
func (d *Device) DestroyFence(f device.Fence) {}

// Signaled reports whether the gated submission has completed.
func (f *fence) Signaled() (bool, error) {
	return f.target == 0 || f.queue.PollCompleted() >= f.target, nil
}

// Wait blocks until the gated submission completes or the timeout elapses.
func (f *fence) Wait(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if ok, _ := f.Signaled(); ok {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(fencePollInterval)
	}
}

// Reset clears the pending submission so the fence can gate a new one.
func (f *fence) Reset() error {
	f.target = 0
	return nil
}

// Submit encodes the given streams into one command buffer, in order, and
// submits it. Each dispatch gets its own compute pass; the implicit barriers
// between passes order storage-buffer access.
func (d *Device) Submit(streams []resource.CommandStreamID, f device.Fence) error {
	ops, err := d.collectOps(streams)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		// Nothing recorded; submit empty so frame pacing still advances.
		idx, err := d.queue.Submit(nil)
		if err != nil {
			return fmt.Errorf("wgpu: submit empty frame: %w", err)
		}
		gateFence(f, idx)
		return nil
	}

	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "framegraph_submit"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("framegraph_submit"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	d.mu.RLock()
	for _, op := range ops {
		pe := d.pipelines[op.pipeline]
		se := d.sets[op.set]
		if pe == nil || pe.compute == nil || se == nil {
			continue // destroyed since recording
		}
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "framegraph_pass"})
		pass.SetPipeline(pe.compute)
		pass.SetBindGroup(0, se.group, nil)
		pass.Dispatch(op.gx, op.gy, op.gz)
		pass.End()
	}
	d.mu.RUnlock()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	idx, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	gateFence(f, idx)
	return nil
}

// gateFence points a fence at the submission index it must now wait for.
func gateFence(f device.Fence, idx uint64) {
	if sf, ok := f.(*fence); ok {
		sf.target = idx
	}
}

func (d *Device) collectOps(streams []resource.CommandStreamID) ([]dispatchOp, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ops []dispatchOp
	for _, id := range streams {
		s, ok := d.streams[id]
		if !ok {
			return nil, fmt.Errorf("wgpu: command stream %d not found", id)
		}
		ops = append(ops, s.ops...)
	}
	return ops, nil
}

// WaitIdle blocks until all submitted GPU work completes.
func (d *Device) WaitIdle() {
	_ = d.dev.WaitIdle()
}
