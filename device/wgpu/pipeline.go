package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/resource"
)

// CreatePipeline creates a compute or render pipeline from the descriptor
// and a compiled shader module. The pipeline owns its bind group and
// pipeline layouts; they are destroyed with it.
func (d *Device) CreatePipeline(desc *resource.PipelineDescriptor, module resource.ShaderModuleID) (resource.PipelineID, error) {
	d.mu.RLock()
	halModule, ok := d.modules[module]
	d.mu.RUnlock()
	if !ok {
		return resource.InvalidID, fmt.Errorf("wgpu: shader module %d not found", module)
	}

	bindLayout, err := d.createStorageLayout(desc)
	if err != nil {
		return resource.InvalidID, err
	}
	pipeLayout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		d.dev.DestroyBindGroupLayout(bindLayout)
		return resource.InvalidID, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	entry := &pipelineEntry{layout: pipeLayout, bindLayout: bindLayout}
	if desc.Compute {
		entry.compute, err = d.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:   desc.Label,
			Layout:  pipeLayout,
			Compute: hal.ComputeState{Module: halModule, EntryPoint: entryPoint(desc, "main")},
		})
	} else {
		entry.render, err = d.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  desc.Label,
			Layout: pipeLayout,
			Vertex: hal.VertexState{
				Module:     halModule,
				EntryPoint: "vs_main",
			},
			Fragment: &hal.FragmentState{
				Module:     halModule,
				EntryPoint: "fs_main",
				Targets: []gputypes.ColorTargetState{{
					Format:    desc.ColorFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
			Primitive: gputypes.PrimitiveState{
				Topology:  desc.PrimitiveTopology,
				FrontFace: desc.FrontFace,
				CullMode:  desc.CullMode,
			},
			Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		})
	}
	if err != nil {
		d.dev.DestroyPipelineLayout(pipeLayout)
		d.dev.DestroyBindGroupLayout(bindLayout)
		return resource.InvalidID, fmt.Errorf("wgpu: create pipeline %q: %w", desc.Label, err)
	}

	id := resource.PipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = entry
	d.mu.Unlock()
	return id, nil
}

// DestroyPipeline releases a pipeline and its layouts.
func (d *Device) DestroyPipeline(id resource.PipelineID) {
	d.mu.Lock()
	e, ok := d.pipelines[id]
	if ok {
		delete(d.pipelines, id)
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	if e.compute != nil {
		d.dev.DestroyComputePipeline(e.compute)
	}
	if e.render != nil {
		d.dev.DestroyRenderPipeline(e.render)
	}
	d.dev.DestroyPipelineLayout(e.layout)
	d.dev.DestroyBindGroupLayout(e.bindLayout)
}

// CreateDescriptorSet binds the given buffers as storage buffers at binding
// indices 0..len-1, matching the layout convention of CreatePipeline.
func (d *Device) CreateDescriptorSet(label string, buffers []resource.BufferID) (resource.DescriptorSetID, error) {
	if len(buffers) == 0 {
		return resource.InvalidID, fmt.Errorf("wgpu: descriptor set needs at least one buffer")
	}

	//nolint:gosec // binding counts are bounded by GPU limits
	layout, err := d.createStorageLayout(&resource.PipelineDescriptor{
		Label:           label,
		Compute:         true,
		StorageBindings: uint32(len(buffers)),
	})
	if err != nil {
		return resource.InvalidID, err
	}

	d.mu.RLock()
	entries := make([]gputypes.BindGroupEntry, len(buffers))
	for i, bid := range buffers {
		e, ok := d.buffers[bid]
		if !ok {
			d.mu.RUnlock()
			d.dev.DestroyBindGroupLayout(layout)
			return resource.InvalidID, fmt.Errorf("wgpu: buffer %d not found", bid)
		}
		//nolint:gosec // binding index bounded by len(buffers)
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i),
			Resource: gputypes.BufferBinding{Buffer: e.buf.NativeHandle(), Offset: 0, Size: e.size},
		}
	}
	d.mu.RUnlock()

	group, err := d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		d.dev.DestroyBindGroupLayout(layout)
		return resource.InvalidID, fmt.Errorf("wgpu: create bind group %q: %w", label, err)
	}

	id := resource.DescriptorSetID(d.newID())
	d.mu.Lock()
	d.sets[id] = &setEntry{group: group, layout: layout}
	d.mu.Unlock()
	return id, nil
}

// DestroyDescriptorSet releases a descriptor set and its layout.
func (d *Device) DestroyDescriptorSet(id resource.DescriptorSetID) {
	d.mu.Lock()
	e, ok := d.sets[id]
	if ok {
		delete(d.sets, id)
	}
	d.mu.Unlock()

	if ok {
		d.dev.DestroyBindGroup(e.group)
		d.dev.DestroyBindGroupLayout(e.layout)
	}
}

// createStorageLayout builds a bind group layout with the descriptor's
// storage-buffer bindings at indices 0..StorageBindings-1.
func (d *Device) createStorageLayout(desc *resource.PipelineDescriptor) (hal.BindGroupLayout, error) {
	visibility := gputypes.ShaderStageCompute
	if !desc.Compute {
		visibility = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	}

	entries := make([]gputypes.BindGroupLayoutEntry, desc.StorageBindings)
	for i := range entries {
		//nolint:gosec // binding index bounded by StorageBindings
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: visibility,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}

	layout, err := d.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	return layout, nil
}

func entryPoint(desc *resource.PipelineDescriptor, def string) string {
	if desc.EntryPoint == "" {
		return def
	}
	return desc.EntryPoint
}
