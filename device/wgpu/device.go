// Package wgpu implements the device abstraction over gogpu/wgpu's HAL.
//
// The adapter owns the mapping from opaque resource IDs to HAL objects.
// Command streams are retained op lists: Submit re-encodes them into a fresh
// command encoder, which lets the graph resubmit a stream across frames
// without re-recording it.
package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan backend via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/framegraph/device"
	"github.com/gogpu/framegraph/resource"
)

// Device implements device.Device over a HAL device and queue.
//
// Safe for concurrent use; every resource table is guarded by one RWMutex.
type Device struct {
	mu       sync.RWMutex
	dev      hal.Device
	queue    hal.Queue
	instance hal.Instance
	caps     device.Capabilities

	nextID atomic.Uint64

	buffers   map[resource.BufferID]*bufferEntry
	images    map[resource.ImageID]*imageEntry
	modules   map[resource.ShaderModuleID]hal.ShaderModule
	pipelines map[resource.PipelineID]*pipelineEntry
	sets      map[resource.DescriptorSetID]*setEntry
	streams   map[resource.CommandStreamID]*commandStream
}

type bufferEntry struct {
	buf  hal.Buffer
	size uint64
}

type imageEntry struct {
	tex  hal.Texture
	desc resource.ImageDescriptor
}

type pipelineEntry struct {
	compute    hal.ComputePipeline
	render     hal.RenderPipeline
	layout     hal.PipelineLayout
	bindLayout hal.BindGroupLayout
}

type setEntry struct {
	group  hal.BindGroup
	layout hal.BindGroupLayout
}

// Open acquires a Vulkan device through the HAL, preferring discrete and
// integrated GPUs over software adapters.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := &Device{
		dev:      openDev.Device,
		queue:    openDev.Queue,
		instance: instance,
		caps: device.Capabilities{
			DeviceName:          selected.Info.Name,
			SupportsCompute:     true,
			MaxBufferSize:       limits.MaxBufferSize,
			MaxImageDimension2D: limits.MaxTextureDimension2D,
			MaxBindGroups:       limits.MaxBindGroups,
		},
		buffers:   make(map[resource.BufferID]*bufferEntry),
		images:    make(map[resource.ImageID]*imageEntry),
		modules:   make(map[resource.ShaderModuleID]hal.ShaderModule),
		pipelines: make(map[resource.PipelineID]*pipelineEntry),
		sets:      make(map[resource.DescriptorSetID]*setEntry),
		streams:   make(map[resource.CommandStreamID]*commandStream),
	}
	d.nextID.Store(1) // 0 is resource.InvalidID
	return d, nil
}

// Close drains the GPU and destroys the device and instance.
func (d *Device) Close() {
	d.WaitIdle()
	if d.dev != nil {
		d.dev.Destroy()
		d.dev = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// Capabilities returns the opened adapter's capabilities.
func (d *Device) Capabilities() device.Capabilities { return d.caps }

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// CreateBuffer creates a GPU buffer.
func (d *Device) CreateBuffer(desc *resource.BufferDescriptor) (resource.BufferID, error) {
	if desc.Size == 0 {
		return resource.InvalidID, fmt.Errorf("wgpu: buffer size must be positive")
	}

	buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: convertBufferUsage(desc),
	})
	if err != nil {
		return resource.InvalidID, fmt.Errorf("wgpu: create buffer: %w", err)
	}

	id := resource.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = &bufferEntry{buf: buf, size: desc.Size}
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer releases a GPU buffer.
func (d *Device) DestroyBuffer(id resource.BufferID) {
	d.mu.Lock()
	e, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
	}
	d.mu.Unlock()

	if ok {
		d.dev.DestroyBuffer(e.buf)
	}
}

// WriteBuffer writes data to a buffer at the given byte offset.
func (d *Device) WriteBuffer(id resource.BufferID, offset uint64, data []byte) {
	d.mu.RLock()
	e, ok := d.buffers[id]
	d.mu.RUnlock()

	if ok && len(data) > 0 {
		d.queue.WriteBuffer(e.buf, offset, data)
	}
}

// CreateImage creates a GPU image.
func (d *Device) CreateImage(desc *resource.ImageDescriptor) (resource.ImageID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return resource.InvalidID, fmt.Errorf("wgpu: image dimensions must be positive: %dx%d",
			desc.Width, desc.Height)
	}

	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         convertImageUsage(desc.Usage),
	})
	if err != nil {
		return resource.InvalidID, fmt.Errorf("wgpu: create image: %w", err)
	}

	id := resource.ImageID(d.newID())
	d.mu.Lock()
	d.images[id] = &imageEntry{tex: tex, desc: *desc}
	d.mu.Unlock()
	return id, nil
}

// DestroyImage releases a GPU image.
func (d *Device) DestroyImage(id resource.ImageID) {
	d.mu.Lock()
	e, ok := d.images[id]
	if ok {
		delete(d.images, id)
	}
	d.mu.Unlock()

	if ok {
		d.dev.DestroyTexture(e.tex)
	}
}

// WriteImage writes tightly packed pixel data to mip level 0.
func (d *Device) WriteImage(id resource.ImageID, data []byte) {
	d.mu.RLock()
	e, ok := d.images[id]
	d.mu.RUnlock()

	if !ok || len(data) == 0 {
		return
	}

	bpp := bytesPerPixel(e.desc.Format)
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  e.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  e.desc.Width * bpp,
			RowsPerImage: e.desc.Height,
		},
		&hal.Extent3D{
			Width:              e.desc.Width,
			Height:             e.desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
}

// CreateShaderModule creates a shader module from SPIR-V bytecode.
func (d *Device) CreateShaderModule(spirv []uint32, label string) (resource.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return resource.InvalidID, fmt.Errorf("wgpu: empty SPIR-V bytecode")
	}

	module, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return resource.InvalidID, fmt.Errorf("wgpu: create shader module: %w", err)
	}

	id := resource.ShaderModuleID(d.newID())
	d.mu.Lock()
	d.modules[id] = module
	d.mu.Unlock()
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id resource.ShaderModuleID) {
	d.mu.Lock()
	module, ok := d.modules[id]
	if ok {
		delete(d.modules, id)
	}
	d.mu.Unlock()

	if ok {
		d.dev.DestroyShaderModule(module)
	}
}
