// Package device defines the graphics-device abstraction consumed by the
// frame graph: creation and destruction primitives for buffers, images,
// pipelines and descriptor sets, capability queries, and the host-observable
// fences that frame pacing relies on.
//
// The frame graph never creates a device; the host application opens one
// (see the wgpu subpackage) and passes it in at graph construction. This
// keeps platform and window handles externally owned rather than modeled
// as graph nodes.
package device

import (
	"time"

	"github.com/gogpu/framegraph/resource"
)

// Capabilities describes what a device supports.
// Used to validate graph requirements before compilation.
type Capabilities struct {
	// DeviceName is the GPU device name.
	DeviceName string

	// VendorName is the GPU vendor name.
	VendorName string

	// SupportsCompute reports whether compute pipelines are available.
	SupportsCompute bool

	// MaxBufferSize is the maximum buffer size in bytes.
	MaxBufferSize uint64

	// MaxImageDimension2D is the maximum width/height of a 2D image.
	MaxImageDimension2D uint32

	// MaxBindGroups is the maximum number of descriptor sets per pipeline.
	MaxBindGroups uint32
}

// Fence is a host-observable synchronization primitive. The submission loop
// uses it to confirm the GPU has finished consuming a frame's resources
// before the CPU reuses them.
type Fence interface {
	// Signaled reports whether the fence has fired, without blocking.
	Signaled() (bool, error)

	// Wait blocks until the fence fires or the timeout elapses.
	// It returns true if the fence fired within the timeout.
	Wait(timeout time.Duration) (bool, error)

	// Reset rearms the fence for reuse on a later submission.
	Reset() error
}

// Device abstracts over GPU backend implementations.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while in use is undefined behavior
//   - IDs become invalid after destruction and must not be reused
//
// Implementations must be safe for concurrent use; the graph itself drives
// the device from a single goroutine, but cached teardown callbacks may
// outlive the graph that created them.
type Device interface {
	// Capabilities returns the device capabilities.
	Capabilities() Capabilities

	// CreateBuffer creates a GPU buffer.
	CreateBuffer(desc *resource.BufferDescriptor) (resource.BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id resource.BufferID)

	// WriteBuffer writes data to a buffer at the given byte offset.
	// The data is copied to the GPU immediately or staged for later upload.
	WriteBuffer(id resource.BufferID, offset uint64, data []byte)

	// CreateImage creates a GPU image.
	CreateImage(desc *resource.ImageDescriptor) (resource.ImageID, error)

	// DestroyImage releases a GPU image.
	DestroyImage(id resource.ImageID)

	// WriteImage writes pixel data to an image.
	// The data must match the image format and dimensions.
	WriteImage(id resource.ImageID, data []byte)

	// CreateShaderModule creates a shader module from SPIR-V bytecode.
	CreateShaderModule(spirv []uint32, label string) (resource.ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id resource.ShaderModuleID)

	// CreatePipeline creates a pipeline from the descriptor and a compiled
	// shader module.
	CreatePipeline(desc *resource.PipelineDescriptor, module resource.ShaderModuleID) (resource.PipelineID, error)

	// DestroyPipeline releases a pipeline.
	DestroyPipeline(id resource.PipelineID)

	// CreateDescriptorSet creates a descriptor set binding the given buffers.
	CreateDescriptorSet(label string, buffers []resource.BufferID) (resource.DescriptorSetID, error)

	// DestroyDescriptorSet releases a descriptor set.
	DestroyDescriptorSet(id resource.DescriptorSetID)

	// CreateCommandStream allocates an empty command stream for recording.
	CreateCommandStream(label string) (resource.CommandStreamID, error)

	// DestroyCommandStream releases a command stream.
	DestroyCommandStream(id resource.CommandStreamID)

	// ResetCommandStream discards a stream's recorded commands so it can be
	// re-recorded without reallocating.
	ResetCommandStream(id resource.CommandStreamID)

	// RecordDispatch appends a compute dispatch to a command stream.
	RecordDispatch(stream resource.CommandStreamID, pipeline resource.PipelineID,
		set resource.DescriptorSetID, groupsX, groupsY, groupsZ uint32) error

	// CreateFence creates an unsignaled fence.
	CreateFence() (Fence, error)

	// DestroyFence releases a fence.
	DestroyFence(f Fence)

	// Submit submits recorded command streams for asynchronous execution.
	// If fence is non-nil it fires when the GPU finishes this submission.
	Submit(streams []resource.CommandStreamID, fence Fence) error

	// WaitIdle blocks until all submitted GPU work completes.
	WaitIdle()
}
