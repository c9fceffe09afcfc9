package resource

// Resource IDs
//
// These opaque IDs represent GPU objects. Each device adapter implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// ImageID is an opaque handle to a GPU image (texture).
type ImageID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// PipelineID is an opaque handle to a compute or graphics pipeline.
type PipelineID uint64

// DescriptorSetID is an opaque handle to a descriptor set.
type DescriptorSetID uint64

// CommandStreamID is an opaque handle to a recorded command stream.
type CommandStreamID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Kind discriminates the payload of a Resource.
type Kind uint8

// Resource kinds.
const (
	// KindInvalid is the zero Kind; it never appears on a live Resource.
	KindInvalid Kind = iota

	// KindBuffer is a GPU buffer (vertex, uniform, storage, staging).
	KindBuffer

	// KindImage is a GPU image with an associated format and extent.
	KindImage

	// KindShaderModule is a compiled shader module.
	KindShaderModule

	// KindPipeline is a compute or graphics pipeline.
	KindPipeline

	// KindDescriptorSet is a bound set of shader-visible resources.
	KindDescriptorSet

	// KindCommandStream is a recorded, submittable command stream.
	KindCommandStream

	// KindSurface is a presentation surface. Surfaces are externally owned;
	// a Resource of this kind is always a reference (Type.Ref is true).
	KindSurface

	// KindData is a CPU-side payload (decoded pixels, parameter blocks)
	// flowing between nodes before upload.
	KindData
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindImage:
		return "image"
	case KindShaderModule:
		return "shader-module"
	case KindPipeline:
		return "pipeline"
	case KindDescriptorSet:
		return "descriptor-set"
	case KindCommandStream:
		return "command-stream"
	case KindSurface:
		return "surface"
	case KindData:
		return "data"
	default:
		return "invalid"
	}
}

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageMapWrite indicates the buffer can be mapped for writing.
	BufferUsageMapWrite BufferUsage = 1 << 1

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageIndex indicates the buffer can be used as an index buffer.
	BufferUsageIndex BufferUsage = 1 << 4

	// BufferUsageVertex indicates the buffer can be used as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << 5

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 6

	// BufferUsageStorage indicates the buffer can be used as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 7

	// BufferUsageIndirect indicates the buffer can be used for indirect dispatch/draw.
	BufferUsageIndirect BufferUsage = 1 << 8
)

// ImageUsage is a bitmask specifying how an image will be used.
type ImageUsage uint32

// Image usage flags.
const (
	// ImageUsageCopySrc indicates the image can be used as a copy source.
	ImageUsageCopySrc ImageUsage = 1 << 0

	// ImageUsageCopyDst indicates the image can be used as a copy destination.
	ImageUsageCopyDst ImageUsage = 1 << 1

	// ImageUsageSampled indicates the image can be sampled in a shader.
	ImageUsageSampled ImageUsage = 1 << 2

	// ImageUsageStorage indicates the image can be used as a storage image.
	ImageUsageStorage ImageUsage = 1 << 3

	// ImageUsageRenderAttachment indicates the image can be rendered to.
	ImageUsageRenderAttachment ImageUsage = 1 << 4
)
