package resource

import (
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// Descriptors double as cache keys: each implements Hash and Equal so the
// content-addressed store can deduplicate creation requests. Hash collisions
// are resolved by the full Equal check in the store, never by the hash alone.

// BufferDescriptor describes a GPU buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage BufferUsage

	// HostVisible requests a CPU-writable allocation (per-frame data).
	HostVisible bool
}

// Hash computes an FNV-1a content hash over the creation parameters.
// The label is excluded: two buffers that differ only in debug name are
// the same buffer as far as deduplication is concerned.
func (d *BufferDescriptor) Hash() uint64 {
	h := fnv.New64a()
	hashWriteUint64(h, d.Size)
	hashWriteUint32(h, uint32(d.Usage))
	hashWriteBool(h, d.HostVisible)
	return h.Sum64()
}

// Equal reports whether other describes an identical buffer.
func (d *BufferDescriptor) Equal(other any) bool {
	o, ok := other.(*BufferDescriptor)
	if !ok {
		return false
	}
	return d.Size == o.Size && d.Usage == o.Usage && d.HostVisible == o.HostVisible
}

// ImageDescriptor describes a GPU image to create.
type ImageDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Width is the image width in pixels.
	Width uint32

	// Height is the image height in pixels.
	Height uint32

	// MipLevelCount is the number of mipmap levels. Zero means 1.
	MipLevelCount uint32

	// SampleCount is the number of samples for multisampling. Zero means 1.
	SampleCount uint32

	// Format is the pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the image will be used.
	Usage ImageUsage
}

// Hash computes an FNV-1a content hash over the creation parameters.
func (d *ImageDescriptor) Hash() uint64 {
	h := fnv.New64a()
	hashWriteUint32(h, d.Width)
	hashWriteUint32(h, d.Height)
	hashWriteUint32(h, max(d.MipLevelCount, 1))
	hashWriteUint32(h, max(d.SampleCount, 1))
	hashWriteUint32(h, uint32(d.Format))
	hashWriteUint32(h, uint32(d.Usage))
	return h.Sum64()
}

// Equal reports whether other describes an identical image.
func (d *ImageDescriptor) Equal(other any) bool {
	o, ok := other.(*ImageDescriptor)
	if !ok {
		return false
	}
	return d.Width == o.Width && d.Height == o.Height &&
		max(d.MipLevelCount, 1) == max(o.MipLevelCount, 1) &&
		max(d.SampleCount, 1) == max(o.SampleCount, 1) &&
		d.Format == o.Format && d.Usage == o.Usage
}

// PipelineDescriptor describes the derived state of a compute or graphics
// pipeline: the shader bytecode digest plus the fixed-function configuration.
// Two nodes that request structurally identical pipelines collapse to one
// physical pipeline through the cache.
type PipelineDescriptor struct {
	// Label is an optional debug name.
	Label string

	// ShaderDigest is the digest of the compiled shader bytecode.
	ShaderDigest uint64

	// EntryPoint is the shader entry point function name.
	// Defaults to "main" if empty.
	EntryPoint string

	// Compute marks a compute pipeline. When true the fixed-function
	// fields below are ignored.
	Compute bool

	// StorageBindings is the number of storage-buffer bindings in the
	// pipeline's bind group, at binding indices 0..StorageBindings-1.
	StorageBindings uint32

	// PrimitiveTopology is the primitive type (triangles, lines, points).
	PrimitiveTopology gputypes.PrimitiveTopology

	// FrontFace defines which face is considered front-facing.
	FrontFace gputypes.FrontFace

	// CullMode defines which faces to cull.
	CullMode gputypes.CullMode

	// ColorFormat is the format of the color attachment.
	ColorFormat gputypes.TextureFormat

	// DepthFormat is the format of the depth attachment, or
	// TextureFormatUndefined for none.
	DepthFormat gputypes.TextureFormat
}

// Hash computes an FNV-1a content hash over the pipeline state.
func (d *PipelineDescriptor) Hash() uint64 {
	h := fnv.New64a()
	hashWriteUint64(h, d.ShaderDigest)
	hashWriteString(h, d.entryPoint())
	hashWriteBool(h, d.Compute)
	hashWriteUint32(h, d.StorageBindings)
	if !d.Compute {
		hashWriteUint32(h, uint32(d.PrimitiveTopology))
		hashWriteUint32(h, uint32(d.FrontFace))
		hashWriteUint32(h, uint32(d.CullMode))
		hashWriteUint32(h, uint32(d.ColorFormat))
		hashWriteUint32(h, uint32(d.DepthFormat))
	}
	return h.Sum64()
}

// Equal reports whether other describes structurally identical pipeline state.
func (d *PipelineDescriptor) Equal(other any) bool {
	o, ok := other.(*PipelineDescriptor)
	if !ok {
		return false
	}
	if d.ShaderDigest != o.ShaderDigest || d.entryPoint() != o.entryPoint() ||
		d.Compute != o.Compute || d.StorageBindings != o.StorageBindings {
		return false
	}
	if d.Compute {
		return true
	}
	return d.PrimitiveTopology == o.PrimitiveTopology &&
		d.FrontFace == o.FrontFace &&
		d.CullMode == o.CullMode &&
		d.ColorFormat == o.ColorFormat &&
		d.DepthFormat == o.DepthFormat
}

func (d *PipelineDescriptor) entryPoint() string {
	if d.EntryPoint == "" {
		return "main"
	}
	return d.EntryPoint
}

// hash write helpers (FNV never returns an error)

func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(buf[:])
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(buf[:])
}

func hashWriteString(h hash.Hash64, s string) {
	_, _ = h.Write([]byte(s))
	_, _ = h.Write([]byte{0})
}

func hashWriteBool(h hash.Hash64, b bool) {
	if b {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
