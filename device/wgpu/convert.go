package wgpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/resource"
)

// convertBufferUsage maps resource buffer usage flags to gputypes flags.
// HostVisible buffers additionally get CopyDst so queue writes can reach them.
func convertBufferUsage(desc *resource.BufferDescriptor) gputypes.BufferUsage {
	var out gputypes.BufferUsage

	pairs := []struct {
		in  resource.BufferUsage
		out gputypes.BufferUsage
	}{
		{resource.BufferUsageMapRead, gputypes.BufferUsageMapRead},
		{resource.BufferUsageMapWrite, gputypes.BufferUsageMapWrite},
		{resource.BufferUsageCopySrc, gputypes.BufferUsageCopySrc},
		{resource.BufferUsageCopyDst, gputypes.BufferUsageCopyDst},
		{resource.BufferUsageIndex, gputypes.BufferUsageIndex},
		{resource.BufferUsageVertex, gputypes.BufferUsageVertex},
		{resource.BufferUsageUniform, gputypes.BufferUsageUniform},
		{resource.BufferUsageStorage, gputypes.BufferUsageStorage},
		{resource.BufferUsageIndirect, gputypes.BufferUsageIndirect},
	}
	for _, p := range pairs {
		if desc.Usage&p.in != 0 {
			out |= p.out
		}
	}
	if desc.HostVisible {
		out |= gputypes.BufferUsageCopyDst
	}
	return out
}

// convertImageUsage maps resource image usage flags to gputypes texture usage.
func convertImageUsage(usage resource.ImageUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage

	if usage&resource.ImageUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if usage&resource.ImageUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if usage&resource.ImageUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if usage&resource.ImageUsageStorage != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	if usage&resource.ImageUsageRenderAttachment != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

// bytesPerPixel returns the packed byte size of one pixel in format.
func bytesPerPixel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatR32Float:
		return 4
	case gputypes.TextureFormatRG32Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		// RGBA8 and BGRA8 variants.
		return 4
	}
}
