package resource

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestBufferDescriptorHashIgnoresLabel(t *testing.T) {
	a := &BufferDescriptor{Label: "particles", Size: 1024, Usage: BufferUsageStorage}
	b := &BufferDescriptor{Label: "debug-copy", Size: 1024, Usage: BufferUsageStorage}

	if a.Hash() != b.Hash() {
		t.Error("descriptors differing only in label hash differently")
	}
	if !a.Equal(b) {
		t.Error("descriptors differing only in label compare unequal")
	}
}

func TestBufferDescriptorContentSensitivity(t *testing.T) {
	base := &BufferDescriptor{Size: 1024, Usage: BufferUsageStorage}
	tests := []struct {
		name  string
		other *BufferDescriptor
	}{
		{"size", &BufferDescriptor{Size: 2048, Usage: BufferUsageStorage}},
		{"usage", &BufferDescriptor{Size: 1024, Usage: BufferUsageUniform}},
		{"host visibility", &BufferDescriptor{Size: 1024, Usage: BufferUsageStorage, HostVisible: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if base.Hash() == tt.other.Hash() {
				t.Error("differing descriptors share a hash")
			}
			if base.Equal(tt.other) {
				t.Error("differing descriptors compare equal")
			}
		})
	}
	if base.Equal(&ImageDescriptor{}) {
		t.Error("buffer descriptor equals a different descriptor kind")
	}
}

func TestImageDescriptorZeroCountsNormalize(t *testing.T) {
	a := &ImageDescriptor{Width: 64, Height: 64, Format: gputypes.TextureFormatRGBA8Unorm}
	b := &ImageDescriptor{Width: 64, Height: 64, MipLevelCount: 1, SampleCount: 1, Format: gputypes.TextureFormatRGBA8Unorm}

	if a.Hash() != b.Hash() {
		t.Error("zero and one mip/sample counts hash differently")
	}
	if !a.Equal(b) {
		t.Error("zero and one mip/sample counts compare unequal")
	}
}

func TestPipelineDescriptorComputeIgnoresFixedFunction(t *testing.T) {
	a := &PipelineDescriptor{ShaderDigest: 7, Compute: true, StorageBindings: 2}
	b := &PipelineDescriptor{
		ShaderDigest:    7,
		Compute:         true,
		StorageBindings: 2,
		CullMode:        gputypes.CullModeBack,
		ColorFormat:     gputypes.TextureFormatBGRA8Unorm,
	}
	if a.Hash() != b.Hash() || !a.Equal(b) {
		t.Error("compute pipelines should ignore fixed-function state")
	}
}

func TestPipelineDescriptorStorageBindingsSignificant(t *testing.T) {
	a := &PipelineDescriptor{ShaderDigest: 7, Compute: true, StorageBindings: 1}
	b := &PipelineDescriptor{ShaderDigest: 7, Compute: true, StorageBindings: 2}
	if a.Hash() == b.Hash() || a.Equal(b) {
		t.Error("binding counts must distinguish pipeline state")
	}
}

func TestPipelineDescriptorEntryPointDefault(t *testing.T) {
	a := &PipelineDescriptor{ShaderDigest: 7, Compute: true}
	b := &PipelineDescriptor{ShaderDigest: 7, Compute: true, EntryPoint: "main"}
	if a.Hash() != b.Hash() || !a.Equal(b) {
		t.Error("empty entry point should default to main")
	}
}

func TestPipelineDescriptorRenderStateSignificant(t *testing.T) {
	a := &PipelineDescriptor{ShaderDigest: 7, ColorFormat: gputypes.TextureFormatBGRA8Unorm}
	b := &PipelineDescriptor{ShaderDigest: 7, ColorFormat: gputypes.TextureFormatRGBA8Unorm}
	if a.Hash() == b.Hash() || a.Equal(b) {
		t.Error("render pipelines must distinguish color formats")
	}
}
