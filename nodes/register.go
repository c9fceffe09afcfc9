// Package nodes provides the built-in node types: buffer upload, texture
// loading, compute pipeline creation, and compute dispatch. Hosts register
// them once per registry and instantiate them by name.
package nodes

import (
	"github.com/gogpu/framegraph"
)

// Built-in node type names.
const (
	TypeUploadBuffer    = "upload_buffer"
	TypeTextureLoader   = "texture_loader"
	TypeComputePipeline = "compute_pipeline"
	TypeComputeDispatch = "compute_dispatch"
)

// RegisterBuiltins registers every built-in node type.
func RegisterBuiltins(r *framegraph.Registry) error {
	for _, register := range []func(*framegraph.Registry) error{
		registerUploadBuffer,
		registerTextureLoader,
		registerComputePipeline,
		registerComputeDispatch,
	} {
		if err := register(r); err != nil {
			return err
		}
	}
	return nil
}
