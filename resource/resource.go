// Package resource defines the tagged-union value that flows along graph
// connections, the opaque handle IDs issued by device adapters, and the
// descriptors used both to create GPU objects and to key the content-addressed
// cache.
package resource

import "fmt"

// Type is the compile-time tag attached to node slots and to the resources
// that flow between them. Two slots are connectable only when their Types are
// compatible (see the connection rules in the framegraph package).
type Type struct {
	// Kind is the resource kind this type describes.
	Kind Kind

	// Ref marks a borrowed reference to an externally owned object.
	// A Ref source satisfies a non-Ref destination of the same kind;
	// the reverse is not true.
	Ref bool
}

// TypeOf returns the owned type for a kind.
func TypeOf(k Kind) Type { return Type{Kind: k} }

// RefOf returns the borrowed-reference type for a kind.
func RefOf(k Kind) Type { return Type{Kind: k, Ref: true} }

// String returns a readable form such as "buffer" or "&surface".
func (t Type) String() string {
	if t.Ref {
		return "&" + t.Kind.String()
	}
	return t.Kind.String()
}

// Resource is one GPU object (or CPU-side payload) produced by a node.
// The producing node, through its graph, exclusively owns the resource until
// Cleanup; consumers only ever see it through connections.
type Resource struct {
	typ    Type
	label  string
	handle uint64
	desc   any
}

// New creates a resource with an explicit type tag.
// Prefer the kind-specific constructors where one exists.
func New(typ Type, label string, handle uint64, desc any) *Resource {
	return &Resource{typ: typ, label: label, handle: handle, desc: desc}
}

// NewBuffer creates a buffer resource.
func NewBuffer(label string, id BufferID, desc *BufferDescriptor) *Resource {
	return &Resource{typ: TypeOf(KindBuffer), label: label, handle: uint64(id), desc: desc}
}

// NewImage creates an image resource.
func NewImage(label string, id ImageID, desc *ImageDescriptor) *Resource {
	return &Resource{typ: TypeOf(KindImage), label: label, handle: uint64(id), desc: desc}
}

// NewShaderModule creates a shader-module resource.
func NewShaderModule(label string, id ShaderModuleID) *Resource {
	return &Resource{typ: TypeOf(KindShaderModule), label: label, handle: uint64(id)}
}

// NewPipeline creates a pipeline resource.
func NewPipeline(label string, id PipelineID, desc *PipelineDescriptor) *Resource {
	return &Resource{typ: TypeOf(KindPipeline), label: label, handle: uint64(id), desc: desc}
}

// NewDescriptorSet creates a descriptor-set resource.
func NewDescriptorSet(label string, id DescriptorSetID) *Resource {
	return &Resource{typ: TypeOf(KindDescriptorSet), label: label, handle: uint64(id)}
}

// NewCommandStream creates a command-stream resource.
func NewCommandStream(label string, id CommandStreamID) *Resource {
	return &Resource{typ: TypeOf(KindCommandStream), label: label, handle: uint64(id)}
}

// NewData creates a CPU-side data resource carrying an arbitrary payload.
func NewData(label string, payload any) *Resource {
	return &Resource{typ: TypeOf(KindData), label: label, desc: payload}
}

// NewSurfaceRef creates a reference to an externally owned surface.
// Surfaces are never owned by the graph (the window system owns them),
// so there is no owned-surface constructor.
func NewSurfaceRef(label string, handle uint64) *Resource {
	return &Resource{typ: RefOf(KindSurface), label: label, handle: handle}
}

// Ref returns a borrowed-reference view of r. The returned resource shares
// r's handle and descriptor but is typed as a reference, so connecting it
// never transfers ownership.
func (r *Resource) Ref() *Resource {
	return &Resource{typ: Type{Kind: r.typ.Kind, Ref: true}, label: r.label, handle: r.handle, desc: r.desc}
}

// Type returns the resource's type tag.
func (r *Resource) Type() Type { return r.typ }

// Kind returns the resource kind.
func (r *Resource) Kind() Kind { return r.typ.Kind }

// Label returns the debug label.
func (r *Resource) Label() string { return r.label }

// Handle returns the raw opaque handle. Zero (InvalidID) means the resource
// has no device object, e.g. a KindData payload.
func (r *Resource) Handle() uint64 { return r.handle }

// Buffer returns the buffer handle, or false if the kind does not match.
func (r *Resource) Buffer() (BufferID, bool) {
	if r.typ.Kind != KindBuffer {
		return InvalidID, false
	}
	return BufferID(r.handle), true
}

// Image returns the image handle, or false if the kind does not match.
func (r *Resource) Image() (ImageID, bool) {
	if r.typ.Kind != KindImage {
		return InvalidID, false
	}
	return ImageID(r.handle), true
}

// ShaderModule returns the shader-module handle, or false if the kind does
// not match.
func (r *Resource) ShaderModule() (ShaderModuleID, bool) {
	if r.typ.Kind != KindShaderModule {
		return InvalidID, false
	}
	return ShaderModuleID(r.handle), true
}

// Pipeline returns the pipeline handle, or false if the kind does not match.
func (r *Resource) Pipeline() (PipelineID, bool) {
	if r.typ.Kind != KindPipeline {
		return InvalidID, false
	}
	return PipelineID(r.handle), true
}

// CommandStream returns the command-stream handle, or false if the kind does
// not match.
func (r *Resource) CommandStream() (CommandStreamID, bool) {
	if r.typ.Kind != KindCommandStream {
		return InvalidID, false
	}
	return CommandStreamID(r.handle), true
}

// Data returns the CPU-side payload, or false if the kind does not match.
func (r *Resource) Data() (any, bool) {
	if r.typ.Kind != KindData {
		return nil, false
	}
	return r.desc, true
}

// BufferDesc returns the buffer descriptor, or nil.
func (r *Resource) BufferDesc() *BufferDescriptor {
	d, _ := r.desc.(*BufferDescriptor)
	return d
}

// ImageDesc returns the image descriptor, or nil.
func (r *Resource) ImageDesc() *ImageDescriptor {
	d, _ := r.desc.(*ImageDescriptor)
	return d
}

// PipelineDesc returns the pipeline descriptor, or nil.
func (r *Resource) PipelineDesc() *PipelineDescriptor {
	d, _ := r.desc.(*PipelineDescriptor)
	return d
}

// String returns a short description for logs and error messages.
func (r *Resource) String() string {
	if r.label != "" {
		return fmt.Sprintf("%s(%q)", r.typ, r.label)
	}
	return fmt.Sprintf("%s(#%d)", r.typ, r.handle)
}
