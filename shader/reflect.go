package shader

// BindingKind classifies a shader-visible binding.
type BindingKind uint8

// Binding kinds.
const (
	BindingUniformBuffer BindingKind = iota
	BindingStorageBuffer
	BindingReadOnlyStorageBuffer
	BindingSampledImage
	BindingStorageImage
)

// Binding describes one entry in a descriptor layout.
type Binding struct {
	// Group is the descriptor set index.
	Group uint32

	// Index is the binding index within the group.
	Index uint32

	// Kind is the binding classification.
	Kind BindingKind

	// MinSize is the minimum buffer size in bytes, if known.
	MinSize uint64
}

// ConstantRange describes a push-constant range used by a shader.
type ConstantRange struct {
	// Offset is the byte offset of the range.
	Offset uint32

	// Size is the byte size of the range.
	Size uint32
}

// Reflection is the binary-interface metadata of a compiled shader,
// consumed by the graph compiler during resource allocation.
type Reflection struct {
	// EntryPoints are the entry point function names.
	EntryPoints []string

	// Bindings are the shader-visible bindings, ordered by group then index.
	Bindings []Binding

	// Constants are the push-constant ranges.
	Constants []ConstantRange

	// WorkgroupSize is the compute workgroup size, if the module has a
	// compute entry point.
	WorkgroupSize [3]uint32
}

// Reflector extracts binary-interface metadata from a compiled module.
// Implementations live outside the frame graph; a static table keyed by
// shader digest is a valid implementation for fixed shader sets.
type Reflector interface {
	Reflect(m *Module) (*Reflection, error)
}

// StaticReflector serves reflection metadata from a table keyed by shader
// digest. Hosts with a closed shader set populate it at startup.
type StaticReflector struct {
	table map[uint64]*Reflection
}

// NewStaticReflector creates an empty static reflector.
func NewStaticReflector() *StaticReflector {
	return &StaticReflector{table: make(map[uint64]*Reflection)}
}

// Add registers metadata for a module.
func (r *StaticReflector) Add(m *Module, refl *Reflection) {
	r.table[m.Digest()] = refl
}

// Reflect returns the registered metadata for m.
// Unregistered modules reflect as an empty interface, which is valid for
// shaders that bind no resources.
func (r *StaticReflector) Reflect(m *Module) (*Reflection, error) {
	if refl, ok := r.table[m.Digest()]; ok {
		return refl, nil
	}
	return &Reflection{}, nil
}
