package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// Role is a bitmask describing when a slot's value is read.
type Role uint8

// Slot roles. Roles combine: a slot read during both Compile and Execute
// carries RoleDependency|RoleExecute.
const (
	// RoleDependency marks an input read during Compile.
	RoleDependency Role = 1 << 0

	// RoleExecute marks an input read during Execute.
	RoleExecute Role = 1 << 1

	// RoleCleanupOnly marks an input read only during teardown.
	RoleCleanupOnly Role = 1 << 2

	// RoleOutput marks a produced value.
	RoleOutput Role = 1 << 3
)

// Has reports whether r contains all bits of mask.
func (r Role) Has(mask Role) bool { return r&mask == mask }

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	var parts []byte
	add := func(set bool, c byte) {
		if set {
			parts = append(parts, c)
		}
	}
	add(r.Has(RoleDependency), 'D')
	add(r.Has(RoleExecute), 'E')
	add(r.Has(RoleCleanupOnly), 'C')
	add(r.Has(RoleOutput), 'O')
	return string(parts)
}

// Arity describes whether a slot carries one resource or an ordered array.
type Arity uint8

// Arity modes.
const (
	// AritySingle carries exactly one resource.
	AritySingle Arity = iota

	// ArityArray carries an ordered array of resources of the slot's
	// element type. Cleanup dependencies expand per element.
	ArityArray
)

func (a Arity) String() string {
	if a == ArityArray {
		return "array"
	}
	return "single"
}

// Access describes the structural mutability of a slot.
type Access uint8

// Access modes.
const (
	// ReadOnly slots never mutate the resource they see. The compiler may
	// alias read-only consumers freely.
	ReadOnly Access = iota

	// WriteOnly slots produce or overwrite the resource.
	WriteOnly
)

func (a Access) String() string {
	if a == WriteOnly {
		return "write-only"
	}
	return "read-only"
}

// SlotDescriptor describes one typed connection point in a node type's
// schema. Descriptors are immutable once registered.
type SlotDescriptor struct {
	// Name is the slot name, unique among the node type's inputs or outputs.
	Name string

	// Type is the element type; for ArityArray slots it is the type of
	// each element.
	Type resource.Type

	// Arity is single or array.
	Arity Arity

	// Roles is the role bitmask. Inputs default to RoleDependency,
	// outputs to RoleOutput, when left zero.
	Roles Role

	// Access is the structural mutability.
	Access Access

	// Optional inputs may be left unconnected. Required inputs must have
	// exactly one connection (per array element, for array slots).
	Optional bool
}

func (d SlotDescriptor) String() string {
	return fmt.Sprintf("%s:%s/%s", d.Name, d.Type, d.Arity)
}

// Schema is the ordered slot layout of a node type.
type Schema struct {
	// Inputs are the consuming slots, in declaration order.
	Inputs []SlotDescriptor

	// Outputs are the producing slots, in declaration order.
	Outputs []SlotDescriptor
}

// InputIndex returns the index of the named input slot, or -1.
func (s *Schema) InputIndex(name string) int {
	for i := range s.Inputs {
		if s.Inputs[i].Name == name {
			return i
		}
	}
	return -1
}

// OutputIndex returns the index of the named output slot, or -1.
func (s *Schema) OutputIndex(name string) int {
	for i := range s.Outputs {
		if s.Outputs[i].Name == name {
			return i
		}
	}
	return -1
}

// validate checks the schema for duplicate slot names and missing types.
func (s *Schema) validate() error {
	seen := make(map[string]bool, len(s.Inputs))
	for i := range s.Inputs {
		d := &s.Inputs[i]
		if d.Name == "" || seen[d.Name] {
			return fmt.Errorf("framegraph: invalid input slot %q: empty or duplicate name", d.Name)
		}
		seen[d.Name] = true
		if d.Type.Kind == resource.KindInvalid {
			return fmt.Errorf("framegraph: input slot %q has no element type", d.Name)
		}
	}
	seen = make(map[string]bool, len(s.Outputs))
	for i := range s.Outputs {
		d := &s.Outputs[i]
		if d.Name == "" || seen[d.Name] {
			return fmt.Errorf("framegraph: invalid output slot %q: empty or duplicate name", d.Name)
		}
		seen[d.Name] = true
		if d.Type.Kind == resource.KindInvalid {
			return fmt.Errorf("framegraph: output slot %q has no element type", d.Name)
		}
	}
	return nil
}

// normalized returns a deep copy with zero-value roles filled in, so that
// registered node types never alias caller-owned slices.
func (s Schema) normalized() Schema {
	out := Schema{
		Inputs:  append([]SlotDescriptor(nil), s.Inputs...),
		Outputs: append([]SlotDescriptor(nil), s.Outputs...),
	}
	for i := range out.Inputs {
		if out.Inputs[i].Roles == 0 {
			out.Inputs[i].Roles = RoleDependency
		}
	}
	for i := range out.Outputs {
		out.Outputs[i].Roles |= RoleOutput
		out.Outputs[i].Access = WriteOnly
	}
	return out
}

// typesCompatible applies the fixed connection rule order:
//
//  1. exact type match;
//  2. reference unwrapping: a borrowed-reference source satisfies an owned
//     destination of the same kind;
//  3. container element-wise match: an array source satisfies an array
//     destination when the element types pass rules 1 or 2.
//
// A single source may additionally feed one element of an array destination
// (indexed fan-in); an array source never satisfies a single destination.
// Anything else is incompatible; compatibility is decided entirely at
// connect time.
func typesCompatible(src, dst SlotDescriptor) bool {
	if src.Arity == ArityArray && dst.Arity == AritySingle {
		return false
	}
	return elementCompatible(src.Type, dst.Type)
}

func elementCompatible(src, dst resource.Type) bool {
	if src == dst {
		return true
	}
	if src.Ref && !dst.Ref && src.Kind == dst.Kind {
		return true
	}
	return false
}
