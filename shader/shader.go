// Package shader compiles WGSL shader source to SPIR-V and exposes the
// binary-interface metadata (descriptor layouts, constant ranges) that the
// graph compiler consumes during resource allocation.
//
// Compilation goes through github.com/gogpu/naga. Reflection is supplied by
// a collaborator implementing Reflector; the frame graph only consumes the
// metadata, it does not parse shaders itself.
package shader

import (
	"fmt"
	"hash/fnv"

	"github.com/gogpu/naga"
)

// Module is a compiled shader: the WGSL source, the emitted SPIR-V words,
// and a content digest of the bytecode used for cache keys.
type Module struct {
	source string
	spirv  []uint32
	digest uint64
}

// Compile compiles WGSL source to SPIR-V.
func Compile(wgsl string) (*Module, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("shader: compile failed: %w", err)
	}

	// Convert bytes to uint32 words for SPIR-V.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return &Module{source: wgsl, spirv: words, digest: digestWords(words)}, nil
}

// FromSPIRV wraps precompiled SPIR-V words in a Module.
// Useful for tests and for shaders compiled offline.
func FromSPIRV(words []uint32) *Module {
	w := make([]uint32, len(words))
	copy(w, words)
	return &Module{spirv: w, digest: digestWords(w)}
}

// Source returns the WGSL source, if the module was compiled from source.
func (m *Module) Source() string { return m.source }

// SPIRV returns the compiled SPIR-V words. Callers must not mutate the slice.
func (m *Module) SPIRV() []uint32 { return m.spirv }

// Digest returns a deterministic content hash of the bytecode.
// Equal bytecode always yields an equal digest, so the digest can seed
// content-addressed cache keys.
func (m *Module) Digest() uint64 { return m.digest }

// Hash returns the bytecode digest, letting a Module serve directly as a
// content-addressed cache key.
func (m *Module) Hash() uint64 { return m.digest }

// Equal reports whether other is a Module with identical bytecode.
func (m *Module) Equal(other any) bool {
	o, ok := other.(*Module)
	if !ok || len(m.spirv) != len(o.spirv) {
		return false
	}
	for i, w := range m.spirv {
		if o.spirv[i] != w {
			return false
		}
	}
	return true
}

func digestWords(words []uint32) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, w := range words {
		buf[0] = byte(w)
		buf[1] = byte(w >> 8)
		buf[2] = byte(w >> 16)
		buf[3] = byte(w >> 24)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
