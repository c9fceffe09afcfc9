package shader

import "testing"

func TestFromSPIRVDigestDeterministic(t *testing.T) {
	words := []uint32{0x07230203, 0x00010000, 0xdeadbeef}

	a := FromSPIRV(words)
	b := FromSPIRV(words)
	if a.Digest() != b.Digest() {
		t.Error("identical bytecode produced different digests")
	}
	if a.Digest() != a.Hash() {
		t.Error("Hash() disagrees with Digest()")
	}

	c := FromSPIRV([]uint32{0x07230203, 0x00010000, 0xcafebabe})
	if a.Digest() == c.Digest() {
		t.Error("different bytecode shares a digest")
	}
}

func TestFromSPIRVCopiesInput(t *testing.T) {
	words := []uint32{1, 2, 3}
	m := FromSPIRV(words)
	words[0] = 99

	if m.SPIRV()[0] != 1 {
		t.Error("module aliases the caller's slice")
	}
}

func TestModuleEqual(t *testing.T) {
	a := FromSPIRV([]uint32{1, 2, 3})
	b := FromSPIRV([]uint32{1, 2, 3})
	c := FromSPIRV([]uint32{1, 2, 4})
	d := FromSPIRV([]uint32{1, 2})

	if !a.Equal(b) {
		t.Error("identical modules compare unequal")
	}
	if a.Equal(c) {
		t.Error("differing bytecode compares equal")
	}
	if a.Equal(d) {
		t.Error("differing length compares equal")
	}
	if a.Equal("not a module") {
		t.Error("foreign type compares equal")
	}
}

func TestCompileRejectsInvalidSource(t *testing.T) {
	if _, err := Compile("fn broken syntax {{{"); err == nil {
		t.Error("Compile accepted invalid WGSL")
	}
}
