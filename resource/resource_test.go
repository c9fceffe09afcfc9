package resource

import "testing"

func TestKindAccessors(t *testing.T) {
	desc := &BufferDescriptor{Size: 256, Usage: BufferUsageStorage}
	r := NewBuffer("verts", 5, desc)

	if id, ok := r.Buffer(); !ok || id != 5 {
		t.Errorf("Buffer() = %d, %v; want 5, true", id, ok)
	}
	if _, ok := r.Image(); ok {
		t.Error("Image() succeeded on a buffer resource")
	}
	if _, ok := r.Pipeline(); ok {
		t.Error("Pipeline() succeeded on a buffer resource")
	}
	if r.BufferDesc() != desc {
		t.Error("BufferDesc() lost the descriptor")
	}
	if r.PipelineDesc() != nil {
		t.Error("PipelineDesc() on a buffer is non-nil")
	}
}

func TestRefSharesHandleChangesType(t *testing.T) {
	r := NewBuffer("shared", 9, &BufferDescriptor{Size: 16})
	ref := r.Ref()

	if !ref.Type().Ref {
		t.Error("Ref() did not produce a reference type")
	}
	if ref.Kind() != KindBuffer {
		t.Errorf("ref kind = %v, want buffer", ref.Kind())
	}
	if ref.Handle() != r.Handle() {
		t.Error("ref does not share the handle")
	}
	if id, ok := ref.Buffer(); !ok || id != 9 {
		t.Errorf("ref Buffer() = %d, %v; want 9, true", id, ok)
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeOf(KindBuffer), "buffer"},
		{RefOf(KindSurface), "&surface"},
		{TypeOf(KindCommandStream), "command-stream"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDataResource(t *testing.T) {
	payload := []float32{1, 2, 3}
	r := NewData("samples", payload)

	got, ok := r.Data()
	if !ok {
		t.Fatal("Data() = false on a data resource")
	}
	if len(got.([]float32)) != 3 {
		t.Errorf("payload = %v, want 3 samples", got)
	}
	if r.Handle() != InvalidID {
		t.Errorf("data resource handle = %d, want invalid", r.Handle())
	}
}

func TestResourceString(t *testing.T) {
	labeled := NewBuffer("verts", 1, nil)
	if got := labeled.String(); got != `buffer("verts")` {
		t.Errorf("String() = %q", got)
	}
	unlabeled := NewShaderModule("", 3)
	if got := unlabeled.String(); got != "shader-module(#3)" {
		t.Errorf("String() = %q", got)
	}
}
