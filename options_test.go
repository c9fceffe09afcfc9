package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph/cache"
)

func TestNewRequiresDevice(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilDevice) {
		t.Fatalf("New(nil) = %v, want ErrNilDevice", err)
	}
}

func TestFramesInFlightClamped(t *testing.T) {
	g, _ := newTestGraph(t, WithFramesInFlight(0))
	if got := g.FramesInFlight(); got != MinFramesInFlight {
		t.Errorf("FramesInFlight = %d, want clamped to %d", got, MinFramesInFlight)
	}

	g2, _ := newTestGraph(t, WithFramesInFlight(3))
	if got := g2.FramesInFlight(); got != 3 {
		t.Errorf("FramesInFlight = %d, want 3", got)
	}
}

func TestWithRegistryShared(t *testing.T) {
	r := NewRegistry()
	producerType(t, r, "producer")

	g, _ := newTestGraph(t, WithRegistry(r))
	if g.Registry() != r {
		t.Fatal("graph did not adopt the shared registry")
	}
	if _, err := g.AddNode("producer", "p"); err != nil {
		t.Errorf("AddNode through shared registry: %v", err)
	}
}

func TestWithCacheNotOwned(t *testing.T) {
	shared := cache.NewStore()
	g, _ := newTestGraph(t, WithCache(shared))

	destroyed := false
	shared.GetOrCreate(&stubKey{h: 1}, func() (any, cache.Teardown, error) {
		return "v", func() { destroyed = true }, nil
	})

	if err := g.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	// A shared cache outlives any one graph.
	if destroyed {
		t.Error("graph teardown destroyed entries of a shared cache")
	}
	if shared.Len() != 1 {
		t.Errorf("shared cache Len = %d after graph teardown, want 1", shared.Len())
	}
}

func TestOwnedCacheTornDownWithGraph(t *testing.T) {
	g, _ := newTestGraph(t)

	destroyed := false
	g.Cache().GetOrCreate(&stubKey{h: 1}, func() (any, cache.Teardown, error) {
		return "v", func() { destroyed = true }, nil
	})

	if err := g.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !destroyed {
		t.Error("graph-owned cache survived teardown")
	}
}

type stubKey struct{ h uint64 }

func (k *stubKey) Hash() uint64 { return k.h }
func (k *stubKey) Equal(other any) bool {
	o, ok := other.(*stubKey)
	return ok && o.h == k.h
}
