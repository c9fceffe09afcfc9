package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph/resource"
)

func newTestGraph(t *testing.T, opts ...Option) (*Graph, *mockDevice) {
	t.Helper()
	dev := newMockDevice()
	g, err := New(dev, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, dev
}

// arrayProducerType registers a node type producing an array of buffers.
func arrayProducerType(t *testing.T, r *Registry, name string, count int) {
	t.Helper()
	mustType(t, r, name, Schema{
		Outputs: []SlotDescriptor{
			{Name: "out", Type: resource.TypeOf(resource.KindBuffer), Arity: ArityArray},
		},
	}, func() Node {
		return &testBody{compile: func(ctx *CompileContext) error {
			rs := make([]*resource.Resource, count)
			for i := range rs {
				desc := &resource.BufferDescriptor{Size: uint64(16 * (i + 1)), Usage: resource.BufferUsageStorage}
				id, err := ctx.Device.CreateBuffer(desc)
				if err != nil {
					return err
				}
				rs[i] = resource.NewBuffer(ctx.Node.Name(), id, desc)
			}
			return ctx.SetOutputs("out", rs)
		}}
	})
}

// arrayConsumerType registers a node type with one required array input.
func arrayConsumerType(t *testing.T, r *Registry, name string) {
	t.Helper()
	mustType(t, r, name, Schema{
		Inputs: []SlotDescriptor{
			{Name: "in", Type: resource.TypeOf(resource.KindBuffer), Arity: ArityArray},
		},
	}, func() Node { return &testBody{} })
}

func TestConnectRejections(t *testing.T) {
	g, _ := newTestGraph(t)
	producerType(t, g.Registry(), "producer")
	consumerType(t, g.Registry(), "consumer", false)
	arrayProducerType(t, g.Registry(), "array_producer", 2)
	arrayConsumerType(t, g.Registry(), "array_consumer")

	mustType(t, g.Registry(), "image_producer", Schema{
		Outputs: []SlotDescriptor{{Name: "out", Type: resource.TypeOf(resource.KindImage)}},
	}, func() Node { return &testBody{} })

	p, _ := g.AddNode("producer", "p")
	c, _ := g.AddNode("consumer", "c")
	ap, _ := g.AddNode("array_producer", "ap")
	ac, _ := g.AddNode("array_consumer", "ac")
	ip, _ := g.AddNode("image_producer", "ip")

	tests := []struct {
		name string
		call func() error
	}{
		{"nil source", func() error { return g.Connect(nil, "out", c, "in") }},
		{"self connection", func() error { return g.Connect(c, "out", c, "in") }},
		{"unknown output slot", func() error { return g.Connect(p, "nope", c, "in") }},
		{"unknown input slot", func() error { return g.Connect(p, "out", c, "nope") }},
		{"type mismatch", func() error { return g.Connect(ip, "out", c, "in") }},
		{"array to single", func() error { return g.Connect(ap, "out", c, "in") }},
		{"element on single input", func() error { return g.ConnectElement(p, "out", c, "in", 1) }},
		{"negative element", func() error { return g.ConnectElement(p, "out", ac, "in", -1) }},
		{"element on whole-array connection", func() error { return g.ConnectElement(ap, "out", ac, "in", 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var cerr *ConnectionError
			if !errors.As(err, &cerr) {
				t.Fatalf("got %v, want *ConnectionError", err)
			}
		})
	}
}

func TestConnectDuplicateElement(t *testing.T) {
	g, _ := newTestGraph(t)
	producerType(t, g.Registry(), "producer")
	consumerType(t, g.Registry(), "consumer", false)

	p1, _ := g.AddNode("producer", "p1")
	p2, _ := g.AddNode("producer", "p2")
	c, _ := g.AddNode("consumer", "c")

	if err := g.Connect(p1, "out", c, "in"); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	err := g.Connect(p2, "out", c, "in")
	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("second connect = %v, want *ConnectionError", err)
	}
}

func TestConnectArraySourceOccupiesWholeSlot(t *testing.T) {
	g, _ := newTestGraph(t)
	producerType(t, g.Registry(), "producer")
	arrayProducerType(t, g.Registry(), "array_producer", 2)
	arrayConsumerType(t, g.Registry(), "array_consumer")

	p, _ := g.AddNode("producer", "p")
	ap, _ := g.AddNode("array_producer", "ap")
	ac, _ := g.AddNode("array_consumer", "ac")

	if err := g.Connect(ap, "out", ac, "in"); err != nil {
		t.Fatalf("whole-array connect: %v", err)
	}
	// Any further connection into the slot collides with the array source.
	err := g.ConnectElement(p, "out", ac, "in", 1)
	var cerr *ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("fan-in over array source = %v, want *ConnectionError", err)
	}
}

func TestConnectIndexedFanIn(t *testing.T) {
	g, _ := newTestGraph(t)
	producerType(t, g.Registry(), "producer")
	arrayConsumerType(t, g.Registry(), "array_consumer")

	p0, _ := g.AddNode("producer", "p0")
	p1, _ := g.AddNode("producer", "p1")
	ac, _ := g.AddNode("array_consumer", "ac")

	if err := g.ConnectElement(p0, "out", ac, "in", 0); err != nil {
		t.Fatalf("element 0: %v", err)
	}
	if err := g.ConnectElement(p1, "out", ac, "in", 1); err != nil {
		t.Fatalf("element 1: %v", err)
	}
	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	in := ac.inputs[0]
	if len(in) != 2 {
		t.Fatalf("array input has %d elements, want 2", len(in))
	}
	if in[0].Label() != "p0" || in[1].Label() != "p1" {
		t.Errorf("array input order = [%s %s], want [p0 p1]", in[0].Label(), in[1].Label())
	}
}

func TestConnectRefUnwrap(t *testing.T) {
	g, _ := newTestGraph(t)
	mustType(t, g.Registry(), "surface_source", Schema{
		Outputs: []SlotDescriptor{{Name: "out", Type: resource.RefOf(resource.KindSurface)}},
	}, func() Node {
		return &testBody{compile: func(ctx *CompileContext) error {
			return ctx.SetOutput("out", resource.NewSurfaceRef(ctx.Node.Name(), 7))
		}}
	})
	mustType(t, g.Registry(), "surface_sink", Schema{
		Inputs: []SlotDescriptor{{Name: "in", Type: resource.TypeOf(resource.KindSurface)}},
	}, func() Node { return &testBody{} })

	src, _ := g.AddNode("surface_source", "src")
	dst, _ := g.AddNode("surface_sink", "dst")
	if err := g.Connect(src, "out", dst, "in"); err != nil {
		t.Fatalf("ref connect: %v", err)
	}
	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
}
