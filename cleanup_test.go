package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph/event"
	"github.com/gogpu/framegraph/resource"
)

// chainGraph builds a -> b -> c with per-node cleanup recording.
func chainGraph(t *testing.T, opts ...Option) (*Graph, *mockDevice, *[]string) {
	t.Helper()
	g, dev := newTestGraph(t, opts...)
	cleaned := &[]string{}

	register := func(name string, hasInput bool) {
		schema := Schema{
			Outputs: []SlotDescriptor{{Name: "out", Type: resource.TypeOf(resource.KindBuffer)}},
		}
		if hasInput {
			schema.Inputs = []SlotDescriptor{{Name: "in", Type: resource.TypeOf(resource.KindBuffer)}}
		}
		mustType(t, g.Registry(), name, schema, func() Node {
			return &testBody{
				compile: func(ctx *CompileContext) error {
					desc := &resource.BufferDescriptor{Label: ctx.Node.Name(), Size: 32, Usage: resource.BufferUsageStorage}
					id, err := ctx.Device.CreateBuffer(desc)
					if err != nil {
						return err
					}
					return ctx.SetOutput("out", resource.NewBuffer(ctx.Node.Name(), id, desc))
				},
				cleanup: func(ctx *CleanupContext) error {
					*cleaned = append(*cleaned, ctx.Node.Name())
					return nil
				},
			}
		})
	}
	register("source", false)
	register("stage", true)

	a, _ := g.AddNode("source", "a")
	b, _ := g.AddNode("stage", "b")
	c, _ := g.AddNode("stage", "c")
	if err := g.Connect(a, "out", b, "in"); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if err := g.Connect(b, "out", c, "in"); err != nil {
		t.Fatalf("connect b->c: %v", err)
	}
	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return g, dev, cleaned
}

func TestCleanupOrderConsumersFirst(t *testing.T) {
	g, _, cleaned := chainGraph(t)
	if err := g.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	want := []string{"c", "b", "a"}
	if len(*cleaned) != len(want) {
		t.Fatalf("cleaned %v, want %v", *cleaned, want)
	}
	for i := range want {
		if (*cleaned)[i] != want[i] {
			t.Fatalf("cleaned %v, want %v", *cleaned, want)
		}
	}
}

func TestCleanupRequestMarksUncompiledTargetDirty(t *testing.T) {
	g, _, cleaned := chainGraph(t)

	// Added after Compile: no resources, no cleanup entry yet.
	late, err := g.AddNode("source", "late")
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	if err := g.RequestCleanup(CleanupRequest{Scope: ScopeSpecific, Node: "late"}); err != nil {
		t.Fatalf("RequestCleanup: %v", err)
	}
	if len(*cleaned) != 0 {
		t.Fatalf("cleaned %v, want no cleanup bodies to run", *cleaned)
	}
	// Even without an entry the target must be revisited by the next compile.
	if !late.Dirty() {
		t.Error("matched target without a cleanup entry was not marked dirty")
	}
	if _, in := g.dirty[late]; !in {
		t.Error("matched target missing from the graph's dirty set")
	}
}

func TestScopedCleanupExpandsDownstream(t *testing.T) {
	g, _, cleaned := chainGraph(t)
	a, b, c := g.Node("a"), g.Node("b"), g.Node("c")

	if err := g.RequestCleanup(CleanupRequest{Scope: ScopeSpecific, Node: "b"}); err != nil {
		t.Fatalf("RequestCleanup: %v", err)
	}

	want := []string{"c", "b"}
	if len(*cleaned) != 2 || (*cleaned)[0] != want[0] || (*cleaned)[1] != want[1] {
		t.Fatalf("cleaned %v, want %v", *cleaned, want)
	}

	if !a.Healthy() {
		t.Error("untouched producer became unhealthy")
	}
	for _, n := range []*NodeInstance{b, c} {
		if n.Healthy() {
			t.Errorf("cleaned node %s still healthy", n.Name())
		}
		if !n.Dirty() {
			t.Errorf("cleaned node %s not marked dirty", n.Name())
		}
	}

	// Recompile restores the cleaned subgraph; the untouched producer keeps
	// its resource identity.
	aOut := a.Output("out")
	if err := g.Compile(); err != nil {
		t.Fatalf("recompile: %v", err)
	}
	if a.Output("out") != aOut {
		t.Error("untouched producer reallocated during recompile")
	}
	if !b.Healthy() || !c.Healthy() {
		t.Error("cleaned nodes not restored by recompile")
	}
}

func TestScopedCleanupByTagAndType(t *testing.T) {
	g, _, cleaned := chainGraph(t)
	g.Node("c").AddTag("transient")

	if err := g.RequestCleanup(CleanupRequest{Scope: ScopeByTag, Tag: "transient"}); err != nil {
		t.Fatalf("by-tag: %v", err)
	}
	if len(*cleaned) != 1 || (*cleaned)[0] != "c" {
		t.Fatalf("by-tag cleaned %v, want [c]", *cleaned)
	}

	*cleaned = nil
	if err := g.RequestCleanup(CleanupRequest{Scope: ScopeByType, TypeName: "source"}); err != nil {
		t.Fatalf("by-type: %v", err)
	}
	// Cleaning the source invalidates its whole downstream chain; c was
	// already cleaned and has no entry left.
	want := []string{"b", "a"}
	if len(*cleaned) != 2 || (*cleaned)[0] != want[0] || (*cleaned)[1] != want[1] {
		t.Fatalf("by-type cleaned %v, want %v", *cleaned, want)
	}
}

func TestCleanupRequestNoMatchIsNoOp(t *testing.T) {
	g, _, cleaned := chainGraph(t)
	if err := g.RequestCleanup(CleanupRequest{Scope: ScopeSpecific, Node: "ghost"}); err != nil {
		t.Fatalf("RequestCleanup: %v", err)
	}
	if len(*cleaned) != 0 {
		t.Errorf("cleaned %v, want none", *cleaned)
	}
}

func TestFullCleanupTearsDownAndRejects(t *testing.T) {
	g, dev, _ := chainGraph(t)
	g.RenderFrame()

	if err := g.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	for _, n := range g.Nodes() {
		if n.State() != StateCleaned {
			t.Errorf("node %s state = %v, want cleaned", n.Name(), n.State())
		}
	}
	if countEvents(dev, "wait idle") == 0 {
		t.Error("Cleanup did not drain the device")
	}
	if countEvents(dev, "destroy fence") == 0 {
		t.Error("Cleanup did not release the frame ring")
	}

	// Idempotent.
	if err := g.Cleanup(); err != nil {
		t.Fatalf("second Cleanup = %v, want nil", err)
	}

	if _, err := g.AddNode("source", "late"); !errors.Is(err, ErrGraphTornDown) {
		t.Errorf("AddNode after teardown = %v, want ErrGraphTornDown", err)
	}
	if err := g.RenderFrame(); !errors.Is(err, ErrGraphTornDown) {
		t.Errorf("RenderFrame after teardown = %v, want ErrGraphTornDown", err)
	}
	if err := g.RequestCleanup(CleanupRequest{Scope: ScopeSpecific, Node: "a"}); !errors.Is(err, ErrGraphTornDown) {
		t.Errorf("RequestCleanup after teardown = %v, want ErrGraphTornDown", err)
	}
}

func TestFullCleanupCollectsAllErrors(t *testing.T) {
	g, _ := newTestGraph(t)
	mustType(t, g.Registry(), "grumpy", Schema{}, func() Node {
		return &testBody{cleanup: func(ctx *CleanupContext) error {
			return errors.New(ctx.Node.Name() + " refused")
		}}
	})
	g.AddNode("grumpy", "x")
	g.AddNode("grumpy", "y")
	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	err := g.Cleanup()
	if err == nil {
		t.Fatal("Cleanup = nil, want joined errors")
	}
	for _, name := range []string{"x", "y"} {
		if !containsString(err.Error(), name+" refused") {
			t.Errorf("joined error %q missing failure of %s", err, name)
		}
	}
}

func containsString(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestEventBusInvalidationTriggersCleanup(t *testing.T) {
	bus := event.NewBus()
	g, _, cleaned := chainGraph(t, WithEventBus(bus))

	bus.Publish(event.Event{
		Topic:   TopicInvalidate,
		Payload: CleanupRequest{Scope: ScopeSpecific, Node: "c"},
	})
	if len(*cleaned) != 1 || (*cleaned)[0] != "c" {
		t.Fatalf("cleaned %v after invalidate event, want [c]", *cleaned)
	}

	// Unexpected payloads are ignored, not fatal.
	bus.Publish(event.Event{Topic: TopicInvalidate, Payload: "resize"})
	if len(*cleaned) != 1 {
		t.Errorf("cleaned %v after bogus payload, want unchanged", *cleaned)
	}

	// Teardown unsubscribes: later events must not reach a dead graph.
	if err := g.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	bus.Publish(event.Event{
		Topic:   TopicInvalidate,
		Payload: CleanupRequest{Scope: ScopeFull},
	})
}
