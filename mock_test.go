package framegraph

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/framegraph/device"
	"github.com/gogpu/framegraph/resource"
)

// mockFence is host-controlled: tests flip signaled to model GPU progress.
type mockFence struct {
	mu       sync.Mutex
	signaled bool
	resets   int
}

func (f *mockFence) Signaled() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled, nil
}

func (f *mockFence) Wait(time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return true, nil
}

func (f *mockFence) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = false
	f.resets++
	return nil
}

func (f *mockFence) signal() {
	f.mu.Lock()
	f.signaled = true
	f.mu.Unlock()
}

// mockDevice implements device.Device entirely in memory and keeps an event
// log so tests can assert creation and destruction order.
type mockDevice struct {
	mu     sync.Mutex
	nextID uint64

	log     []string
	submits [][]resource.CommandStreamID
	fences  []*mockFence

	failPipelines bool
	pipelineCount int
}

func newMockDevice() *mockDevice {
	return &mockDevice{nextID: 1}
}

func (d *mockDevice) record(format string, args ...any) {
	d.log = append(d.log, fmt.Sprintf(format, args...))
}

func (d *mockDevice) events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

func (d *mockDevice) id() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

func (d *mockDevice) Capabilities() device.Capabilities {
	return device.Capabilities{DeviceName: "mock", SupportsCompute: true}
}

func (d *mockDevice) CreateBuffer(desc *resource.BufferDescriptor) (resource.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := resource.BufferID(d.id())
	d.record("create buffer %d", id)
	return id, nil
}

func (d *mockDevice) DestroyBuffer(id resource.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("destroy buffer %d", id)
}

func (d *mockDevice) WriteBuffer(id resource.BufferID, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("write buffer %d +%d %dB", id, offset, len(data))
}

func (d *mockDevice) CreateImage(desc *resource.ImageDescriptor) (resource.ImageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := resource.ImageID(d.id())
	d.record("create image %d", id)
	return id, nil
}

func (d *mockDevice) DestroyImage(id resource.ImageID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("destroy image %d", id)
}

func (d *mockDevice) WriteImage(id resource.ImageID, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("write image %d %dB", id, len(data))
}

func (d *mockDevice) CreateShaderModule(spirv []uint32, label string) (resource.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := resource.ShaderModuleID(d.id())
	d.record("create shader %d", id)
	return id, nil
}

func (d *mockDevice) DestroyShaderModule(id resource.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("destroy shader %d", id)
}

func (d *mockDevice) CreatePipeline(desc *resource.PipelineDescriptor, module resource.ShaderModuleID) (resource.PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failPipelines {
		return resource.InvalidID, fmt.Errorf("mock: pipeline creation disabled")
	}
	id := resource.PipelineID(d.id())
	d.pipelineCount++
	d.record("create pipeline %d", id)
	return id, nil
}

func (d *mockDevice) DestroyPipeline(id resource.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("destroy pipeline %d", id)
}

func (d *mockDevice) CreateDescriptorSet(label string, buffers []resource.BufferID) (resource.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := resource.DescriptorSetID(d.id())
	d.record("create set %d", id)
	return id, nil
}

func (d *mockDevice) DestroyDescriptorSet(id resource.DescriptorSetID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("destroy set %d", id)
}

func (d *mockDevice) CreateCommandStream(label string) (resource.CommandStreamID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := resource.CommandStreamID(d.id())
	d.record("create stream %d", id)
	return id, nil
}

func (d *mockDevice) DestroyCommandStream(id resource.CommandStreamID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("destroy stream %d", id)
}

func (d *mockDevice) ResetCommandStream(id resource.CommandStreamID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("reset stream %d", id)
}

func (d *mockDevice) RecordDispatch(stream resource.CommandStreamID, pipeline resource.PipelineID,
	set resource.DescriptorSetID, gx, gy, gz uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("dispatch stream %d %dx%dx%d", stream, gx, gy, gz)
	return nil
}

func (d *mockDevice) CreateFence() (device.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := &mockFence{}
	d.fences = append(d.fences, f)
	return f, nil
}

func (d *mockDevice) DestroyFence(f device.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("destroy fence")
}

func (d *mockDevice) Submit(streams []resource.CommandStreamID, f device.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submits = append(d.submits, append([]resource.CommandStreamID(nil), streams...))
	if mf, ok := f.(*mockFence); ok {
		mf.signal()
	}
	return nil
}

func (d *mockDevice) WaitIdle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("wait idle")
}

// testBody is a Node whose phases delegate to optional callbacks.
type testBody struct {
	compile func(*CompileContext) error
	execute func(*ExecuteContext) error
	cleanup func(*CleanupContext) error
}

func (b *testBody) Setup(*SetupContext) error { return nil }

func (b *testBody) Compile(ctx *CompileContext) error {
	if b.compile != nil {
		return b.compile(ctx)
	}
	return nil
}

func (b *testBody) Execute(ctx *ExecuteContext) error {
	if b.execute != nil {
		return b.execute(ctx)
	}
	return nil
}

func (b *testBody) Cleanup(ctx *CleanupContext) error {
	if b.cleanup != nil {
		return b.cleanup(ctx)
	}
	return nil
}

// mustType registers a node type backed by testBody callbacks.
func mustType(t interface{ Fatalf(string, ...any) }, r *Registry, name string, schema Schema, factory Factory) *NodeType {
	nt, err := NewNodeType(name, schema, factory)
	if err != nil {
		t.Fatalf("NewNodeType(%s): %v", name, err)
	}
	if err := r.Register(nt); err != nil {
		t.Fatalf("Register(%s): %v", name, err)
	}
	return nt
}

// producerType registers a single-buffer producer node type.
func producerType(t interface{ Fatalf(string, ...any) }, r *Registry, name string) {
	mustType(t, r, name, Schema{
		Outputs: []SlotDescriptor{
			{Name: "out", Type: resource.TypeOf(resource.KindBuffer)},
		},
	}, func() Node {
		return &testBody{compile: func(ctx *CompileContext) error {
			desc := &resource.BufferDescriptor{Label: ctx.Node.Name(), Size: 64, Usage: resource.BufferUsageStorage}
			id, err := ctx.Device.CreateBuffer(desc)
			if err != nil {
				return err
			}
			return ctx.SetOutput("out", resource.NewBuffer(ctx.Node.Name(), id, desc))
		}}
	})
}

// consumerType registers a node type with one required buffer input.
func consumerType(t interface{ Fatalf(string, ...any) }, r *Registry, name string, optional bool) {
	mustType(t, r, name, Schema{
		Inputs: []SlotDescriptor{
			{Name: "in", Type: resource.TypeOf(resource.KindBuffer), Optional: optional},
		},
		Outputs: []SlotDescriptor{
			{Name: "out", Type: resource.TypeOf(resource.KindBuffer)},
		},
	}, func() Node {
		return &testBody{compile: func(ctx *CompileContext) error {
			desc := &resource.BufferDescriptor{Label: ctx.Node.Name(), Size: 64, Usage: resource.BufferUsageStorage}
			id, err := ctx.Device.CreateBuffer(desc)
			if err != nil {
				return err
			}
			return ctx.SetOutput("out", resource.NewBuffer(ctx.Node.Name(), id, desc))
		}}
	})
}
