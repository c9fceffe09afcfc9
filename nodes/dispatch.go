package nodes

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
)

// ComputeDispatch binds its input buffers as a descriptor set and records a
// compute dispatch into a retained command stream.
//
// Parameters:
//
//	groups_x, groups_y, groups_z  dispatch dimensions, default 1
//
// The default strategy is RecordOnceAndReuse: the stream is recorded on the
// first frame and resubmitted afterwards. Switch to RecordEveryFrame for
// dispatch dimensions that change per frame.
type ComputeDispatch struct {
	set    resource.DescriptorSetID
	stream resource.CommandStreamID
}

func registerComputeDispatch(r *framegraph.Registry) error {
	t, err := framegraph.NewNodeType(TypeComputeDispatch, framegraph.Schema{
		Inputs: []framegraph.SlotDescriptor{
			{
				Name:  "pipeline",
				Type:  resource.TypeOf(resource.KindPipeline),
				Roles: framegraph.RoleDependency | framegraph.RoleExecute,
			},
			{
				Name:  "buffers",
				Type:  resource.TypeOf(resource.KindBuffer),
				Arity: framegraph.ArityArray,
				Roles: framegraph.RoleDependency | framegraph.RoleExecute,
			},
		},
		Outputs: []framegraph.SlotDescriptor{
			{Name: "stream", Type: resource.TypeOf(resource.KindCommandStream)},
		},
	}, func() framegraph.Node { return &ComputeDispatch{} })
	if err != nil {
		return err
	}
	t.SetDefaultStrategy(framegraph.RecordOnceAndReuse)
	return r.Register(t)
}

func (d *ComputeDispatch) Setup(*framegraph.SetupContext) error { return nil }

func (d *ComputeDispatch) Compile(ctx *framegraph.CompileContext) error {
	buffers := ctx.Inputs("buffers")
	ids := make([]resource.BufferID, 0, len(buffers))
	for _, r := range buffers {
		id, ok := r.Buffer()
		if !ok {
			return fmt.Errorf("nodes: %s: input %s is not a buffer", ctx.Node.Name(), r)
		}
		ids = append(ids, id)
	}

	set, err := ctx.Device.CreateDescriptorSet(ctx.Node.Name(), ids)
	if err != nil {
		return fmt.Errorf("nodes: %s: %w", ctx.Node.Name(), err)
	}
	stream, err := ctx.Device.CreateCommandStream(ctx.Node.Name())
	if err != nil {
		ctx.Device.DestroyDescriptorSet(set)
		return fmt.Errorf("nodes: %s: %w", ctx.Node.Name(), err)
	}
	d.set = set
	d.stream = stream

	return ctx.SetOutput("stream", resource.NewCommandStream(ctx.Node.Name(), stream))
}

func (d *ComputeDispatch) Execute(ctx *framegraph.ExecuteContext) error {
	pr := ctx.Input("pipeline")
	pipeline, ok := pr.Pipeline()
	if !ok {
		return fmt.Errorf("nodes: %s: pipeline input is %s", ctx.Node.Name(), pr)
	}

	ctx.Device.ResetCommandStream(d.stream)
	//nolint:gosec // dispatch dimensions are bounded by GPU limits
	err := ctx.Device.RecordDispatch(d.stream, pipeline, d.set,
		uint32(framegraph.Param(ctx.Node, "groups_x", 1)),
		uint32(framegraph.Param(ctx.Node, "groups_y", 1)),
		uint32(framegraph.Param(ctx.Node, "groups_z", 1)))
	if err != nil {
		return err
	}

	ctx.Submit(d.stream)
	return nil
}

func (d *ComputeDispatch) Cleanup(ctx *framegraph.CleanupContext) error {
	if d.stream != resource.InvalidID {
		ctx.Device.DestroyCommandStream(d.stream)
		d.stream = resource.InvalidID
	}
	if d.set != resource.InvalidID {
		ctx.Device.DestroyDescriptorSet(d.set)
		d.set = resource.InvalidID
	}
	return nil
}
