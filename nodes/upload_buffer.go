package nodes

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
)

// UploadBuffer owns one host-writable GPU buffer and uploads the "data"
// parameter into it. The initial upload happens at compile time; with the
// RecordEveryFrame strategy the node re-uploads the current parameter value
// each frame, so hosts can stream per-frame data by updating the parameter.
//
// Parameters:
//
//	size   buffer size in bytes; defaults to len(data)
//	data   []byte payload to upload (optional when size is set)
//	usage  additional resource.BufferUsage bits; storage|copy-dst is implied
type UploadBuffer struct {
	id   resource.BufferID
	size uint64
}

func registerUploadBuffer(r *framegraph.Registry) error {
	t, err := framegraph.NewNodeType(TypeUploadBuffer, framegraph.Schema{
		Outputs: []framegraph.SlotDescriptor{
			{Name: "buffer", Type: resource.TypeOf(resource.KindBuffer)},
		},
	}, func() framegraph.Node { return &UploadBuffer{} })
	if err != nil {
		return err
	}
	t.SetDefaultStrategy(framegraph.RecordOnceAndReuse)
	return r.Register(t)
}

func (u *UploadBuffer) Setup(*framegraph.SetupContext) error { return nil }

func (u *UploadBuffer) Compile(ctx *framegraph.CompileContext) error {
	data := framegraph.Param[[]byte](ctx.Node, "data", nil)
	size := uint64(framegraph.Param(ctx.Node, "size", 0))
	if size == 0 {
		size = uint64(len(data))
	}
	if size == 0 {
		return fmt.Errorf("nodes: %s has neither size nor data", ctx.Node.Name())
	}

	desc := &resource.BufferDescriptor{
		Label:       ctx.Node.Name(),
		Size:        size,
		Usage:       resource.BufferUsageStorage | resource.BufferUsageCopyDst | framegraph.Param[resource.BufferUsage](ctx.Node, "usage", 0),
		HostVisible: true,
	}
	id, err := ctx.Device.CreateBuffer(desc)
	if err != nil {
		return fmt.Errorf("nodes: %s: %w", ctx.Node.Name(), err)
	}
	u.id = id
	u.size = size

	if len(data) > 0 {
		ctx.Device.WriteBuffer(id, 0, data)
	}
	return ctx.SetOutput("buffer", resource.NewBuffer(ctx.Node.Name(), id, desc))
}

func (u *UploadBuffer) Execute(ctx *framegraph.ExecuteContext) error {
	data := framegraph.Param[[]byte](ctx.Node, "data", nil)
	if len(data) == 0 {
		return nil
	}
	if uint64(len(data)) > u.size {
		return fmt.Errorf("nodes: %s: data (%d bytes) exceeds buffer size %d",
			ctx.Node.Name(), len(data), u.size)
	}
	ctx.Device.WriteBuffer(u.id, 0, data)
	return nil
}

func (u *UploadBuffer) Cleanup(ctx *framegraph.CleanupContext) error {
	if u.id != resource.InvalidID {
		ctx.Device.DestroyBuffer(u.id)
		u.id = resource.InvalidID
	}
	return nil
}
