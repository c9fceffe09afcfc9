package nodes

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/cache"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/framegraph/shader"
)

// ComputePipeline compiles WGSL source to SPIR-V and asks the graph's
// pipeline-generation phase for a (possibly shared) compute pipeline.
//
// Parameters:
//
//	source           WGSL compute shader source (required)
//	entry_point      entry point name, default "main"
//	storage_bindings number of storage-buffer bindings, default 1
//	reflector        optional shader.Reflector; when set, the binding count
//	                 comes from reflection metadata and storage_bindings is
//	                 ignored
//	label            debug label, defaults to the instance name
//
// The shader module is shared through the resource cache by bytecode digest:
// two pipeline nodes compiling identical source create one module.
type ComputePipeline struct {
	module   *shader.Module
	request  *framegraph.PipelineRequest
	pipeline *resource.Resource
}

func registerComputePipeline(r *framegraph.Registry) error {
	t, err := framegraph.NewNodeType(TypeComputePipeline, framegraph.Schema{
		Outputs: []framegraph.SlotDescriptor{
			{Name: "pipeline", Type: resource.TypeOf(resource.KindPipeline)},
		},
	}, func() framegraph.Node { return &ComputePipeline{} })
	if err != nil {
		return err
	}
	t.SetDefaultStrategy(framegraph.RecordOnceAndReuse)
	return r.Register(t)
}

func (p *ComputePipeline) Setup(*framegraph.SetupContext) error { return nil }

func (p *ComputePipeline) Compile(ctx *framegraph.CompileContext) error {
	source := framegraph.Param(ctx.Node, "source", "")
	if source == "" {
		return fmt.Errorf("nodes: %s has no shader source", ctx.Node.Name())
	}
	label := framegraph.Param(ctx.Node, "label", ctx.Node.Name())

	module, err := shader.Compile(source)
	if err != nil {
		return err
	}
	p.module = module

	dev := ctx.Device
	moduleRes, err := cache.GetOrCreateAs(ctx.Cache, module, func() (*resource.Resource, cache.Teardown, error) {
		id, err := dev.CreateShaderModule(module.SPIRV(), label)
		if err != nil {
			return nil, nil, err
		}
		return resource.NewShaderModule(label, id), func() { dev.DestroyShaderModule(id) }, nil
	})
	if err != nil {
		return err
	}
	moduleID, _ := moduleRes.ShaderModule()

	bindings, err := p.storageBindings(ctx)
	if err != nil {
		return err
	}
	p.request = &framegraph.PipelineRequest{
		Desc: &resource.PipelineDescriptor{
			Label:           label,
			ShaderDigest:    module.Digest(),
			EntryPoint:      framegraph.Param(ctx.Node, "entry_point", "main"),
			Compute:         true,
			StorageBindings: bindings,
		},
		Module: moduleID,
	}
	return nil
}

// storageBindings resolves the bind-group layout size: reflection metadata
// when a reflector is attached, the storage_bindings parameter otherwise.
func (p *ComputePipeline) storageBindings(ctx *framegraph.CompileContext) (uint32, error) {
	if refl := framegraph.Param[shader.Reflector](ctx.Node, "reflector", nil); refl != nil {
		meta, err := refl.Reflect(p.module)
		if err != nil {
			return 0, fmt.Errorf("nodes: %s: reflect shader: %w", ctx.Node.Name(), err)
		}
		var n uint32
		for _, b := range meta.Bindings {
			if b.Group == 0 && (b.Kind == shader.BindingStorageBuffer || b.Kind == shader.BindingReadOnlyStorageBuffer) {
				n++
			}
		}
		return n, nil
	}
	//nolint:gosec // binding counts are bounded by GPU limits
	return uint32(framegraph.Param(ctx.Node, "storage_bindings", 1)), nil
}

// PipelineRequest reports the pipeline state to the generation phase.
func (p *ComputePipeline) PipelineRequest() *framegraph.PipelineRequest { return p.request }

// SetPipeline receives the shared pipeline resource.
func (p *ComputePipeline) SetPipeline(r *resource.Resource) { p.pipeline = r }

func (p *ComputePipeline) Execute(*framegraph.ExecuteContext) error { return nil }

func (p *ComputePipeline) Cleanup(ctx *framegraph.CleanupContext) error {
	if p.module != nil {
		// Module and pipeline are cache entries; release the reference and
		// let the cache own destruction.
		ctx.Cache.Release(p.module)
		p.module = nil
	}
	if p.pipeline != nil {
		if desc := p.pipeline.PipelineDesc(); desc != nil {
			ctx.Cache.Release(desc)
		}
		p.pipeline = nil
	}
	p.request = nil
	return nil
}
