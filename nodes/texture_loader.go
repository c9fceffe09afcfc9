package nodes

import (
	"bytes"
	"fmt"
	"image"
	"os"

	// Decoders for the common interchange formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
)

// TextureLoader decodes an encoded image (PNG, JPEG, BMP, TIFF) and uploads
// it as an RGBA8 GPU image.
//
// Parameters:
//
//	path  file to load
//	data  []byte with encoded image bytes; takes precedence over path
type TextureLoader struct {
	id resource.ImageID
}

func registerTextureLoader(r *framegraph.Registry) error {
	t, err := framegraph.NewNodeType(TypeTextureLoader, framegraph.Schema{
		Outputs: []framegraph.SlotDescriptor{
			{Name: "image", Type: resource.TypeOf(resource.KindImage)},
		},
	}, func() framegraph.Node { return &TextureLoader{} })
	if err != nil {
		return err
	}
	t.SetDefaultStrategy(framegraph.RecordOnceAndReuse)
	return r.Register(t)
}

func (t *TextureLoader) Setup(*framegraph.SetupContext) error { return nil }

func (t *TextureLoader) Compile(ctx *framegraph.CompileContext) error {
	raw := framegraph.Param[[]byte](ctx.Node, "data", nil)
	if raw == nil {
		path := framegraph.Param(ctx.Node, "path", "")
		if path == "" {
			return fmt.Errorf("nodes: %s has neither data nor path", ctx.Node.Name())
		}
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("nodes: %s: %w", ctx.Node.Name(), err)
		}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("nodes: %s: decode image: %w", ctx.Node.Name(), err)
	}

	// Normalize to tightly packed RGBA8.
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	//nolint:gosec // decoded image dimensions are positive
	desc := &resource.ImageDescriptor{
		Label:  ctx.Node.Name(),
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  resource.ImageUsageSampled | resource.ImageUsageCopyDst,
	}
	id, err := ctx.Device.CreateImage(desc)
	if err != nil {
		return fmt.Errorf("nodes: %s: %w", ctx.Node.Name(), err)
	}
	t.id = id
	ctx.Device.WriteImage(id, rgba.Pix)

	return ctx.SetOutput("image", resource.NewImage(ctx.Node.Name(), id, desc))
}

func (t *TextureLoader) Execute(*framegraph.ExecuteContext) error { return nil }

func (t *TextureLoader) Cleanup(ctx *framegraph.CleanupContext) error {
	if t.id != resource.InvalidID {
		ctx.Device.DestroyImage(t.id)
		t.id = resource.InvalidID
	}
	return nil
}
