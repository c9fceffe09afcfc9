package framegraph

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/cache"
	"github.com/gogpu/framegraph/event"
)

// Option configures a Graph during creation.
// Use functional options to customize Graph behavior.
//
// Example:
//
//	g, err := framegraph.New(dev,
//	    framegraph.WithFramesInFlight(3),
//	    framegraph.WithEventBus(bus),
//	)
type Option func(*graphOptions)

// graphOptions holds optional configuration for Graph creation.
type graphOptions struct {
	registry       *Registry
	cache          *cache.Store
	bus            *event.Bus
	provider       gpucontext.DeviceProvider
	framesInFlight int
}

// defaultOptions returns the default graph options.
func defaultOptions() graphOptions {
	return graphOptions{
		framesInFlight: DefaultFramesInFlight,
	}
}

// WithRegistry sets the node type registry the graph resolves type names
// against. By default each graph gets its own empty registry.
func WithRegistry(r *Registry) Option {
	return func(o *graphOptions) {
		o.registry = r
	}
}

// WithCache sets the resource cache the graph allocates derived GPU state
// through. Sharing one cache between graphs on the same device lets them
// share shader modules and pipelines; the cache's lifetime is tied to the
// device, not to any one graph.
func WithCache(c *cache.Store) Option {
	return func(o *graphOptions) {
		o.cache = c
	}
}

// WithEventBus subscribes the graph to external invalidation events.
// The graph maps [TopicInvalidate] events onto RequestCleanup calls.
func WithEventBus(b *event.Bus) Option {
	return func(o *graphOptions) {
		o.bus = b
	}
}

// WithFramesInFlight sets how many frames may be submitted before the CPU
// blocks on GPU completion. Per-frame resources are ring-buffered with this
// count. Values below MinFramesInFlight are clamped.
func WithFramesInFlight(n int) Option {
	return func(o *graphOptions) {
		o.framesInFlight = n
	}
}

// WithDeviceProvider attaches a host-owned gpucontext provider. The graph
// never creates or owns the underlying context; it only reads ambient
// configuration from it, such as the preferred surface format used as the
// default color format for generated pipelines.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *graphOptions) {
		o.provider = p
	}
}

// Frame-in-flight bounds.
const (
	// MinFramesInFlight is the smallest legal ring size. A single frame in
	// flight would serialize CPU and GPU; two is the correctness floor for
	// resources mutated once per frame.
	MinFramesInFlight = 2

	// DefaultFramesInFlight matches the common swapchain depth.
	DefaultFramesInFlight = 2
)

// surfaceFormat returns the provider's preferred surface format, or
// Undefined when no provider is attached.
func (o *graphOptions) surfaceFormat() gputypes.TextureFormat {
	if o.provider == nil {
		return gputypes.TextureFormatUndefined
	}
	return o.provider.SurfaceFormat()
}
