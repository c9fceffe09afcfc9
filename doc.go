// Package framegraph schedules GPU work as a directed acyclic graph of
// typed nodes.
//
// # Overview
//
// A frame graph separates what a frame needs (nodes and the typed resources
// flowing between them) from how it runs (allocation, pipeline reuse,
// execution order, teardown). Node types declare typed input and output
// slots; connections between slots are type-checked when they are made, so a
// graph that builds is a graph that wires correctly.
//
// # Quick Start
//
//	import "github.com/gogpu/framegraph"
//
//	g, _ := framegraph.New(dev)
//	nodes.RegisterBuiltins(g.Registry())
//
//	pipe, _ := g.AddNode("compute_pipeline", "blur")
//	disp, _ := g.AddNode("compute_dispatch", "blur_pass")
//	g.Connect(pipe, "pipeline", disp, "pipeline")
//
//	g.Compile()
//	for running {
//		g.RenderFrame()
//	}
//	g.Cleanup()
//
// # Compilation
//
// Compile runs five phases in fixed order: validation, dependency analysis,
// resource allocation, pipeline generation, and execution-order freezing.
// After marking nodes dirty, a second Compile reallocates only the dirty
// nodes and their downstream consumers; everything else keeps its resource
// identities.
//
// # Caching
//
// Expensive derived state (shader modules, pipelines) lives in a
// content-addressed cache shared across nodes and across recompiles. Nodes
// requesting structurally identical pipelines receive the same physical
// object.
//
// # Frame pacing
//
// RenderFrame keeps a fixed number of frames in flight: before reusing a
// per-frame slot it waits on the fence from the submission that last used
// it. TryRenderFrame polls instead of waiting.
//
// # Teardown
//
// Cleanup order is derived from the connection graph, never declared by
// hand: consumers release before the producers whose resources they borrow.
// Scoped cleanup (one node, a tag, a type) releases a subgraph and marks it
// for recompilation.
package framegraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
