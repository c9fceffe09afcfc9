package framegraph

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors.
var (
	// ErrWouldBlock is returned by TryRenderFrame when the frame-in-flight
	// slot for the next frame has not been released by the GPU yet.
	ErrWouldBlock = errors.New("framegraph: frame slot still in flight")

	// ErrNotCompiled is returned when executing a graph that has no frozen
	// execution order.
	ErrNotCompiled = errors.New("framegraph: graph is not compiled")

	// ErrGraphTornDown is returned when operating on a graph after Cleanup.
	ErrGraphTornDown = errors.New("framegraph: graph has been torn down")

	// ErrNilDevice is returned when a graph is created without a device.
	ErrNilDevice = errors.New("framegraph: device is required")
)

// DuplicateTypeError reports a second registration of the same type name.
type DuplicateTypeError struct {
	// TypeName is the already-registered name.
	TypeName string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("framegraph: node type %q already registered", e.TypeName)
}

// UnknownTypeError reports an instantiation request for an unregistered type.
type UnknownTypeError struct {
	// TypeName is the unregistered name.
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("framegraph: unknown node type %q", e.TypeName)
}

// ConnectionError reports an invalid Connect call: a type mismatch, an
// unknown slot, an access violation, or a duplicate connection. Connection
// errors are fatal at the Connect call; compatibility is never deferred to
// execution time.
type ConnectionError struct {
	// SrcNode and SrcSlot identify the producer side.
	SrcNode, SrcSlot string

	// DstNode and DstSlot identify the consumer side.
	DstNode, DstSlot string

	// Reason describes what made the connection invalid.
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("framegraph: cannot connect %s.%s -> %s.%s: %s",
		e.SrcNode, e.SrcSlot, e.DstNode, e.DstSlot, e.Reason)
}

// CycleError reports that the connection graph is not acyclic.
// Path holds the full cycle, first node repeated at the end.
type CycleError struct {
	// Path is the cycle as a sequence of node names.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("framegraph: dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// MissingDependencyError reports a required input with no connection, or a
// connected input whose producer cannot be resolved.
type MissingDependencyError struct {
	// Node and Slot identify the unsatisfied input.
	Node, Slot string

	// Reason distinguishes "unconnected" from "producer not resolvable".
	Reason string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("framegraph: node %q input %q: %s", e.Node, e.Slot, e.Reason)
}

// CompileError reports a node whose Compile failed. The node is marked
// unhealthy and skipped during execution; the error is fatal to Compile only
// when a required downstream node depends on the failed node.
type CompileError struct {
	// Node is the failing node's instance name.
	Node string

	// Err is the underlying failure.
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("framegraph: node %q compile failed: %v", e.Node, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
