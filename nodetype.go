package framegraph

import "fmt"

// RecordingStrategy declares how a node's command-stream recording relates
// to the frame loop. The execution engine honors whichever strategy a node
// declares; there is no global policy.
type RecordingStrategy uint8

// Recording strategies.
const (
	// RecordEveryFrame re-runs Execute each frame the node is scheduled.
	RecordEveryFrame RecordingStrategy = iota

	// RecordOnceAndReuse runs Execute on the first scheduled frame and
	// resubmits the recorded work afterwards.
	RecordOnceAndReuse

	// RecordWhenDirty re-runs Execute only while the node is dirty
	// (or has never recorded).
	RecordWhenDirty
)

func (s RecordingStrategy) String() string {
	switch s {
	case RecordOnceAndReuse:
		return "record-once"
	case RecordWhenDirty:
		return "record-when-dirty"
	default:
		return "record-every-frame"
	}
}

// Factory creates the body of a node instance. Bodies are created once per
// instance, at CreateInstance time.
type Factory func() Node

// NodeType is the immutable template for node instances: a name, a slot
// schema, and a factory. One NodeType exists per registered name.
type NodeType struct {
	name     string
	schema   Schema
	factory  Factory
	strategy RecordingStrategy
}

// NewNodeType builds a node type after validating the schema.
func NewNodeType(name string, schema Schema, factory Factory) (*NodeType, error) {
	if name == "" {
		return nil, fmt.Errorf("framegraph: node type name is empty")
	}
	if factory == nil {
		return nil, fmt.Errorf("framegraph: node type %q has no factory", name)
	}
	if err := schema.validate(); err != nil {
		return nil, fmt.Errorf("node type %q: %w", name, err)
	}
	return &NodeType{name: name, schema: schema.normalized(), factory: factory}, nil
}

// Name returns the registered type name.
func (t *NodeType) Name() string { return t.name }

// Schema returns the slot schema. Callers must not mutate it.
func (t *NodeType) Schema() *Schema { return &t.schema }

// DefaultStrategy returns the recording strategy instances start with.
func (t *NodeType) DefaultStrategy() RecordingStrategy { return t.strategy }

// SetDefaultStrategy sets the recording strategy new instances start with.
func (t *NodeType) SetDefaultStrategy(s RecordingStrategy) { t.strategy = s }
