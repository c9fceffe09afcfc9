package framegraph

import "fmt"

// Connection is a directed edge from a producer output slot to a consumer
// input slot. A connection exists only after its type compatibility has been
// proven; connections are the only legal way resources move between nodes.
type Connection struct {
	src     *NodeInstance
	srcSlot int
	dst     *NodeInstance
	dstSlot int

	// dstElem is the destination array element for ArityArray inputs.
	// Always zero for single inputs.
	dstElem int
}

// Src returns the producer node.
func (c *Connection) Src() *NodeInstance { return c.src }

// Dst returns the consumer node.
func (c *Connection) Dst() *NodeInstance { return c.dst }

func (c *Connection) String() string {
	srcName := c.src.typ.schema.Outputs[c.srcSlot].Name
	dstName := c.dst.typ.schema.Inputs[c.dstSlot].Name
	return fmt.Sprintf("%s.%s -> %s.%s[%d]", c.src.name, srcName, c.dst.name, dstName, c.dstElem)
}

// Connect wires srcNode's output slot to dstNode's input slot.
//
// The slot types must be compatible under the fixed rule order (exact match,
// reference unwrapping, element-wise array match); any other combination
// fails immediately with *ConnectionError. Compatibility is never deferred
// to execution time.
func (g *Graph) Connect(srcNode *NodeInstance, srcSlot string, dstNode *NodeInstance, dstSlot string) error {
	return g.ConnectElement(srcNode, srcSlot, dstNode, dstSlot, 0)
}

// ConnectElement is Connect for a specific destination array element.
// For AritySingle destinations the element must be zero.
func (g *Graph) ConnectElement(srcNode *NodeInstance, srcSlot string, dstNode *NodeInstance, dstSlot string, elem int) error {
	if g.tornDown {
		return ErrGraphTornDown
	}
	fail := func(reason string) error {
		return &ConnectionError{
			SrcNode: nodeName(srcNode), SrcSlot: srcSlot,
			DstNode: nodeName(dstNode), DstSlot: dstSlot,
			Reason: reason,
		}
	}

	if srcNode == nil || dstNode == nil {
		return fail("nil node")
	}
	if g.byName[srcNode.name] != srcNode || g.byName[dstNode.name] != dstNode {
		return fail("node does not belong to this graph")
	}
	if srcNode == dstNode {
		return fail("self connection")
	}

	si := srcNode.typ.schema.OutputIndex(srcSlot)
	if si < 0 {
		return fail(fmt.Sprintf("unknown output slot on %s", srcNode.typ.name))
	}
	di := dstNode.typ.schema.InputIndex(dstSlot)
	if di < 0 {
		return fail(fmt.Sprintf("unknown input slot on %s", dstNode.typ.name))
	}

	srcDesc := srcNode.typ.schema.Outputs[si]
	dstDesc := dstNode.typ.schema.Inputs[di]

	if dstDesc.Arity == AritySingle && elem != 0 {
		return fail("element index on single-arity input")
	}
	if elem < 0 {
		return fail("negative element index")
	}
	if !typesCompatible(srcDesc, dstDesc) {
		return fail(fmt.Sprintf("type mismatch: %s (%s) does not satisfy %s (%s)",
			srcDesc.Type, srcDesc.Arity, dstDesc.Type, dstDesc.Arity))
	}

	wholeArray := srcDesc.Arity == ArityArray && dstDesc.Arity == ArityArray
	if wholeArray && elem != 0 {
		return fail("element index on whole-array connection")
	}
	for _, c := range g.conns {
		if c.dst != dstNode || c.dstSlot != di {
			continue
		}
		if c.dstElem == elem {
			return fail("input already connected")
		}
		// A whole-array connection occupies every element of the slot.
		if wholeArray || c.src.typ.schema.Outputs[c.srcSlot].Arity == ArityArray {
			return fail("input already connected by an array source")
		}
	}

	c := &Connection{src: srcNode, srcSlot: si, dst: dstNode, dstSlot: di, dstElem: elem}
	g.conns = append(g.conns, c)
	g.execOrder = nil // topology changed, plan is stale

	Logger().Debug("framegraph: connected", "edge", c.String())
	return nil
}

func nodeName(n *NodeInstance) string {
	if n == nil {
		return "<nil>"
	}
	return n.name
}
