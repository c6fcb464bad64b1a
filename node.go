package contextgraph

import "github.com/cimkit/contextgraph/pkg/component"

// Node is a live node record: the client value plus the attached
// components. The incident edges are derived from the graph's adjacency
// index and are not stored here.
type Node[N any] struct {
	id NodeID

	// Value is the client payload. Mutating it through the record is the
	// supported way to update a node in place.
	Value N

	// Components is the node's type-keyed metadata bag.
	Components *component.Store

	inDegree  int
	outDegree int
}

// ID returns the node's identifier.
func (n *Node[N]) ID() NodeID { return n.id }

// InDegree returns the number of edges pointing at this node.
func (n *Node[N]) InDegree() int { return n.inDegree }

// OutDegree returns the number of edges leaving this node.
func (n *Node[N]) OutDegree() int { return n.outDegree }

// Degree returns InDegree plus OutDegree.
func (n *Node[N]) Degree() int { return n.inDegree + n.outDegree }
