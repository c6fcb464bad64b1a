package contextgraph

import "github.com/cimkit/contextgraph/pkg/component"

// Edge is a live edge record. Source and target are fixed at creation;
// the value and components may be mutated through the record.
type Edge[E any] struct {
	id     EdgeID
	source NodeID
	target NodeID

	// Value is the client payload, e.g. a weight or relation name.
	Value E

	// Components is the edge's type-keyed metadata bag.
	Components *component.Store
}

// ID returns the edge's identifier.
func (e *Edge[E]) ID() EdgeID { return e.id }

// Source returns the id of the node this edge leaves.
func (e *Edge[E]) Source() NodeID { return e.source }

// Target returns the id of the node this edge points at.
func (e *Edge[E]) Target() NodeID { return e.target }
