package contextgraph

import "errors"

var (
	// ErrNodeNotFound is returned when an operation references a node id
	// that is dead or was never allocated.
	ErrNodeNotFound = errors.New("contextgraph: node not found")

	// ErrEdgeNotFound is returned when an operation references an edge id
	// that is dead or was never allocated.
	ErrEdgeNotFound = errors.New("contextgraph: edge not found")
)
