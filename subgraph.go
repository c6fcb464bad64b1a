package contextgraph

// NodeCounter is the part of a graph the recursive node count needs. Any
// Graph instantiation satisfies it, regardless of its value types.
type NodeCounter interface {
	TotalNodeCount() int
}

// Subgraph embeds an entire graph as a node component. Ownership is
// exclusive: the embedded graph is moved in, and the caller must not
// retain or share its reference afterwards. That rule is what makes
// self-embedding cycles structurally impossible.
type Subgraph struct {
	Graph NodeCounter
}

// NewSubgraph wraps g for embedding. The caller hands over its only
// reference to g.
func NewSubgraph(g NodeCounter) Subgraph {
	return Subgraph{Graph: g}
}
