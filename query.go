package contextgraph

import "github.com/cimkit/contextgraph/pkg/component"

// NodesWithComponent returns the ids of all nodes holding a component of
// the exact type T. This is a full scan; it is meant for cold-path
// queries, not hot loops.
func NodesWithComponent[T any, N, E any](g *Graph[N, E]) []NodeID {
	var ids []NodeID
	for id, n := range g.nodes {
		if component.Has[T](n.Components) {
			ids = append(ids, id)
		}
	}
	return ids
}

// EdgesWithComponent returns the ids of all edges holding a component of
// the exact type T.
func EdgesWithComponent[T any, N, E any](g *Graph[N, E]) []EdgeID {
	var ids []EdgeID
	for id, e := range g.edges {
		if component.Has[T](e.Components) {
			ids = append(ids, id)
		}
	}
	return ids
}
