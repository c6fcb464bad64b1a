// Package graphalgo adapts a contextgraph adjacency into gonum's directed
// graph representation and translates gonum's answers back into NodeIDs.
// The core graph stays algorithm-free; everything here consumes only the
// ordered (source, edge, target) triples and a weight extractor.
//
// gonum's simple graphs hold one edge per ordered node pair and reject
// self-loops, so the adapter collapses parallel edges to their minimum
// weight (which cannot change shortest paths, cyclicity, orderings or SCC
// membership) and answers self-loop cyclicity itself before gonum is
// consulted.
package graphalgo

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/cimkit/contextgraph"
)

var (
	// ErrCyclic is returned by TopologicalSort when the graph has a cycle.
	ErrCyclic = errors.New("graphalgo: graph is cyclic")

	// ErrNoPath is returned by ShortestPath when the target is unreachable.
	ErrNoPath = errors.New("graphalgo: no path")

	// ErrUnknownNode is returned when a queried id was not part of the
	// snapshot the adapter was built from.
	ErrUnknownNode = errors.New("graphalgo: unknown node")
)

// WeightFunc extracts a non-negative weight for an edge. A nil WeightFunc
// weighs every edge 1.
type WeightFunc func(contextgraph.EdgeID) float64

// Adapter is an immutable snapshot of one graph state. Rebuild it after
// mutating the source graph.
type Adapter struct {
	ids      []contextgraph.NodeID
	index    map[contextgraph.NodeID]int64
	wg       *simple.WeightedDirectedGraph
	hasLoops bool
}

// New builds an adapter from a node set and its adjacency triples.
func New(nodes []contextgraph.NodeID, triples []contextgraph.Triple, weight WeightFunc) *Adapter {
	a := &Adapter{
		ids:   append([]contextgraph.NodeID(nil), nodes...),
		index: make(map[contextgraph.NodeID]int64, len(nodes)),
		wg:    simple.NewWeightedDirectedGraph(0, math.Inf(1)),
	}
	for i, id := range a.ids {
		a.index[id] = int64(i)
		a.wg.AddNode(simple.Node(int64(i)))
	}

	for _, tr := range triples {
		u, uok := a.index[tr.Source]
		v, vok := a.index[tr.Target]
		if !uok || !vok {
			continue // triple cites a node outside the snapshot
		}
		if u == v {
			a.hasLoops = true
			continue
		}
		w := 1.0
		if weight != nil {
			w = weight(tr.Edge)
		}
		if existing := a.wg.WeightedEdge(u, v); existing != nil && existing.Weight() <= w {
			continue // parallel edge, keep the lighter one
		}
		a.wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(u), T: simple.Node(v), W: w})
	}
	return a
}

// FromGraph snapshots g. The weight function may be nil for unweighted
// queries.
func FromGraph[N, E any](g *contextgraph.Graph[N, E], weight WeightFunc) *Adapter {
	return New(g.Nodes(), g.Triples(), weight)
}

// IsCyclic reports whether the snapshot contains a directed cycle.
// Self-loops count as cycles.
func (a *Adapter) IsCyclic() bool {
	if a.hasLoops {
		return true
	}
	_, err := topo.Sort(a.wg)
	return err != nil
}

// TopologicalSort returns a total ordering of the nodes, or ErrCyclic.
func (a *Adapter) TopologicalSort() ([]contextgraph.NodeID, error) {
	if a.hasLoops {
		return nil, fmt.Errorf("topological sort: self-loop: %w", ErrCyclic)
	}
	sorted, err := topo.Sort(a.wg)
	if err != nil {
		return nil, fmt.Errorf("topological sort: %w", ErrCyclic)
	}
	order := make([]contextgraph.NodeID, len(sorted))
	for i, n := range sorted {
		order[i] = a.ids[n.ID()]
	}
	return order, nil
}

// ShortestPath returns the minimum-weight path from one node to another
// and its accumulated weight. Weights must be non-negative. A missing id
// yields ErrUnknownNode, an unreachable target ErrNoPath.
func (a *Adapter) ShortestPath(from, to contextgraph.NodeID) ([]contextgraph.NodeID, float64, error) {
	u, ok := a.index[from]
	if !ok {
		return nil, 0, fmt.Errorf("shortest path from %v: %w", from, ErrUnknownNode)
	}
	v, ok := a.index[to]
	if !ok {
		return nil, 0, fmt.Errorf("shortest path to %v: %w", to, ErrUnknownNode)
	}

	shortest := path.DijkstraFrom(simple.Node(u), a.wg)
	nodes, weight := shortest.To(v)
	if math.IsInf(weight, 1) {
		return nil, 0, fmt.Errorf("shortest path %v -> %v: %w", from, to, ErrNoPath)
	}
	p := make([]contextgraph.NodeID, len(nodes))
	for i, n := range nodes {
		p[i] = a.ids[n.ID()]
	}
	return p, weight, nil
}

// StronglyConnectedComponents partitions the nodes into their strongly
// connected groups. Every node appears in exactly one group.
func (a *Adapter) StronglyConnectedComponents() [][]contextgraph.NodeID {
	sccs := topo.TarjanSCC(a.wg)
	groups := make([][]contextgraph.NodeID, len(sccs))
	for i, scc := range sccs {
		group := make([]contextgraph.NodeID, len(scc))
		for j, n := range scc {
			group[j] = a.ids[n.ID()]
		}
		groups[i] = group
	}
	return groups
}
