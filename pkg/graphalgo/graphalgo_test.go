package graphalgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimkit/contextgraph"
)

func weighted(g *contextgraph.Graph[string, float64]) WeightFunc {
	return func(id contextgraph.EdgeID) float64 {
		return g.Edge(id).Value
	}
}

func TestAcyclicAndTopologicalSort(t *testing.T) {
	g := contextgraph.New[string, float64]("dag")
	a := g.AddNode("a")
	b := g.AddNode("b")
	c := g.AddNode("c")
	_, _ = g.AddEdge(a, b, 1)
	_, _ = g.AddEdge(b, c, 1)
	_, _ = g.AddEdge(a, c, 1)

	ad := FromGraph(g, nil)
	assert.False(t, ad.IsCyclic())

	order, err := ad.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := make(map[contextgraph.NodeID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos[a], pos[b])
	assert.Less(t, pos[b], pos[c])
}

func TestCycleDetection(t *testing.T) {
	g := contextgraph.New[string, float64]("cycle")
	a := g.AddNode("a")
	b := g.AddNode("b")
	_, _ = g.AddEdge(a, b, 1)
	_, _ = g.AddEdge(b, a, 1)

	ad := FromGraph(g, nil)
	assert.True(t, ad.IsCyclic())

	_, err := ad.TopologicalSort()
	require.ErrorIs(t, err, ErrCyclic)
}

func TestSelfLoopIsCyclic(t *testing.T) {
	g := contextgraph.New[string, float64]("loop")
	a := g.AddNode("a")
	_, _ = g.AddEdge(a, a, 1)

	ad := FromGraph(g, nil)
	assert.True(t, ad.IsCyclic())
	_, err := ad.TopologicalSort()
	require.ErrorIs(t, err, ErrCyclic)
}

func TestShortestPathWeighted(t *testing.T) {
	g := contextgraph.New[string, float64]("weights")
	a := g.AddNode("a")
	b := g.AddNode("b")
	c := g.AddNode("c")
	d := g.AddNode("d")
	_, _ = g.AddEdge(a, b, 1)
	_, _ = g.AddEdge(b, d, 1)
	_, _ = g.AddEdge(a, c, 5)
	_, _ = g.AddEdge(c, d, 1)

	ad := FromGraph(g, weighted(g))

	p, w, err := ad.ShortestPath(a, d)
	require.NoError(t, err)
	assert.Equal(t, []contextgraph.NodeID{a, b, d}, p)
	assert.Equal(t, 2.0, w)
}

func TestShortestPathCollapsesParallelEdgesToMinimum(t *testing.T) {
	g := contextgraph.New[string, float64]("parallel")
	a := g.AddNode("a")
	b := g.AddNode("b")
	_, _ = g.AddEdge(a, b, 9)
	_, _ = g.AddEdge(a, b, 2)
	_, _ = g.AddEdge(a, b, 4)

	ad := FromGraph(g, weighted(g))

	_, w, err := ad.ShortestPath(a, b)
	require.NoError(t, err)
	assert.Equal(t, 2.0, w)
}

func TestShortestPathUnreachable(t *testing.T) {
	g := contextgraph.New[string, float64]("split")
	a := g.AddNode("a")
	b := g.AddNode("b")

	ad := FromGraph(g, nil)
	_, _, err := ad.ShortestPath(a, b)
	require.ErrorIs(t, err, ErrNoPath)
}

func TestShortestPathUnknownNode(t *testing.T) {
	g := contextgraph.New[string, float64]("g")
	a := g.AddNode("a")
	gone := g.AddNode("gone")
	ad := FromGraph(g, nil)

	require.NoError(t, g.RemoveNode(gone))
	fresh := g.AddNode("fresh") // not in the snapshot

	_, _, err := ad.ShortestPath(a, fresh)
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestStronglyConnectedComponents(t *testing.T) {
	g := contextgraph.New[string, float64]("scc")
	a := g.AddNode("a")
	b := g.AddNode("b")
	c := g.AddNode("c")
	d := g.AddNode("d")
	// a <-> b form one component; c -> d are singletons.
	_, _ = g.AddEdge(a, b, 1)
	_, _ = g.AddEdge(b, a, 1)
	_, _ = g.AddEdge(b, c, 1)
	_, _ = g.AddEdge(c, d, 1)

	ad := FromGraph(g, nil)
	groups := ad.StronglyConnectedComponents()

	byNode := make(map[contextgraph.NodeID][]contextgraph.NodeID)
	total := 0
	for _, group := range groups {
		total += len(group)
		for _, id := range group {
			byNode[id] = group
		}
	}
	assert.Equal(t, 4, total)
	assert.ElementsMatch(t, []contextgraph.NodeID{a, b}, byNode[a])
	assert.Len(t, byNode[c], 1)
	assert.Len(t, byNode[d], 1)
}

func TestSnapshotIgnoresLaterMutation(t *testing.T) {
	g := contextgraph.New[string, float64]("snapshot")
	a := g.AddNode("a")
	b := g.AddNode("b")
	_, _ = g.AddEdge(a, b, 1)

	ad := FromGraph(g, nil)
	_, _ = g.AddEdge(b, a, 1) // would make it cyclic

	assert.False(t, ad.IsCyclic())
	assert.True(t, FromGraph(g, nil).IsCyclic())
}
