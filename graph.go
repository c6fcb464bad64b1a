// Package contextgraph implements a directed, attributed multigraph. Nodes
// and edges carry a typed client value plus a component bag keyed by exact
// type identity, identifiers are generation-tagged so removals never alias,
// and a node may embed an entire owned graph through the Subgraph component.
//
// The graph is single-writer and in-memory: no operation blocks, and
// concurrent mutation requires external synchronization. Read-only calls
// may run concurrently with each other but never with a mutation.
package contextgraph

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/cimkit/contextgraph/pkg/arena"
	"github.com/cimkit/contextgraph/pkg/component"
)

// NodeID identifies a node. The zero value is never live; a NodeID held
// across a RemoveNode simply stops resolving.
type NodeID arena.Handle

// EdgeID identifies an edge, with the same staleness contract as NodeID.
type EdgeID arena.Handle

// Triple is one adjacency entry: a directed edge and its endpoints.
type Triple struct {
	Source NodeID
	Edge   EdgeID
	Target NodeID
}

// Graph is a directed multigraph with attributed nodes and edges.
// N is the node value type, E the edge value type. Parallel edges and
// self-loops are permitted.
type Graph[N, E any] struct {
	id    uuid.UUID
	label string
	log   *slog.Logger

	nodeArena *arena.Arena
	edgeArena *arena.Arena

	nodes map[NodeID]*Node[N]
	edges map[EdgeID]*Edge[E]

	// Adjacency index; incident edge ids live here, not on the node records.
	out map[NodeID][]EdgeID
	in  map[NodeID][]EdgeID
}

func defaultLogger() *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h)
}

// New returns an empty graph with the given label.
func New[N, E any](label string) *Graph[N, E] {
	return &Graph[N, E]{
		id:        uuid.New(),
		label:     label,
		log:       defaultLogger(),
		nodeArena: arena.New(),
		edgeArena: arena.New(),
		nodes:     make(map[NodeID]*Node[N]),
		edges:     make(map[EdgeID]*Edge[E]),
		out:       make(map[NodeID][]EdgeID),
		in:        make(map[NodeID][]EdgeID),
	}
}

// ID returns the graph's unique identity.
func (g *Graph[N, E]) ID() uuid.UUID { return g.id }

// Label returns the label the graph was created with.
func (g *Graph[N, E]) Label() string { return g.label }

// SetLogger replaces the graph's structured logger. A nil logger restores
// the stderr default.
func (g *Graph[N, E]) SetLogger(log *slog.Logger) {
	if log == nil {
		log = defaultLogger()
	}
	g.log = log
}

// AddNode inserts a node carrying value and returns its id. AddNode always
// succeeds.
func (g *Graph[N, E]) AddNode(value N) NodeID {
	id := NodeID(g.nodeArena.Allocate())
	g.nodes[id] = &Node[N]{
		id:         id,
		Value:      value,
		Components: component.NewStore(),
	}
	return id
}

// AddEdge inserts a directed edge from source to target carrying value.
// Both endpoints are validated before anything is mutated; a dead endpoint
// yields ErrNodeNotFound and leaves the graph untouched.
func (g *Graph[N, E]) AddEdge(source, target NodeID, value E) (EdgeID, error) {
	if !g.nodeArena.IsLive(arena.Handle(source)) {
		return EdgeID{}, fmt.Errorf("add edge: source %v: %w", source, ErrNodeNotFound)
	}
	if !g.nodeArena.IsLive(arena.Handle(target)) {
		return EdgeID{}, fmt.Errorf("add edge: target %v: %w", target, ErrNodeNotFound)
	}

	id := EdgeID(g.edgeArena.Allocate())
	g.edges[id] = &Edge[E]{
		id:         id,
		source:     source,
		target:     target,
		Value:      value,
		Components: component.NewStore(),
	}
	g.out[source] = append(g.out[source], id)
	g.in[target] = append(g.in[target], id)
	g.nodes[source].outDegree++
	g.nodes[target].inDegree++
	return id, nil
}

// RemoveNode removes the node and every incident edge in one indivisible
// step; after it returns no edge cites the id. Removing a dead id returns
// ErrNodeNotFound without mutating anything.
func (g *Graph[N, E]) RemoveNode(id NodeID) error {
	if !g.nodeArena.IsLive(arena.Handle(id)) {
		return fmt.Errorf("remove node %v: %w", id, ErrNodeNotFound)
	}

	// Incident edges first, so a reader under the external lock never sees
	// a dangling edge. Self-loops appear in both lists; removeEdgeRecord
	// is a no-op for ids already gone.
	incident := make([]EdgeID, 0, len(g.out[id])+len(g.in[id]))
	incident = append(incident, g.out[id]...)
	incident = append(incident, g.in[id]...)
	for _, eid := range incident {
		g.removeEdgeRecord(eid)
	}

	delete(g.nodes, id)
	delete(g.out, id)
	delete(g.in, id)
	g.nodeArena.Release(arena.Handle(id))
	g.log.Debug("node removed", "node", id, "edges", len(incident))
	return nil
}

// RemoveEdge removes a single edge. A dead id returns ErrEdgeNotFound.
func (g *Graph[N, E]) RemoveEdge(id EdgeID) error {
	if _, ok := g.edges[id]; !ok {
		return fmt.Errorf("remove edge %v: %w", id, ErrEdgeNotFound)
	}
	g.removeEdgeRecord(id)
	return nil
}

func (g *Graph[N, E]) removeEdgeRecord(id EdgeID) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	g.out[e.source] = dropEdge(g.out[e.source], id)
	g.in[e.target] = dropEdge(g.in[e.target], id)
	if n, ok := g.nodes[e.source]; ok {
		n.outDegree--
	}
	if n, ok := g.nodes[e.target]; ok {
		n.inDegree--
	}
	delete(g.edges, id)
	g.edgeArena.Release(arena.Handle(id))
}

func dropEdge(list []EdgeID, id EdgeID) []EdgeID {
	for i, e := range list {
		if e == id {
			list[i] = list[len(list)-1]
			return list[:len(list)-1]
		}
	}
	return list
}

// Node returns the live node record for id, or nil. The record may be used
// to read and mutate the value and components; mutation through a stale id
// is impossible because stale ids resolve to nil.
func (g *Graph[N, E]) Node(id NodeID) *Node[N] {
	return g.nodes[id]
}

// Edge returns the live edge record for id, or nil.
func (g *Graph[N, E]) Edge(id EdgeID) *Edge[E] {
	return g.edges[id]
}

// Nodes returns the ids of all live nodes. Order is unspecified.
func (g *Graph[N, E]) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Edges returns the ids of all live edges. Order is unspecified.
func (g *Graph[N, E]) Edges() []EdgeID {
	ids := make([]EdgeID, 0, len(g.edges))
	for id := range g.edges {
		ids = append(ids, id)
	}
	return ids
}

// NodeCount returns the number of live nodes in this graph only.
func (g *Graph[N, E]) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of live edges.
func (g *Graph[N, E]) EdgeCount() int { return len(g.edges) }

// Degree returns in-degree plus out-degree for id. The counters are
// maintained incrementally, so this is O(1).
func (g *Graph[N, E]) Degree(id NodeID) (int, error) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, fmt.Errorf("degree of %v: %w", id, ErrNodeNotFound)
	}
	return n.inDegree + n.outDegree, nil
}

// InDegree returns the number of edges whose target is id.
func (g *Graph[N, E]) InDegree(id NodeID) (int, error) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, fmt.Errorf("in-degree of %v: %w", id, ErrNodeNotFound)
	}
	return n.inDegree, nil
}

// OutDegree returns the number of edges whose source is id.
func (g *Graph[N, E]) OutDegree(id NodeID) (int, error) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, fmt.Errorf("out-degree of %v: %w", id, ErrNodeNotFound)
	}
	return n.outDegree, nil
}

// TotalNodeCount counts live nodes, recursing into every embedded Subgraph
// component. Embedding is move-only, so the recursion cannot revisit a
// graph.
func (g *Graph[N, E]) TotalNodeCount() int {
	count := len(g.nodes)
	for _, n := range g.nodes {
		if sg, ok := component.Get[Subgraph](n.Components); ok && sg.Graph != nil {
			count += sg.Graph.TotalNodeCount()
		}
	}
	return count
}

// Triples returns the adjacency as (source, edge, target) entries in a
// stable order, for handing to an algorithm adapter. The order is sorted by
// edge handle and deterministic for a given graph state.
func (g *Graph[N, E]) Triples() []Triple {
	triples := make([]Triple, 0, len(g.edges))
	for id, e := range g.edges {
		triples = append(triples, Triple{Source: e.source, Edge: id, Target: e.target})
	}
	sort.Slice(triples, func(i, j int) bool {
		a, b := triples[i].Edge, triples[j].Edge
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.Gen < b.Gen
	})
	return triples
}
