package services

import (
	"sort"

	"ctiforge/internal/domain/models"
)

// edgeKey is the canonical unordered pair key: A is always the smaller id.
type edgeKey struct {
	A, B string
}

func newEdgeKey(a, b string) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{A: a, B: b}
}

// Edge connects two events for one or more reasons. Weight counts distinct
// shared indicator values and is only meaningful for shared_ioc edges.
type Edge struct {
	Reasons map[models.EdgeReason]bool
	Weight  int
}

// EvidenceGraph is an undirected graph over event ids, built fresh for one
// correlation run and discarded after campaign extraction. Multiple reasons
// between the same pair accumulate on a single edge.
type EvidenceGraph struct {
	nodes map[string]bool
	edges map[edgeKey]*Edge
}

// NewEvidenceGraph creates an empty evidence graph
func NewEvidenceGraph() *EvidenceGraph {
	return &EvidenceGraph{
		nodes: make(map[string]bool),
		edges: make(map[edgeKey]*Edge),
	}
}

// AddNode registers an event id; isolated nodes form singleton components
func (g *EvidenceGraph) AddNode(eventID string) {
	g.nodes[eventID] = true
}

// AddEdge connects a and b for the given reason, merging with any existing
// edge between the pair. Self-loops are ignored.
func (g *EvidenceGraph) AddEdge(a, b string, reason models.EdgeReason) {
	if a == b {
		return
	}
	g.nodes[a] = true
	g.nodes[b] = true

	key := newEdgeKey(a, b)
	edge, ok := g.edges[key]
	if !ok {
		edge = &Edge{Reasons: make(map[models.EdgeReason]bool)}
		g.edges[key] = edge
	}
	edge.Reasons[reason] = true
}

// SetSharedIOCWeight records the number of distinct indicator values shared
// by the pair. The edge must already exist with a shared_ioc reason.
func (g *EvidenceGraph) SetSharedIOCWeight(a, b string, weight int) {
	if edge, ok := g.edges[newEdgeKey(a, b)]; ok {
		edge.Weight = weight
	}
}

// EdgeBetween returns the edge connecting a and b, or nil
func (g *EvidenceGraph) EdgeBetween(a, b string) *Edge {
	return g.edges[newEdgeKey(a, b)]
}

// NodeCount returns the number of nodes
func (g *EvidenceGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct connected pairs
func (g *EvidenceGraph) EdgeCount() int { return len(g.edges) }

// Components returns the connected components of the graph. Members within a
// component are sorted lexicographically, and components are ordered by
// their smallest member id, so the result is stable across runs regardless
// of map iteration order.
func (g *EvidenceGraph) Components() [][]string {
	adjacency := make(map[string][]string, len(g.nodes))
	for key := range g.edges {
		adjacency[key.A] = append(adjacency[key.A], key.B)
		adjacency[key.B] = append(adjacency[key.B], key.A)
	}

	visited := make(map[string]bool, len(g.nodes))
	var components [][]string

	for node := range g.nodes {
		if visited[node] {
			continue
		}

		// Iterative DFS keeps deep components from blowing the stack.
		var component []string
		stack := []string{node}
		visited[node] = true
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, current)
			for _, neighbor := range adjacency[current] {
				if !visited[neighbor] {
					visited[neighbor] = true
					stack = append(stack, neighbor)
				}
			}
		}

		sort.Strings(component)
		components = append(components, component)
	}

	sort.Slice(components, func(i, j int) bool {
		return components[i][0] < components[j][0]
	})

	return components
}
