// Package louvain implements modularity-based community detection over a
// weighted undirected graph, with a resolution parameter controlling
// cluster granularity. The cell nearest-neighbor graph built upstream is
// clustered here to produce per-cell cluster labels.
package louvain

import "fmt"

// Graph is a weighted undirected graph in flat adjacency-list form.
// Node IDs are dense indices [0, NumNodes).
type Graph struct {
	NumNodes    int
	Adjacency   [][]int     // Adjacency[u] lists the neighbors of u
	Weights     [][]float64 // Weights[u][i] is the weight of edge u--Adjacency[u][i]
	Degrees     []float64   // weighted degree per node
	TotalWeight float64     // sum of all edge weights
}

// NewGraph creates an empty graph with n nodes.
func NewGraph(n int) *Graph {
	return &Graph{
		NumNodes:  n,
		Adjacency: make([][]int, n),
		Weights:   make([][]float64, n),
		Degrees:   make([]float64, n),
	}
}

// AddEdge inserts an undirected weighted edge. Self-loops contribute
// twice to the node's degree.
func (g *Graph) AddEdge(u, v int, weight float64) error {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, nodes=%d", u, v, g.NumNodes)
	}
	if weight <= 0 {
		return fmt.Errorf("edge weight must be positive: %f", weight)
	}

	g.Adjacency[u] = append(g.Adjacency[u], v)
	g.Weights[u] = append(g.Weights[u], weight)
	g.Degrees[u] += weight

	if u != v {
		g.Adjacency[v] = append(g.Adjacency[v], u)
		g.Weights[v] = append(g.Weights[v], weight)
		g.Degrees[v] += weight
	} else {
		g.Degrees[u] += weight
	}

	g.TotalWeight += weight
	return nil
}

// EdgeWeight returns the weight of the edge u--v, or 0 when absent.
func (g *Graph) EdgeWeight(u, v int) float64 {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return 0
	}
	for i, neighbor := range g.Adjacency[u] {
		if neighbor == v {
			return g.Weights[u][i]
		}
	}
	return 0
}

// Neighbors returns the adjacency and weight slices for a node. The
// slices are owned by the graph and must not be modified.
func (g *Graph) Neighbors(node int) ([]int, []float64) {
	if node < 0 || node >= g.NumNodes {
		return nil, nil
	}
	return g.Adjacency[node], g.Weights[node]
}

// Clone creates a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	clone := NewGraph(g.NumNodes)
	clone.TotalWeight = g.TotalWeight
	copy(clone.Degrees, g.Degrees)
	for u := 0; u < g.NumNodes; u++ {
		clone.Adjacency[u] = append([]int(nil), g.Adjacency[u]...)
		clone.Weights[u] = append([]float64(nil), g.Weights[u]...)
	}
	return clone
}

// Validate checks structural consistency.
func (g *Graph) Validate() error {
	if g.NumNodes <= 0 {
		return fmt.Errorf("graph must have a positive number of nodes")
	}
	for u := 0; u < g.NumNodes; u++ {
		if len(g.Adjacency[u]) != len(g.Weights[u]) {
			return fmt.Errorf("adjacency and weight lists disagree for node %d", u)
		}
		for i, v := range g.Adjacency[u] {
			if v < 0 || v >= g.NumNodes {
				return fmt.Errorf("invalid neighbor %d for node %d", v, u)
			}
			if g.Weights[u][i] <= 0 {
				return fmt.Errorf("non-positive weight %f on edge %d-%d", g.Weights[u][i], u, v)
			}
		}
	}
	return nil
}
