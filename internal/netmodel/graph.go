// Package netmodel implements the contact-network companion model: an
// SIS-style two-strain epidemic over a fixed undirected graph, plus the
// graph generators used to build random and power-law topologies.
package netmodel

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Graph is a simple undirected graph over nodes 0..n-1, stored as
// adjacency lists. Self-loops and duplicate edges are rejected at
// construction.
type Graph struct {
	adj   [][]int
	edges map[[2]int]struct{}
}

// NewGraph returns an edgeless graph with n nodes.
func NewGraph(n int) *Graph {
	return &Graph{
		adj:   make([][]int, n),
		edges: make(map[[2]int]struct{}),
	}
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.adj) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Degree returns the degree of node i.
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// Neighbors returns the adjacency list of node i. Callers must not mutate
// it.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// HasEdge reports whether a and b are adjacent.
func (g *Graph) HasEdge(a, b int) bool {
	_, ok := g.edges[edgeKey(a, b)]
	return ok
}

// AddEdge inserts the undirected edge (a, b). Self-loops and duplicates
// are ignored and reported as false.
func (g *Graph) AddEdge(a, b int) bool {
	if a == b {
		return false
	}
	key := edgeKey(a, b)
	if _, ok := g.edges[key]; ok {
		return false
	}
	g.edges[key] = struct{}{}
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
	return true
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// NewRandomGraph generates an Erdos-Renyi G(n, p) graph.
func NewRandomGraph(n int, p float64, src rand.Source) (*Graph, error) {
	if n < 1 {
		return nil, fmt.Errorf("graph must have at least 1 node, got %d", n)
	}
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("edge probability must be in [0,1], got %g", p)
	}
	rng := rand.New(src)
	g := NewGraph(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				g.AddEdge(i, j)
			}
		}
	}
	return g, nil
}

// PowerLawDegrees samples an integer degree sequence of length n from a
// Pareto(xm, alpha) distribution, resampling whole sequences until one is
// realizable (even degree sum, maximum degree below n) or maxTries is
// exhausted.
func PowerLawDegrees(n int, xm, alpha float64, maxTries int, src rand.Source) ([]int, error) {
	if n < 1 {
		return nil, fmt.Errorf("degree sequence must have at least 1 entry, got %d", n)
	}
	if xm <= 0 || alpha <= 0 {
		return nil, fmt.Errorf("pareto parameters must be positive, got xm=%g alpha=%g", xm, alpha)
	}
	dist := distuv.Pareto{Xm: xm, Alpha: alpha, Src: src}

	for try := 0; try < maxTries; try++ {
		seq := make([]int, n)
		sum := 0
		for i := range seq {
			d := int(math.Round(dist.Rand()))
			if d < 0 {
				d = 0
			}
			if d > n-1 {
				d = n - 1
			}
			seq[i] = d
			sum += d
		}
		if sum%2 == 0 {
			return seq, nil
		}
	}
	return nil, fmt.Errorf("no realizable degree sequence in %d attempts", maxTries)
}

// NewPowerLawGraph wires a Pareto-sampled degree sequence with the
// configuration model: each node contributes as many stubs as its degree,
// the stub list is shuffled, and consecutive stubs are paired. Self-loops
// and duplicate pairings are skipped, so realized degrees can fall
// slightly short of the sampled sequence.
func NewPowerLawGraph(n int, xm, alpha float64, maxTries int, src rand.Source) (*Graph, error) {
	seq, err := PowerLawDegrees(n, xm, alpha, maxTries, src)
	if err != nil {
		return nil, err
	}

	stubs := make([]int, 0, sumInts(seq))
	for node, d := range seq {
		for k := 0; k < d; k++ {
			stubs = append(stubs, node)
		}
	}

	rng := rand.New(src)
	rng.Shuffle(len(stubs), func(i, j int) {
		stubs[i], stubs[j] = stubs[j], stubs[i]
	})

	g := NewGraph(n)
	for i := 0; i+1 < len(stubs); i += 2 {
		g.AddEdge(stubs[i], stubs[i+1])
	}
	return g, nil
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
