// Package flowsheet holds the reprocessing topology of one material: a
// directed graph of separation units between the reactor core outlet and
// the core inlet.
package flowsheet

import (
	"fmt"
	"sort"

	"github.com/kingrea/saltproc/internal/errs"
)

// Reserved node names. Salt leaves the core at Source and returns at Sink.
const (
	Source = "core_outlet"
	Sink   = "core_inlet"
)

// Adjacency maps a node to the nodes directly downstream of it.
type Adjacency map[string][]string

// Clone returns a deep copy of the adjacency map.
func (a Adjacency) Clone() Adjacency {
	if len(a) == 0 {
		return nil
	}
	out := make(Adjacency, len(a))
	for node, next := range a {
		if len(next) == 0 {
			out[node] = nil
			continue
		}
		clone := make([]string, len(next))
		copy(clone, next)
		out[node] = clone
	}
	return out
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From string
	To   string
}

// Graph is an immutable directed graph with optional graph-level
// attributes.
type Graph struct {
	material      string
	totalFlowrate float64
	succ          map[string][]string
	nodes         []string
}

// Option sets a graph-level attribute.
type Option func(*Graph)

// WithMaterial records the material the topology belongs to.
func WithMaterial(name string) Option {
	return func(g *Graph) { g.material = name }
}

// WithTotalFlowrate declares the total flow rate split across paths.
func WithTotalFlowrate(v float64) Option {
	return func(g *Graph) { g.totalFlowrate = v }
}

// New builds a graph from adj. Duplicate edges collapse and successors are
// kept sorted so traversal order does not depend on declaration order.
func New(adj Adjacency, opts ...Option) (*Graph, error) {
	g := &Graph{succ: map[string][]string{}}
	for _, opt := range opts {
		opt(g)
	}
	seen := map[string]struct{}{}
	addNode := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		g.nodes = append(g.nodes, n)
	}
	for from, next := range adj {
		if from == "" {
			return nil, errs.New(errs.KindConfig, "flowsheet", g.material, "empty node name")
		}
		addNode(from)
		set := map[string]struct{}{}
		for _, to := range next {
			if to == "" {
				return nil, errs.New(errs.KindConfig, "flowsheet", g.material, "empty successor of %s", from)
			}
			if to == from {
				return nil, errs.New(errs.KindConfig, "flowsheet", g.material, "self loop on %s", from)
			}
			addNode(to)
			set[to] = struct{}{}
		}
		succ := make([]string, 0, len(set))
		for to := range set {
			succ = append(succ, to)
		}
		sort.Strings(succ)
		g.succ[from] = succ
	}
	sort.Strings(g.nodes)
	if g.totalFlowrate < 0 {
		return nil, errs.New(errs.KindConfig, "flowsheet", g.material, "total_flowrate must be >= 0")
	}
	return g, nil
}

// Material returns the graph-level material attribute.
func (g *Graph) Material() string { return g.material }

// TotalFlowrate returns the declared total flow rate, or 0 if undeclared.
func (g *Graph) TotalFlowrate() float64 { return g.totalFlowrate }

// Nodes returns every node in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Has reports whether node is part of the graph.
func (g *Graph) Has(node string) bool {
	i := sort.SearchStrings(g.nodes, node)
	return i < len(g.nodes) && g.nodes[i] == node
}

// Successors returns the nodes directly downstream of node.
func (g *Graph) Successors(node string) []string {
	next := g.succ[node]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// Edges returns every edge ordered by source then target.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, from := range g.nodes {
		for _, to := range g.succ[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// Adjacency returns the graph as an adjacency map.
func (g *Graph) Adjacency() Adjacency {
	out := make(Adjacency, len(g.succ))
	for from, next := range g.succ {
		out[from] = append([]string(nil), next...)
	}
	return out
}

// SimplePaths enumerates every path from source to sink that visits no
// node twice. Paths are returned without the endpoints, in depth-first
// order with successors visited alphabetically.
func (g *Graph) SimplePaths(source, sink string) [][]string {
	if !g.Has(source) || !g.Has(sink) || source == sink {
		return nil
	}
	type frame struct {
		node string
		next int
	}
	var paths [][]string
	stack := []frame{{node: source}}
	onPath := map[string]bool{source: true}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succ := g.succ[top.node]
		if top.next >= len(succ) {
			delete(onPath, top.node)
			stack = stack[:len(stack)-1]
			continue
		}
		child := succ[top.next]
		top.next++
		if onPath[child] {
			continue
		}
		if child == sink {
			path := make([]string, 0, len(stack)-1)
			for _, f := range stack[1:] {
				path = append(path, f.node)
			}
			paths = append(paths, path)
			continue
		}
		onPath[child] = true
		stack = append(stack, frame{node: child})
	}
	return paths
}

// Validate checks the topology against the set of configured unit names:
// both reserved nodes exist, every other node names a unit, and at least
// one path leads from Source to Sink.
func (g *Graph) Validate(units map[string]bool) error {
	for _, n := range []string{Source, Sink} {
		if !g.Has(n) {
			return errs.New(errs.KindConfig, "flowsheet", g.material, "missing reserved node %s", n)
		}
	}
	if len(g.succ[Sink]) > 0 {
		return errs.New(errs.KindConfig, "flowsheet", g.material, "%s must not have outgoing edges", Sink)
	}
	var unknown []string
	for _, n := range g.nodes {
		if n == Source || n == Sink {
			continue
		}
		if !units[n] {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return errs.New(errs.KindConfig, "flowsheet", g.material, "nodes without a unit definition: %v", unknown)
	}
	if len(g.SimplePaths(Source, Sink)) == 0 {
		return errs.New(errs.KindConfig, "flowsheet", g.material, "no path from %s to %s", Source, Sink)
	}
	return nil
}

func (g *Graph) String() string {
	return fmt.Sprintf("flowsheet(%s: %d nodes, %d edges)", g.material, len(g.nodes), len(g.Edges()))
}
