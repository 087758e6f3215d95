package flowsheet

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph/formats/dot"
	"gonum.org/v1/gonum/graph/formats/dot/ast"

	"github.com/kingrea/saltproc/internal/errs"
)

// Graph-level DOT attributes understood by the loader.
const (
	AttrMaterial      = "material"
	AttrTotalFlowrate = "total_flowrate"
)

// ParseDOT builds a graph from a DOT document holding one directed graph.
// Edges may be chained (a -> b -> c) and may appear inside subgraphs.
func ParseDOT(src []byte) (*Graph, error) {
	file, err := dot.ParseBytes(src)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "flowsheet: dot", "", err)
	}
	return fromAST(file)
}

// ReadDOT parses the DOT file at path.
func ReadDOT(path string) (*Graph, error) {
	file, err := dot.ParseFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "flowsheet: dot", path, err)
	}
	return fromAST(file)
}

func fromAST(file *ast.File) (*Graph, error) {
	if len(file.Graphs) != 1 {
		return nil, errs.New(errs.KindConfig, "flowsheet: dot", "", "expected exactly one graph, found %d", len(file.Graphs))
	}
	src := file.Graphs[0]
	if !src.Directed {
		return nil, errs.New(errs.KindConfig, "flowsheet: dot", unquote(src.ID), "graph must be a digraph")
	}
	b := &dotBuilder{adj: Adjacency{}, attrs: map[string]string{}}
	if err := b.stmts(src.Stmts); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "flowsheet: dot", unquote(src.ID), err)
	}
	material := b.attrs[AttrMaterial]
	if material == "" {
		material = unquote(src.ID)
	}
	opts := []Option{WithMaterial(material)}
	if raw, ok := b.attrs[AttrTotalFlowrate]; ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errs.New(errs.KindConfig, "flowsheet: dot", material, "%s %q is not a number", AttrTotalFlowrate, raw)
		}
		opts = append(opts, WithTotalFlowrate(v))
	}
	return New(b.adj, opts...)
}

type dotBuilder struct {
	adj   Adjacency
	attrs map[string]string
}

func (b *dotBuilder) stmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.Attr:
			b.attrs[s.Key] = unquote(s.Val)
		case *ast.AttrStmt:
			if s.Kind != ast.GraphKind {
				continue
			}
			for _, a := range s.Attrs {
				b.attrs[a.Key] = unquote(a.Val)
			}
		case *ast.NodeStmt:
			b.node(unquote(s.Node.ID))
		case *ast.EdgeStmt:
			if err := b.edges(s); err != nil {
				return err
			}
		case *ast.Subgraph:
			if err := b.stmts(s.Stmts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *dotBuilder) node(id string) {
	if _, ok := b.adj[id]; !ok {
		b.adj[id] = nil
	}
}

func (b *dotBuilder) edges(s *ast.EdgeStmt) error {
	from, err := b.vertex(s.From)
	if err != nil {
		return err
	}
	for e := s.To; e != nil; e = e.To {
		if !e.Directed {
			return fmt.Errorf("undirected edge from %v", from)
		}
		to, err := b.vertex(e.Vertex)
		if err != nil {
			return err
		}
		for _, f := range from {
			for _, t := range to {
				b.adj[f] = append(b.adj[f], t)
			}
		}
		from = to
	}
	return nil
}

// vertex returns the node ids a vertex stands for; a subgraph vertex
// stands for every node it declares.
func (b *dotBuilder) vertex(v ast.Vertex) ([]string, error) {
	switch x := v.(type) {
	case *ast.Node:
		id := unquote(x.ID)
		b.node(id)
		return []string{id}, nil
	case *ast.Subgraph:
		inner := &dotBuilder{adj: Adjacency{}, attrs: map[string]string{}}
		if err := inner.stmts(x.Stmts); err != nil {
			return nil, err
		}
		var ids []string
		for id, next := range inner.adj {
			ids = append(ids, id)
			b.node(id)
			b.adj[id] = append(b.adj[id], next...)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unsupported vertex %v", v)
	}
}

func unquote(s string) string {
	if strings.HasPrefix(s, `"`) {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
