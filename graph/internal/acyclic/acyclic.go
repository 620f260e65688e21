// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package acyclic adapts the snapshot graph's stable-index adjacency onto
// gonum's graph.Directed interface so add_edge can reuse gonum's
// topological sort as its cycle detector instead of a hand-rolled DFS.
package acyclic

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/topo"
)

// simpleNode is the minimal graph.Node: just an int64 id.
type simpleNode int64

func (n simpleNode) ID() int64 { return int64(n) }

// simpleEdge is the minimal graph.Edge.
type simpleEdge struct {
	from, to int64
}

func (e simpleEdge) From() graph.Node         { return simpleNode(e.from) }
func (e simpleEdge) To() graph.Node           { return simpleNode(e.to) }
func (e simpleEdge) ReversedEdge() graph.Edge { return simpleEdge{from: e.to, to: e.from} }

// View is a read-only adjacency view over a set of node indices and
// directed edges between them, implementing graph.Directed.
type View struct {
	ids  []int64
	set  map[int64]struct{}
	out  map[int64][]int64
	in   map[int64][]int64
}

// NewView builds a View from the given node ids and directed (from, to)
// pairs. Callers build one View per add_edge attempt, including the
// tentative edge, and discard it after the check.
func NewView(nodeIDs []int64, edges [][2]int64) *View {
	v := &View{
		ids: nodeIDs,
		set: make(map[int64]struct{}, len(nodeIDs)),
		out: make(map[int64][]int64),
		in:  make(map[int64][]int64),
	}
	for _, id := range nodeIDs {
		v.set[id] = struct{}{}
	}
	for _, e := range edges {
		v.out[e[0]] = append(v.out[e[0]], e[1])
		v.in[e[1]] = append(v.in[e[1]], e[0])
	}
	return v
}

func (v *View) Node(id int64) graph.Node {
	if _, ok := v.set[id]; !ok {
		return nil
	}
	return simpleNode(id)
}

func (v *View) Nodes() graph.Nodes {
	nodes := make([]graph.Node, 0, len(v.ids))
	for _, id := range v.ids {
		nodes = append(nodes, simpleNode(id))
	}
	return iterator.NewOrderedNodes(nodes)
}

func (v *View) From(id int64) graph.Nodes {
	nodes := make([]graph.Node, 0, len(v.out[id]))
	for _, to := range v.out[id] {
		nodes = append(nodes, simpleNode(to))
	}
	return iterator.NewOrderedNodes(nodes)
}

func (v *View) To(id int64) graph.Nodes {
	nodes := make([]graph.Node, 0, len(v.in[id]))
	for _, from := range v.in[id] {
		nodes = append(nodes, simpleNode(from))
	}
	return iterator.NewOrderedNodes(nodes)
}

func (v *View) HasEdgeFromTo(u, w int64) bool {
	for _, to := range v.out[u] {
		if to == w {
			return true
		}
	}
	return false
}

func (v *View) HasEdgeBetween(x, y int64) bool {
	return v.HasEdgeFromTo(x, y) || v.HasEdgeFromTo(y, x)
}

func (v *View) Edge(u, w int64) graph.Edge {
	if !v.HasEdgeFromTo(u, w) {
		return nil
	}
	return simpleEdge{from: u, to: w}
}

// HasCycle reports whether v contains a cycle, via gonum's topological
// sort: a DAG always sorts; topo.Sort fails with an Unorderable error
// exactly when a cycle exists.
func HasCycle(v *View) bool {
	_, err := topo.Sort(v)
	return err != nil
}
