// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import "gonum.org/v1/gonum/graph/simple"

// DomainGraph is the read-only adjacency view of the dataflow topology that
// TreeClock.Init walks to seed provenance. Domains are nodes; an edge
// domain A -> domain B means A sends packets to B (B is a consumer of A).
//
// Construction (AddNode/AddEdge) happens once, on the migration thread,
// when the topology changes. Reads (Predecessors/Addr) happen from any
// domain thread and never mutate the graph.
type DomainGraph struct {
	g     *simple.DirectedGraph
	addrs map[DomainIndex]ReplicaAddr
}

// NewDomainGraph returns an empty DomainGraph.
func NewDomainGraph() *DomainGraph {
	return &DomainGraph{
		g:     simple.NewDirectedGraph(),
		addrs: make(map[DomainIndex]ReplicaAddr),
	}
}

// AddNode registers a domain at index ni, owning replica address addr.
func (dg *DomainGraph) AddNode(ni DomainIndex, addr ReplicaAddr) {
	dg.g.AddNode(simple.Node(ni))
	dg.addrs[ni] = addr
}

// AddEdge records that domain "from" sends packets to domain "to".
func (dg *DomainGraph) AddEdge(from, to DomainIndex) {
	dg.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
}

// Addr returns the replica address owning domain index ni.
func (dg *DomainGraph) Addr(ni DomainIndex) (ReplicaAddr, bool) {
	addr, ok := dg.addrs[ni]
	return addr, ok
}

// Predecessors returns the domains with an edge directed into ni, i.e. the
// domains whose packets ni consumes.
func (dg *DomainGraph) Predecessors(ni DomainIndex) []DomainIndex {
	it := dg.g.To(int64(ni))
	out := make([]DomainIndex, 0, it.Len())
	for it.Next() {
		out = append(out, DomainIndex(it.Node().ID()))
	}
	return out
}
