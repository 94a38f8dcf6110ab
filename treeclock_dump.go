// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// ##################################################
//  useful during development, debugging and testing
// ##################################################

// DumpString is just a wrapper for Dump.
func (t *TreeClock) DumpString() string {
	w := new(strings.Builder)
	t.Dump(w)

	return w.String()
}

// Dump writes an indented, human-readable rendering of the tree to w, one
// line per node: its replica address, label, and depth. Children are
// visited in a stable, address-sorted order so Dump is deterministic even
// though Edges() iteration order is not.
func (t *TreeClock) Dump(w io.Writer) {
	if t == nil {
		return
	}
	t.dumpRec(w, 0)
}

func (t *TreeClock) dumpRec(w io.Writer, depth int) {
	indent := strings.Repeat(".", depth)
	fmt.Fprintf(w, "%s[%v] depth: %d label: %d\n", indent, t.root, depth, t.label)

	for _, addr := range t.sortedChildAddrs() {
		t.edges[addr].dumpRec(w, depth+1)
	}
}

func (t *TreeClock) sortedChildAddrs() []ReplicaAddr {
	addrs := make([]ReplicaAddr, 0, len(t.edges))
	for addr := range t.edges {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Domain != addrs[j].Domain {
			return addrs[i].Domain < addrs[j].Domain
		}
		return addrs[i].Shard < addrs[j].Shard
	})
	return addrs
}
