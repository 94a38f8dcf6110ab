// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainGraphPredecessors(t *testing.T) {
	g := NewDomainGraph()
	g.AddNode(0, addr(0))
	g.AddNode(1, addr(1))
	g.AddNode(2, addr(2))
	g.AddEdge(0, 2)
	g.AddEdge(1, 2)

	preds := g.Predecessors(2)
	assert.ElementsMatch(t, []DomainIndex{0, 1}, preds)
	assert.Empty(t, g.Predecessors(0))
}

func TestDomainGraphAddr(t *testing.T) {
	g := NewDomainGraph()
	g.AddNode(7, addr(7))

	got, ok := g.Addr(7)
	assert.True(t, ok)
	assert.Equal(t, addr(7), got)

	_, ok = g.Addr(99)
	assert.False(t, ok)
}
