// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinPlacerCycles(t *testing.T) {
	a := &WorkerEndpoint{id: "a"}
	b := &WorkerEndpoint{id: "b"}
	p := NewRoundRobinPlacer([]*WorkerEndpoint{a, b})

	id1, w1, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, WorkerIdentifier("a"), id1)
	assert.Same(t, a, w1)

	id2, _, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, WorkerIdentifier("b"), id2)

	id3, _, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, WorkerIdentifier("a"), id3, "placer wraps back to the first worker")
}

func TestRoundRobinPlacerEmpty(t *testing.T) {
	p := NewRoundRobinPlacer(nil)
	_, _, ok := p.Next()
	assert.False(t, ok)
}
