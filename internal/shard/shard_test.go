// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBySingleShardFastPath(t *testing.T) {
	s, err := By(int64(12345), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, s)
}

func TestByIsDeterministic(t *testing.T) {
	a, err := By(int64(42), 8)
	require.NoError(t, err)
	b, err := By(int64(42), 8)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestByStaysInRange(t *testing.T) {
	for _, key := range []any{int64(1), int64(2), "abc", int64(999999)} {
		s, err := By(key, 4)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 4)
	}
}

func TestByRejectsNonPositiveShardCount(t *testing.T) {
	_, err := By(int64(1), 0)
	assert.Error(t, err)
}
