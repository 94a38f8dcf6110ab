// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"net"
	"testing"

	"github.com/arborflow/arbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelCoordinatorInsertAndLookup(t *testing.T) {
	cc := NewChannelCoordinator()
	a := arbor.ReplicaAddr{Domain: 1, Shard: 0}

	cc.InsertAddr(a, "127.0.0.1:1234", true)
	assert.True(t, cc.IsLocal(a))

	b := arbor.ReplicaAddr{Domain: 2, Shard: 0}
	assert.False(t, cc.IsLocal(b), "unregistered address is not local")
}

func TestChannelCoordinatorGetTxDialsRegisteredAddr(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	cc := NewChannelCoordinator()
	a := arbor.ReplicaAddr{Domain: 1, Shard: 0}
	cc.InsertAddr(a, ln.Addr().String(), false)

	tx, err := cc.GetTx(a)
	require.NoError(t, err)
	require.NotNil(t, tx)
	tx.Close()
}

func TestChannelCoordinatorGetTxUnregistered(t *testing.T) {
	cc := NewChannelCoordinator()
	_, err := cc.GetTx(arbor.ReplicaAddr{Domain: 9, Shard: 0})
	assert.Error(t, err)
}
