// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"net"
	"testing"

	"github.com/arborflow/arbor"
	"github.com/arborflow/arbor/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWorkerCoordinator simulates one worker process's coordination
// endpoint: it accepts the controller's AssignDomain message, reports the
// shard booted back over the shard's control address, and then reads (and
// records) the follow-up DomainBooted broadcast.
type fakeWorkerCoordinator struct {
	ln          net.Listener
	bootedAddrs chan arbor.ReplicaAddr
}

func newFakeWorkerCoordinator(t *testing.T, dataAddr string, numShards int) (*fakeWorkerCoordinator, WorkerIdentifier) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fw := &fakeWorkerCoordinator{ln: ln, bootedAddrs: make(chan arbor.ReplicaAddr, numShards)}
	id := WorkerIdentifier(ln.Addr().String())

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var assign CoordinationMessage
		if err := wire.ReadFramed(conn, &assign); err != nil {
			return
		}
		require.Equal(t, PayloadAssignDomain, assign.Kind)
		builder := assign.Builder

		ctrl, err := net.Dial("tcp", builder.ControlAddr)
		if err != nil {
			return
		}
		_ = wire.WriteFramed(ctrl, ControlReplyPacket{
			Kind:     ReplyBooted,
			Epoch:    assign.Epoch,
			Shard:    builder.Shard,
			DataAddr: dataAddr,
		})
		ctrl.Close()

		// Every shard of the domain booting broadcasts DomainBooted to
		// every worker, including this one, regardless of which worker
		// hosts that particular shard.
		for i := 0; i < numShards; i++ {
			var booted CoordinationMessage
			if err := wire.ReadFramed(conn, &booted); err != nil {
				return
			}
			require.Equal(t, PayloadDomainBooted, booted.Kind)
			fw.bootedAddrs <- booted.BootedAddr
		}
	}()

	t.Cleanup(func() { ln.Close() })
	return fw, id
}

// fakeDataListener stands in for a shard's data-plane packet receiver so
// ChannelCoordinator.GetTx's dial during boot has something to connect to.
func fakeDataListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestDomainHandleBootBroadcastsBeforeReturning(t *testing.T) {
	const numShards = 2
	dataAddr := fakeDataListener(t)

	var workers []*WorkerEndpoint
	var fakes []*fakeWorkerCoordinator
	for i := 0; i < numShards; i++ {
		fw, id := newFakeWorkerCoordinator(t, dataAddr, numShards)
		fakes = append(fakes, fw)
		we, err := DialWorkerEndpoint(id, fw.ln.Addr().String(), i == 0)
		require.NoError(t, err)
		workers = append(workers, we)
	}

	placer := NewRoundRobinPlacer(workers)
	cc := NewChannelCoordinator()
	log := zap.NewNop()

	dh, err := NewDomainHandle(
		arbor.DomainIndex(3),
		numShards,
		log,
		DomainConfig{TrimDepth: 3},
		nil,
		PersistenceParameters{},
		cc,
		placer,
		workers,
		arbor.Epoch(1),
		0,
	)
	require.NoError(t, err)
	assert.Equal(t, numShards, dh.Shards())

	for _, fw := range fakes {
		for i := 0; i < numShards; i++ {
			select {
			case addr := <-fw.bootedAddrs:
				assert.Equal(t, arbor.DomainIndex(3), addr.Domain)
			default:
				t.Fatal("expected every worker to have observed all DomainBooted broadcasts before NewDomainHandle returned")
			}
		}
	}
}

func TestDomainHandleAssignmentTracksPlacement(t *testing.T) {
	const numShards = 2
	dataAddr := fakeDataListener(t)

	var workers []*WorkerEndpoint
	var ids []WorkerIdentifier
	for i := 0; i < numShards; i++ {
		fw, id := newFakeWorkerCoordinator(t, dataAddr, numShards)
		ids = append(ids, id)
		we, err := DialWorkerEndpoint(id, fw.ln.Addr().String(), false)
		require.NoError(t, err)
		workers = append(workers, we)
	}

	placer := NewRoundRobinPlacer(workers)
	cc := NewChannelCoordinator()

	dh, err := NewDomainHandle(
		arbor.DomainIndex(4),
		numShards,
		zap.NewNop(),
		DomainConfig{TrimDepth: 1},
		nil,
		PersistenceParameters{},
		cc,
		placer,
		workers,
		arbor.Epoch(1),
		0,
	)
	require.NoError(t, err)

	for i := 0; i < numShards; i++ {
		assert.Equal(t, ids[i], dh.Assignment(i))
	}
}
