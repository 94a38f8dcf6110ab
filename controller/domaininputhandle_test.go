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
)

// fakeShard accepts one connection, reads packets off it, and acks each
// with a caller-supplied id, standing in for a domain shard's write path.
func fakeShard(t *testing.T, ackID int64, onPacket func(*arbor.Packet)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var p arbor.Packet
			if err := wire.ReadFramed(conn, &p); err != nil {
				return
			}
			if onPacket != nil {
				onPacket(&p)
			}
			if err := wire.WriteFramed(conn, arbor.AckReply{ID: ackID}); err != nil {
				return
			}
		}
	}()

	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestDomainInputHandleSingleShard(t *testing.T) {
	var received *arbor.Packet
	addr := fakeShard(t, 42, func(p *arbor.Packet) { received = p })

	dih, err := NewDomainInputHandle([]string{addr})
	require.NoError(t, err)

	p := arbor.NewMessage(arbor.PacketID{Label: 1}, []arbor.Record{{Positive: []any{int64(1), "x"}}})
	id, err := dih.BaseSend(p, []int{0}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NotNil(t, received)
	assert.Len(t, received.Data, 1)
}

func TestDomainInputHandleShardedFanOut(t *testing.T) {
	const nShards = 4
	addrs := make([]string, nShards)
	counts := make([]int, nShards)
	for i := 0; i < nShards; i++ {
		i := i
		addrs[i] = fakeShard(t, int64(i+1), func(p *arbor.Packet) { counts[i] += len(p.Data) })
	}

	dih, err := NewDomainInputHandle(addrs)
	require.NoError(t, err)

	records := make([]arbor.Record, 0, 20)
	for i := 0; i < 20; i++ {
		records = append(records, arbor.Record{Positive: []any{int64(i), "row"}})
	}
	p := arbor.NewMessage(arbor.PacketID{Label: 1}, records)

	_, err = dih.BaseSend(p, []int{0}, false)
	require.NoError(t, err)

	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 20, total, "every record must land on exactly one shard")
}

func TestDomainInputHandleRejectsCompositeSharding(t *testing.T) {
	addrs := []string{fakeShard(t, 1, nil), fakeShard(t, 2, nil)}

	dih, err := NewDomainInputHandle(addrs)
	require.NoError(t, err)

	p := arbor.NewMessage(arbor.PacketID{Label: 1}, []arbor.Record{{Positive: []any{int64(1), int64(2)}}})
	_, err = dih.BaseSend(p, []int{0, 1}, false)
	assert.Error(t, err)
}

func TestDomainInputHandleWaitIsLastAckAcrossShards(t *testing.T) {
	addrs := []string{fakeShard(t, 100, nil), fakeShard(t, 200, nil)}

	dih, err := NewDomainInputHandle(addrs)
	require.NoError(t, err)

	records := []arbor.Record{
		{Positive: []any{int64(0), "a"}},
		{Positive: []any{int64(1), "b"}},
	}
	p := arbor.NewMessage(arbor.PacketID{Label: 1}, records)

	id, err := dih.BaseSend(p, []int{0}, false)
	require.NoError(t, err)
	assert.Contains(t, []int64{100, 200}, id, "last ack wins: whichever shard's reply is read last")
}
