// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"github.com/arborflow/arbor"
	"github.com/arborflow/arbor/internal/shard"
	"github.com/pkg/errors"
)

// DomainInputHandle is the base-table write path: one outbound packet
// channel per shard of a base table.
type DomainInputHandle struct {
	txs []*arbor.PacketSender
}

// NewDomainInputHandle dials a packet sender to each of addrs, one per
// shard of the base table, in shard order.
func NewDomainInputHandle(addrs []string) (*DomainInputHandle, error) {
	txs := make([]*arbor.PacketSender, 0, len(addrs))
	for _, addr := range addrs {
		tx, err := arbor.DialPacketSender(addr)
		if err != nil {
			return nil, errors.Wrapf(err, "connecting to shard at %s", addr)
		}
		txs = append(txs, tx)
	}
	return &DomainInputHandle{txs: txs}, nil
}

// Sender starts a new batch of writes against this base table.
func (dih *DomainInputHandle) Sender() *BatchSendHandle {
	return &BatchSendHandle{dih: dih, sent: make([]int, len(dih.txs))}
}

// BaseSend enqueues p as a single batch and waits for every shard it
// touched to acknowledge.
func (dih *DomainInputHandle) BaseSend(p *arbor.Packet, keyCols []int, local bool) (int64, error) {
	s := dih.Sender()
	if err := s.Enqueue(p, keyCols, local); err != nil {
		return 0, err
	}
	return s.Wait()
}

// BatchSendHandle accumulates per-shard send counts across one or more
// Enqueue calls, so Wait can collect exactly as many acks as were sent.
type BatchSendHandle struct {
	dih  *DomainInputHandle
	sent []int
}

// Enqueue routes p onto the base table's shards. With one shard, p is sent
// as-is. With more than one, keyCols must name exactly one column (this
// core does not support composite base sharding); each record is routed
// by hashing its key column value mod the shard count, and a non-empty
// per-shard bucket becomes its own cloned envelope.
func (b *BatchSendHandle) Enqueue(p *arbor.Packet, keyCols []int, local bool) error {
	if len(b.dih.txs) == 1 {
		if local {
			p = p.MakeLocal()
		}
		if err := b.dih.txs[0].Send(p); err != nil {
			return err
		}
		b.sent[0]++
		return nil
	}

	if len(keyCols) == 0 {
		return errors.New("domaininputhandle: sharded base write with no key columns")
	}
	if len(keyCols) != 1 {
		return errors.New("domaininputhandle: composite base sharding is not supported")
	}
	keyCol := keyCols[0]

	nShards := len(b.dih.txs)
	buckets := make([][]arbor.Record, nShards)

	for _, r := range p.TakeData() {
		s, err := shard.By(r.Key(keyCol), nShards)
		if err != nil {
			return errors.Wrap(err, "routing base write")
		}
		buckets[s] = append(buckets[s], r)
	}

	for s, records := range buckets {
		if len(records) == 0 {
			continue
		}
		shardPacket := p.CloneData()
		shardPacket.SwapData(records)
		if local {
			shardPacket = shardPacket.MakeLocal()
		}
		if err := b.dih.txs[s].Send(shardPacket); err != nil {
			return err
		}
		b.sent[s]++
	}
	return nil
}

// Wait collects, for every shard a record was sent to, exactly as many
// acknowledgements as were sent, and returns the last one read.
//
// This "last ack wins" aggregation is inherited unchanged from the
// original implementation (see SPEC_FULL.md open question b): summing,
// maxing, or returning a per-shard vector are all plausible alternatives,
// but none has been adopted, so this remains a documented limitation
// rather than a silent behavior change.
func (b *BatchSendHandle) Wait() (int64, error) {
	var id int64
	for s, n := range b.sent {
		for i := 0; i < n; i++ {
			ackID, err := b.dih.txs[s].ReadAck()
			if err != nil {
				return 0, errors.Wrapf(err, "waiting for ack on shard %d", s)
			}
			id = ackID
		}
	}
	return id, nil
}
