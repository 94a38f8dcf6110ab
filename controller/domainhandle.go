// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"net"

	"github.com/arborflow/arbor"
	"github.com/arborflow/arbor/internal/wire"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shardTx is the data-plane sender for one domain shard, plus whether
// its worker is the controller's co-located one. Send/SendToShard clone
// and mark a packet local before handing it to a local shard's sender;
// see ChannelCoordinator.IsLocal for the same flag's read side.
type shardTx struct {
	sender *arbor.PacketSender
	local  bool
}

// shardReply pairs a control reply with the shard it arrived from, the
// shape every shard's control-reading goroutine feeds into DomainHandle's
// shared reply channel.
type shardReply struct {
	shard  int
	packet ControlReplyPacket
}

// DomainHandle is the controller-side handle to every shard of one
// domain: it drives the boot protocol, then fans writes out to and
// collects control replies in from all shards.
//
// In place of a single mio-based polling loop, every shard's control
// connection is read by its own goroutine; all of them funnel into one
// channel so wait_for_ack/wait_for_state_size/wait_for_statistics and the
// boot loop itself can share a single consumer instead of a loop per
// shard.
type DomainHandle struct {
	idx         arbor.DomainIndex
	replies     chan shardReply
	txs         []shardTx
	assignments []WorkerIdentifier
	shardLocal  []bool
	log         *zap.Logger
}

// NewDomainHandle boots every shard of domain idx: it assigns each shard
// to a worker in placer order, then waits for all of them to report
// booted, broadcasting DomainBooted for each shard to every worker in
// workers as that shard reports, before returning.
//
// Those broadcasts are driven from the caller's goroutine, which waits
// for each one to be written, strictly before NewDomainHandle returns and before any other domain can query
// this one for readiness. Reordering it after a readiness query would
// let a reader observe a domain as ready before any worker's
// ChannelCoordinator has learned how to route to it, deadlocking the
// reader against a route that will never arrive.
func NewDomainHandle(
	idx arbor.DomainIndex,
	numShards int,
	log *zap.Logger,
	cfg DomainConfig,
	nodes []NodeAssignment,
	persistence PersistenceParameters,
	cc *ChannelCoordinator,
	placer Placer,
	workers []*WorkerEndpoint,
	epoch arbor.Epoch,
	ts int64,
) (*DomainHandle, error) {
	dh := &DomainHandle{
		idx:         idx,
		replies:     make(chan shardReply, numShards),
		txs:         make([]shardTx, numShards),
		assignments: make([]WorkerIdentifier, numShards),
		shardLocal:  make([]bool, numShards),
		log:         log.With(zap.Int64("domain", int64(idx))),
	}

	for shard := 0; shard < numShards; shard++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, errors.Wrapf(err, "domain %d shard %d: listening for control connection", idx, shard)
		}

		workerID, endpoint, ok := placer.Next()
		if !ok {
			ln.Close()
			return nil, errors.Errorf("domain %d shard %d: no worker available to place on", idx, shard)
		}
		dh.assignments[shard] = workerID
		dh.shardLocal[shard] = endpoint.Local()

		builder := &DomainBuilder{
			Index:       idx,
			Shard:       shard,
			NShards:     numShards,
			Config:      cfg,
			Nodes:       nodes,
			Persistence: persistence,
			TS:          ts,
			ControlAddr: ln.Addr().String(),
		}
		msg := CoordinationMessage{
			Epoch:   epoch,
			Source:  endpoint.LocalAddr(),
			Kind:    PayloadAssignDomain,
			Builder: builder,
		}
		if err := endpoint.Send(msg); err != nil {
			ln.Close()
			return nil, errors.Wrapf(err, "domain %d shard %d: sending assignment to %s", idx, shard, workerID)
		}

		conn, err := ln.Accept()
		ln.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "domain %d shard %d: accepting control connection", idx, shard)
		}

		dh.log.Debug("shard assigned", zap.Int("shard", shard), zap.String("worker", string(workerID)))
		go dh.readControlReplies(shard, conn, epoch)
	}

	if err := dh.awaitBoot(numShards, cc, workers, epoch); err != nil {
		return nil, err
	}
	return dh, nil
}

// readControlReplies streams ControlReplyPackets from one shard's control
// connection into dh.replies, dropping any reply stamped with an epoch
// other than epoch: it was produced by a worker that hadn't yet heard
// about a controller restart, and no longer reflects anything this
// DomainHandle should act on.
func (dh *DomainHandle) readControlReplies(shard int, conn net.Conn, epoch arbor.Epoch) {
	defer conn.Close()
	for {
		var p ControlReplyPacket
		if err := wire.ReadFramed(conn, &p); err != nil {
			dh.log.Debug("control connection closed", zap.Int("shard", shard), zap.Error(err))
			return
		}
		if !epoch.Current(p.Epoch) {
			dh.log.Warn("dropping stale-epoch control reply", zap.Int("shard", shard), zap.Uint64("reply_epoch", uint64(p.Epoch)))
			continue
		}
		dh.replies <- shardReply{shard: shard, packet: p}
	}
}

// awaitBoot blocks until every shard has reported ReplyBooted. As each
// shard reports, it registers that shard's data address with cc and
// broadcasts DomainBooted for it to every worker concurrently, waiting
// for the broadcast before reading the next reply.
func (dh *DomainHandle) awaitBoot(numShards int, cc *ChannelCoordinator, workers []*WorkerEndpoint, epoch arbor.Epoch) error {
	seen := 0
	for seen < numShards {
		r, err := dh.waitForNextReply()
		if err != nil {
			return err
		}
		if r.packet.Kind != ReplyBooted {
			return &WaitError{Actual: r.packet}
		}

		addr := arbor.ReplicaAddr{Domain: dh.idx, Shard: arbor.ShardIndex(r.shard)}
		local := dh.shardLocal[r.shard]
		cc.InsertAddr(addr, r.packet.DataAddr, local)

		tx, err := cc.GetTx(addr)
		if err != nil {
			return errors.Wrapf(err, "domain %d shard %d: dialing data connection", dh.idx, r.shard)
		}
		dh.txs[r.shard] = shardTx{sender: tx, local: local}

		dh.log.Info("shard booted", zap.Int("shard", r.shard), zap.String("data_addr", r.packet.DataAddr))
		seen++

		booted := CoordinationMessage{
			Epoch:      epoch,
			Kind:       PayloadDomainBooted,
			BootedAddr: addr,
			DataAddr:   r.packet.DataAddr,
		}
		var g errgroup.Group
		for _, w := range workers {
			w := w
			g.Go(func() error {
				return w.Send(booted)
			})
		}
		if err := g.Wait(); err != nil {
			return errors.Wrap(err, "broadcasting domain booted notification")
		}
	}
	return nil
}

func (dh *DomainHandle) waitForNextReply() (shardReply, error) {
	r, ok := <-dh.replies
	if !ok {
		return shardReply{}, errors.New("domain handle: reply channel closed")
	}
	return r, nil
}

// WaitForAck blocks for the next control reply and requires it to be a
// plain acknowledgement.
func (dh *DomainHandle) WaitForAck() error {
	r, err := dh.waitForNextReply()
	if err != nil {
		return err
	}
	if r.packet.Kind != ReplyAck {
		return &WaitError{Actual: r.packet}
	}
	return nil
}

// WaitForStateSize blocks for the next control reply and requires it to
// carry a state size.
func (dh *DomainHandle) WaitForStateSize() (uint64, error) {
	r, err := dh.waitForNextReply()
	if err != nil {
		return 0, err
	}
	if r.packet.Kind != ReplyStateSize {
		return 0, &WaitError{Actual: r.packet}
	}
	return r.packet.StateSize, nil
}

// WaitForStatistics blocks for one statistics reply per shard and
// returns them in shard order.
func (dh *DomainHandle) WaitForStatistics() ([]ShardStats, error) {
	out := make([]ShardStats, len(dh.txs))
	seen := 0
	for seen < len(dh.txs) {
		r, err := dh.waitForNextReply()
		if err != nil {
			return nil, err
		}
		if r.packet.Kind != ReplyStatistics {
			return nil, &WaitError{Actual: r.packet}
		}
		out[r.shard] = ShardStats{Domain: r.packet.Domain, Nodes: r.packet.Nodes}
		seen++
	}
	return out, nil
}

// Send delivers p to every shard of this domain. A shard flagged local
// gets its own cloned, make_local'd copy; the rest share the original.
func (dh *DomainHandle) Send(p *arbor.Packet) error {
	for _, tx := range dh.txs {
		out := p
		if tx.local {
			out = p.CloneData().MakeLocal()
		}
		if err := tx.sender.Send(out); err != nil {
			return err
		}
	}
	return nil
}

// SendToShard delivers p to one shard only, marking it local in place if
// that shard is local - the caller is expected to relinquish p.
func (dh *DomainHandle) SendToShard(i int, p *arbor.Packet) error {
	if i < 0 || i >= len(dh.txs) {
		return errors.Errorf("domain %d: no such shard %d", dh.idx, i)
	}
	if dh.txs[i].local {
		p = p.MakeLocal()
	}
	return dh.txs[i].sender.Send(p)
}

// Shards reports how many shards this domain has.
func (dh *DomainHandle) Shards() int { return len(dh.txs) }

// Assignment reports which worker shard i was placed on.
func (dh *DomainHandle) Assignment(i int) WorkerIdentifier { return dh.assignments[i] }
