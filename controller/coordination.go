// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import "github.com/arborflow/arbor"

// CoordinationPayloadKind discriminates CoordinationMessage's payload.
type CoordinationPayloadKind int

const (
	// PayloadAssignDomain instructs a worker to boot the enclosed
	// DomainBuilder.
	PayloadAssignDomain CoordinationPayloadKind = iota
	// PayloadDomainBooted informs a worker's ChannelCoordinator that a
	// domain shard is now reachable at DataAddr, so future packets can be
	// routed to it.
	PayloadDomainBooted
)

// CoordinationMessage is exchanged between the controller and worker
// processes. Every message carries the controller's current epoch; a
// receiver whose own epoch disagrees drops the message rather than acting
// on it, discarding messages from a controller it no longer considers
// current.
type CoordinationMessage struct {
	Epoch  arbor.Epoch             `msgpack:"epoch"`
	Source string                  `msgpack:"source"`
	Kind   CoordinationPayloadKind `msgpack:"kind"`

	// Builder is set when Kind == PayloadAssignDomain.
	Builder *DomainBuilder `msgpack:"builder,omitempty"`

	// BootedAddr/DataAddr are set when Kind == PayloadDomainBooted.
	BootedAddr arbor.ReplicaAddr `msgpack:"booted_addr"`
	DataAddr   string            `msgpack:"data_addr,omitempty"`
}

// ControlReplyKind discriminates ControlReplyPacket's payload.
type ControlReplyKind int

const (
	// ReplyBooted reports that a domain shard finished booting and is
	// reachable at DataAddr.
	ReplyBooted ControlReplyKind = iota
	// ReplyAck acknowledges a control request with no data of its own.
	ReplyAck
	// ReplyStateSize answers a state-size query.
	ReplyStateSize
	// ReplyStatistics answers a statistics query.
	ReplyStatistics
)

// DomainStats summarizes a domain shard's runtime counters. The full
// metric catalog a production dataflow engine would expose (per-operator
// timings, memory, backlog) is out of scope for this core; this is the
// minimal shape wait_for_statistics needs to exist at all.
type DomainStats struct {
	TotalTime    int64 `msgpack:"total_time_ns"`
	ProcessTime  int64 `msgpack:"process_time_ns"`
	ProcessCount uint64 `msgpack:"process_count"`
}

// NodeStats is the per-node counterpart of DomainStats.
type NodeStats struct {
	ProcessTime  int64  `msgpack:"process_time_ns"`
	ProcessCount uint64 `msgpack:"process_count"`
	MemorySize   uint64 `msgpack:"memory_size"`
}

// ControlReplyPacket is a worker's reply on a domain shard's control
// channel. Epoch echoes the controller epoch the reply was produced
// under, so a controller that has since moved on can tell a reply apart
// from a stale control connection left over from a previous epoch.
type ControlReplyPacket struct {
	Kind  ControlReplyKind `msgpack:"kind"`
	Epoch arbor.Epoch      `msgpack:"epoch"`

	// Shard and DataAddr are set on ReplyBooted.
	Shard    int    `msgpack:"shard"`
	DataAddr string `msgpack:"data_addr,omitempty"`

	// StateSize is set on ReplyStateSize.
	StateSize uint64 `msgpack:"state_size,omitempty"`

	// Domain/Nodes are set on ReplyStatistics.
	Domain DomainStats         `msgpack:"domain_stats"`
	Nodes  map[int64]NodeStats `msgpack:"node_stats,omitempty"`
}

// ShardStats is one shard's contribution to DomainHandle.WaitForStatistics.
type ShardStats struct {
	Domain DomainStats
	Nodes  map[int64]NodeStats
}

// WaitError is returned by the wait_for_* family when a shard answers
// with a reply of an unexpected variant.
type WaitError struct {
	Actual ControlReplyPacket
}

func (e *WaitError) Error() string {
	return "control reply: wrong variant"
}

// Is reports that WaitError participates in the arbor.ErrWrongReply
// sentinel family, so callers can errors.Is(err, arbor.ErrWrongReply)
// without caring about the reply payload.
func (e *WaitError) Is(target error) bool {
	return target == arbor.ErrWrongReply
}
