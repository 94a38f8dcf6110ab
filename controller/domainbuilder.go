// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package controller implements the controller-side collaborators the
// provenance and ingress core depends on: DomainHandle, DomainInputHandle,
// and the ChannelCoordinator they share. The SQL→dataflow compiler and
// operator semantics that would normally produce a DomainBuilder's node
// set are out of scope here; DomainBuilder carries only what the boot and
// migration protocol itself needs.
package controller

import "github.com/arborflow/arbor"

// DomainConfig carries the handful of per-domain runtime knobs the core
// cares about. Full configuration parsing (flags, files, env) is an
// explicit non-goal of this core; the benchmark harness in cmd/piazzabench
// is the only component with a real flag surface.
type DomainConfig struct {
	// TrimDepth bounds the provenance every outgoing packet carries; see
	// TreeClock.Trim.
	TrimDepth int
}

// PersistenceParameters is a placeholder for the WAL/durability knobs the
// original groups with DomainBuilder. Persistence itself is out of scope.
type PersistenceParameters struct {
	Mode string
}

// NodeAssignment names one dataflow node hosted by a domain shard and
// whether it is materialized locally on the worker process that already
// hosts one of this domain's peers.
type NodeAssignment struct {
	NodeIndex int64
	Local     bool
}

// DomainBuilder is the self-contained description of one domain shard
// sent to a worker in an AssignDomain coordination message. All shards of
// a domain share everything but Shard and ControlAddr.
type DomainBuilder struct {
	Index       arbor.DomainIndex    `msgpack:"index"`
	Shard       int                  `msgpack:"shard"`
	NShards     int                  `msgpack:"nshards"`
	Config      DomainConfig         `msgpack:"config"`
	Nodes       []NodeAssignment     `msgpack:"nodes"`
	Persistence PersistenceParameters `msgpack:"persistence"`
	TS          int64                `msgpack:"ts"`
	ControlAddr string               `msgpack:"control_addr"`
	DebugAddr   string               `msgpack:"debug_addr,omitempty"`
}
