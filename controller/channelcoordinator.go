// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"sync"

	"github.com/arborflow/arbor"
	"github.com/pkg/errors"
)

// ChannelCoordinator is the one process-wide mutable registry in scope:
// it maps a replica address to the data-plane address packets should be
// sent to, and whether delivery there is local (in-process). Writes
// happen only from the migration thread of the local controller in
// response to a DomainBooted notification; reads come from any domain
// thread and are served from a brief read lock, the closest Go analogue
// to a lock-free snapshot read.
type ChannelCoordinator struct {
	mu    sync.RWMutex
	addrs map[arbor.ReplicaAddr]routeEntry
}

type routeEntry struct {
	dataAddr string
	local    bool
}

// NewChannelCoordinator returns an empty coordinator.
func NewChannelCoordinator() *ChannelCoordinator {
	return &ChannelCoordinator{addrs: make(map[arbor.ReplicaAddr]routeEntry)}
}

// InsertAddr registers (or overwrites) the route for addr.
func (cc *ChannelCoordinator) InsertAddr(addr arbor.ReplicaAddr, dataAddr string, local bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.addrs[addr] = routeEntry{dataAddr: dataAddr, local: local}
}

// IsLocal reports whether addr was registered as in-process.
func (cc *ChannelCoordinator) IsLocal(addr arbor.ReplicaAddr) bool {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.addrs[addr].local
}

// GetTx dials (or would reuse, in a fuller implementation) the packet
// sender for addr's registered data address.
func (cc *ChannelCoordinator) GetTx(addr arbor.ReplicaAddr) (*arbor.PacketSender, error) {
	cc.mu.RLock()
	entry, ok := cc.addrs[addr]
	cc.mu.RUnlock()

	if !ok {
		return nil, errors.Errorf("channel coordinator: no route registered for %v", addr)
	}
	return arbor.DialPacketSender(entry.dataAddr)
}
