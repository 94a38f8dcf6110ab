// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package controller

import (
	"net"
	"sync"

	"github.com/arborflow/arbor/internal/wire"
	"github.com/pkg/errors"
)

// WorkerIdentifier names one worker process.
type WorkerIdentifier string

// WorkerEndpoint is a controller's coordination channel to one worker.
// Sends are guarded by a coarse lock acquired only for the duration of the
// write, then released before the caller waits on any reply - boot
// broadcasts never nest a worker lock inside a domain-ready wait.
type WorkerEndpoint struct {
	mu    sync.Mutex
	id    WorkerIdentifier
	conn  net.Conn
	local bool
}

// DialWorkerEndpoint opens a coordination channel to the worker listening
// at addr. local marks this as the controller's own co-located worker (the
// worker every controller process also runs so it can place domains
// without a network hop); domains placed there are delivered in-process.
func DialWorkerEndpoint(id WorkerIdentifier, addr string, local bool) (*WorkerEndpoint, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing worker %s", id)
	}
	return &WorkerEndpoint{id: id, conn: conn, local: local}, nil
}

// ID returns the worker's identifier.
func (w *WorkerEndpoint) ID() WorkerIdentifier { return w.id }

// Local reports whether this endpoint is the controller's co-located
// worker: a shard placed here is delivered in-process rather than over
// the data-plane transport.
func (w *WorkerEndpoint) Local() bool { return w.local }

// Send delivers msg over the coordination channel.
func (w *WorkerEndpoint) Send(msg CoordinationMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wire.WriteFramed(w.conn, msg)
}

// LocalAddr is the controller-side address of this coordination channel,
// used as the Source field of outgoing CoordinationMessages.
func (w *WorkerEndpoint) LocalAddr() string {
	return w.conn.LocalAddr().String()
}

// Placer yields the next (worker, endpoint) pair to assign a domain shard
// to. Failure-aware or load-aware replacement placement is a non-goal of
// this core; only the round-robin iterator contract is specified.
type Placer interface {
	Next() (WorkerIdentifier, *WorkerEndpoint, bool)
}

// RoundRobinPlacer assigns shards to workers in round-robin order.
type RoundRobinPlacer struct {
	workers []*WorkerEndpoint
	next    int
}

// NewRoundRobinPlacer returns a placer cycling over workers in order.
func NewRoundRobinPlacer(workers []*WorkerEndpoint) *RoundRobinPlacer {
	return &RoundRobinPlacer{workers: workers}
}

// Next implements Placer.
func (p *RoundRobinPlacer) Next() (WorkerIdentifier, *WorkerEndpoint, bool) {
	if len(p.workers) == 0 {
		return "", nil, false
	}
	w := p.workers[p.next%len(p.workers)]
	p.next++
	return w.id, w, true
}
