// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import (
	"net"
	"sync"

	"github.com/arborflow/arbor/internal/wire"
	"github.com/pkg/errors"
)

// PacketSender is the outbound side of a domain-to-domain packet channel:
// one TCP connection per consumer shard, framed with package wire.
type PacketSender struct {
	mu   sync.Mutex
	conn net.Conn
}

// DialPacketSender opens a packet channel to a domain shard listening at
// addr.
func DialPacketSender(addr string) (*PacketSender, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing packet sender at %s", addr)
	}
	return &PacketSender{conn: conn}, nil
}

// Send writes p to the channel.
func (s *PacketSender) Send(p *Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wire.WriteFramed(s.conn, p)
}

// AckReply is what a base-table write gets back per packet sent: the
// write id assigned by the shard it landed on, or a failure sentinel.
type AckReply struct {
	ID     int64 `msgpack:"id"`
	Failed bool  `msgpack:"failed"`
}

// ReadAck blocks for the next framed acknowledgement on this channel.
func (s *PacketSender) ReadAck() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ack AckReply
	if err := wire.ReadFramed(s.conn, &ack); err != nil {
		return 0, errors.Wrap(err, "reading ack")
	}
	if ack.Failed {
		return 0, errors.New("base write failed")
	}
	return ack.ID, nil
}

// Close tears down the underlying connection.
func (s *PacketSender) Close() error {
	return s.conn.Close()
}
