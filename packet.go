// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import "github.com/vmihailenco/msgpack/v5"

// PacketID is the identity block carried by every packet: where it
// originated, what label it was assigned there, and the upstream
// provenance contributed along the way.
type PacketID struct {
	From       ReplicaAddr    `msgpack:"from"`
	Label      Label          `msgpack:"label"`
	Provenance *TreeClockDiff `msgpack:"provenance"`
}

// Record is a single row moving through the dataflow: a positive or
// negative delta, or a delete keyed only by its key columns.
type Record struct {
	Positive      []any `msgpack:"positive,omitempty"`
	Negative      []any `msgpack:"negative,omitempty"`
	DeleteRequest []any `msgpack:"delete_request,omitempty"`
}

// isDelete reports whether r is a delete request.
func (r Record) isDelete() bool { return r.DeleteRequest != nil }

// Key extracts the value of the given key column from the payload row for
// inserts/updates. For deletes it returns the first value of the key tuple,
// whatever keyCol is.
func (r Record) Key(keyCol int) any {
	if r.isDelete() {
		return r.DeleteRequest[0]
	}
	if r.Positive != nil {
		return r.Positive[keyCol]
	}
	return r.Negative[keyCol]
}

// PacketKind discriminates the packet envelope's variant.
type PacketKind int

const (
	// KindMessage is an ordinary forward-flowing update.
	KindMessage PacketKind = iota
	// KindReplayPiece is a packet resent during recovery; it may
	// legitimately repeat an already-observed label at Ingress.
	KindReplayPiece
)

// Packet is the tagged-union envelope that flows between domains. Message
// and ReplayPiece share the same identity block and data payload; only the
// Kind and recovery-specific fields differ.
type Packet struct {
	Kind     PacketKind `msgpack:"kind"`
	ID       PacketID   `msgpack:"id"`
	Data     []Record   `msgpack:"data"`
	ReplayID int64      `msgpack:"replay_id,omitempty"`

	// Local is a cheap marker set by MakeLocal: the payload is unchanged,
	// but the receiver is permitted to bypass deserialization because it
	// is being delivered to a domain in the same process.
	Local bool `msgpack:"-"`
}

// NewMessage builds a forward-flowing Message packet.
func NewMessage(id PacketID, data []Record) *Packet {
	return &Packet{Kind: KindMessage, ID: id, Data: data}
}

// NewReplayPiece builds a ReplayPiece packet for the given recovery round.
func NewReplayPiece(id PacketID, data []Record, replayID int64) *Packet {
	return &Packet{Kind: KindReplayPiece, ID: id, Data: data, ReplayID: replayID}
}

// Identity extracts the (from, label, is_replay) triple Ingress needs from
// the packet's id block.
func (p *Packet) Identity() PacketIdentity {
	return PacketIdentity{
		From:     p.ID.From,
		Label:    p.ID.Label,
		IsReplay: p.Kind == KindReplayPiece,
	}
}

// CloneData returns a copy of the envelope with its own copy of Data, the
// source packet's Data left untouched.
func (p *Packet) CloneData() *Packet {
	clone := *p
	clone.Data = append([]Record(nil), p.Data...)
	return &clone
}

// TakeData empties p.Data and returns what it held, leaving p with a nil
// payload ready to be refilled (e.g. per-shard, in DomainInputHandle).
func (p *Packet) TakeData() []Record {
	data := p.Data
	p.Data = nil
	return data
}

// SwapData installs data as the packet's payload, returning the old one.
func (p *Packet) SwapData(data []Record) []Record {
	old := p.Data
	p.Data = data
	return old
}

// MakeLocal marks the packet as destined for an in-process delivery: the
// payload is unchanged, but the receiver may skip reserialization.
func (p *Packet) MakeLocal() *Packet {
	p.Local = true
	return p
}

// Encode serializes the packet to its wire form.
func (p *Packet) Encode() ([]byte, error) {
	return msgpack.Marshal(p)
}

// DecodePacket deserializes a packet from its wire form.
func DecodePacket(b []byte) (*Packet, error) {
	var p Packet
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
