// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

// Ingress is the receive-side state of a cross-domain edge at a consumer:
// the highest label observed per parent, and the currently wired parent.
// An Ingress is created with its owning domain and outlives failovers; all
// of its mutation happens on the owning domain's own thread.
type Ingress struct {
	src                *ReplicaAddr
	lastPacketReceived map[ReplicaAddr]Label
}

// NewIngress returns an unwired Ingress ready for SetSrc.
func NewIngress() *Ingress {
	return &Ingress{lastPacketReceived: make(map[ReplicaAddr]Label)}
}

// SetSrc wires the parent for this edge. One-shot: it is an invariant
// breach to call it twice.
func (in *Ingress) SetSrc(src ReplicaAddr) {
	invariant(in.src == nil, "ingress: set_src called twice (already wired to %v)", in.src)
	in.src = &src
}

// Src returns the current parent. Panics if the edge has not been wired
// yet, matching the original's "ingress should have a parent domain".
func (in *Ingress) Src() ReplicaAddr {
	invariant(in.src != nil, "ingress: no parent domain set")
	return *in.src
}

// PacketIdentity is the subset of a packet's id block that Ingress cares
// about: where it came from, what label it carries, and whether it is a
// replay (which may legitimately repeat the most recently observed
// label).
type PacketIdentity struct {
	From     ReplicaAddr
	Label    Label
	IsReplay bool
}

// ReceivePacket records the label observed from a parent. Labels from a
// single parent must strictly increase, except that a replay may repeat
// the most recently observed label. A label below the last one seen, or
// an equal label on a non-replay, is a protocol violation and is fatal to
// the domain; the label is then not recorded. Repeats by replays are not
// counted, so every replay at the last label is accepted.
func (in *Ingress) ReceivePacket(id PacketIdentity) error {
	old, ok := in.lastPacketReceived[id.From]
	if ok {
		if id.Label < old {
			return errProtocolViolationf("label went backwards from %v: %d < %d", id.From, id.Label, old)
		}
		if id.Label == old && !id.IsReplay {
			return errProtocolViolationf("repeated label %d from %v on a non-replay packet", id.Label, id.From)
		}
	}

	in.lastPacketReceived[id.From] = id.Label
	return nil
}

// NewIncoming replaces the incoming connection from old with new, as
// directed by the controller after old's producer has been replaced. The
// current src must be old. Returns the label of the first message the
// replacement producer must transmit.
func (in *Ingress) NewIncoming(old, repl ReplicaAddr) Label {
	invariant(in.src != nil && *in.src == old, "ingress: new_incoming: src is %v, not %v", in.src, old)

	in.src = &repl
	label := in.lastPacketReceived[old]
	delete(in.lastPacketReceived, old)
	in.lastPacketReceived[repl] = label

	return label + 1
}
