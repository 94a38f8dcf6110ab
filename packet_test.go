// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketIdentityReflectsReplayKind(t *testing.T) {
	msg := NewMessage(PacketID{From: addr(1), Label: 4}, nil)
	assert.False(t, msg.Identity().IsReplay)

	replay := NewReplayPiece(PacketID{From: addr(1), Label: 4}, nil, 7)
	assert.True(t, replay.Identity().IsReplay)
}

func TestPacketCloneDataIsIndependent(t *testing.T) {
	orig := NewMessage(PacketID{From: addr(1), Label: 1}, []Record{{Positive: []any{1, "a"}}})
	clone := orig.CloneData()

	clone.Data[0] = Record{Positive: []any{2, "b"}}

	assert.Equal(t, 1, orig.Data[0].Positive[0])
}

func TestPacketTakeAndSwapData(t *testing.T) {
	p := NewMessage(PacketID{From: addr(1), Label: 1}, []Record{{Positive: []any{1}}})

	taken := p.TakeData()
	assert.Len(t, taken, 1)
	assert.Nil(t, p.Data)

	old := p.SwapData([]Record{{Positive: []any{2}}})
	assert.Nil(t, old)
	assert.Len(t, p.Data, 1)
}

func TestPacketMakeLocalMarksWithoutTouchingData(t *testing.T) {
	p := NewMessage(PacketID{From: addr(1), Label: 1}, []Record{{Positive: []any{1}}})
	local := p.MakeLocal()
	assert.True(t, local.Local)
	assert.Len(t, local.Data, 1)
}

func TestRecordKeyExtraction(t *testing.T) {
	pos := Record{Positive: []any{int64(5), "x"}}
	assert.Equal(t, int64(5), pos.Key(0))

	neg := Record{Negative: []any{int64(5), "x"}}
	assert.Equal(t, int64(5), neg.Key(0))

	del := Record{DeleteRequest: []any{int64(9)}}
	assert.True(t, del.isDelete())
	assert.Equal(t, int64(9), del.Key(0))
}

func TestPacketEncodeDecodeRoundTrip(t *testing.T) {
	orig := NewMessage(PacketID{
		From:       addr(1),
		Label:      3,
		Provenance: NewWith(addr(1), 3, New(addr(0), 2)),
	}, []Record{{Positive: []any{int64(1)}}})

	b, err := orig.Encode()
	require.NoError(t, err)

	got, err := DecodePacket(b)
	require.NoError(t, err)

	assert.Equal(t, orig.Kind, got.Kind)
	assert.Equal(t, orig.ID.From, got.ID.From)
	assert.Equal(t, orig.ID.Label, got.ID.Label)
	assert.Equal(t, orig.ID.Provenance.Root(), got.ID.Provenance.Root())
	assert.Equal(t, orig.ID.Provenance.Label(), got.ID.Provenance.Label())
	assert.False(t, got.Local, "Local is excluded from the wire form")
}
