// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package wire implements the length-prefixed msgpack framing shared by
// every TCP connection in arbor: domain-to-domain packet channels,
// controller-to-worker coordination channels, and worker-to-controller
// control-reply channels alike. It plays the role channel::tcp's framed
// TcpSender/TcpReceiver play in the original implementation this package
// is modeled on.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// maxFrameBytes bounds a single frame so a corrupt length header can't
// make ReadFramed try to allocate an unbounded buffer.
const maxFrameBytes = 64 << 20 // 64MiB

// WriteFramed marshals v with msgpack and writes it to w as a 4-byte
// big-endian length prefix followed by the payload.
func WriteFramed(w io.Writer, v any) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "wire: marshal")
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))

	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "wire: write length prefix")
	}
	if _, err := w.Write(b); err != nil {
		return errors.Wrap(err, "wire: write payload")
	}
	return nil
}

// ReadFramed reads one length-prefixed msgpack frame from r into v.
func ReadFramed(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return errors.Wrap(err, "wire: read length prefix")
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameBytes {
		return errors.Errorf("wire: frame of %d bytes exceeds %d byte limit", n, maxFrameBytes)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Wrap(err, "wire: read payload")
	}
	return errors.Wrap(msgpack.Unmarshal(buf, v), "wire: unmarshal")
}
