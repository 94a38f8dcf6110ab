// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import "github.com/pkg/errors"

// ErrWrongReply is returned by the control-reply waiters in package
// controller when a shard answers with a reply of the wrong variant.
var ErrWrongReply = errors.New("control reply: wrong variant")

// ErrProtocolViolation marks a fatal, non-recoverable ingress sequencing
// violation: a non-increasing label on a non-replay packet.
var ErrProtocolViolation = errors.New("ingress: protocol violation")

// errProtocolViolationf wraps ErrProtocolViolation with a formatted
// message describing which sequencing rule was broken. Unlike an
// invariant breach this is surfaced to the caller (who tears down the
// domain's connection) rather than panicking directly.
func errProtocolViolationf(format string, args ...any) error {
	return errors.Wrapf(ErrProtocolViolation, format, args...)
}

// invariant panics with a wrapped error if cond is false. Invariant
// breaches (mismatched TreeClock roots, operating on an unwired Ingress,
// new_incoming on an unknown parent, ...) represent bugs in the caller,
// not conditions a domain can recover from at runtime, so they abort the
// process rather than propagate as errors.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.Errorf(format, args...))
	}
}
