// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package shard computes the shard a base-table record's key routes to.
package shard

import (
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// By hashes key and returns its shard index in [0, n). n == 1 always
// returns 0 without hashing, matching the single-shard fast path in
// DomainInputHandle.
func By(key any, n int) (int, error) {
	if n <= 0 {
		return 0, errors.Errorf("shard: invalid shard count %d", n)
	}
	if n == 1 {
		return 0, nil
	}

	b, err := msgpack.Marshal(key)
	if err != nil {
		return 0, errors.Wrap(err, "shard: encoding key")
	}
	return int(xxhash.Sum64(b) % uint64(n)), nil
}
