// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contenthash provides the fixed-width content digest used for
// both node payload hashes and Merkle tree hashes in the snapshot graph.
package contenthash

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Size is the width, in bytes, of a Hash.
const Size = 32

// Hash is a BLAKE3-256 digest. The zero value represents "no content yet"
// and must never be treated as a valid hash of real content.
type Hash [Size]byte

// String renders the canonical lowercase hex form used as hash input
// elsewhere (e.g. when folding a node's hash into its parent's Merkle hash).
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the unset value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Of hashes a single byte string in one call.
func Of(data []byte) Hash {
	h := New()
	h.Update(data)
	return h.Finalize()
}

// Hasher is a streaming hasher: call Update any number of times, then
// Finalize exactly once.
type Hasher struct {
	inner *blake3.Hasher
}

// New returns a fresh streaming hasher.
func New() Hasher {
	return Hasher{inner: blake3.New()}
}

// Update feeds more bytes into the digest. Never returns an error; blake3's
// Hasher.Write never fails.
func (h Hasher) Update(data []byte) {
	_, _ = h.inner.Write(data)
}

// Finalize returns the digest of everything written so far.
func (h Hasher) Finalize() Hash {
	var out Hash
	sum := h.inner.Sum(nil)
	copy(out[:], sum)
	return out
}

// FromBytes interprets b as a raw digest, panicking if the length is wrong;
// used only for trusted internal round-trips (e.g. deserialization), never
// for hashing arbitrary input.
func FromBytes(b []byte) Hash {
	if len(b) != Size {
		panic("contenthash: digest must be 32 bytes")
	}
	var h Hash
	copy(h[:], b)
	return h
}
