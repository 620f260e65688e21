// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package serialize persists a snapshot graph to CBOR, the wire format
// used throughout this module's domain stack, and reloads it verbatim:
// node and edge indices, tombstones, ids, and Merkle hashes all survive
// the round trip unchanged.
package serialize

import (
	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/log"

	"github.com/luxfi/snapgraph/graph"
)

// ErrDecode wraps any failure to decode a persisted snapshot.
var ErrDecode = errors.New("serialize: failed to decode snapshot")

// encMode mirrors the teacher's preference for deterministic, canonical
// output: sorted map keys, so two encodings of the same snapshot are
// byte-identical.
var encMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Marshal encodes s's full node/edge slot state, including tombstones, to
// CBOR.
func Marshal(s *graph.Snapshot) ([]byte, error) {
	return encMode.Marshal(s.Export())
}

// Unmarshal decodes data produced by Marshal back into a live Snapshot.
// logger may be nil, matching graph.Import's default.
func Unmarshal(data []byte, logger log.Logger) (*graph.Snapshot, error) {
	var exp graph.Export
	if err := cbor.Unmarshal(data, &exp); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding export"), ErrDecode)
	}
	return graph.Import(exp, logger), nil
}
