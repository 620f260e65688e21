// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids provides the monotonic, time-sortable 128-bit identifiers
// used throughout the snapshot graph: node ids, edge ids, lineage ids, and
// change set ids all share this type.
package ids

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"
)

// Size is the width, in bytes, of an ID.
const Size = 16

// ID is a 128-bit identifier: a 48-bit millisecond timestamp followed by 80
// bits of entropy. Two IDs minted in the same process in the same
// millisecond are still totally ordered by a monotonic counter folded into
// the entropy bytes, so IDs are safe to use as time-sortable keys.
type ID [Size]byte

// Empty is the zero value, never returned by New.
var Empty ID

// String renders the canonical lowercase hex form.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Compare gives a total, time-respecting order over IDs.
func (id ID) Compare(other ID) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool {
	return id.Compare(other) < 0
}

var (
	genMu       sync.Mutex
	lastMillis  uint64
	lastEntropy [10]byte
)

// New mints a fresh, time-sortable ID. Safe for concurrent use.
func New() ID {
	genMu.Lock()
	defer genMu.Unlock()

	millis := uint64(time.Now().UnixMilli())
	var entropy [10]byte

	if millis <= lastMillis {
		// Same millisecond (or clock regressed): keep monotonicity by
		// treating the entropy as a big-endian counter and incrementing it.
		millis = lastMillis
		entropy = lastEntropy
		incEntropy(&entropy)
	} else {
		if _, err := rand.Read(entropy[:]); err != nil {
			panic("ids: failed to read random entropy: " + err.Error())
		}
	}

	lastMillis = millis
	lastEntropy = entropy

	var id ID
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], millis)
	copy(id[:6], tsBuf[2:]) // low 48 bits of the millisecond timestamp
	copy(id[6:], entropy[:])
	return id
}

func incEntropy(e *[10]byte) {
	for i := len(e) - 1; i >= 0; i-- {
		e[i]++
		if e[i] != 0 {
			return
		}
	}
}

// FromString parses the canonical hex form produced by String.
func FromString(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != Size {
		return id, errInvalidLength
	}
	copy(id[:], b)
	return id, nil
}
