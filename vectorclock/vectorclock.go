// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vectorclock implements the change-set-indexed logical counters
// the snapshot graph uses to decide causality between change sets.
package vectorclock

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/snapgraph/ids"
)

// Clock is a mapping from change set id to a monotone counter. The zero
// value is a valid, empty clock.
type Clock struct {
	entries map[ids.ID]uint64
}

// New returns a clock with a single zeroed entry for cs, matching the
// reference implementation's `VectorClock::new`.
func New(cs ids.ID) *Clock {
	c := &Clock{entries: make(map[ids.ID]uint64, 1)}
	c.entries[cs] = 0
	return c
}

// Clone returns an independent copy.
func (c *Clock) Clone() *Clock {
	cp := &Clock{entries: make(map[ids.ID]uint64, len(c.entries))}
	for k, v := range c.entries {
		cp.entries[k] = v
	}
	return cp
}

// Inc advances cs's entry in place, inserting it at 0 and then incrementing
// if it was previously absent, so the observable post-condition is always
// "the entry strictly exceeds its previous value" (0 counts as absent).
func (c *Clock) Inc(cs ids.ID) {
	if c.entries == nil {
		c.entries = make(map[ids.ID]uint64, 1)
	}
	c.entries[cs] = c.entries[cs] + 1
}

// Incremented returns a copy of c with cs advanced, leaving c untouched.
// Mirrors the reference's `new_with_incremented_vector_clocks`.
func (c *Clock) Incremented(cs ids.ID) *Clock {
	cp := c.Clone()
	cp.Inc(cs)
	return cp
}

// Merge takes the pointwise maximum of c and other, mutating c in place.
func (c *Clock) Merge(other *Clock) {
	if other == nil {
		return
	}
	if c.entries == nil {
		c.entries = make(map[ids.ID]uint64, len(other.entries))
	}
	for cs, v := range other.entries {
		if existing, ok := c.entries[cs]; !ok || v > existing {
			c.entries[cs] = v
		}
	}
}

// Merged returns a new clock holding the pointwise max of c and other.
func (c *Clock) Merged(other *Clock) *Clock {
	cp := c.Clone()
	cp.Merge(other)
	return cp
}

// EntryFor returns cs's counter and whether it is present at all.
func (c *Clock) EntryFor(cs ids.ID) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.entries[cs]
	return v, ok
}

// IsNewerThan reports whether c dominates other: every entry of c is >= the
// corresponding entry of other (entries absent from one side are treated as
// 0), and at least one entry is strictly greater. Two clocks where neither
// dominates the other are concurrent.
func (c *Clock) IsNewerThan(other *Clock) bool {
	strictlyGreater := false
	for cs, v := range c.entries {
		ov, _ := other.EntryFor(cs)
		if v < ov {
			return false
		}
		if v > ov {
			strictlyGreater = true
		}
	}
	for cs, ov := range other.entries {
		if _, ok := c.entries[cs]; ok {
			continue
		}
		if ov > 0 {
			return false
		}
	}
	return strictlyGreater
}

// Concurrent reports whether neither clock dominates the other: the signal
// the rebase engine treats as a conflicting, concurrent write.
func (c *Clock) Concurrent(other *Clock) bool {
	return !c.IsNewerThan(other) && !other.IsNewerThan(c)
}

// HasEntriesNewerThan reports whether any entry in c exceeds threshold.
func (c *Clock) HasEntriesNewerThan(threshold uint64) bool {
	for _, v := range c.entries {
		if v > threshold {
			return true
		}
	}
	return false
}

// Entries returns a defensive copy of the underlying map, for serialization.
func (c *Clock) Entries() map[ids.ID]uint64 {
	out := make(map[ids.ID]uint64, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// FromEntries rebuilds a Clock from a serialized entry map.
func FromEntries(entries map[ids.ID]uint64) *Clock {
	c := &Clock{entries: make(map[ids.ID]uint64, len(entries))}
	for k, v := range entries {
		c.entries[k] = v
	}
	return c
}

// MarshalCBOR implements cbor.Marshaler: entries is unexported, so the
// default struct encoding would see an empty object.
func (c *Clock) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(c.Entries())
}

// UnmarshalCBOR implements cbor.Unmarshaler, the counterpart to MarshalCBOR.
func (c *Clock) UnmarshalCBOR(data []byte) error {
	var entries map[ids.ID]uint64
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.entries = entries
	return nil
}
