// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package edge defines the per-edge payload ("edge weight") carried on
// every arc of a workspace snapshot graph.
package edge

import (
	"github.com/luxfi/snapgraph/ids"
	"github.com/luxfi/snapgraph/vectorclock"
)

// Kind tags the semantic role an edge plays.
type Kind uint8

const (
	KindUses Kind = iota
	KindOrdering
	KindContains
)

func (k Kind) String() string {
	switch k {
	case KindUses:
		return "uses"
	case KindOrdering:
		return "ordering"
	case KindContains:
		return "contains"
	default:
		return "unknown"
	}
}

// Weight is the full per-edge payload, carrying the same three vector
// clocks as a node, at edge granularity.
type Weight struct {
	Kind Kind

	VectorClockWrite        *vectorclock.Clock
	VectorClockFirstSeen    *vectorclock.Clock
	VectorClockRecentlySeen *vectorclock.Clock
}

// New creates an edge weight for change set cs with all three clocks
// freshly seeded.
func New(cs ids.ID, kind Kind) *Weight {
	return &Weight{
		Kind:                    kind,
		VectorClockWrite:        vectorclock.New(cs),
		VectorClockFirstSeen:    vectorclock.New(cs),
		VectorClockRecentlySeen: vectorclock.New(cs),
	}
}

// Clone returns an independent copy with its own clocks.
func (w *Weight) Clone() *Weight {
	return &Weight{
		Kind:                    w.Kind,
		VectorClockWrite:        w.VectorClockWrite.Clone(),
		VectorClockFirstSeen:    w.VectorClockFirstSeen.Clone(),
		VectorClockRecentlySeen: w.VectorClockRecentlySeen.Clone(),
	}
}

// Advance mutates w's write and first-seen clocks in place for cs. Used
// when the edge weight itself is the target of a mutation.
func (w *Weight) Advance(cs ids.ID) {
	w.VectorClockWrite.Inc(cs)
	w.MarkFirstSeen(cs)
}

// Advanced returns a copy of w with Advance applied, leaving w untouched.
// Mirrors the original's `EdgeWeight::new_with_incremented_vector_clocks`,
// used every time replace_references re-points an edge at a copied node.
func (w *Weight) Advanced(cs ids.ID) *Weight {
	cp := w.Clone()
	cp.Advance(cs)
	return cp
}

// MarkFirstSeen sets the first-seen entry for cs, once.
func (w *Weight) MarkFirstSeen(cs ids.ID) {
	if _, ok := w.VectorClockFirstSeen.EntryFor(cs); !ok {
		w.VectorClockFirstSeen.Inc(cs)
	}
}

// MarkRecentlySeen advances the recently-seen clock.
func (w *Weight) MarkRecentlySeen(cs ids.ID) {
	w.VectorClockRecentlySeen.Inc(cs)
}
