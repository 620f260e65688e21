// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node defines the per-node payload ("node weight") carried at
// every vertex of a workspace snapshot graph.
package node

import (
	"github.com/luxfi/snapgraph/contenthash"
	"github.com/luxfi/snapgraph/ids"
	"github.com/luxfi/snapgraph/vectorclock"
)

// Kind tags the structural role a node plays in the graph.
type Kind uint8

const (
	// KindRoot tags the single node reachable from the graph's root index.
	KindRoot Kind = iota
	// KindContent tags a node whose payload lives in object storage and is
	// named here only by a ContentAddress.
	KindContent
	// KindOrdering tags a node holding an explicit child-id sequence.
	KindOrdering
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindContent:
		return "content"
	case KindOrdering:
		return "ordering"
	default:
		return "unknown"
	}
}

// ContentAddressKind discriminates what a KindContent node represents. The
// set mirrors the kinds exercised by the original workspace snapshot graph's
// own fixtures (Schema, SchemaVariant, Component, Func, Prop) plus Socket,
// named explicitly in the governing spec, and Root for the graph's single
// root content node.
type ContentAddressKind uint8

const (
	ContentAddressRoot ContentAddressKind = iota
	ContentAddressSchema
	ContentAddressSchemaVariant
	ContentAddressComponent
	ContentAddressProp
	ContentAddressFunc
	ContentAddressSocket
)

func (k ContentAddressKind) String() string {
	switch k {
	case ContentAddressRoot:
		return "root"
	case ContentAddressSchema:
		return "schema"
	case ContentAddressSchemaVariant:
		return "schema_variant"
	case ContentAddressComponent:
		return "component"
	case ContentAddressProp:
		return "prop"
	case ContentAddressFunc:
		return "func"
	case ContentAddressSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// Weight is the full per-node payload: identity, content addressing, the
// Merkle hash of the subgraph rooted here, and the three vector clocks used
// to decide causality during rebase.
type Weight struct {
	ID        ids.ID
	LineageID ids.ID

	Kind        Kind
	ContentKind ContentAddressKind

	// ContentHash names the external payload; the payload bytes themselves
	// live in object storage, never in the graph.
	ContentHash contenthash.Hash

	// MerkleTreeHash is hash(content_hash || sorted child merkle hashes).
	// Recomputed by the graph package whenever this node or a descendant
	// changes.
	MerkleTreeHash contenthash.Hash

	VectorClockWrite        *vectorclock.Clock
	VectorClockFirstSeen    *vectorclock.Clock
	VectorClockRecentlySeen *vectorclock.Clock

	// Order holds the child-id sequence for a KindOrdering node. Nil for
	// every other kind.
	Order []ids.ID
}

// New creates a node weight for change set cs, seeding all three vector
// clocks and leaving the Merkle hash to be computed by the owning graph.
func New(cs ids.ID, kind Kind, contentKind ContentAddressKind, contentHash contenthash.Hash) *Weight {
	id := ids.New()
	return &Weight{
		ID:                      id,
		LineageID:               ids.New(),
		Kind:                    kind,
		ContentKind:             contentKind,
		ContentHash:             contentHash,
		VectorClockWrite:        vectorclock.New(cs),
		VectorClockFirstSeen:    vectorclock.New(cs),
		VectorClockRecentlySeen: vectorclock.New(cs),
	}
}

// Clone performs the copy-on-write duplication the graph uses for every
// ancestor on a mutation path. Both id and lineage id are preserved: id
// names this logical entity across every version of it a snapshot ever
// holds (so external callers can resolve it via GetNodeIndexByID after an
// edit), and lineage id is what a rebase uses to match a node against its
// counterpart in another snapshot. Only the NodeIndex position changes
// between versions; the vector clocks are cloned so the copy can be
// advanced independently of the original.
func (w *Weight) Clone() *Weight {
	cp := *w
	cp.VectorClockWrite = w.VectorClockWrite.Clone()
	cp.VectorClockFirstSeen = w.VectorClockFirstSeen.Clone()
	cp.VectorClockRecentlySeen = w.VectorClockRecentlySeen.Clone()
	if w.Order != nil {
		cp.Order = append([]ids.ID(nil), w.Order...)
	}
	return &cp
}

// MarkWritten advances the write clock for cs and, when mergeFrom is
// non-nil, merges it into the write clock (pointwise max), so a node copied
// through by two different change sets keeps both change sets' write
// entries. The first-seen and recently-seen clocks are left untouched.
func (w *Weight) MarkWritten(cs ids.ID, mergeFrom *vectorclock.Clock) {
	w.VectorClockWrite.Inc(cs)
	if mergeFrom != nil {
		w.VectorClockWrite.Merge(mergeFrom)
	}
}

// MarkFirstSeen sets the first-seen entry for cs, once, the first time this
// change set observes the node.
func (w *Weight) MarkFirstSeen(cs ids.ID) {
	if _, ok := w.VectorClockFirstSeen.EntryFor(cs); !ok {
		w.VectorClockFirstSeen.Inc(cs)
	}
}

// MarkRecentlySeen advances the recently-seen clock; called every time the
// containing snapshot is rebased against or otherwise observed.
func (w *Weight) MarkRecentlySeen(cs ids.ID) {
	w.VectorClockRecentlySeen.Inc(cs)
}
