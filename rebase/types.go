// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rebase implements the detect-conflicts-and-updates algorithm: a
// depth-first comparison of two snapshots that reports every point where
// they diverge, as either a mechanical Update or a Conflict requiring
// external resolution.
package rebase

import (
	"fmt"

	"github.com/luxfi/snapgraph/graph"
	"github.com/luxfi/snapgraph/graph/edge"
)

// Update is a mechanical, non-conflicting change the caller should apply
// to the to_rebase snapshot to incorporate onto's changes.
type Update interface {
	isUpdate()
	String() string
}

// NewEdge says: add this edge to to_rebase. Destination names a node index
// in onto's index space; if to_rebase has no node sharing that lineage,
// applying this update means importing the whole subgraph rooted at
// Destination (graph.Snapshot.ImportSubgraph) before wiring the edge — a
// single NewEdge captures an entire brand-new subtree, not one update per
// descendant.
type NewEdge struct {
	Source      graph.NodeIndex // in to_rebase's index space
	Destination graph.NodeIndex // in onto's index space
	EdgeWeight  *edge.Weight
}

func (NewEdge) isUpdate() {}
func (u NewEdge) String() string {
	return fmt.Sprintf("NewEdge{source:%d, destination(onto):%d, kind:%s}", u.Source, u.Destination, u.EdgeWeight.Kind)
}

// RemoveEdge says: drop this edge from to_rebase. Edge is in to_rebase's
// index space.
type RemoveEdge struct {
	Edge graph.EdgeIndex
}

func (RemoveEdge) isUpdate() {}
func (u RemoveEdge) String() string { return fmt.Sprintf("RemoveEdge{edge:%d}", u.Edge) }

// ReplaceSubgraph says: replace the subgraph rooted at Old (to_rebase's
// index space) with the one rooted at New (onto's index space), copied
// from onto.
type ReplaceSubgraph struct {
	New graph.NodeIndex // in onto's index space
	Old graph.NodeIndex // in to_rebase's index space
}

func (ReplaceSubgraph) isUpdate() {}
func (u ReplaceSubgraph) String() string {
	return fmt.Sprintf("ReplaceSubgraph{new(onto):%d, old:%d}", u.New, u.Old)
}

// Conflict is a divergence between to_rebase and onto that requires human
// or policy resolution; it is never auto-resolved by this package.
type Conflict interface {
	isConflict()
	String() string
}

// NodeContent: same lineage, divergent content hashes, concurrent writes.
type NodeContent struct {
	ToRebase graph.NodeIndex
	Onto     graph.NodeIndex
}

func (NodeContent) isConflict() {}
func (c NodeContent) String() string {
	return fmt.Sprintf("NodeContent{to_rebase:%d, onto:%d}", c.ToRebase, c.Onto)
}

// ModifyRemovedItem: to_rebase modified an item that onto removed.
type ModifyRemovedItem struct {
	Index graph.NodeIndex // in to_rebase's index space
}

func (ModifyRemovedItem) isConflict() {}
func (c ModifyRemovedItem) String() string { return fmt.Sprintf("ModifyRemovedItem{%d}", c.Index) }

// RemoveModifiedItem: onto modified an item that to_rebase removed.
type RemoveModifiedItem struct {
	Container   graph.NodeIndex // in to_rebase's index space
	RemovedItem graph.NodeIndex // in onto's index space (the item as onto modified it)
}

func (RemoveModifiedItem) isConflict() {}
func (c RemoveModifiedItem) String() string {
	return fmt.Sprintf("RemoveModifiedItem{container:%d, removed_item:%d}", c.Container, c.RemovedItem)
}

// ChildOrder: same child set, both sides reordered.
type ChildOrder struct {
	Ours   graph.NodeIndex // to_rebase's ordering node
	Theirs graph.NodeIndex // onto's ordering node
}

func (ChildOrder) isConflict() {}
func (c ChildOrder) String() string { return fmt.Sprintf("ChildOrder{ours:%d, theirs:%d}", c.Ours, c.Theirs) }

// ChildMembership: divergent child sets with concurrent order writes.
type ChildMembership struct {
	Ours   graph.NodeIndex
	Theirs graph.NodeIndex
}

func (ChildMembership) isConflict() {}
func (c ChildMembership) String() string {
	return fmt.Sprintf("ChildMembership{ours:%d, theirs:%d}", c.Ours, c.Theirs)
}
