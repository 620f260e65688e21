// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package rebase

import (
	"github.com/luxfi/snapgraph/graph"
	"github.com/luxfi/snapgraph/graph/edge"
	"github.com/luxfi/snapgraph/graph/node"
	"github.com/luxfi/snapgraph/ids"
)

// childEdgesByKey collects container's live, non-Ordering outgoing edges
// keyed by (edge kind, target lineage), so the same logical child can be
// matched between to_rebase and onto even though their node/edge indices
// differ.
func (e *Engine) childEdgesByKey(s *graph.Snapshot, container graph.NodeIndex) (map[UniqueEdgeInfo]edgeRef, error) {
	out := map[UniqueEdgeInfo]edgeRef{}
	edges, err := s.OutgoingEdges(container)
	if err != nil {
		return nil, err
	}
	for _, eIdx := range edges {
		w, err := s.GetEdgeWeight(eIdx)
		if err != nil {
			return nil, err
		}
		if w.Kind == edge.KindOrdering {
			continue
		}
		_, target, err := s.EdgeEndpoints(eIdx)
		if err != nil {
			return nil, err
		}
		targetWeight, err := s.GetNodeWeight(target)
		if err != nil {
			return nil, err
		}
		out[UniqueEdgeInfo{Kind: w.Kind, TargetLineage: targetWeight.LineageID}] = edgeRef{target: target, edge: eIdx}
	}
	return out, nil
}

// isKnownBy reports whether w was already present (first-seen) by cs,
// which is how the engine tells "brand new to the other side" apart from
// "removed by the other side" when a child only appears on one side.
func isKnownBy(w *node.Weight, cs ids.ID) bool {
	_, ok := w.VectorClockFirstSeen.EntryFor(cs)
	return ok
}

// reconcileUnordered implements the unordered child-set reconciliation:
// every child present on only one side is either a genuinely new addition
// or a removal the other side doesn't know about yet; children present on
// both sides recurse normally. A brand-new subtree (no to_rebase candidate
// at all) is captured as a single NewEdge and its descendants are not
// walked, since applying the update means importing the whole subgraph.
func (e *Engine) reconcileUnordered(toRebaseIdx, ontoIdx graph.NodeIndex, hasCandidate bool) error {
	ontoChildren, err := e.childEdgesByKey(e.Onto, ontoIdx)
	if err != nil {
		return err
	}

	toRebaseChildren := map[UniqueEdgeInfo]edgeRef{}
	if hasCandidate {
		toRebaseChildren, err = e.childEdgesByKey(e.ToRebase, toRebaseIdx)
		if err != nil {
			return err
		}
	}

	for key, ontoRef := range ontoChildren {
		toRebaseRef, inBoth := toRebaseChildren[key]
		if inBoth {
			if err := e.walk(ontoRef.target, toRebaseRef.target, true); err != nil {
				return err
			}
			continue
		}

		ontoTargetWeight, err := e.Onto.GetNodeWeight(ontoRef.target)
		if err != nil {
			return err
		}

		if !hasCandidate || !isKnownBy(ontoTargetWeight, e.ToRebaseCS) {
			ontoEdgeWeight, err := e.Onto.GetEdgeWeight(ontoRef.edge)
			if err != nil {
				return err
			}
			e.updates = append(e.updates, NewEdge{
				Source:      toRebaseIdx,
				Destination: ontoRef.target,
				EdgeWeight:  ontoEdgeWeight.Clone(),
			})
			continue
		}

		// to_rebase once knew this child but has since removed it. If onto
		// modified it after the point to_rebase last observed onto, that is
		// a real conflict; otherwise the removal stands and nothing needs
		// to happen.
		toRebaseContainer, err := e.ToRebase.GetNodeWeight(toRebaseIdx)
		if err != nil {
			return err
		}
		pivot, _ := toRebaseContainer.VectorClockRecentlySeen.EntryFor(e.OntoCS)
		if ontoTargetWeight.VectorClockWrite.HasEntriesNewerThan(pivot) {
			e.conflicts = append(e.conflicts, RemoveModifiedItem{Container: toRebaseIdx, RemovedItem: ontoRef.target})
		}
	}

	if !hasCandidate {
		return nil
	}

	for key, toRebaseRef := range toRebaseChildren {
		if _, inBoth := ontoChildren[key]; inBoth {
			continue
		}

		toRebaseTargetWeight, err := e.ToRebase.GetNodeWeight(toRebaseRef.target)
		if err != nil {
			return err
		}
		if !isKnownBy(toRebaseTargetWeight, e.OntoCS) {
			// to_rebase's own addition, onto never saw this lineage: keep it.
			continue
		}

		ontoContainerWeight, err := e.Onto.GetNodeWeight(ontoIdx)
		if err != nil {
			return err
		}
		pivot, _ := ontoContainerWeight.VectorClockRecentlySeen.EntryFor(e.ToRebaseCS)
		if toRebaseTargetWeight.VectorClockWrite.HasEntriesNewerThan(pivot) {
			e.conflicts = append(e.conflicts, ModifyRemovedItem{Index: toRebaseRef.target})
			continue
		}

		e.updates = append(e.updates, RemoveEdge{Edge: toRebaseRef.edge})
	}

	return nil
}

// reconcileOrdered implements §4.5.2's ordered-container reconciliation:
// both sides have an Ordering node recording an explicit child-id
// sequence. Identical sequences are a no-op. Dominance between the two
// sides' write clocks is decided first, exactly as in §4.5.2: if onto
// dominates, its order wins outright — member-level NewEdge/RemoveEdge
// updates for whatever changed, followed by a ReplaceSubgraph that
// adopts onto's order wholesale (this fires even when the member set is
// unchanged and only the sequence moved, since diffIDs then yields no
// added/removed pairs on its own). If to_rebase dominates, it already
// supersedes onto's change. Only a genuine concurrent write escalates to
// a conflict, and only there does the same-member-set case matter: a
// reorder over identical members is a ChildOrder conflict, a divergent
// member set is a ChildMembership conflict.
func (e *Engine) reconcileOrdered(toRebaseIdx, ontoIdx, toRebaseOrdering, ontoOrdering graph.NodeIndex) error {
	toRebaseOrderWeight, err := e.ToRebase.GetNodeWeight(toRebaseOrdering)
	if err != nil {
		return err
	}
	ontoOrderWeight, err := e.Onto.GetNodeWeight(ontoOrdering)
	if err != nil {
		return err
	}

	if sameOrder(toRebaseOrderWeight.Order, ontoOrderWeight.Order) {
		return nil
	}

	if toRebaseOrderWeight.VectorClockWrite.IsNewerThan(ontoOrderWeight.VectorClockWrite) {
		// to_rebase already supersedes onto's reorder: no action needed.
		return nil
	}

	if ontoOrderWeight.VectorClockWrite.IsNewerThan(toRebaseOrderWeight.VectorClockWrite) {
		added, removed := diffIDs(toRebaseOrderWeight.Order, ontoOrderWeight.Order)
		if err := e.emitOrderedMemberUpdates(toRebaseIdx, ontoIdx, added, removed); err != nil {
			return err
		}
		e.updates = append(e.updates, ReplaceSubgraph{New: ontoOrdering, Old: toRebaseOrdering})
		return nil
	}

	// Concurrent write to the Ordering node itself.
	toRebaseSet := idSet(toRebaseOrderWeight.Order)
	ontoSet := idSet(ontoOrderWeight.Order)
	if sameSet(toRebaseSet, ontoSet) {
		e.conflicts = append(e.conflicts, ChildOrder{Ours: toRebaseOrdering, Theirs: ontoOrdering})
		return nil
	}
	e.conflicts = append(e.conflicts, ChildMembership{Ours: toRebaseOrdering, Theirs: ontoOrdering})
	return nil
}

// emitOrderedMemberUpdates resolves each added/removed lineage id to the
// actual edge connecting container to that child (on the appropriate
// side) and emits the matching NewEdge/RemoveEdge update.
func (e *Engine) emitOrderedMemberUpdates(toRebaseIdx, ontoIdx graph.NodeIndex, added, removed []ids.ID) error {
	if len(added) > 0 {
		ontoChildren, err := e.childEdgesByKey(e.Onto, ontoIdx)
		if err != nil {
			return err
		}
		for _, lineage := range added {
			ref, ok := findByLineage(e.Onto, ontoChildren, lineage)
			if !ok {
				continue
			}
			w, err := e.Onto.GetEdgeWeight(ref.edge)
			if err != nil {
				return err
			}
			e.updates = append(e.updates, NewEdge{Source: toRebaseIdx, Destination: ref.target, EdgeWeight: w.Clone()})
		}
	}
	if len(removed) > 0 {
		toRebaseChildren, err := e.childEdgesByKey(e.ToRebase, toRebaseIdx)
		if err != nil {
			return err
		}
		for _, lineage := range removed {
			ref, ok := findByLineage(e.ToRebase, toRebaseChildren, lineage)
			if !ok {
				continue
			}
			e.updates = append(e.updates, RemoveEdge{Edge: ref.edge})
		}
	}
	return nil
}

func findByLineage(s *graph.Snapshot, children map[UniqueEdgeInfo]edgeRef, lineage ids.ID) (edgeRef, bool) {
	for key, ref := range children {
		if key.TargetLineage == lineage {
			return ref, true
		}
	}
	return edgeRef{}, false
}

func sameOrder(a, b []ids.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func idSet(list []ids.ID) map[ids.ID]struct{} {
	m := make(map[ids.ID]struct{}, len(list))
	for _, id := range list {
		m[id] = struct{}{}
	}
	return m
}

func sameSet(a, b map[ids.ID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// diffIDs returns lineage ids present in b but not a (added) and present
// in a but not b (removed).
func diffIDs(a, b []ids.ID) (added, removed []ids.ID) {
	aSet := idSet(a)
	bSet := idSet(b)
	for _, id := range b {
		if _, ok := aSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range a {
		if _, ok := bSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
