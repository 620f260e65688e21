// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package rebase

import (
	"github.com/cockroachdb/errors"
	"github.com/luxfi/log"

	"github.com/luxfi/snapgraph/graph"
	"github.com/luxfi/snapgraph/graph/edge"
	"github.com/luxfi/snapgraph/graph/node"
	"github.com/luxfi/snapgraph/ids"
	"github.com/luxfi/snapgraph/snapgraphmetrics"
)

// Errors surfaced when a rebase itself cannot proceed (distinct from a
// Conflict, which is a normal, expected output of a completed rebase).
var (
	ErrWorkspaceNeedsRebase = errors.New("snapgraph: to_rebase is behind onto and must be rebased before proceeding")
	ErrWorkspacesConflict   = errors.New("snapgraph: rebase produced conflicts that must be resolved")
)

// edgeRef names one edge's target and its own index, inside whichever
// snapshot it was gathered from.
type edgeRef struct {
	target graph.NodeIndex
	edge   graph.EdgeIndex
}

// UniqueEdgeInfo keys an unordered container's children by kind and target
// lineage, so edges can be matched across two snapshots even though their
// node/edge indices differ.
type UniqueEdgeInfo struct {
	Kind          edge.Kind
	TargetLineage ids.ID
}

// Engine runs the rebase algorithm comparing a to_rebase snapshot against
// an onto snapshot.
type Engine struct {
	ToRebase   *graph.Snapshot
	Onto       *graph.Snapshot
	ToRebaseCS ids.ID
	OntoCS     ids.ID
	Logger     log.Logger
	Metrics    *snapgraphmetrics.Metrics

	conflicts []Conflict
	updates   []Update
	visited   map[graph.NodeIndex]struct{}
}

// DetectConflictsAndUpdates runs the full DFS comparison described in §4.5
// of the governing spec and returns every Conflict and Update found.
func DetectConflictsAndUpdates(toRebase, onto *graph.Snapshot, toRebaseCS, ontoCS ids.ID, logger log.Logger) ([]Conflict, []Update, error) {
	return DetectConflictsAndUpdatesWithMetrics(toRebase, onto, toRebaseCS, ontoCS, logger, nil)
}

// DetectConflictsAndUpdatesWithMetrics is DetectConflictsAndUpdates with an
// optional metrics sink; m may be nil.
func DetectConflictsAndUpdatesWithMetrics(toRebase, onto *graph.Snapshot, toRebaseCS, ontoCS ids.ID, logger log.Logger, m *snapgraphmetrics.Metrics) ([]Conflict, []Update, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	e := &Engine{
		ToRebase:   toRebase,
		Onto:       onto,
		ToRebaseCS: toRebaseCS,
		OntoCS:     ontoCS,
		Logger:     logger,
		Metrics:    m,
		visited:    map[graph.NodeIndex]struct{}{},
	}
	if err := e.walk(onto.RootIndex(), toRebase.RootIndex(), true); err != nil {
		return nil, nil, err
	}
	e.Logger.Debug("rebase complete", "conflicts", len(e.conflicts), "updates", len(e.updates))
	if e.Metrics != nil {
		e.Metrics.RebaseConflicts.Add(float64(len(e.conflicts)))
		e.Metrics.RebaseUpdates.Add(float64(len(e.updates)))
	}
	return e.conflicts, e.updates, nil
}

// RequireClean is a convenience wrapper matching §4.5's escalation policy:
// non-empty conflicts must be resolved before to_rebase may apply updates.
func RequireClean(conflicts []Conflict, updates []Update) error {
	if len(conflicts) > 0 {
		return errors.Wrapf(ErrWorkspacesConflict, "%d conflict(s)", len(conflicts))
	}
	return nil
}

// walk processes one onto node, discovered with toRebaseIdx as its known
// to_rebase counterpart (InvalidIndex if there is no candidate at all,
// i.e. this subtree is wholly new to to_rebase). hasCandidate distinguishes
// "no candidate" from "candidate at index 0".
func (e *Engine) walk(ontoIdx, toRebaseIdx graph.NodeIndex, hasCandidate bool) error {
	if _, seen := e.visited[ontoIdx]; seen {
		return nil
	}
	e.visited[ontoIdx] = struct{}{}

	ontoWeight, err := e.Onto.GetNodeWeight(ontoIdx)
	if err != nil {
		return err
	}

	if hasCandidate {
		toRebaseWeight, err := e.ToRebase.GetNodeWeight(toRebaseIdx)
		if err != nil {
			return err
		}
		if toRebaseWeight.MerkleTreeHash == ontoWeight.MerkleTreeHash {
			// Identical subtree: prune, do not recurse.
			return nil
		}
		if toRebaseWeight.Kind != ontoWeight.Kind && !(toRebaseWeight.Kind == node.KindRoot && ontoWeight.Kind == node.KindRoot) {
			return errors.Wrapf(graph.ErrIncompatibleNodeTypes, "to_rebase node %d (%s) vs onto node %d (%s)", toRebaseIdx, toRebaseWeight.Kind, ontoIdx, ontoWeight.Kind)
		}

		// The write clock advances every time an ancestor is copied through
		// on a mutation path, whether or not this node's own content
		// changed (see node.Weight.MarkWritten). So only run the content
		// dominance check -- and potentially stop here -- when the content
		// hash itself actually differs; a Merkle mismatch with an unchanged
		// content hash means only the children differ, and must fall
		// through to compareChildren rather than being misread as a
		// content-level replace.
		if toRebaseWeight.ContentHash != ontoWeight.ContentHash {
			done, err := e.compareContent(toRebaseIdx, ontoIdx, toRebaseWeight, ontoWeight)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}

	return e.compareChildren(toRebaseIdx, ontoIdx, hasCandidate)
}

// compareContent implements §4.5 step 3 and reports whether the caller
// should stop (true) rather than continue on to compare children: a
// one-sided content change replaces the whole subtree wholesale, so there
// is nothing left underneath worth individually reconciling. A genuine
// concurrent content conflict still falls through to child comparison,
// since the two versions may also have diverged in their children.
func (e *Engine) compareContent(toRebaseIdx, ontoIdx graph.NodeIndex, toRebaseWeight, ontoWeight *node.Weight) (bool, error) {
	switch {
	case toRebaseWeight.VectorClockWrite.IsNewerThan(ontoWeight.VectorClockWrite):
		// to_rebase already supersedes onto's change: no action, and its
		// subtree is already authoritative.
		return true, nil
	case ontoWeight.VectorClockWrite.IsNewerThan(toRebaseWeight.VectorClockWrite):
		e.updates = append(e.updates, ReplaceSubgraph{New: ontoIdx, Old: toRebaseIdx})
		return true, nil
	default:
		e.conflicts = append(e.conflicts, NodeContent{ToRebase: toRebaseIdx, Onto: ontoIdx})
		return false, nil
	}
}

// compareChildren implements §4.5 step 4-5: find at most one Ordering
// child on each side and dispatch to the ordered or unordered
// reconciliation, then recurse into shared children.
func (e *Engine) compareChildren(toRebaseIdx, ontoIdx graph.NodeIndex, hasCandidate bool) error {
	ontoOrdering, ontoHasOrdering, err := e.Onto.OrderingChild(ontoIdx)
	if err != nil {
		return err
	}

	var toRebaseOrdering graph.NodeIndex
	toRebaseHasOrdering := false
	if hasCandidate {
		toRebaseOrdering, toRebaseHasOrdering, err = e.ToRebase.OrderingChild(toRebaseIdx)
		if err != nil {
			return err
		}
	}

	switch {
	case !ontoHasOrdering && !toRebaseHasOrdering:
		return e.reconcileUnordered(toRebaseIdx, ontoIdx, hasCandidate)
	case ontoHasOrdering && toRebaseHasOrdering:
		if err := e.reconcileOrdered(toRebaseIdx, ontoIdx, toRebaseOrdering, ontoOrdering); err != nil {
			return err
		}
		ontoChildren, err := e.childEdgesByKey(e.Onto, ontoIdx)
		if err != nil {
			return err
		}
		toRebaseChildren, err := e.childEdgesByKey(e.ToRebase, toRebaseIdx)
		if err != nil {
			return err
		}
		for key, ontoRef := range ontoChildren {
			if toRebaseRef, inBoth := toRebaseChildren[key]; inBoth {
				if err := e.walk(ontoRef.target, toRebaseRef.target, true); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return errors.Wrapf(graph.ErrCannotCompareOrderedAndUnorderedContainers, "to_rebase %d vs onto %d", toRebaseIdx, ontoIdx)
	}
}
