// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package graph implements the copy-on-write, Merkle-hashed snapshot DAG:
// the versioned representation of an entire workspace's schemas, variants,
// components, props, funcs, and sockets.
package graph

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/luxfi/log"

	"github.com/luxfi/snapgraph/contenthash"
	"github.com/luxfi/snapgraph/graph/edge"
	"github.com/luxfi/snapgraph/graph/internal/acyclic"
	"github.com/luxfi/snapgraph/graph/node"
	"github.com/luxfi/snapgraph/ids"
	"github.com/luxfi/snapgraph/snapgraphmetrics"
)

// NodeIndex is a stable, opaque reference to a node slot. It survives
// deletion of unrelated nodes, which is load-bearing: Conflict and Update
// values produced by a rebase reference nodes by index.
type NodeIndex int

// EdgeIndex is the edge-granularity equivalent of NodeIndex.
type EdgeIndex int

// InvalidIndex is returned alongside an error from any lookup that fails.
const InvalidIndex = -1

type nodeSlot struct {
	weight   *node.Weight
	outgoing []EdgeIndex
	removed  bool
}

type edgeSlot struct {
	weight  *edge.Weight
	from    NodeIndex
	to      NodeIndex
	removed bool
}

// Snapshot is a single copy-on-write workspace graph instance. Mutations
// are single-writer: the type has no internal lock, by design (see §5 of
// the governing spec) — callers must synchronize across Snapshot instances
// themselves.
type Snapshot struct {
	changeSet ids.ID

	nodes []nodeSlot
	edges []edgeSlot

	rootIndex NodeIndex
	idIndex   map[ids.ID]NodeIndex

	logger  log.Logger
	metrics *snapgraphmetrics.Metrics
}

// SetMetrics attaches a metrics sink; nil is valid and disables counting
// (the zero value behavior, matching the no-logger default).
func (s *Snapshot) SetMetrics(m *snapgraphmetrics.Metrics) { s.metrics = m }

// New creates a graph with one root node for change set cs.
func New(cs ids.ID, logger log.Logger) *Snapshot {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	s := &Snapshot{
		changeSet: cs,
		idIndex:   make(map[ids.ID]NodeIndex),
		logger:    logger,
	}
	root := node.New(cs, node.KindRoot, node.ContentAddressRoot, contenthash.Of([]byte("root")))
	idx := s.insertNodeCopy(root, nil)
	s.rootIndex = idx
	s.recomputeMerkle(idx)
	return s
}

// RootIndex returns the current index of the graph's root node.
func (s *Snapshot) RootIndex() NodeIndex { return s.rootIndex }

// ChangeSet returns the change set this snapshot instance was created for.
func (s *Snapshot) ChangeSet() ids.ID { return s.changeSet }

// NodeCount returns the number of live (non-removed) node slots.
func (s *Snapshot) NodeCount() int {
	n := 0
	for _, slot := range s.nodes {
		if !slot.removed {
			n++
		}
	}
	return n
}

// EdgeCount returns the number of live (non-removed) edge slots.
func (s *Snapshot) EdgeCount() int {
	n := 0
	for _, slot := range s.edges {
		if !slot.removed {
			n++
		}
	}
	return n
}

// GetNodeWeight returns the weight stored at idx.
func (s *Snapshot) GetNodeWeight(idx NodeIndex) (*node.Weight, error) {
	if !s.validNode(idx) {
		return nil, errors.Wrapf(ErrNodeWeightNotFound, "index %d", idx)
	}
	return s.nodes[idx].weight, nil
}

// GetEdgeWeight returns the weight stored at idx.
func (s *Snapshot) GetEdgeWeight(idx EdgeIndex) (*edge.Weight, error) {
	if !s.validEdge(idx) {
		return nil, errors.Wrapf(ErrEdgeWeightNotFound, "index %d", idx)
	}
	return s.edges[idx].weight, nil
}

// EdgeEndpoints returns the (from, to) pair an edge connects.
func (s *Snapshot) EdgeEndpoints(idx EdgeIndex) (from, to NodeIndex, err error) {
	if !s.validEdge(idx) {
		return InvalidIndex, InvalidIndex, errors.Wrapf(ErrEdgeWeightNotFound, "index %d", idx)
	}
	return s.edges[idx].from, s.edges[idx].to, nil
}

// OutgoingEdges returns the live outgoing edge indices of idx, in insertion
// order (Merkle hashing does not use this order: sortedChildMerkleHashes
// sorts the children's Merkle hashes instead).
func (s *Snapshot) OutgoingEdges(idx NodeIndex) ([]EdgeIndex, error) {
	if !s.validNode(idx) {
		return nil, errors.Wrapf(ErrNodeWeightNotFound, "index %d", idx)
	}
	out := make([]EdgeIndex, 0, len(s.nodes[idx].outgoing))
	for _, e := range s.nodes[idx].outgoing {
		if !s.edges[e].removed {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetNodeIndexByID resolves a node id to its live index, scanning only
// nodes reachable from root (stale copies left behind by COW are ignored).
func (s *Snapshot) GetNodeIndexByID(id ids.ID) (NodeIndex, error) {
	idx, ok := s.idIndex[id]
	if !ok || s.nodes[idx].removed || !s.reachableFromRoot(idx) {
		return InvalidIndex, errors.Wrapf(ErrNodeWithIDNotFound, "id %s", id)
	}
	return idx, nil
}

// OrderingChild returns the single Ordering-kind child of idx, if any. It
// is a fatal bug (TooManyOrderingForNode) for more than one to exist.
func (s *Snapshot) OrderingChild(idx NodeIndex) (NodeIndex, bool, error) {
	if !s.validNode(idx) {
		return InvalidIndex, false, errors.Wrapf(ErrNodeWeightNotFound, "index %d", idx)
	}
	found := InvalidIndex
	count := 0
	for _, eIdx := range s.nodes[idx].outgoing {
		if s.edges[eIdx].removed {
			continue
		}
		if s.edges[eIdx].weight.Kind == edge.KindOrdering {
			found = s.edges[eIdx].to
			count++
		}
	}
	if count > 1 {
		return InvalidIndex, false, errors.Wrapf(ErrTooManyOrderingForNode, "node %d has %d ordering children", idx, count)
	}
	if count == 0 {
		return InvalidIndex, false, nil
	}
	return found, true, nil
}

// AddNode inserts weight as a fresh, unwired slot and computes its initial
// Merkle hash (own content hash only — it has no children yet). The caller
// must wire it into the reachable graph with AddEdge.
func (s *Snapshot) AddNode(weight *node.Weight) NodeIndex {
	idx := s.insertNodeCopy(weight, nil)
	s.recomputeMerkle(idx)
	if s.metrics != nil {
		s.metrics.NodesAdded.Inc()
	}
	return idx
}

func (s *Snapshot) insertNodeCopy(w *node.Weight, outgoing []EdgeIndex) NodeIndex {
	idx := NodeIndex(len(s.nodes))
	cp := make([]EdgeIndex, len(outgoing))
	copy(cp, outgoing)
	s.nodes = append(s.nodes, nodeSlot{weight: w, outgoing: cp})
	s.idIndex[w.ID] = idx
	return idx
}

func (s *Snapshot) insertEdge(w *edge.Weight, from, to NodeIndex) EdgeIndex {
	idx := EdgeIndex(len(s.edges))
	s.edges = append(s.edges, edgeSlot{weight: w, from: from, to: to})
	return idx
}

// AddEdge wires an edge from -> to carrying weight, copy-on-write-ing every
// ancestor on the path from root to from so the resulting graph's root
// still reaches a fully updated, correctly Merkle-hashed tree.
func (s *Snapshot) AddEdge(cs ids.ID, from NodeIndex, weight *edge.Weight, to NodeIndex) (EdgeIndex, error) {
	if !s.validNode(from) {
		return InvalidIndex, errors.Wrapf(ErrNodeWeightNotFound, "from index %d", from)
	}
	if !s.validNode(to) {
		return InvalidIndex, errors.Wrapf(ErrNodeWeightNotFound, "to index %d", to)
	}
	if weight.Kind == edge.KindOrdering {
		if _, has, err := s.OrderingChild(from); err != nil {
			return InvalidIndex, err
		} else if has {
			return InvalidIndex, errors.Wrapf(ErrTooManyOrderingForNode, "node %d", from)
		}
	}

	if s.wouldCreateCycle(from, to) {
		s.logger.Warn("rejected edge that would create a cycle", "from", from, "to", to)
		if s.metrics != nil {
			s.metrics.CyclesRejected.Inc()
		}
		return InvalidIndex, errors.Wrapf(ErrCreateGraphCycle, "%d -> %d", from, to)
	}

	weight.MarkFirstSeen(cs)
	weight.VectorClockWrite.Inc(cs)

	originalFrom := s.nodes[from].weight
	newFromWeight := originalFrom.Clone()
	newFromWeight.MarkWritten(cs, nil)
	newFromIdx := s.insertNodeCopy(newFromWeight, s.nodes[from].outgoing)

	newEdgeIdx := s.insertEdge(weight, newFromIdx, to)
	s.nodes[newFromIdx].outgoing = append(s.nodes[newFromIdx].outgoing, newEdgeIdx)

	if err := s.replaceReferences(cs, from, newFromIdx); err != nil {
		return InvalidIndex, err
	}
	s.recomputeMerkle(newFromIdx)

	if s.metrics != nil {
		s.metrics.EdgesAdded.Inc()
	}
	return newEdgeIdx, nil
}

// RemoveChild drops the live edge from parent to child, copy-on-write-ing
// every ancestor on the path to root. The removed subtree itself is left
// untouched -- it simply becomes unreachable and is reclaimed by the next
// Cleanup.
func (s *Snapshot) RemoveChild(cs ids.ID, parent, child NodeIndex) error {
	if !s.validNode(parent) {
		return errors.Wrapf(ErrNodeWeightNotFound, "parent index %d", parent)
	}
	if !s.validNode(child) {
		return errors.Wrapf(ErrNodeWeightNotFound, "child index %d", child)
	}

	var kept []EdgeIndex
	found := false
	for _, eIdx := range s.nodes[parent].outgoing {
		if s.edges[eIdx].removed {
			continue
		}
		if s.edges[eIdx].to == child {
			found = true
			continue
		}
		kept = append(kept, eIdx)
	}
	if !found {
		return errors.Wrapf(ErrEdgeWeightNotFound, "no live edge %d -> %d", parent, child)
	}

	original := s.nodes[parent].weight
	cp := original.Clone()
	cp.MarkWritten(cs, nil)
	newIdx := s.insertNodeCopy(cp, kept)

	if err := s.replaceReferences(cs, parent, newIdx); err != nil {
		return err
	}
	s.recomputeMerkle(newIdx)
	return nil
}

// UpdateContent replaces the content hash of the node named by id with
// newHash, copy-on-write-ing every ancestor on the path to root.
func (s *Snapshot) UpdateContent(cs ids.ID, id ids.ID, newHash contenthash.Hash) error {
	idx, err := s.GetNodeIndexByID(id)
	if err != nil {
		return err
	}

	original := s.nodes[idx].weight
	cp := original.Clone()
	cp.ContentHash = newHash
	cp.MarkWritten(cs, nil)
	newIdx := s.insertNodeCopy(cp, s.nodes[idx].outgoing)

	if err := s.replaceReferences(cs, idx, newIdx); err != nil {
		return err
	}
	s.recomputeMerkle(newIdx)
	return nil
}

// UpdateOrder replaces the child-id sequence of the Ordering node named by
// id with newOrder, copy-on-write-ing every ancestor on the path to root.
// Mirrors UpdateContent, but for a KindOrdering node's Order field: the
// copy's ContentHash is re-derived from the new sequence, so a reorder
// changes the Merkle hashes up to root.
func (s *Snapshot) UpdateOrder(cs ids.ID, id ids.ID, newOrder []ids.ID) error {
	idx, err := s.GetNodeIndexByID(id)
	if err != nil {
		return err
	}

	original := s.nodes[idx].weight
	if original.Kind != node.KindOrdering {
		return errors.Wrapf(ErrIncompatibleNodeTypes, "node %d (%s) is not an ordering node", idx, original.Kind)
	}
	cp := original.Clone()
	cp.Order = append([]ids.ID(nil), newOrder...)
	h := contenthash.New()
	for _, orderID := range cp.Order {
		h.Update([]byte(orderID.String()))
	}
	cp.ContentHash = h.Finalize()
	cp.MarkWritten(cs, nil)
	newIdx := s.insertNodeCopy(cp, s.nodes[idx].outgoing)

	if err := s.replaceReferences(cs, idx, newIdx); err != nil {
		return err
	}
	s.recomputeMerkle(newIdx)
	return nil
}

// replaceReferences implements §4.3's replace_references algorithm: given
// original and an already-inserted copy new, copy every other ancestor on
// a path from root to original and re-point it at the copies, so only
// path-affected nodes are touched and siblings remain shared.
func (s *Snapshot) replaceReferences(cs ids.ID, original, new NodeIndex) error {
	// new's own Merkle hash must be current before any ancestor copy folds
	// it into its own.
	s.recomputeMerkle(new)
	oldToNew := map[NodeIndex]NodeIndex{original: new}

	ancestors := s.ancestorsOf(original)
	ancestors[original] = struct{}{}

	order := s.postOrderWithin(s.rootIndex, ancestors)

	for _, old := range order {
		if old == original {
			continue
		}
		newIdx, exists := oldToNew[old]
		if !exists {
			w := s.nodes[old].weight.Clone()
			w.MarkWritten(cs, nil)
			newIdx = s.insertNodeCopy(w, nil)
			oldToNew[old] = newIdx
		}

		for _, eIdx := range s.nodes[old].outgoing {
			if s.edges[eIdx].removed {
				continue
			}
			oldEdge := s.edges[eIdx]
			destNew, ok := oldToNew[oldEdge.to]
			if !ok {
				destNew = oldEdge.to
			}
			newEdgeWeight := oldEdge.weight.Advanced(cs)
			newEdgeIdx := s.insertEdge(newEdgeWeight, newIdx, destNew)
			s.nodes[newIdx].outgoing = append(s.nodes[newIdx].outgoing, newEdgeIdx)
		}

		s.recomputeMerkle(newIdx)
	}

	if newRoot, ok := oldToNew[s.rootIndex]; ok {
		s.rootIndex = newRoot
	}
	return nil
}

// ancestorsOf returns every node index with a directed path to target,
// found by walking incoming edges backwards from target.
func (s *Snapshot) ancestorsOf(target NodeIndex) map[NodeIndex]struct{} {
	seen := map[NodeIndex]struct{}{}
	queue := []NodeIndex{target}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for eIdx, e := range s.edges {
			if e.removed || s.edges[eIdx].to != cur {
				continue
			}
			pred := e.from
			if _, ok := seen[pred]; ok {
				continue
			}
			seen[pred] = struct{}{}
			queue = append(queue, pred)
		}
	}
	delete(seen, target)
	return seen
}

// postOrderWithin walks the graph depth-first from root, visiting only
// nodes in within (plus root) and recursing only into children that are
// themselves in within, returning nodes in post-order (children before
// their parents).
func (s *Snapshot) postOrderWithin(root NodeIndex, within map[NodeIndex]struct{}) []NodeIndex {
	var order []NodeIndex
	visited := map[NodeIndex]struct{}{}

	var visit func(NodeIndex)
	visit = func(idx NodeIndex) {
		if _, ok := visited[idx]; ok {
			return
		}
		visited[idx] = struct{}{}
		for _, eIdx := range s.nodes[idx].outgoing {
			if s.edges[eIdx].removed {
				continue
			}
			child := s.edges[eIdx].to
			if _, ok := within[child]; ok {
				visit(child)
			}
		}
		order = append(order, idx)
	}

	if _, ok := within[root]; ok {
		visit(root)
	}
	return order
}

// recomputeMerkle recomputes idx's Merkle hash from its own content hash
// and the sorted Merkle hashes of its live out-neighbors.
func (s *Snapshot) recomputeMerkle(idx NodeIndex) {
	w := s.nodes[idx].weight
	h := contenthash.New()
	h.Update([]byte(w.ContentHash.String()))

	childHashes := s.sortedChildMerkleHashes(idx)
	for _, ch := range childHashes {
		h.Update([]byte(ch))
	}
	w.MerkleTreeHash = h.Finalize()
}

// sortedChildMerkleHashes returns the Merkle hashes of idx's live
// out-neighbors, sorted so structurally identical subgraphs always hash
// identically regardless of edge-insertion order.
func (s *Snapshot) sortedChildMerkleHashes(idx NodeIndex) []string {
	hashes := make([]string, 0, len(s.nodes[idx].outgoing))
	for _, eIdx := range s.nodes[idx].outgoing {
		if s.edges[eIdx].removed {
			continue
		}
		to := s.edges[eIdx].to
		hashes = append(hashes, s.nodes[to].weight.MerkleTreeHash.String())
	}
	sort.Strings(hashes)
	return hashes
}

// wouldCreateCycle reports whether adding from->to would introduce a
// cycle, via a gonum topological sort over a tentative adjacency view.
func (s *Snapshot) wouldCreateCycle(from, to NodeIndex) bool {
	nodeIDs := make([]int64, 0, len(s.nodes))
	for i, slot := range s.nodes {
		if slot.removed {
			continue
		}
		nodeIDs = append(nodeIDs, int64(i))
	}

	edges := make([][2]int64, 0, len(s.edges)+1)
	for _, e := range s.edges {
		if e.removed {
			continue
		}
		edges = append(edges, [2]int64{int64(e.from), int64(e.to)})
	}
	edges = append(edges, [2]int64{int64(from), int64(to)})

	view := acyclic.NewView(nodeIDs, edges)
	return acyclic.HasCycle(view)
}

func (s *Snapshot) reachableFromRoot(idx NodeIndex) bool {
	_, ok := s.reachableSet()[idx]
	return ok
}

func (s *Snapshot) reachableSet() map[NodeIndex]struct{} {
	seen := map[NodeIndex]struct{}{}
	queue := []NodeIndex{s.rootIndex}
	seen[s.rootIndex] = struct{}{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, eIdx := range s.nodes[cur].outgoing {
			if s.edges[eIdx].removed {
				continue
			}
			to := s.edges[eIdx].to
			if _, ok := seen[to]; ok {
				continue
			}
			seen[to] = struct{}{}
			queue = append(queue, to)
		}
	}
	return seen
}

// Cleanup drops every node and edge not reachable from root.
func (s *Snapshot) Cleanup() {
	reachable := s.reachableSet()
	droppedNodes, droppedEdges := 0, 0
	for i := range s.nodes {
		if _, ok := reachable[NodeIndex(i)]; !ok && !s.nodes[i].removed {
			s.nodes[i].removed = true
			// A stale COW copy shares its id with the live node; only drop
			// the id entry when it points at this slot.
			if cur, ok := s.idIndex[s.nodes[i].weight.ID]; ok && cur == NodeIndex(i) {
				delete(s.idIndex, s.nodes[i].weight.ID)
			}
			droppedNodes++
		}
	}
	for i := range s.edges {
		if s.edges[i].removed {
			continue
		}
		_, fromLive := reachable[s.edges[i].from]
		if !fromLive {
			s.edges[i].removed = true
			droppedEdges++
		}
	}
	if droppedNodes > 0 || droppedEdges > 0 {
		s.logger.Debug("cleanup dropped unreachable slots", "nodes", droppedNodes, "edges", droppedEdges)
	}
}

// ImportSubgraph performs a DFS post-order copy of other's subgraph rooted
// at otherRoot into s, returning the index of the copied root. Edge
// weights are cloned verbatim (clocks untouched, per §4.3). When the
// imported node is a KindRoot node, the copy also becomes s's root, so
// importing another snapshot's root yields a clone of that snapshot.
func (s *Snapshot) ImportSubgraph(other *Snapshot, otherRoot NodeIndex) (NodeIndex, error) {
	if !other.validNode(otherRoot) {
		return InvalidIndex, errors.Wrapf(ErrNodeWeightNotFound, "other index %d", otherRoot)
	}

	copied := map[NodeIndex]NodeIndex{}
	visited := map[NodeIndex]struct{}{}

	var visit func(NodeIndex) NodeIndex
	visit = func(oIdx NodeIndex) NodeIndex {
		if newIdx, ok := copied[oIdx]; ok {
			return newIdx
		}
		visited[oIdx] = struct{}{}

		// Clone already preserves id, lineage id, and clocks verbatim; the
		// import keeps the whole logical entity intact, just placed into a
		// new snapshot's node slice.
		w := other.nodes[oIdx].weight.Clone()
		newIdx := s.insertNodeCopy(w, nil)
		copied[oIdx] = newIdx

		for _, eIdx := range other.nodes[oIdx].outgoing {
			if other.edges[eIdx].removed {
				continue
			}
			childOld := other.edges[eIdx].to
			childNew := visit(childOld)
			clonedWeight := other.edges[eIdx].weight.Clone()
			newEdgeIdx := s.insertEdge(clonedWeight, newIdx, childNew)
			s.nodes[newIdx].outgoing = append(s.nodes[newIdx].outgoing, newEdgeIdx)
		}

		s.recomputeMerkle(newIdx)
		return newIdx
	}

	newRoot := visit(otherRoot)
	if s.nodes[newRoot].weight.Kind == node.KindRoot {
		s.rootIndex = newRoot
	}
	return newRoot, nil
}

func (s *Snapshot) validNode(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(s.nodes) && !s.nodes[idx].removed
}

func (s *Snapshot) validEdge(idx EdgeIndex) bool {
	return idx >= 0 && int(idx) < len(s.edges) && !s.edges[idx].removed
}

// ExportedNode is one node slot in serialized form, tombstone included so a
// round trip reproduces identical NodeIndex positions.
type ExportedNode struct {
	Weight   *node.Weight
	Outgoing []EdgeIndex
	Removed  bool
}

// ExportedEdge is the edge-granularity equivalent of ExportedNode.
type ExportedEdge struct {
	Weight  *edge.Weight
	From    NodeIndex
	To      NodeIndex
	Removed bool
}

// Export is the full, order-preserving persistence record for a snapshot:
// every node and edge slot exactly as stored, tombstones included, plus the
// root index and change set needed to reconstruct it.
type Export struct {
	ChangeSet ids.ID
	RootIndex NodeIndex
	Nodes     []ExportedNode
	Edges     []ExportedEdge
}

// Export captures s verbatim. Index positions in the result are exactly
// those used internally, so any NodeIndex/EdgeIndex recorded elsewhere
// (e.g. in a previously computed Conflict or Update) still resolves
// correctly against a snapshot later reconstructed with Import.
func (s *Snapshot) Export() Export {
	nodes := make([]ExportedNode, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = ExportedNode{
			Weight:   n.weight,
			Outgoing: append([]EdgeIndex(nil), n.outgoing...),
			Removed:  n.removed,
		}
	}
	edges := make([]ExportedEdge, len(s.edges))
	for i, e := range s.edges {
		edges[i] = ExportedEdge{Weight: e.weight, From: e.from, To: e.to, Removed: e.removed}
	}
	return Export{ChangeSet: s.changeSet, RootIndex: s.rootIndex, Nodes: nodes, Edges: edges}
}

// Import reconstructs a Snapshot from exp, slot-for-slot.
func Import(exp Export, logger log.Logger) *Snapshot {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	s := &Snapshot{
		changeSet: exp.ChangeSet,
		rootIndex: exp.RootIndex,
		idIndex:   make(map[ids.ID]NodeIndex, len(exp.Nodes)),
		logger:    logger,
	}
	s.nodes = make([]nodeSlot, len(exp.Nodes))
	for i, n := range exp.Nodes {
		s.nodes[i] = nodeSlot{weight: n.Weight, outgoing: append([]EdgeIndex(nil), n.Outgoing...), removed: n.Removed}
		if !n.Removed {
			s.idIndex[n.Weight.ID] = NodeIndex(i)
		}
	}
	s.edges = make([]edgeSlot, len(exp.Edges))
	for i, e := range exp.Edges {
		s.edges[i] = edgeSlot{weight: e.Weight, from: e.From, to: e.To, removed: e.Removed}
	}
	return s
}
