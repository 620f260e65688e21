package rebase_test

import (
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/snapgraph/contenthash"
	"github.com/luxfi/snapgraph/graph"
	"github.com/luxfi/snapgraph/graph/edge"
	"github.com/luxfi/snapgraph/graph/node"
	"github.com/luxfi/snapgraph/ids"
	"github.com/luxfi/snapgraph/rebase"
)

// addChild adds a fresh content node under parent and wires an edge to it.
// The new node's own index is stable across the AddEdge call -- only
// ancestors on the path from root to parent get copy-on-write duplicated,
// never the newly added child itself -- so it is safe to return directly.
func addChild(t *testing.T, s *graph.Snapshot, cs ids.ID, parent graph.NodeIndex, kind node.ContentAddressKind, payload string) graph.NodeIndex {
	t.Helper()
	child := s.AddNode(node.New(cs, node.KindContent, kind, contenthash.Of([]byte(payload))))
	_, err := s.AddEdge(cs, parent, edge.New(cs, edge.KindUses), child)
	require.NoError(t, err)
	return child
}

// addOrdering adds a KindOrdering child under parent, recording order as
// its explicit child-id sequence.
func addOrdering(t *testing.T, s *graph.Snapshot, cs ids.ID, parent graph.NodeIndex, order []ids.ID) graph.NodeIndex {
	t.Helper()
	w := node.New(cs, node.KindOrdering, node.ContentAddressRoot, contenthash.Of([]byte("ordering")))
	w.Order = order
	idx := s.AddNode(w)
	_, err := s.AddEdge(cs, parent, edge.New(cs, edge.KindOrdering), idx)
	require.NoError(t, err)
	return idx
}

// fork builds two independent snapshots that both start from the same base
// content, so they share node lineages the way two clones of one workspace
// would.
func fork(t *testing.T, base *graph.Snapshot, csA, csB ids.ID) (*graph.Snapshot, *graph.Snapshot) {
	t.Helper()
	a := graph.New(csA, log.NewNoOpLogger())
	rootA, err := a.ImportSubgraph(base, base.RootIndex())
	require.NoError(t, err)
	require.Equal(t, a.RootIndex(), rootA)

	b := graph.New(csB, log.NewNoOpLogger())
	rootB, err := b.ImportSubgraph(base, base.RootIndex())
	require.NoError(t, err)
	require.Equal(t, b.RootIndex(), rootB)

	return a, b
}

func TestEmptyRebaseProducesNothing(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	addChild(t, base, baseCS, base.RootIndex(), node.ContentAddressSchema, "shared schema")

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Empty(t, updates)
}

func TestOneSidedAddProducesSingleNewEdge(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	// onto grows a brand-new Component subtree with its own nested Prop
	// child; applying the resulting update should require exactly one
	// NewEdge for the whole subtree, not one per descendant.
	newComponent := addChild(t, onto, csB, onto.RootIndex(), node.ContentAddressComponent, "new component")
	addChild(t, onto, csB, newComponent, node.ContentAddressProp, "nested prop")

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Len(t, updates, 1)

	ne, ok := updates[0].(rebase.NewEdge)
	require.True(t, ok, "expected a NewEdge update, got %T", updates[0])
	require.Equal(t, toRebase.RootIndex(), ne.Source)

	destWeight, err := onto.GetNodeWeight(ne.Destination)
	require.NoError(t, err)
	require.Equal(t, node.ContentAddressComponent, destWeight.ContentKind)
}

// TestTwoSidedDisjointAdd covers each side adding its own, unrelated child:
// to_rebase's own addition needs no update (it is already there), while
// onto's addition surfaces as the one NewEdge to_rebase must still apply.
func TestTwoSidedDisjointAdd(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	addChild(t, toRebase, csA, toRebase.RootIndex(), node.ContentAddressSchema, "to_rebase's own addition")
	addChild(t, onto, csB, onto.RootIndex(), node.ContentAddressSchema, "onto's own addition")

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Len(t, updates, 1)
	_, ok := updates[0].(rebase.NewEdge)
	require.True(t, ok)
}

func TestConcurrentContentModificationConflicts(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	schemaIdx := addChild(t, base, baseCS, base.RootIndex(), node.ContentAddressSchema, "shared schema")
	schemaWeight, err := base.GetNodeWeight(schemaIdx)
	require.NoError(t, err)
	schemaID := schemaWeight.ID

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	require.NoError(t, toRebase.UpdateContent(csA, schemaID, contenthash.Of([]byte("to_rebase's edit"))))
	require.NoError(t, onto.UpdateContent(csB, schemaID, contenthash.Of([]byte("onto's edit"))))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, updates)
	require.Len(t, conflicts, 1)
	_, ok := conflicts[0].(rebase.NodeContent)
	require.True(t, ok, "expected a NodeContent conflict, got %T", conflicts[0])
}

func TestOntoContentChangeProducesReplaceSubgraph(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	schemaIdx := addChild(t, base, baseCS, base.RootIndex(), node.ContentAddressSchema, "shared schema")
	schemaWeight, err := base.GetNodeWeight(schemaIdx)
	require.NoError(t, err)
	schemaID := schemaWeight.ID

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	require.NoError(t, onto.UpdateContent(csB, schemaID, contenthash.Of([]byte("onto's edit"))))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Len(t, updates, 1)
	rs, ok := updates[0].(rebase.ReplaceSubgraph)
	require.True(t, ok, "expected a ReplaceSubgraph update, got %T", updates[0])

	newWeight, err := onto.GetNodeWeight(rs.New)
	require.NoError(t, err)
	require.Equal(t, schemaID, newWeight.ID)
}

// TestModifyRemovedItemConflict covers §4.5.1's asymmetric case: to_rebase
// modifies an item that onto has, concurrently, removed. The item must
// originate on onto's side and be imported into to_rebase -- that's what
// lets to_rebase's "is this known to onto" check (keyed off first-seen
// entries, which only ever carry the change set that first created a
// node) recognize the item as something onto once had, rather than
// reading it as to_rebase's own unseen addition.
func TestModifyRemovedItemConflict(t *testing.T) {
	csA, csB := ids.New(), ids.New()
	onto := graph.New(csB, log.NewNoOpLogger())
	schemaIdx := addChild(t, onto, csB, onto.RootIndex(), node.ContentAddressSchema, "shared schema")
	schemaWeight, err := onto.GetNodeWeight(schemaIdx)
	require.NoError(t, err)
	schemaID := schemaWeight.ID

	toRebase := graph.New(csA, log.NewNoOpLogger())
	_, err = toRebase.ImportSubgraph(onto, onto.RootIndex())
	require.NoError(t, err)

	require.NoError(t, toRebase.UpdateContent(csA, schemaID, contenthash.Of([]byte("to_rebase's edit"))))
	require.NoError(t, onto.RemoveChild(csB, onto.RootIndex(), schemaIdx))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, updates)
	require.Len(t, conflicts, 1)
	_, ok := conflicts[0].(rebase.ModifyRemovedItem)
	require.True(t, ok, "expected a ModifyRemovedItem conflict, got %T", conflicts[0])
}

// TestRemoveModifiedItemConflict covers §4.5.1's mirror case: onto modifies
// an item that to_rebase has, concurrently, removed -- the item
// originates on to_rebase's side and is imported into onto, the mirror of
// the setup above.
func TestRemoveModifiedItemConflict(t *testing.T) {
	csA, csB := ids.New(), ids.New()
	toRebase := graph.New(csA, log.NewNoOpLogger())
	schemaIdx := addChild(t, toRebase, csA, toRebase.RootIndex(), node.ContentAddressSchema, "shared schema")
	schemaWeight, err := toRebase.GetNodeWeight(schemaIdx)
	require.NoError(t, err)
	schemaID := schemaWeight.ID

	onto := graph.New(csB, log.NewNoOpLogger())
	_, err = onto.ImportSubgraph(toRebase, toRebase.RootIndex())
	require.NoError(t, err)

	require.NoError(t, onto.UpdateContent(csB, schemaID, contenthash.Of([]byte("onto's edit"))))
	require.NoError(t, toRebase.RemoveChild(csA, toRebase.RootIndex(), schemaIdx))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, updates)
	require.Len(t, conflicts, 1)
	_, ok := conflicts[0].(rebase.RemoveModifiedItem)
	require.True(t, ok, "expected a RemoveModifiedItem conflict, got %T", conflicts[0])
}

// orderedFixture builds a root with three unordered schema children plus an
// Ordering node recording their lineage order, returning the lineage ids in
// sequence and the Ordering node's own stable id (for UpdateOrder calls
// after forking).
func orderedFixture(t *testing.T, s *graph.Snapshot, cs ids.ID) (order []ids.ID, orderingID ids.ID) {
	t.Helper()
	var lineages []ids.ID
	for _, payload := range []string{"a", "b", "c"} {
		child := addChild(t, s, cs, s.RootIndex(), node.ContentAddressSchema, payload)
		w, err := s.GetNodeWeight(child)
		require.NoError(t, err)
		lineages = append(lineages, w.LineageID)
	}
	orderingIdx := addOrdering(t, s, cs, s.RootIndex(), append([]ids.ID(nil), lineages...))
	orderingWeight, err := s.GetNodeWeight(orderingIdx)
	require.NoError(t, err)
	return lineages, orderingWeight.ID
}

// TestOrderedPureReorderOntoDominatesProducesReplaceSubgraph covers the gap
// the maintainer flagged: a reorder with unchanged membership must still
// land as a ReplaceSubgraph, even though diffing the two orders yields no
// added/removed members at all.
func TestOrderedPureReorderOntoDominatesProducesReplaceSubgraph(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	lineages, orderingID := orderedFixture(t, base, baseCS)

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	reordered := []ids.ID{lineages[2], lineages[1], lineages[0]}
	require.NoError(t, onto.UpdateOrder(csB, orderingID, reordered))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Len(t, updates, 1)
	rs, ok := updates[0].(rebase.ReplaceSubgraph)
	require.True(t, ok, "expected a ReplaceSubgraph update, got %T", updates[0])

	newWeight, err := onto.GetNodeWeight(rs.New)
	require.NoError(t, err)
	require.Equal(t, orderingID, newWeight.ID)
}

// TestOrderedReorderToRebaseDominatesNoOp covers the mirror of the above:
// to_rebase's own reorder already supersedes onto's (unchanged) order, so
// nothing needs to apply.
func TestOrderedReorderToRebaseDominatesNoOp(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	lineages, orderingID := orderedFixture(t, base, baseCS)

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	reordered := []ids.ID{lineages[2], lineages[1], lineages[0]}
	require.NoError(t, toRebase.UpdateOrder(csA, orderingID, reordered))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Empty(t, updates)
}

// TestOrderedPureReorderConcurrentProducesChildOrder covers the genuinely
// concurrent case: both sides reorder the same member set independently.
func TestOrderedPureReorderConcurrentProducesChildOrder(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	lineages, orderingID := orderedFixture(t, base, baseCS)

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	require.NoError(t, toRebase.UpdateOrder(csA, orderingID, []ids.ID{lineages[1], lineages[0], lineages[2]}))
	require.NoError(t, onto.UpdateOrder(csB, orderingID, []ids.ID{lineages[2], lineages[1], lineages[0]}))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, updates)
	require.Len(t, conflicts, 1)
	_, ok := conflicts[0].(rebase.ChildOrder)
	require.True(t, ok, "expected a ChildOrder conflict, got %T", conflicts[0])
}

// TestOrderedMembershipChangeOntoDominates covers §4.5.2's general branch:
// onto both reorders and changes membership, dominating to_rebase, so the
// engine must emit the per-member NewEdge/RemoveEdge pair *and* the
// ReplaceSubgraph that adopts onto's order.
func TestOrderedMembershipChangeOntoDominates(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	lineages, orderingID := orderedFixture(t, base, baseCS)

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	newChild := addChild(t, onto, csB, onto.RootIndex(), node.ContentAddressSchema, "d")
	newChildWeight, err := onto.GetNodeWeight(newChild)
	require.NoError(t, err)

	newOrder := []ids.ID{lineages[0], lineages[1], newChildWeight.LineageID}
	require.NoError(t, onto.UpdateOrder(csB, orderingID, newOrder))

	conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Len(t, updates, 3)

	var sawNewEdge, sawRemoveEdge, sawReplaceSubgraph bool
	for _, u := range updates {
		switch u.(type) {
		case rebase.NewEdge:
			sawNewEdge = true
		case rebase.RemoveEdge:
			sawRemoveEdge = true
		case rebase.ReplaceSubgraph:
			sawReplaceSubgraph = true
		}
	}
	require.True(t, sawNewEdge, "expected a NewEdge update for the added member")
	require.True(t, sawRemoveEdge, "expected a RemoveEdge update for the dropped member")
	require.True(t, sawReplaceSubgraph, "expected a ReplaceSubgraph update adopting onto's order")
}

// TestOrderedVsUnorderedMismatchErrors covers the case where one side
// gained an Ordering child and the other never had one: the two snapshots
// disagree on whether the container is ordered at all.
func TestOrderedVsUnorderedMismatchErrors(t *testing.T) {
	baseCS := ids.New()
	base := graph.New(baseCS, log.NewNoOpLogger())
	addChild(t, base, baseCS, base.RootIndex(), node.ContentAddressSchema, "shared schema")

	csA, csB := ids.New(), ids.New()
	toRebase, onto := fork(t, base, csA, csB)

	addOrdering(t, onto, csB, onto.RootIndex(), nil)

	_, _, err := rebase.DetectConflictsAndUpdates(toRebase, onto, csA, csB, log.NewNoOpLogger())
	require.ErrorIs(t, err, graph.ErrCannotCompareOrderedAndUnorderedContainers)
}
