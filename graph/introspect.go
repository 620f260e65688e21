package graph

import (
	"github.com/luxfi/snapgraph/graph/node"
	"github.com/luxfi/snapgraph/ids"
)

// NodesByLineage returns the indices of every node reachable from root
// whose lineage id matches. COW leaves stale, unreachable copies behind in
// the node slice; this method only ever considers live, reachable slots,
// so those stale copies are never returned as candidates.
func (s *Snapshot) NodesByLineage(lineageID ids.ID) []NodeIndex {
	reachable := s.reachableSet()
	var out []NodeIndex
	for idx := range reachable {
		if s.nodes[idx].weight.LineageID == lineageID {
			out = append(out, idx)
		}
	}
	return out
}

// RootWeight is a convenience wrapper around GetNodeWeight(RootIndex()).
func (s *Snapshot) RootWeight() *node.Weight {
	return s.nodes[s.rootIndex].weight
}
