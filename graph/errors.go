package graph

import "github.com/cockroachdb/errors"

// Sentinel errors implementing the §7 error-kind taxonomy for the snapshot
// graph. Callers should compare with errors.Is; wrapped context (node/edge
// index, change set) is attached with errors.Wrapf at the call site.
var (
	ErrNodeWeightNotFound                         = errors.New("snapgraph: node weight not found")
	ErrEdgeWeightNotFound                         = errors.New("snapgraph: edge weight not found")
	ErrNodeWithIDNotFound                         = errors.New("snapgraph: no reachable node with that id")
	ErrCreateGraphCycle                           = errors.New("snapgraph: edge would introduce a cycle")
	ErrTooManyOrderingForNode                     = errors.New("snapgraph: node already has an ordering child")
	ErrIncompatibleNodeTypes                      = errors.New("snapgraph: incompatible node types")
	ErrCannotCompareOrderedAndUnorderedContainers = errors.New("snapgraph: cannot compare ordered and unordered containers")
)
