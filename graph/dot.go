package graph

import (
	"fmt"
	"strings"
)

// Dot renders the live (non-removed) portion of the graph in Graphviz DOT
// format for debugging. It is not part of the machine interface.
func (s *Snapshot) Dot() string {
	var b strings.Builder
	b.WriteString("digraph snapshot {\n")
	for i, slot := range s.nodes {
		if slot.removed {
			continue
		}
		label := fmt.Sprintf("%s\\n%s", slot.weight.Kind, slot.weight.ContentKind)
		shape := "box"
		if NodeIndex(i) == s.rootIndex {
			shape = "doublecircle"
		}
		fmt.Fprintf(&b, "  n%d [label=%q shape=%s];\n", i, label, shape)
	}
	for i, e := range s.edges {
		if e.removed {
			continue
		}
		fmt.Fprintf(&b, "  n%d -> n%d [label=%q]; // edge %d\n", e.from, e.to, e.weight.Kind, i)
	}
	b.WriteString("}\n")
	return b.String()
}
