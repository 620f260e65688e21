// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapgraphmetrics wires github.com/prometheus/client_golang
// counters for the graph, rebase, and workflow packages.
package snapgraphmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter this module exports. Callers construct one
// per process and pass it (or the registerer it wraps) to the components
// that need it; there is no package-level global registry.
type Metrics struct {
	Registry prometheus.Registerer

	NodesAdded       prometheus.Counter
	EdgesAdded       prometheus.Counter
	CyclesRejected   prometheus.Counter
	RebaseConflicts  prometheus.Counter
	RebaseUpdates    prometheus.Counter
	WorkflowCommands prometheus.Counter
}

// New creates and registers every counter against reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Registry: reg,
		NodesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapgraph",
			Name:      "nodes_added_total",
			Help:      "Number of nodes added to a snapshot graph.",
		}),
		EdgesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapgraph",
			Name:      "edges_added_total",
			Help:      "Number of edges added to a snapshot graph.",
		}),
		CyclesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapgraph",
			Name:      "cycles_rejected_total",
			Help:      "Number of add_edge calls rejected for introducing a cycle.",
		}),
		RebaseConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapgraph",
			Name:      "rebase_conflicts_total",
			Help:      "Number of conflicts emitted by the rebase engine.",
		}),
		RebaseUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapgraph",
			Name:      "rebase_updates_total",
			Help:      "Number of mechanical updates emitted by the rebase engine.",
		}),
		WorkflowCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapgraph",
			Name:      "workflow_commands_total",
			Help:      "Number of workflow command leaves executed.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.NodesAdded, m.EdgesAdded, m.CyclesRejected,
		m.RebaseConflicts, m.RebaseUpdates, m.WorkflowCommands,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
