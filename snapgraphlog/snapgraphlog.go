// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapgraphlog wires github.com/luxfi/log into this module's
// components. The packages that log (graph, rebase) take a log.Logger at
// construction time rather than reaching for a package-level global;
// workflow and veritech do not log.
package snapgraphlog

import (
	"github.com/luxfi/log"
)

// NewNoOp returns a logger that discards everything, for tests and for
// callers that haven't wired a real sink yet.
func NewNoOp() log.Logger {
	return log.NewNoOpLogger()
}

// New returns the module's default production logger: a zap-backed
// implementation named by component, so a single process running
// multiple Snapshot/Tree instances can tell their log lines apart.
func New(component string) log.Logger {
	return log.NewLogger(component)
}
