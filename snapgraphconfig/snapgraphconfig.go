// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapgraphconfig holds the per-run tunables for this module's
// components: a plain struct with a defaulting function, matching the
// teacher's config/parameters.go style (config.go + parameters.go +
// presets.go) rather than a flag/viper-driven approach.
package snapgraphconfig

import "github.com/luxfi/snapgraph/veritech"

// Parameters are the knobs a snapgraphctl invocation, or any embedding
// process, can tune.
type Parameters struct {
	// OrderingEdgeLimit records how many Ordering-kind edges a node may
	// carry. Nothing in this module reads it: the graph always rejects a
	// second one outright (ErrTooManyOrderingForNode) regardless of this
	// value.
	OrderingEdgeLimit int

	// VeritechSubjectPrefix is prepended to every veritech.Subject a
	// Dispatcher implementation sends, so multiple environments sharing a
	// message bus don't collide.
	VeritechSubjectPrefix string

	// FinalMessageHeader overrides veritech.DefaultFinalMessageHeader.
	FinalMessageHeader string
}

// DefaultParams returns this module's default tunables.
func DefaultParams() Parameters {
	return Parameters{
		OrderingEdgeLimit:     1,
		VeritechSubjectPrefix: "",
		FinalMessageHeader:    veritech.DefaultFinalMessageHeader,
	}
}

// Subject applies p's prefix to subject.
func (p Parameters) Subject(subject veritech.Subject) veritech.Subject {
	if p.VeritechSubjectPrefix == "" {
		return subject
	}
	return veritech.Subject(p.VeritechSubjectPrefix + "." + string(subject))
}
