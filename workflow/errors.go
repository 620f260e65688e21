// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package workflow

import "github.com/cockroachdb/errors"

// Sentinel errors implementing §7's workflow error-kind taxonomy. Callers
// should compare with errors.Is; context is attached with errors.Wrapf at
// the call site.
var (
	ErrMissingWorkflow    = errors.New("workflow: resolver returned no view for workflow")
	ErrMissingCommand     = errors.New("workflow: resolver returned no binding for command")
	ErrCommandNotPrepared = errors.New("workflow: execute saw a command not present in the prepared map")
	ErrRecursiveWorkflow  = errors.New("workflow: workflow composition contains an ancestor cycle")
)
