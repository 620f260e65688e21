// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package workflow

import "context"

// Resolver is the external source of workflow views and command
// bindings. A nil *View / zero CommandBinding with a nil error means "not
// found" and is turned into ErrMissingWorkflow / ErrMissingCommand by
// Resolve.
type Resolver interface {
	ResolveView(ctx context.Context, name string, args []string) (*View, error)
	ResolveCommand(ctx context.Context, name string) (CommandBinding, error)
}
