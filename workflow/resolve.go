// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package workflow

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Resolve fetches name's View from r and recursively expands every
// nested WorkflowRef into its own Tree, refusing to re-enter a workflow
// name already on the ancestor stack and memoizing resolved trees by
// (name, args) so siblings sharing a reference resolve it once.
func Resolve(ctx context.Context, r Resolver, name string, args []string) (*Tree, error) {
	memo := map[string]*Tree{}
	return resolve(ctx, r, name, args, nil, memo)
}

func resolve(ctx context.Context, r Resolver, name string, args []string, ancestors []string, memo map[string]*Tree) (*Tree, error) {
	key := memoKey(name, args)
	if t, ok := memo[key]; ok {
		return t, nil
	}

	for _, a := range ancestors {
		if a == name {
			return nil, errors.Wrapf(ErrRecursiveWorkflow, "workflow %q already on ancestor stack", name)
		}
	}

	view, err := r.ResolveView(ctx, name, args)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, errors.Wrapf(ErrMissingWorkflow, "workflow %q", name)
	}

	childAncestors := make([]string, len(ancestors), len(ancestors)+1)
	copy(childAncestors, ancestors)
	childAncestors = append(childAncestors, name)

	tree := &Tree{Name: view.Name, Kind: view.Kind, Args: view.Args}
	for _, step := range view.Steps {
		switch s := step.(type) {
		case WorkflowRef:
			child, err := resolve(ctx, r, s.Name, s.Args, childAncestors, memo)
			if err != nil {
				return nil, err
			}
			tree.Steps = append(tree.Steps, ResolvedWorkflow{Tree: child})
		case CommandRef:
			binding, err := r.ResolveCommand(ctx, s.Name)
			if err != nil {
				return nil, err
			}
			if binding.Name == "" {
				return nil, errors.Wrapf(ErrMissingCommand, "command %q", s.Name)
			}
			tree.Steps = append(tree.Steps, ResolvedCommand{Binding: binding, Args: s.Args})
		default:
			return nil, errors.Newf("workflow: unknown step type %T", step)
		}
	}

	memo[key] = tree
	return tree, nil
}

func memoKey(name string, args []string) string {
	return name + "\x00" + strings.Join(args, "\x00")
}
