// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package workflow implements the composite action runtime: a tree of
// nested workflow references and external command bindings, resolved from
// an external source and then run through a resolve -> prepare -> execute
// -> postprocess pipeline.
package workflow

import "fmt"

// Kind tags how a workflow's steps are meant to run.
type Kind uint8

const (
	// KindConditional runs its steps sequentially, in order.
	KindConditional Kind = iota
	// KindParallel runs every step concurrently and joins on all of them.
	KindParallel
	// KindExceptional is reserved; its semantics are not yet fixed (see
	// the source this was distilled from, which has no execute branch
	// for it either).
	KindExceptional
)

func (k Kind) String() string {
	switch k {
	case KindConditional:
		return "conditional"
	case KindParallel:
		return "parallel"
	case KindExceptional:
		return "exceptional"
	default:
		return "unknown"
	}
}

// Step is one entry in an unresolved View's step list: either a reference
// to a nested workflow or a leaf command, both named and carrying their
// own args.
type Step interface {
	isStep()
}

// WorkflowRef references a nested workflow by name, to be fetched from
// the resolver and expanded in place.
type WorkflowRef struct {
	Name string
	Args []string
}

func (WorkflowRef) isStep() {}

// CommandRef references an external function binding by name.
type CommandRef struct {
	Name string
	Args []string
}

func (CommandRef) isStep() {}

// View is what an external resolver returns for a workflow name: its
// kind, its steps, and the args it was invoked with.
type View struct {
	Name  string
	Kind  Kind
	Steps []Step
	Args  []string
}

// CommandBinding is the resolved handle for a Command step: the name an
// external function executor (veritech) understands, plus whatever
// implementation detail locates it there. Binding.Name also serves as the
// key `prepare` uses to index its FuncToExecute map, matching the
// governing spec's "keyed by each binding's id".
type CommandBinding struct {
	Name   string
	Handle string
}

// ResolvedStep is one entry in a Tree's step list, after resolution: a
// leaf command with its binding already looked up, or a fully resolved
// nested Tree.
type ResolvedStep interface {
	isResolvedStep()
}

// ResolvedCommand is a Command step with its binding resolved.
type ResolvedCommand struct {
	Binding CommandBinding
	Args    []string
}

func (ResolvedCommand) isResolvedStep() {}

// ResolvedWorkflow is a WorkflowRef step with its nested tree resolved.
type ResolvedWorkflow struct {
	Tree *Tree
}

func (ResolvedWorkflow) isResolvedStep() {}

// Tree mirrors View, but with every Command binding resolved and every
// nested WorkflowRef expanded into its own Tree.
type Tree struct {
	Name  string
	Kind  Kind
	Args  []string
	Steps []ResolvedStep
}

func (t *Tree) String() string {
	return fmt.Sprintf("Tree{name:%s, kind:%s, steps:%d}", t.Name, t.Kind, len(t.Steps))
}
