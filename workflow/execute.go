// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package workflow

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/snapgraph/snapgraphmetrics"
)

// DefaultOutputBufferSize is the channel capacity prepare uses for a
// command's output stream when the caller doesn't override it.
const DefaultOutputBufferSize = 16

// FuncToExecute is the prepared record for one Command leaf: its
// resolved binding, the args it runs with, its bounded single-producer /
// single-consumer output stream, and -- once execute has run -- the
// stashed (result, error) tuple.
type FuncToExecute struct {
	Binding CommandBinding
	Args    []string
	Output  chan string

	Result string
	Err    error
}

// Executor runs one command's critical section, streaming structured log
// lines to out as it goes and returning the function result.
type Executor interface {
	Execute(ctx context.Context, binding CommandBinding, args []string, out chan<- string) (string, error)
}

// PostProcessor consumes a finished command's result together with its
// now-closed-for-writing output stream.
type PostProcessor interface {
	Postprocess(binding CommandBinding, result string, cmdErr error, output <-chan string) error
}

// Prepare performs the DFS over tree described by the governing spec:
// every Command leaf, wherever it appears (including inside nested
// workflows), gets a FuncToExecute record and an output channel,
// returned as two maps keyed by the binding's name.
func Prepare(tree *Tree, outputBufferSize int) (map[string]*FuncToExecute, map[string]<-chan string) {
	if outputBufferSize <= 0 {
		outputBufferSize = DefaultOutputBufferSize
	}
	records := map[string]*FuncToExecute{}
	receivers := map[string]<-chan string{}

	var walk func(t *Tree)
	walk = func(t *Tree) {
		for _, step := range t.Steps {
			switch s := step.(type) {
			case ResolvedCommand:
				ch := make(chan string, outputBufferSize)
				records[s.Binding.Name] = &FuncToExecute{Binding: s.Binding, Args: s.Args, Output: ch}
				receivers[s.Binding.Name] = ch
			case ResolvedWorkflow:
				walk(s.Tree)
			}
		}
	}
	walk(tree)
	return records, receivers
}

// Execute runs tree's steps per its Kind: Conditional sequentially,
// Parallel as concurrent tasks joined at the end, Exceptional never
// (reserved, unimplemented).
func Execute(ctx context.Context, tree *Tree, records map[string]*FuncToExecute, executor Executor) error {
	return ExecuteWithMetrics(ctx, tree, records, executor, nil)
}

// ExecuteWithMetrics is Execute with an optional metrics sink; m may be nil.
func ExecuteWithMetrics(ctx context.Context, tree *Tree, records map[string]*FuncToExecute, executor Executor, m *snapgraphmetrics.Metrics) error {
	switch tree.Kind {
	case KindConditional:
		return executeConditional(ctx, tree, records, executor, m)
	case KindParallel:
		return executeParallel(ctx, tree, records, executor, m)
	case KindExceptional:
		return errors.Newf("workflow: exceptional workflow %q is not implemented", tree.Name)
	default:
		return errors.Newf("workflow: unknown kind %v for workflow %q", tree.Kind, tree.Name)
	}
}

func executeConditional(ctx context.Context, tree *Tree, records map[string]*FuncToExecute, executor Executor, m *snapgraphmetrics.Metrics) error {
	for _, step := range tree.Steps {
		switch s := step.(type) {
		case ResolvedCommand:
			if err := runCommand(ctx, s, records, executor, m); err != nil {
				return err
			}
		case ResolvedWorkflow:
			if err := ExecuteWithMetrics(ctx, s.Tree, records, executor, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// executeParallel spawns every step as a concurrent task and joins on
// all of them. A task that panics has its panic payload captured and
// re-raised in this, the driver goroutine, once every task has returned
// -- per the governing spec, a cancelled or silently swallowed task is a
// bug, never a normal outcome.
func executeParallel(ctx context.Context, tree *Tree, records map[string]*FuncToExecute, executor Executor, m *snapgraphmetrics.Metrics) error {
	var g errgroup.Group
	var panicVal atomic.Value

	runGuarded := func(fn func() error) func() error {
		return func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					panicVal.Store(panicPayload{value: r})
				}
			}()
			return fn()
		}
	}

	for _, step := range tree.Steps {
		step := step
		switch s := step.(type) {
		case ResolvedCommand:
			g.Go(runGuarded(func() error { return runCommand(ctx, s, records, executor, m) }))
		case ResolvedWorkflow:
			g.Go(runGuarded(func() error { return ExecuteWithMetrics(ctx, s.Tree, records, executor, m) }))
		}
	}

	err := g.Wait()
	if v := panicVal.Load(); v != nil {
		panic(v.(panicPayload).value)
	}
	return err
}

type panicPayload struct{ value any }

// runCommand looks up s's prepared record and runs its critical section,
// stashing the (result, error) tuple on the record. A command missing
// from records is CommandNotPrepared: a bug in a prior prepare call, not
// a runtime condition the caller can recover from.
func runCommand(ctx context.Context, s ResolvedCommand, records map[string]*FuncToExecute, executor Executor, m *snapgraphmetrics.Metrics) error {
	rec, ok := records[s.Binding.Name]
	if !ok {
		return errors.Wrapf(ErrCommandNotPrepared, "command %q", s.Binding.Name)
	}
	rec.Result, rec.Err = executor.Execute(ctx, rec.Binding, rec.Args, rec.Output)
	if m != nil {
		m.WorkflowCommands.Inc()
	}
	return nil
}

// Postprocess closes every command's output channel (dropping the
// sender) and, if handler is non-nil, lets it consume the now-finite
// receiver together with the stashed result.
func Postprocess(tree *Tree, records map[string]*FuncToExecute, handler PostProcessor) error {
	var walk func(t *Tree) error
	walk = func(t *Tree) error {
		for _, step := range t.Steps {
			switch s := step.(type) {
			case ResolvedCommand:
				rec, ok := records[s.Binding.Name]
				if !ok {
					return errors.Wrapf(ErrCommandNotPrepared, "command %q", s.Binding.Name)
				}
				close(rec.Output)
				if handler != nil {
					if err := handler.Postprocess(rec.Binding, rec.Result, rec.Err, rec.Output); err != nil {
						return err
					}
				}
			case ResolvedWorkflow:
				if err := walk(s.Tree); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(tree)
}
