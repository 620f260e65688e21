package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/snapgraph/workflow"
	"github.com/luxfi/snapgraph/workflow/workflowmock"
)

type fakeExecutor struct{}

func (fakeExecutor) Execute(_ context.Context, binding workflow.CommandBinding, _ []string, out chan<- string) (string, error) {
	out <- "ran " + binding.Name
	return "ok:" + binding.Name, nil
}

func TestResolveExpandsNestedWorkflowsAndMemoizesSiblings(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := workflowmock.NewMockResolver(ctrl)
	ctx := context.Background()

	root := &workflow.View{
		Name: "w",
		Kind: workflow.KindConditional,
		Steps: []workflow.Step{
			workflow.WorkflowRef{Name: "shared"},
			workflow.WorkflowRef{Name: "shared"}, // same (name, args): resolved once
		},
	}
	shared := &workflow.View{Name: "shared", Kind: workflow.KindConditional, Steps: []workflow.Step{workflow.CommandRef{Name: "c1"}}}

	r.EXPECT().ResolveView(gomock.Any(), "w", gomock.Any()).Return(root, nil)
	r.EXPECT().ResolveView(gomock.Any(), "shared", gomock.Any()).Return(shared, nil).Times(1)
	r.EXPECT().ResolveCommand(gomock.Any(), "c1").Return(workflow.CommandBinding{Name: "c1"}, nil).Times(1)

	tree, err := workflow.Resolve(ctx, r, "w", nil)
	require.NoError(t, err)
	require.Len(t, tree.Steps, 2)

	first, ok := tree.Steps[0].(workflow.ResolvedWorkflow)
	require.True(t, ok)
	second, ok := tree.Steps[1].(workflow.ResolvedWorkflow)
	require.True(t, ok)
	require.Same(t, first.Tree, second.Tree)
}

func TestResolveDetectsRecursiveWorkflow(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := workflowmock.NewMockResolver(ctrl)
	ctx := context.Background()

	self := &workflow.View{
		Name:  "a",
		Kind:  workflow.KindConditional,
		Steps: []workflow.Step{workflow.WorkflowRef{Name: "a"}},
	}
	r.EXPECT().ResolveView(gomock.Any(), "a", gomock.Any()).Return(self, nil).Times(1)

	_, err := workflow.Resolve(ctx, r, "a", nil)
	require.ErrorIs(t, err, workflow.ErrRecursiveWorkflow)
}

func TestResolveMissingWorkflow(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := workflowmock.NewMockResolver(ctrl)
	ctx := context.Background()

	r.EXPECT().ResolveView(gomock.Any(), "ghost", gomock.Any()).Return(nil, nil)

	_, err := workflow.Resolve(ctx, r, "ghost", nil)
	require.ErrorIs(t, err, workflow.ErrMissingWorkflow)
}

func TestResolveMissingCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := workflowmock.NewMockResolver(ctrl)
	ctx := context.Background()

	view := &workflow.View{Name: "w", Kind: workflow.KindConditional, Steps: []workflow.Step{workflow.CommandRef{Name: "ghost"}}}
	r.EXPECT().ResolveView(gomock.Any(), "w", gomock.Any()).Return(view, nil)
	r.EXPECT().ResolveCommand(gomock.Any(), "ghost").Return(workflow.CommandBinding{}, nil)

	_, err := workflow.Resolve(ctx, r, "w", nil)
	require.ErrorIs(t, err, workflow.ErrMissingCommand)
}

// TestParallelFanOut is the governing spec's concrete scenario #6: a
// Parallel workflow of two commands and a nested Conditional workflow
// containing a third command; prepare must populate all three bindings,
// and execute must complete with every result set regardless of
// completion order.
func TestParallelFanOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := workflowmock.NewMockResolver(ctrl)
	ctx := context.Background()

	root := &workflow.View{
		Name: "w",
		Kind: workflow.KindParallel,
		Steps: []workflow.Step{
			workflow.CommandRef{Name: "c1"},
			workflow.CommandRef{Name: "c2"},
			workflow.WorkflowRef{Name: "w2"},
		},
	}
	w2 := &workflow.View{Name: "w2", Kind: workflow.KindConditional, Steps: []workflow.Step{workflow.CommandRef{Name: "c3"}}}

	r.EXPECT().ResolveView(gomock.Any(), "w", gomock.Any()).Return(root, nil)
	r.EXPECT().ResolveView(gomock.Any(), "w2", gomock.Any()).Return(w2, nil)
	r.EXPECT().ResolveCommand(gomock.Any(), "c1").Return(workflow.CommandBinding{Name: "c1"}, nil)
	r.EXPECT().ResolveCommand(gomock.Any(), "c2").Return(workflow.CommandBinding{Name: "c2"}, nil)
	r.EXPECT().ResolveCommand(gomock.Any(), "c3").Return(workflow.CommandBinding{Name: "c3"}, nil)

	tree, err := workflow.Resolve(ctx, r, "w", nil)
	require.NoError(t, err)

	records, _ := workflow.Prepare(tree, 4)
	require.Len(t, records, 3)
	require.Contains(t, records, "c1")
	require.Contains(t, records, "c2")
	require.Contains(t, records, "c3")

	require.NoError(t, workflow.Execute(ctx, tree, records, fakeExecutor{}))
	for _, name := range []string{"c1", "c2", "c3"} {
		require.NoError(t, records[name].Err)
		require.Equal(t, "ok:"+name, records[name].Result)
	}

	require.NoError(t, workflow.Postprocess(tree, records, nil))
	line, open := <-records["c1"].Output
	require.True(t, open)
	require.Equal(t, "ran c1", line)
	_, open = <-records["c1"].Output
	require.False(t, open)
}

func TestExecuteCommandNotPrepared(t *testing.T) {
	tree := &workflow.Tree{
		Name: "w",
		Kind: workflow.KindConditional,
		Steps: []workflow.ResolvedStep{
			workflow.ResolvedCommand{Binding: workflow.CommandBinding{Name: "c1"}},
		},
	}
	err := workflow.Execute(context.Background(), tree, map[string]*workflow.FuncToExecute{}, fakeExecutor{})
	require.ErrorIs(t, err, workflow.ErrCommandNotPrepared)
}

func TestExecuteExceptionalIsUnimplemented(t *testing.T) {
	tree := &workflow.Tree{Name: "w", Kind: workflow.KindExceptional}
	err := workflow.Execute(context.Background(), tree, nil, fakeExecutor{})
	require.Error(t, err)
}
