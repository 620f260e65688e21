// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package workflowmock provides a go.uber.org/mock implementation of
// workflow.Resolver.
package workflowmock

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/luxfi/snapgraph/workflow"
)

// MockResolver is a mock of the Resolver interface.
type MockResolver struct {
	ctrl     *gomock.Controller
	recorder *MockResolverMockRecorder
}

// MockResolverMockRecorder is the mock recorder for MockResolver.
type MockResolverMockRecorder struct {
	mock *MockResolver
}

// NewMockResolver creates a new mock instance.
func NewMockResolver(ctrl *gomock.Controller) *MockResolver {
	mock := &MockResolver{ctrl: ctrl}
	mock.recorder = &MockResolverMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockResolver) EXPECT() *MockResolverMockRecorder {
	return m.recorder
}

// ResolveView mocks base method.
func (m *MockResolver) ResolveView(ctx context.Context, name string, args []string) (*workflow.View, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ResolveView", ctx, name, args)
	ret0, _ := ret[0].(*workflow.View)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ResolveView indicates an expected call of ResolveView.
func (mr *MockResolverMockRecorder) ResolveView(ctx, name, args any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ResolveView", reflect.TypeOf((*MockResolver)(nil).ResolveView), ctx, name, args)
}

// ResolveCommand mocks base method.
func (m *MockResolver) ResolveCommand(ctx context.Context, name string) (workflow.CommandBinding, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ResolveCommand", ctx, name)
	ret0, _ := ret[0].(workflow.CommandBinding)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ResolveCommand indicates an expected call of ResolveCommand.
func (mr *MockResolverMockRecorder) ResolveCommand(ctx, name any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ResolveCommand", reflect.TypeOf((*MockResolver)(nil).ResolveCommand), ctx, name)
}
