// Package mocks provides test doubles for the gcis client.
package mocks

import (
	"context"

	gcis "github.com/sells-group/gcis-cli/pkg/gcis"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// FetchRaw provides a mock function with given fields: ctx, params
func (_m *MockClient) FetchRaw(ctx context.Context, params gcis.ListParams) ([]any, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for FetchRaw")
	}

	var r0 []any
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, gcis.ListParams) ([]any, error)); ok {
		return rf(ctx, params)
	}
	if rf, ok := ret.Get(0).(func(context.Context, gcis.ListParams) []any); ok {
		r0 = rf(ctx, params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]any)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, gcis.ListParams) error); ok {
		r1 = rf(ctx, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListBusinessItems provides a mock function with given fields: ctx, params
func (_m *MockClient) ListBusinessItems(ctx context.Context, params gcis.ListParams) ([]gcis.BusinessItem, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for ListBusinessItems")
	}

	var r0 []gcis.BusinessItem
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, gcis.ListParams) ([]gcis.BusinessItem, error)); ok {
		return rf(ctx, params)
	}
	if rf, ok := ret.Get(0).(func(context.Context, gcis.ListParams) []gcis.BusinessItem); ok {
		r0 = rf(ctx, params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]gcis.BusinessItem)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, gcis.ListParams) error); ok {
		r1 = rf(ctx, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetBusinessItem provides a mock function with given fields: ctx, code
func (_m *MockClient) GetBusinessItem(ctx context.Context, code string) (*gcis.BusinessItem, error) {
	ret := _m.Called(ctx, code)

	if len(ret) == 0 {
		panic("no return value specified for GetBusinessItem")
	}

	var r0 *gcis.BusinessItem
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*gcis.BusinessItem, error)); ok {
		return rf(ctx, code)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *gcis.BusinessItem); ok {
		r0 = rf(ctx, code)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*gcis.BusinessItem)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, code)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
