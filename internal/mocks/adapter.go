package mocks

import (
	"context"

	"github.com/brettbedarf/flatfs"
	"github.com/stretchr/testify/mock"
)

// MockContentAdapter implements flatfs.ContentAdapter for testing across packages
type MockContentAdapter struct {
	mock.Mock
}

func (m *MockContentAdapter) Content(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context) []byte); ok {
		return fn(ctx), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

var _ flatfs.ContentAdapter = (*MockContentAdapter)(nil)

// MockAdapterProvider implements flatfs.AdapterProvider for testing across packages
type MockAdapterProvider struct {
	mock.Mock
}

func (m *MockAdapterProvider) NewAdapter(raw []byte) (flatfs.ContentAdapter, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(flatfs.ContentAdapter), args.Error(1)
}

var _ flatfs.AdapterProvider = (*MockAdapterProvider)(nil)
