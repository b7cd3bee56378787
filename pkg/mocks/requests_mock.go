package mocks

import (
	"context"

	"github.com/fastorc/requestshub/pkg/requests"
	"github.com/stretchr/testify/mock"
)

// MockRequestRepository is a mock implementation of requests.Repository.
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Get(ctx context.Context, id string) (*requests.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*requests.Request), args.Error(1)
}

func (m *MockRequestRepository) RaisePriority(ctx context.Context, id, priority string) error {
	args := m.Called(ctx, id, priority)

	return args.Error(0)
}

func (m *MockRequestRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockRequestRepository) Close() error {
	args := m.Called()

	return args.Error(0)
}
