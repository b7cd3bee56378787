package mocks

import (
	"context"

	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/stretchr/testify/mock"
)

// MockLifecycleStarter is a mock of the lifecycle starter used by the HTTP handlers.
type MockLifecycleStarter struct {
	mock.Mock
}

func (m *MockLifecycleStarter) Start(ctx context.Context, requestID string, slaMinutes int) (lifecycle.StartResult, error) {
	args := m.Called(ctx, requestID, slaMinutes)

	return args.Get(0).(lifecycle.StartResult), args.Error(1)
}

func (m *MockLifecycleStarter) Status(ctx context.Context, requestID string) (*lifecycle.RunStatus, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*lifecycle.RunStatus), args.Error(1)
}
