package mocks

import (
	"context"

	"github.com/fastorc/requestshub/pkg/notify"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	args := m.Called()

	return args.Error(0)
}
