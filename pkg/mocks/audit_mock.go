package mocks

import (
	"context"

	"github.com/fastorc/requestshub/pkg/audit"
	"github.com/stretchr/testify/mock"
)

// MockAuditStore is a mock implementation of audit.Store.
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Upsert(ctx context.Context, e *audit.Event) error {
	args := m.Called(ctx, e)

	return args.Error(0)
}

func (m *MockAuditStore) Query(ctx context.Context, q audit.Query) (audit.Page, error) {
	args := m.Called(ctx, q)

	return args.Get(0).(audit.Page), args.Error(1)
}

func (m *MockAuditStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockSecretResolver is a mock implementation of audit.SecretResolver.
type MockSecretResolver struct {
	mock.Mock
}

func (m *MockSecretResolver) Resolve(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)

	return args.String(0), args.Error(1)
}

// MockAuditWriter is a mock of the audit writer used by the lifecycle activities.
type MockAuditWriter struct {
	mock.Mock
}

func (m *MockAuditWriter) Write(ctx context.Context, req audit.WriteRequest) audit.Result {
	args := m.Called(ctx, req)

	return args.Get(0).(audit.Result)
}

// MockAuditReader is a mock of the audit reader used by the HTTP handlers.
type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) Read(ctx context.Context, q audit.Query) audit.Page {
	args := m.Called(ctx, q)

	return args.Get(0).(audit.Page)
}

func (m *MockAuditReader) Configured(ctx context.Context) bool {
	args := m.Called(ctx)

	return args.Bool(0)
}
