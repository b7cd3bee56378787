package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/fastorc/requestshub/pkg/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSecretGetter struct {
	mock.Mock
}

func (m *mockSecretGetter) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	args := m.Called(ctx, name, version)

	return args.Get(0).(azsecrets.GetSecretResponse), args.Error(1)
}

func secretResponse(value *string) azsecrets.GetSecretResponse {
	var resp azsecrets.GetSecretResponse
	resp.Value = value

	return resp
}

func TestKeyVault_Resolve(t *testing.T) {
	t.Parallel()

	value := "mongodb://cosmos.example:10255/?ssl=true"
	getter := &mockSecretGetter{}
	getter.On("GetSecret", mock.Anything, "COSMOS_CONN", "").Return(secretResponse(&value), nil)

	got, err := secrets.NewKeyVaultWithClient(getter).Resolve(context.Background(), "COSMOS_CONN")
	require.NoError(t, err)
	assert.Equal(t, value, got)
	getter.AssertExpectations(t)
}

func TestKeyVault_ResolveEmpty(t *testing.T) {
	t.Parallel()

	getter := &mockSecretGetter{}
	getter.On("GetSecret", mock.Anything, "COSMOS_CONN", "").Return(secretResponse(nil), nil)

	_, err := secrets.NewKeyVaultWithClient(getter).Resolve(context.Background(), "COSMOS_CONN")
	assert.ErrorIs(t, err, secrets.ErrEmptySecret)
}

func TestKeyVault_ResolveError(t *testing.T) {
	t.Parallel()

	getter := &mockSecretGetter{}
	getter.On("GetSecret", mock.Anything, "COSMOS_CONN", "").
		Return(secretResponse(nil), errors.New("403 forbidden"))

	_, err := secrets.NewKeyVaultWithClient(getter).Resolve(context.Background(), "COSMOS_CONN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403 forbidden")
}
