// Package secrets resolves named secrets from Azure Key Vault using the
// ambient managed identity.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// ErrEmptySecret is returned when the vault holds no value for a secret.
var ErrEmptySecret = errors.New("secret has no value")

// SecretGetter is the subset of the Key Vault client used here.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// KeyVault resolves secrets from one vault.
type KeyVault struct {
	client SecretGetter
}

// NewKeyVault authenticates with DefaultAzureCredential (managed identity,
// workload identity, environment or CLI credentials, in that order of
// availability) against vaultURL.
func NewKeyVault(vaultURL string) (*KeyVault, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return NewKeyVaultWithCredential(vaultURL, cred)
}

func NewKeyVaultWithCredential(vaultURL string, cred azcore.TokenCredential) (*KeyVault, error) {
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	return &KeyVault{client: client}, nil
}

// NewKeyVaultWithClient wraps an existing client.
func NewKeyVaultWithClient(client SecretGetter) *KeyVault {
	return &KeyVault{client: client}
}

// Resolve returns the latest version of the named secret.
func (k *KeyVault) Resolve(ctx context.Context, name string) (string, error) {
	resp, err := k.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	if resp.Value == nil || *resp.Value == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}

	return *resp.Value, nil
}
