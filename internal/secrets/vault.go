package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// VaultClient reads secrets from an Azure Key Vault. It authenticates with
// DefaultAzureCredential: environment credentials, managed identity or the Azure CLI.
type VaultClient struct {
	client    *azsecrets.Client
	vaultName string
	logger    *zap.Logger
}

func NewVaultClient(vaultName string, logger *zap.Logger) (*VaultClient, error) {
	if vaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	logger.Info("Azure Key Vault client initialized", zap.String("vault_url", vaultURL))
	return &VaultClient{client: client, vaultName: vaultName, logger: logger}, nil
}

// GetSecret returns the latest version of a secret. Missing secrets wrap ErrNotFound.
func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s in vault %s", ErrNotFound, name, v.vaultName)
		}
		v.logger.Error("Failed to get secret from Key Vault", zap.String("secret_name", name), zap.Error(err))
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("%w: %s has no value", ErrNotFound, name)
	}
	return *resp.Value, nil
}
