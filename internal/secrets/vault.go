package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// secretClient is the subset of *azsecrets.Client the vault lookup needs
type secretClient interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// VaultClient reads SAS tokens stored as Azure Key Vault secrets
type VaultClient struct {
	client   secretClient
	vaultURL string
	logger   *zap.Logger
}

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName string
}

// NewVaultClient creates a new Azure Key Vault client
// Uses DefaultAzureCredential which supports:
// - Environment variables (AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_TENANT_ID)
// - Managed Identity (when running in Azure)
// - Azure CLI credentials (for local development)
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)

	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	return newVaultClient(client, vaultURL, logger), nil
}

func newVaultClient(client secretClient, vaultURL string, logger *zap.Logger) *VaultClient {
	return &VaultClient{
		client:   client,
		vaultURL: vaultURL,
		logger:   logger,
	}
}

// GetSecret returns the current value of a secret. A reference of the form
// "<name>/<version>" pins a specific version; Key Vault names cannot contain "/".
func (v *VaultClient) GetSecret(ctx context.Context, reference string) (string, error) {
	name, version, _ := strings.Cut(reference, "/")

	v.logger.Debug("Fetching SAS token from Key Vault",
		zap.String("vault_url", v.vaultURL),
		zap.String("secret_name", name),
		zap.String("secret_version", version),
	)

	resp, err := v.client.GetSecret(ctx, name, version, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret '%s': %w", name, err)
	}

	if resp.Value == nil {
		return "", fmt.Errorf("%w: secret '%s' has no value", ErrSecretNotFound, name)
	}

	return *resp.Value, nil
}
