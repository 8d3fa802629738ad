package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Reference prefixes accepted in place of a literal token
const (
	PrefixVault       = "keyvault:"
	PrefixEnvironment = "env:"
)

// ErrSecretNotFound is returned when a referenced secret resolves to nothing
var ErrSecretNotFound = errors.New("secret not found")

// SecretGetter fetches a named secret from a remote store
type SecretGetter interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// Resolver turns a command line credential into its value.
// Literal values are returned unchanged; "keyvault:<name>" and "env:<name>"
// are looked up in Azure Key Vault and the process environment.
type Resolver struct {
	vault    SecretGetter
	newVault func() (SecretGetter, error)
	logger   *zap.Logger
}

// NewResolver creates a resolver whose Key Vault client is built on first use
func NewResolver(cfg *VaultConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		newVault: func() (SecretGetter, error) {
			return NewVaultClient(cfg, logger)
		},
	}
}

// NewResolverWithVault creates a resolver backed by an existing secret store
func NewResolverWithVault(vault SecretGetter, logger *zap.Logger) *Resolver {
	return &Resolver{
		vault:  vault,
		logger: logger,
	}
}

// Resolve returns the value the given credential stands for
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	switch {
	case strings.HasPrefix(value, PrefixVault):
		name := strings.TrimPrefix(value, PrefixVault)
		vault, err := r.vaultClient()
		if err != nil {
			return "", err
		}
		r.logger.Info("Resolving credential from Azure Key Vault", zap.String("secret_name", name))
		secret, err := vault.GetSecret(ctx, name)
		if err != nil {
			return "", err
		}
		if secret == "" {
			return "", fmt.Errorf("%w: key vault secret '%s' is empty", ErrSecretNotFound, name)
		}
		return secret, nil

	case strings.HasPrefix(value, PrefixEnvironment):
		name := strings.TrimPrefix(value, PrefixEnvironment)
		secret := os.Getenv(name)
		if secret == "" {
			return "", fmt.Errorf("%w: environment variable '%s' not set", ErrSecretNotFound, name)
		}
		r.logger.Info("Resolving credential from environment", zap.String("env_name", name))
		return secret, nil

	default:
		return value, nil
	}
}

func (r *Resolver) vaultClient() (SecretGetter, error) {
	if r.vault != nil {
		return r.vault, nil
	}
	if r.newVault == nil {
		return nil, fmt.Errorf("key vault not configured")
	}
	vault, err := r.newVault()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client: %w", err)
	}
	r.vault = vault
	return vault, nil
}
