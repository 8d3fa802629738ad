package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/straye-as/lighthouse-uploader/internal/config"
	"github.com/straye-as/lighthouse-uploader/internal/logger"
	"github.com/straye-as/lighthouse-uploader/internal/secrets"
	"github.com/straye-as/lighthouse-uploader/internal/storage"
	"github.com/straye-as/lighthouse-uploader/internal/uploader"
	"go.uber.org/zap"
)

// dependencies are the collaborators the command reaches outside the process for
type dependencies struct {
	loadConfig func() (*config.Config, error)
	newStorage func(cfg *config.StorageConfig, sasToken string, logger *zap.Logger) (storage.Storage, error)
	getwd      func() (string, error)
}

type options struct {
	customerName   string
	sasToken       string
	subscriptionID string
}

func newRootCmd(deps dependencies) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "lighthouse-upload",
		Short: "Upload the lighthouse inventory JSON files to the SFTP blob container",
		Long: `lighthouse-upload reads keyvaults.json, storage_accounts.json and adf_shir.json
from the current directory and uploads them, one after the other, to
https://sftplighthousepoc.blob.core.windows.net/sftp/<customer_name>/<subscription_id>/,
overwriting existing blobs. The first failure stops the run.

The SAS token may be URL-escaped (%3D is decoded to =), or a reference of the
form keyvault:<secret-name>[/<version>] or env:<VARIABLE>.

Settings other than the three flags are resolved in this order, later wins:
  1. built-in defaults (account sftplighthousepoc, container sftp, mode azure)
  2. config.json in ./config or <user config dir>/lighthouse-upload
     (never from the current directory itself)
  3. environment variables, including a .env file in the current directory:
     STORAGE_MODE, STORAGE_ACCOUNTNAME, STORAGE_CONTAINER, STORAGE_SERVICEURL,
     STORAGE_MAXRETRIES, STORAGE_TIMEOUTSECONDS, UPLOAD_FILES, AZURE_KEY_VAULT_NAME,
     LOGGING_LEVEL, LOGGING_FORMAT
The effective destination is logged before the first upload.

Examples:
  lighthouse-upload --customer_name acme --subscription_id sub-123 --sas_token "sv=...&sig=..."
  lighthouse-upload --customer_name acme --subscription_id sub-123 --sas_token keyvault:lighthouse-sas`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags parsed; anything failing from here on is not a usage problem
			cmd.SilenceUsage = true
			return run(cmd.Context(), deps, opts)
		},
	}

	cmd.Flags().StringVar(&opts.customerName, "customer_name", "", "Customer name, first path segment in the container (required)")
	cmd.Flags().StringVar(&opts.sasToken, "sas_token", "", "Shared access signature for the container (required)")
	cmd.Flags().StringVar(&opts.subscriptionID, "subscription_id", "", "Subscription id, second path segment in the container (required)")
	cmd.MarkFlagRequired("customer_name")
	cmd.MarkFlagRequired("sas_token")
	cmd.MarkFlagRequired("subscription_id")

	return cmd
}

func run(ctx context.Context, deps dependencies, opts options) error {
	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return err
	}
	defer log.Sync()

	log = logger.WithRun(log, uuid.NewString(), opts.customerName, opts.subscriptionID)

	if timeout := cfg.Storage.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resolver := secrets.NewResolver(&secrets.VaultConfig{
		VaultName: cfg.Secrets.KeyVaultName,
	}, log)

	token, err := resolver.Resolve(ctx, opts.sasToken)
	if err != nil {
		return fmt.Errorf("failed to resolve SAS token: %w", err)
	}

	params := uploader.NewParams(opts.customerName, token, opts.subscriptionID)

	workDir, err := deps.getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	log.Info("Current working directory", zap.String("path", workDir))
	log.Info("Upload destination",
		zap.String("mode", cfg.Storage.Mode),
		zap.String("service_url", cfg.Storage.BlobServiceURL()),
		zap.String("container", cfg.Storage.Container),
	)

	store, err := deps.newStorage(&cfg.Storage, params.SASToken, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	results, err := uploader.New(store, cfg.Upload.Files, workDir, log).Run(ctx, params)
	if err != nil {
		return err
	}

	for _, r := range results {
		log.Debug("Uploaded", zap.String("file", r.File), zap.String("url", r.URL), zap.Int64("size", r.Size))
	}
	return nil
}
