package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultUploadFiles are uploaded, in this order, unless upload.files says otherwise
var DefaultUploadFiles = []string{"keyvaults.json", "storage_accounts.json", "adf_shir.json"}

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Storage StorageConfig
	Upload  UploadConfig
	Secrets SecretsConfig
	Logging LoggingConfig
}

type AppConfig struct {
	Name        string `validate:"required"`
	Environment string `validate:"required"`
}

// StorageConfig describes the blob store the files are pushed to.
// The SAS token is deliberately absent: it is only ever taken from the command line.
type StorageConfig struct {
	// Mode selects the backend: "azure" for Blob Storage, "local" for a directory on disk
	Mode string `validate:"oneof=azure local"`
	// AccountName is the storage account, used to build the default service URL
	AccountName string `validate:"required"`
	// Container is the blob container receiving the uploads
	Container string `validate:"required"`
	// ServiceURL overrides https://<AccountName>.blob.core.windows.net (e.g. Azurite)
	ServiceURL string `validate:"omitempty,url"`
	// LocalBasePath is the root directory used in local mode
	LocalBasePath string
	// MaxRetries is handed to the Azure SDK retry policy; negative disables retries
	MaxRetries int32
	// TimeoutSeconds bounds the whole run; 0 leaves it unbounded
	TimeoutSeconds int `validate:"gte=0"`
}

type UploadConfig struct {
	// Files is the ordered list of file names read from the working directory
	Files []string `validate:"min=1,dive,required"`
}

type SecretsConfig struct {
	// KeyVaultName is the vault consulted for keyvault:<name> SAS token references
	KeyVaultName string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// BlobServiceURL returns the blob service endpoint of the configured account
func (s *StorageConfig) BlobServiceURL() string {
	if s.ServiceURL != "" {
		return strings.TrimSuffix(s.ServiceURL, "/")
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net", s.AccountName)
}

// TimeoutDuration returns the run timeout as duration
func (s *StorageConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Validate checks the loaded configuration against its struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load loads configuration, later sources overriding earlier ones:
// built-in defaults, config.json from ./config or the user config directory,
// then environment variables (a .env file in the working directory is loaded into the environment).
// config.json is never read from the working directory itself, which holds the files being uploaded.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath("./config")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "lighthouse-upload"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Lighthouse Uploader")
	v.SetDefault("app.environment", "development")

	// Storage defaults
	v.SetDefault("storage.mode", "azure")
	v.SetDefault("storage.accountName", "sftplighthousepoc")
	v.SetDefault("storage.container", "sftp")
	v.SetDefault("storage.serviceURL", "")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.maxRetries", -1)
	v.SetDefault("storage.timeoutSeconds", 0)

	// Upload defaults
	v.SetDefault("upload.files", DefaultUploadFiles)

	// Secrets defaults
	v.SetDefault("secrets.keyVaultName", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
