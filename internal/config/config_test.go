package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/straye-as/lighthouse-uploader/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves the test into an empty directory and points the user config
// directory at an empty one, so no stray config.json or .env is picked up
func chdir(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "azure", cfg.Storage.Mode)
	assert.Equal(t, "sftplighthousepoc", cfg.Storage.AccountName)
	assert.Equal(t, "sftp", cfg.Storage.Container)
	assert.Equal(t, int32(-1), cfg.Storage.MaxRetries)
	assert.Zero(t, cfg.Storage.TimeoutDuration())
	assert.Equal(t, []string{"keyvaults.json", "storage_accounts.json", "adf_shir.json"}, cfg.Upload.Files)
	assert.Equal(t, "https://sftplighthousepoc.blob.core.windows.net", cfg.Storage.BlobServiceURL())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_CONTAINER", "inbox")
	t.Setenv("STORAGE_SERVICEURL", "http://127.0.0.1:10000/devstoreaccount1/")
	t.Setenv("LOGGING_LEVEL", "debug")
	t.Setenv("AZURE_KEY_VAULT_NAME", "kv-lighthouse")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "inbox", cfg.Storage.Container)
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1", cfg.Storage.BlobServiceURL())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "kv-lighthouse", cfg.Secrets.KeyVaultName)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.json"), []byte(`{
		"storage": {"mode": "local", "localBasePath": "./out", "timeoutSeconds": 30},
		"upload": {"files": ["keyvaults.json"]}
	}`), 0644))

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.Equal(t, "./out", cfg.Storage.LocalBasePath)
	assert.Equal(t, float64(30), cfg.Storage.TimeoutDuration().Seconds())
	assert.Equal(t, []string{"keyvaults.json"}, cfg.Upload.Files)
}

func TestLoad_UserConfigDir(t *testing.T) {
	chdir(t, t.TempDir())
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	require.NoError(t, os.Mkdir(filepath.Join(home, "lighthouse-upload"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "lighthouse-upload", "config.json"),
		[]byte(`{"storage": {"container": "inbox"}}`), 0644))

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "inbox", cfg.Storage.Container)
}

func TestLoad_IgnoresConfigFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"storage": {"mode": "local", "container": "elsewhere"}}`), 0644))

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "azure", cfg.Storage.Mode)
	assert.Equal(t, "sftp", cfg.Storage.Container)
}

func TestLoad_EnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.json"),
		[]byte(`{"storage": {"container": "from-file"}}`), 0644))
	t.Setenv("STORAGE_CONTAINER", "from-env")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Storage.Container)
}

func TestLoad_InvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_MODE", "ftp")

	_, err := config.Load()

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			App:     config.AppConfig{Name: "Lighthouse Uploader", Environment: "development"},
			Storage: config.StorageConfig{Mode: "azure", AccountName: "sftplighthousepoc", Container: "sftp"},
			Upload:  config.UploadConfig{Files: []string{"keyvaults.json"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "no files", mutate: func(c *config.Config) { c.Upload.Files = nil }, wantErr: true},
		{name: "blank file name", mutate: func(c *config.Config) { c.Upload.Files = []string{""} }, wantErr: true},
		{name: "missing container", mutate: func(c *config.Config) { c.Storage.Container = "" }, wantErr: true},
		{name: "bad service url", mutate: func(c *config.Config) { c.Storage.ServiceURL = "not a url" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *config.Config) { c.Storage.TimeoutSeconds = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
