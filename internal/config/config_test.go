package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bqgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 127.0.0.1
  port: 9090
bigquery:
  project_id: my-project
  key_path: /tmp/key.json
credentials:
  dir: /tmp/sessions
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, "my-project", cfg.BigQuery.ProjectID)
	assert.Equal(t, "/tmp/key.json", cfg.BigQuery.KeyPath)
	assert.Equal(t, "/tmp/sessions", cfg.Credentials.Dir)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bqgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bigquery:\n  project_id: p\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "./session-credentials", cfg.Credentials.Dir)
	assert.Equal(t, "./service-account-key.json", cfg.BigQuery.KeyPath)
}

func TestEnvKeyIsMaterializedToTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bqgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bigquery:\n  project_id: p\n"), 0o600))

	keyJSON := `{"type": "service_account", "client_email": "env@p.iam.gserviceaccount.com"}`
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", keyJSON)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.NotEqual(t, "./service-account-key.json", cfg.BigQuery.KeyPath)
	content, err := os.ReadFile(cfg.BigQuery.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, keyJSON, string(content))
	t.Cleanup(func() { os.Remove(cfg.BigQuery.KeyPath) })
}

func TestValidateRequiresProjectID(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_id")
}

func TestValidateRequiresDefaultKeyFile(t *testing.T) {
	cfg := &Config{
		BigQuery: BigQueryConfig{
			ProjectID: "p",
			KeyPath:   filepath.Join(t.TempDir(), "absent.json"),
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not found")
}

func TestEnvOverridesProjectID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bqgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0o600))

	t.Setenv("BQGATE_BIGQUERY_PROJECT_ID", "env-project")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-project", cfg.BigQuery.ProjectID)
}
