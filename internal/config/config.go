// Package config loads server configuration from bqgate.yaml and the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	BigQuery    BigQueryConfig    `mapstructure:"bigquery"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BigQueryConfig holds the target project and the default service account
// key path.
type BigQueryConfig struct {
	ProjectID string `mapstructure:"project_id"`
	KeyPath   string `mapstructure:"key_path"`
}

// CredentialsConfig holds the directory for per-session key files.
type CredentialsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads bqgate.yaml (optional) with BQGATE_* environment overrides.
// When GOOGLE_APPLICATION_CREDENTIALS_JSON is set, its content is written to
// a temporary key file that replaces the configured key path; this is how
// PaaS deployments inject the default key without a mounted file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("bigquery.key_path", "./service-account-key.json")
	v.SetDefault("credentials.dir", "./session-credentials")

	v.SetConfigName("bqgate")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BQGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows; project_id has no
	// default, so it needs an explicit binding to be overridable.
	v.BindEnv("bigquery.project_id")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := materializeEnvKey(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the parts main cannot default.
func (c *Config) Validate() error {
	if c.BigQuery.ProjectID == "" {
		return fmt.Errorf("bigquery.project_id is required (set BQGATE_BIGQUERY_PROJECT_ID or use -project)")
	}
	if _, err := os.Stat(c.BigQuery.KeyPath); err != nil {
		return fmt.Errorf("default service account key not found: %s", c.BigQuery.KeyPath)
	}
	return nil
}

func materializeEnvKey(cfg *Config) error {
	jsonContent := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	if jsonContent == "" {
		return nil
	}

	tmp, err := os.CreateTemp("", "service-account-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary key file: %w", err)
	}
	if _, err := tmp.WriteString(jsonContent); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary key file: %w", err)
	}

	cfg.BigQuery.KeyPath = tmp.Name()
	return nil
}
