package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/expense.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Rates.Timeout)
	assert.Equal(t, time.Hour, cfg.Rates.CacheTTL)
	assert.Equal(t, int64(1024), cfg.Cache.RuleEntries)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
rates:
  base_url: http://rates.local/{BASE_CURRENCY}
  timeout: 2s
logger:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://rates.local/{BASE_CURRENCY}", cfg.Rates.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Rates.Timeout)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite3\n")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost/expense")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/expense", cfg.Database.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{
			name:    "pgx without dsn",
			mutate:  func(c *Config) { c.Database.Driver = "pgx"; c.Database.DSN = "" },
			wantErr: "database.dsn",
		},
		{name: "base url without placeholder", mutate: func(c *Config) { c.Rates.BaseURL = "http://rates.local/USD" }, wantErr: "rates.base_url"},
		{name: "zero rate timeout", mutate: func(c *Config) { c.Rates.Timeout = 0 }, wantErr: "rates.timeout"},
		{name: "zero rule cache", mutate: func(c *Config) { c.Cache.RuleEntries = 0 }, wantErr: "cache.rule_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, cfg.Rates.BaseURL, cc.Rates.BaseURL)
	assert.Equal(t, cfg.Server.Port, cc.Server.Port)
	assert.Equal(t, cfg.Cache.RuleEntries, cc.Cache.RuleEntries)
	assert.True(t, cc.Metrics.Enabled)
	require.NoError(t, cc.Validate())
}
