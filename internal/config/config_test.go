package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(filepath.Join(dir, "missing.yaml"), "", envMap(nil))
	require.Error(t, err, "explicit config path must exist")

	cfg, err = load("", filepath.Join(dir, "none.env"), envMap(map[string]string{
		"COSTBOOK_CONFIG": "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, 225, cfg.MinHoldingDays)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 7, cfg.Log.RetentionDays)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "config.yaml", `
host: 0.0.0.0
port: 9001
base_currency: nzd
cache_ttl: 1m
min_holding_days: 100
log:
  level: debug
  format: json
`)
	envPath := writeFile(t, dir, ".env", "COSTBOOK_PORT=9100\nCOSTBOOK_WORKERS=3\nCOSTBOOK_LOG_LEVEL=warn\n")

	cfg, err := load(yamlPath, envPath, envMap(map[string]string{
		"COSTBOOK_LOG_LEVEL": "error",
		"COSTBOOK_CACHE_TTL": "5s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9100, cfg.Port, ".env overrides yaml")
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "NZD", cfg.BaseCurrency)
	assert.Equal(t, 100, cfg.MinHoldingDays)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL, "environment overrides yaml")
	assert.Equal(t, "error", cfg.Log.Level, "environment wins over .env")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "0.0.0.0:9100", cfg.Addr())
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "custom.yaml", "port: 7000\n")
	cfg, err := load("", "", envMap(map[string]string{"COSTBOOK_CONFIG": yamlPath}))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "port: [1"},
		{name: "bad port env", yaml: "{}", env: map[string]string{"COSTBOOK_PORT": "abc"}},
		{name: "bad ttl env", yaml: "{}", env: map[string]string{"COSTBOOK_CACHE_TTL": "soon"}},
		{name: "port range", yaml: "port: 70000"},
		{name: "currency", yaml: "base_currency: dollars"},
		{name: "negative holding", yaml: "min_holding_days: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "c.yaml", tt.yaml)
			_, err := load(path, "", envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestPaths(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	cfg := Default()
	cfg.DataDir = dir

	got, err := cfg.GetDataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	_, err = os.Stat(dir)
	assert.NoError(t, err)

	dbPath, err := cfg.GetDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, defaultDBName), dbPath)

	logDir, err := cfg.GetLogDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs"), logDir)

	cfg.DBPath = "/tmp/explicit.db"
	dbPath, err = cfg.GetDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.db", dbPath)
}
