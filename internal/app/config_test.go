package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.False(t, cfg.Metrics)
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"log format", Config{LogFormat: "xml"}, `invalid log format "xml"`},
		{"log level", Config{LogLevel: "trace"}, `invalid log level "trace"`},
		{"backend", Config{Store: StoreConfig{Backend: "neo4j"}}, `unknown store backend "neo4j"`},
		{"memory with path", Config{Store: StoreConfig{Path: "/tmp/x"}}, "store path is only supported by the badger backend"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rulegraph.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		cfg, err := LoadConfig(writeFile(t, `
log_level  = "debug"
log_format = "json"
metrics    = true

store "badger" {
  path        = "/var/lib/rulegraph"
  sync_writes = true
}
`))
		require.NoError(t, err)
		assert.Equal(t, &Config{
			LogLevel:  "debug",
			LogFormat: "json",
			Metrics:   true,
			Store:     StoreConfig{Backend: BackendBadger, Path: "/var/lib/rulegraph", SyncWrites: true},
		}, cfg)
	})

	t.Run("empty file uses defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeFile(t, ""))
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, cfg.Store.Backend)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, `log_level = `))
		assert.ErrorContains(t, err, "failed to parse config file")

		_, err = LoadConfig(writeFile(t, `workers = 10`))
		assert.ErrorContains(t, err, "failed to decode config file")

		_, err = LoadConfig(writeFile(t, `log_level = "loud"`))
		assert.ErrorContains(t, err, `invalid log level "loud"`)

		_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
		assert.Error(t, err)
	})
}
