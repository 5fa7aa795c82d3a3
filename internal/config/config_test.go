package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFilesPresent(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir, Flags{})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 6380, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Persistence.Backend)
	assert.Equal(t, "lz4", cfg.Persistence.SnapshotCodec)
}

func TestLoadMergesDefaultThenCustomToml(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.toml"), []byte(`
[server]
port = 7000

[persistence]
backend = "s3"
`), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.toml"), []byte(`
[server]
host = "0.0.0.0"
`), 0o644))

	cfg, err := Load(dir, Flags{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "custom.toml should override default.toml")
	assert.Equal(t, 7000, cfg.Server.Port, "default.toml value should survive when custom.toml doesn't set it")
	assert.Equal(t, "s3", cfg.Persistence.Backend)
}

func TestFlagsOutrankFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.toml"), []byte(`
[server]
port = 7000
`), 0o644))

	cfg, err := Load(dir, Flags{Port: 9999, Host: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
}

func TestEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RKV_SERVER_PORT", "5555")

	cfg, err := Load(dir, Flags{})
	require.NoError(t, err)

	assert.Equal(t, 5555, cfg.Server.Port)
}

func TestMaxMemoryBytesParsesHumanSizes(t *testing.T) {
	cfg := &Config{Persistence: PersistenceConfig{MaxMemory: "512mb"}}
	n, err := cfg.MaxMemoryBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(512*1024*1024), n)
}

func TestMaxMemoryBytesZeroMeansUnbounded(t *testing.T) {
	cfg := &Config{Persistence: PersistenceConfig{MaxMemory: "0"}}
	n, err := cfg.MaxMemoryBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
