package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5432", cfg.Server.Listen)
	assert.Equal(t, ".", cfg.Server.Datadir)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, 1<<16, cfg.Server.MaxMessageSize)
	assert.Equal(t, "", cfg.Ops.Listen)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postduck.ini")
	contents := `[server]
listen = :6432
datadir = /var/lib/postduck/
workers = 8

[ops]
listen = :9090
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6432", cfg.Server.Listen)
	assert.Equal(t, "/var/lib/postduck", cfg.Server.Datadir, "trailing separators have to be stripped")
	assert.Equal(t, 8, cfg.Server.Workers)
	assert.Equal(t, ":9090", cfg.Ops.Listen)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("POSTDUCK_LISTEN", ":7432")
	t.Setenv("POSTDUCK_DATADIR", "/data/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7432", cfg.Server.Listen)
	assert.Equal(t, "/data", cfg.Server.Datadir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
