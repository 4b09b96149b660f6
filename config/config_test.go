package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "127.0.0.1:7878", cfg.Listen)
	assert.Equal(t, "element-blocker-", cfg.BackupPrefix)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(cfg.DataDir, "blocker.db"), cfg.SQLitePath)
}

func TestYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: sqlite\nlisten: ':9000'\nredisDB: 2\n"), 0o600))
	cfg := Default()
	require.NoError(t, cfg.readYAML(path))
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 2, cfg.RedisDB)
	//
	env := map[string]string{"BLOCKER_BACKEND": "Redis", "BLOCKER_REDIS_DB": "5", "BLOCKER_LISTEN": ""}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	require.NoError(t, cfg.FromEnv(lookup))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, 5, cfg.RedisDB)
	assert.Equal(t, ":9000", cfg.Listen, "empty variables are ignored")
	//
	env["BLOCKER_REDIS_DB"] = "five"
	assert.Error(t, cfg.FromEnv(lookup))
	cfg.Backend = "floppy"
	assert.Error(t, cfg.Validate())
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
	//
	path := filepath.Join(dir, "c.yaml")
	saved := Default()
	saved.Backend = BackendMemory
	saved.DataDir = dir
	require.NoError(t, saved.Save(path))
	t.Setenv("BLOCKER_BACKEND", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, dir, cfg.DataDir)
}
