package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(cfg.DataDir, "tasks.db"), cfg.Database.Path)
	assert.Equal(t, DefaultRealm, cfg.Auth.Realm)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: `+dir+`
server:
  addr: 127.0.0.1:9000
  cors_origins: ["http://localhost:3000"]
database:
  driver: sqlite3
auth:
  realm: Tasks
`), 0o600))

	t.Setenv("TASKAPI_SERVER_ADDR", ":7000")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(dir, "tasks.db"), cfg.Database.Path)
	assert.Equal(t, "Tasks", cfg.Auth.Realm)
}

func TestLoadConfig_Flags(t *testing.T) {
	dir := t.TempDir()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", "", "")
	fs.String("db", "", "")
	fs.String("server", "", "")
	require.NoError(t, fs.Parse([]string{"--addr", ":6000", "--db", filepath.Join(dir, "x.db"), "--server", "http://h:1"}))

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"), fs)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.Addr)
	assert.Equal(t, filepath.Join(dir, "x.db"), cfg.Database.Path)
	assert.Equal(t, "http://h:1", cfg.Client.ServerURL)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(path, nil)
	assert.Error(t, err)
}
