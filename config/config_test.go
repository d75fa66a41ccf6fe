package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_GuestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeGuest, cfg.Mode)
	assert.Equal(t, "ledger.json", cfg.DataFile)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_RemoteRequiresDSNAndUser(t *testing.T) {
	t.Setenv("LEDGER_STORAGE_MODE", "remote")

	_, err := Load("")
	assert.Error(t, err, "remote mode without dsn must fail")

	t.Setenv("LEDGER_DSN", "postgres://localhost/ledger")
	_, err = Load("")
	assert.Error(t, err, "remote mode without user_id must fail")

	t.Setenv("LEDGER_USER_ID", "u-1")
	t.Setenv("LEDGER_DRIVER", "postgres")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, cfg.Mode)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "u-1", cfg.UserID)
}

func TestLoad_UnsupportedDriverRejected(t *testing.T) {
	t.Setenv("LEDGER_STORAGE_MODE", "remote")
	t.Setenv("LEDGER_DSN", "whatever")
	t.Setenv("LEDGER_USER_ID", "u-1")
	t.Setenv("LEDGER_DRIVER", "oracle")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_mode: guest\ndata_file: /tmp/test.json\nport: 9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.json", cfg.DataFile)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
