package main

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.conf"))
	assert.NilError(t, err)
	assert.Equal(t, "127.0.0.1:12345", cfg.listenAddr())
	assert.Equal(t, "/var/spool/tcp-print2file", cfg.Spool.Directory)
	assert.Equal(t, false, cfg.Daemon.Foreground)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer.conf")
	conf := `[listen]
address = 0.0.0.0
port = 9100

[spool]
directory = /srv/printouts

[daemon]
foreground = true
`
	assert.NilError(t, os.WriteFile(path, []byte(conf), 0o600))

	cfg, err := loadConfig(path)
	assert.NilError(t, err)
	assert.Equal(t, "0.0.0.0:9100", cfg.listenAddr())
	assert.Equal(t, "/srv/printouts", cfg.Spool.Directory)
	assert.Equal(t, true, cfg.Daemon.Foreground)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer.conf")
	assert.NilError(t, os.WriteFile(path, []byte("[listen]\nport = 0\n"), 0o600))

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "invalid listen port")
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer.conf")
	assert.NilError(t, os.WriteFile(path, []byte("not an ini file"), 0o600))

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, path)
}
