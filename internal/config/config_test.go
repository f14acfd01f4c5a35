package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/spamprint/internal/core"
	"firestige.xyz/spamprint/internal/digest"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	cfg, err := Load(home, "")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 8192, cfg.Client.MaxPacketSize)
	assert.Equal(t, time.Minute, cfg.Client.CacheTTL)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.False(t, cfg.Client.DecodeCharsets)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, digest.DefaultPlan, cfg.Plan())
	assert.Equal(t, filepath.Join(home, "servers"), cfg.ServersPath())
	assert.Equal(t, filepath.Join(home, "accounts"), cfg.AccountsPath())
	assert.Contains(t, cfg.Client.DiscoverServersURL, "inform-servers")

	assert.Equal(t, cfg, Default(home))
}

func TestLoadValidConfig(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, `
spamprint:
  client:
    servers_file: /etc/spamprint/servers
    timeout: 750ms
    cache_ttl: 0s
    digest_spec: "10,2,50,4"
    decode_charsets: true
  output:
    format: json
  log:
    level: debug
    file:
      filename: /tmp/spamprint.log
      max_backups: 1
  metrics:
    textfile: /tmp/spamprint.prom
`)

	cfg, err := Load(home, "")
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Client.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Client.CacheTTL)
	assert.Equal(t, "/etc/spamprint/servers", cfg.ServersPath())
	assert.Equal(t, digest.Plan{{Percent: 10, Lines: 2}, {Percent: 50, Lines: 4}}, cfg.Plan())
	assert.True(t, cfg.Client.DecodeCharsets)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NotNil(t, cfg.Log.File)
	assert.Equal(t, "/tmp/spamprint.log", cfg.Log.File.Filename)
	assert.Equal(t, 1, cfg.Log.File.MaxBackups)
	assert.Equal(t, 10, cfg.Log.File.MaxSize)
	assert.Equal(t, "/tmp/spamprint.prom", cfg.Metrics.Textfile)
}

func TestLoadEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SPAMPRINT_CLIENT_TIMEOUT", "250ms")
	t.Setenv("SPAMPRINT_OUTPUT_FORMAT", "yaml")

	cfg, err := Load(home, "")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.Timeout)
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "spamprint:\n  log:\n    level: loud\n"},
		{"output format", "spamprint:\n  output:\n    format: xml\n"},
		{"timeout", "spamprint:\n  client:\n    timeout: 0s\n"},
		{"packet size", "spamprint:\n  client:\n    max_packet_size: 100\n"},
		{"digest spec", "spamprint:\n  client:\n    digest_spec: \"100,3\"\n"},
		{"servers file", "spamprint:\n  client:\n    servers_file: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			writeConfig(t, home, tt.content)
			_, err := Load(home, "")
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestResolveHomedir(t *testing.T) {
	dir, err := ResolveHomedir("/explicit")
	require.NoError(t, err)
	assert.Equal(t, "/explicit", dir)

	t.Setenv(HomeEnv, "/from/env")
	dir, err = ResolveHomedir("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", dir)

	t.Setenv(HomeEnv, "")
	t.Setenv("HOME", "/home/someone")
	dir, err = ResolveHomedir("")
	require.NoError(t, err)
	assert.Equal(t, "/home/someone/.spamprint", dir)
}

func TestEnsureHomedir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureHomedir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
