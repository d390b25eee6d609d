package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 15, cfg.Tools.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Tools.MaxAttempts)
	assert.Equal(t, 5, cfg.Session.TTLMinutes)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 18790, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	// Should return defaults
	assert.Equal(t, 18790, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
tools:
  baseUrl: https://anf-tools.example.com
  apiKey: key123
  maxAttempts: 5
identity:
  tenantId: tenant-1
  subscriptionId: sub-1
  users:
    alice:
      roles: [admin]
    bob:
      roles: [reader]
      grants: [volume.read]
session:
  ttlMinutes: 10
  store: sqlite
channels:
  irc:
    server: irc.libera.chat
    port: 6697
    nick: anfbot
    channels:
      - "#storage"
    useTLS: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://anf-tools.example.com", cfg.Tools.BaseURL)
	assert.Equal(t, "key123", cfg.Tools.APIKey)
	assert.Equal(t, 5, cfg.Tools.MaxAttempts)
	assert.Equal(t, 15, cfg.Tools.TimeoutSeconds, "unset fields keep defaults")
	assert.Equal(t, "tenant-1", cfg.Identity.TenantID)
	assert.Equal(t, []string{"admin"}, cfg.Identity.Users["alice"].Roles)
	assert.Equal(t, []string{"volume.read"}, cfg.Identity.Users["bob"].Grants)
	assert.Equal(t, 10, cfg.Session.TTLMinutes)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.NotNil(t, cfg.Channels.IRC)
	assert.Equal(t, "irc.libera.chat", cfg.Channels.IRC.Server)
	assert.Equal(t, 6697, cfg.Channels.IRC.Port)
	assert.Equal(t, "anfbot", cfg.Channels.IRC.Nick)
	assert.Equal(t, []string{"#storage"}, cfg.Channels.IRC.Channels)
	assert.True(t, cfg.Channels.IRC.UseTLS)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ANFBOT_GATEWAY_PORT", "12345")
	t.Setenv("ANFBOT_LOG_LEVEL", "TRACE")
	t.Setenv("ANFBOT_TOOLS_BASE_URL", "https://override.example.com")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.Gateway.Port)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "https://override.example.com", cfg.Tools.BaseURL)
}

func TestLoadExpandsSecrets(t *testing.T) {
	t.Setenv("TOOL_SECRET", "s3cret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
tools:
  baseUrl: https://anf-tools.example.com
  oauth:
    tokenUrl: https://login.example.com/token
    clientId: client-1
    clientSecret: ${TOOL_SECRET}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Tools.OAuth)
	assert.Equal(t, "s3cret", cfg.Tools.OAuth.ClientSecret)
}

func TestExpandEnvVarsUnsetLeftAlone(t *testing.T) {
	assert.Equal(t, "${DEFINITELY_NOT_SET_123}", expandEnvVars("${DEFINITELY_NOT_SET_123}"))
}

func TestValidateValid(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	assert.Empty(t, issues)
}

func TestValidateInvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = 99999
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "gateway.port", issues[0].Path)
}

func TestValidateBadToolsURL(t *testing.T) {
	cfg := Defaults()
	cfg.Tools.BaseURL = "ftp://nope"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "tools.baseUrl", issues[0].Path)
}

func TestValidateOAuthIncomplete(t *testing.T) {
	cfg := Defaults()
	cfg.Tools.OAuth = &OAuthConfig{TokenURL: "https://login.example.com/token"}
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "tools.oauth", issues[0].Path)
}

func TestValidateBadSessionStore(t *testing.T) {
	cfg := Defaults()
	cfg.Session.Store = "redis"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "session.store", issues[0].Path)
}

func TestValidateIRCMissingServer(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.IRC = &IRCConfig{
		Nick: "bot",
	}
	issues := Validate(&cfg)
	require.NotEmpty(t, issues)

	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	assert.Contains(t, paths, "channels.irc.server")
}

func TestResolvePaths(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("ANFBOT_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, tmp, paths.Base)
	assert.Equal(t, filepath.Join(tmp, "config.yaml"), paths.Config)
	assert.Contains(t, paths.SessionDBPath(), "sessions.db")
}

func TestEnsureDirs(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("ANFBOT_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())

	for _, d := range []string{paths.Sessions, paths.Logs, paths.Data} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
