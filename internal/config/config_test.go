package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4242, cfg.Server.Port)
	assert.Equal(t, "jim", cfg.Auth.Username)
	assert.Equal(t, "node", cfg.Audit.Command)
	assert.Equal(t, "skills/seo-audit/scripts/publish-dashboard.mjs", cfg.Audit.Script)
	assert.Equal(t, ":4242", cfg.Addr())

	err := cfg.Validate()
	require.Error(t, err, "no password by default")
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auditd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: 127.0.0.1
  port: 8080
  shutdown_timeout: 10s
auth:
  username: admin
  password: hunter2
audit:
  workspace: /srv/workspace
  keep_alive: 5s
sites: /etc/auditd/sites.yaml
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "admin", cfg.Auth.Username)
	assert.Equal(t, "/srv/workspace", cfg.Audit.Workspace)
	assert.Equal(t, 5*time.Second, cfg.Audit.KeepAlive)
	assert.Equal(t, "node", cfg.Audit.Command, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auditd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sites: sites.json\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DASH_PASS=from-dotenv\nDASH_USER=dotenv-user\n"), 0o644))

	t.Setenv("DASH_USER", "env-user")
	// Setenv registers the restore; unset so .env can fill it in.
	t.Setenv("DASH_PASS", "")
	require.NoError(t, os.Unsetenv("DASH_PASS"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.Password)
	assert.Equal(t, "env-user", cfg.Auth.Username, "the environment wins over .env")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [1, 2"), 0o644))

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.CodeOf(err))

	_, err = Load(bad)
	assert.Equal(t, errors.ErrCodeFileUnmarshal, errors.CodeOf(err))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"PORT":                 "9000",
		"DASH_USER":            "ops",
		"DASH_PASS":            "secret",
		"AUDITD_SITES":         "/data/sites.json",
		"AUDITD_WORKSPACE":     "/srv/ws",
		"AUDITD_SCRIPT":        "audit.mjs",
		"AUDITD_COMMAND":       "/usr/bin/node",
		"AUDITD_STATIC_DIR":    "/srv/www",
		"AUDITD_LOG_LEVEL":     "warn",
		"AUDITD_LOG_FORMAT":    "json",
		"AUDITD_OTLP_ENDPOINT": "otel:4318",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "ops", cfg.Auth.Username)
	assert.Equal(t, "secret", cfg.Auth.Password)
	assert.Equal(t, "/data/sites.json", cfg.Sites)
	assert.Equal(t, "/srv/ws", cfg.Audit.Workspace)
	assert.Equal(t, "audit.mjs", cfg.Audit.Script)
	assert.Equal(t, "/usr/bin/node", cfg.Audit.Command)
	assert.Equal(t, "/srv/www", cfg.StaticDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otel:4318", cfg.Tracing.Endpoint)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvEmptyValuesIgnored(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env(map[string]string{"DASH_USER": "", "PORT": ""})))

	assert.Equal(t, "jim", cfg.Auth.Username)
	assert.Equal(t, 4242, cfg.Server.Port)
}

func TestApplyEnvBadPort(t *testing.T) {
	err := Default().ApplyEnv(env(map[string]string{"PORT": "http"}))
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Auth.Password = "pw"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"no username", func(c *Config) { c.Auth.Username = "" }},
		{"no sites file", func(c *Config) { c.Sites = "" }},
		{"no command", func(c *Config) { c.Audit.Command = "" }},
		{"negative keep-alive", func(c *Config) { c.Audit.KeepAlive = -time.Second }},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.True(t, errors.HasCode(cfg.Validate(), errors.ErrCodeConfigInvalid))
		})
	}
}
