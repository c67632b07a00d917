// Package config loads auditd's settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then the process environment. Command-line flags are applied on
// top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

// Defaults
const (
	DefaultPort      = 4242
	DefaultUsername  = "jim"
	DefaultCommand   = "node"
	DefaultScript    = "skills/seo-audit/scripts/publish-dashboard.mjs"
	DefaultSitesFile = "sites.json"
	DefaultKeepAlive = 15 * time.Second
	DefaultKillGrace = 5 * time.Second
	DefaultShutdown  = 30 * time.Second
)

// Config is the full auditd configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Audit   AuditConfig   `yaml:"audit"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`

	// Sites is the path of the site registry file (JSON or YAML)
	Sites string `yaml:"sites"`
	// StaticDir holds index.html and the dashboard assets
	StaticDir string `yaml:"static_dir"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds the dashboard credentials.
type AuthConfig struct {
	Username string `yaml:"username"`
	// Password may be plaintext or a bcrypt hash
	Password string `yaml:"password"`
}

// AuditConfig describes the external audit task.
type AuditConfig struct {
	Command   string        `yaml:"command"`
	Script    string        `yaml:"script"`
	Workspace string        `yaml:"workspace"`
	KeepAlive time.Duration `yaml:"keep_alive"`
	KillGrace time.Duration `yaml:"kill_grace"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate"`
}

// Default returns the built-in configuration. It has no password, so it does
// not validate on its own.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdown,
		},
		Auth: AuthConfig{
			Username: DefaultUsername,
		},
		Audit: AuditConfig{
			Command:   DefaultCommand,
			Script:    DefaultScript,
			KeepAlive: DefaultKeepAlive,
			KillGrace: DefaultKillGrace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Tracing: TracingConfig{
			SampleRate: 1.0,
		},
		Sites:     DefaultSitesFile,
		StaticDir: ".",
	}
}

// Load builds the configuration from path (optional) and the environment.
//
// A .env file beside path, or in the working directory when path is empty,
// is loaded into the environment first. Variables already set in the
// environment win over the .env file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewFileNotFoundError(path)
			}
			return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read config file: %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewFileUnmarshalError(path, "YAML", err)
		}
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if path == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := gotenv.Load(envFile); err != nil {
			return nil, errors.NewFileUnmarshalError(envFile, "dotenv", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("PORT is not a number: %q", v), err)
		}
		c.Server.Port = port
	}
	str("DASH_USER", &c.Auth.Username)
	str("DASH_PASS", &c.Auth.Password)
	str("AUDITD_SITES", &c.Sites)
	str("AUDITD_STATIC_DIR", &c.StaticDir)
	str("AUDITD_COMMAND", &c.Audit.Command)
	str("AUDITD_SCRIPT", &c.Audit.Script)
	str("AUDITD_WORKSPACE", &c.Audit.Workspace)
	str("AUDITD_LOG_LEVEL", &c.Log.Level)
	str("AUDITD_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("AUDITD_OTLP_ENDPOINT"); ok && v != "" {
		c.Tracing.Enabled = true
		c.Tracing.Endpoint = v
	}
	return nil
}

// Validate reports the first setting that would keep the server from working.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Server.Port))
	}
	if c.Auth.Username == "" {
		problems = append(problems, "username is empty")
	}
	if c.Auth.Password == "" {
		problems = append(problems, "password is empty")
	}
	if c.Sites == "" {
		problems = append(problems, "sites file is not set")
	}
	if c.Audit.Command == "" {
		problems = append(problems, "audit command is empty")
	}
	if c.Audit.KeepAlive < 0 || c.Audit.KillGrace < 0 || c.Server.ShutdownTimeout < 0 {
		problems = append(problems, "durations must not be negative")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		problems = append(problems, fmt.Sprintf("tracing sample rate %v outside [0, 1]", c.Tracing.SampleRate))
	}

	if len(problems) == 0 {
		return nil
	}

	err := errors.New(errors.ErrCodeConfigInvalid, "invalid configuration: "+strings.Join(problems, "; "))
	if c.Auth.Password == "" {
		err = err.WithSuggestion("Set DASH_PASS in the environment or in .env")
	}
	return err
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
