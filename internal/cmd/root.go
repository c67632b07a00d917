package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/auditd/internal/config"
	"github.com/felixgeelhaar/auditd/internal/log"
	"github.com/felixgeelhaar/auditd/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "auditd",
	Short: "Run and stream SEO audits from a password-protected dashboard",
	Long: `auditd serves a small dashboard from which operators start an SEO audit
for one of the registered sites and watch its output live.

At most one audit runs per site at a time. Each audit is an external task
(by default a Node.js script) whose output is streamed to the browser as
Server-Sent Events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); a .env beside it is loaded too")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: auto, text, json")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands watch for
// cancellation (SIGINT/SIGTERM in main)
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the config file and environment, then applies the global
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.Log.Level)
	lc.Format = log.ParseFormat(cfg.Log.Format)
	lc.ServiceVersion = version.GetInfo().Version
	return log.New(lc)
}
