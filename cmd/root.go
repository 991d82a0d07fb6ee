package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/trackscope-cli/internal/config"
	"github.com/KaramelBytes/trackscope-cli/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	debug    bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "trackscope",
	Short: "TrackScope CLI: summarize a classified track database",
	Long: `TrackScope reads the tracks table written by the audio classifier, flattens its
label/probability blobs and ranked tag slots, and reports descriptive statistics,
correlations and label frequencies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.trackscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	if rootCmd.PersistentFlags().Changed("log-level") && logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}

// currentConfig returns the loaded config, loading defaults if startup failed.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// newLogger builds the run logger from config. The caller syncs it.
func newLogger(c *cfgpkg.Global) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		Console:    rootCmd.ErrOrStderr(),
	})
}
