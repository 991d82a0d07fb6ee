package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
	"github.com/KaramelBytes/trackscope-cli/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	Source    string `mapstructure:"source" yaml:"source"`
	Table     string `mapstructure:"table" yaml:"table"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	Format    string `mapstructure:"format" yaml:"format"`

	// Report shape
	RankedSlots     int                `mapstructure:"ranked_slots" yaml:"ranked_slots"`
	TopKKeys        int                `mapstructure:"top_k_keys" yaml:"top_k_keys"`
	TopKTags        int                `mapstructure:"top_k_tags" yaml:"top_k_tags"`
	TopKLabels      int                `mapstructure:"top_k_labels" yaml:"top_k_labels"`
	TopKCategorical int                `mapstructure:"top_k_categorical" yaml:"top_k_categorical"`
	NumericColumns  []string           `mapstructure:"numeric_columns" yaml:"numeric_columns"`
	BlobColumns     []track.BlobColumn `mapstructure:"blob_columns" yaml:"blob_columns"`

	LenientBlobs     bool    `mapstructure:"lenient_blobs" yaml:"lenient_blobs"`
	Workers          int     `mapstructure:"workers" yaml:"workers"`
	LoadTimeoutSec   int     `mapstructure:"load_timeout_sec" yaml:"load_timeout_sec"`
	OutlierThreshold float64 `mapstructure:"outlier_threshold" yaml:"outlier_threshold"`

	// Logging
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogFile       string `mapstructure:"log_file" yaml:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups" yaml:"log_max_backups"`
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".trackscope"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.trackscope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TRACKSCOPE")
	v.AutomaticEnv()

	v.SetDefault("source", "")
	v.SetDefault("table", track.DefaultTable)
	v.SetDefault("output_dir", "")
	v.SetDefault("format", "md")
	v.SetDefault("ranked_slots", track.DefaultSlots)
	v.SetDefault("top_k_keys", 20)
	v.SetDefault("top_k_tags", 30)
	v.SetDefault("top_k_labels", 30)
	v.SetDefault("top_k_categorical", 10)
	v.SetDefault("numeric_columns", track.DefaultNumericColumns())
	v.SetDefault("blob_columns", track.DefaultBlobColumns())
	v.SetDefault("lenient_blobs", true)
	v.SetDefault("workers", 1)
	v.SetDefault("load_timeout_sec", 30)
	v.SetDefault("outlier_threshold", 3.5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a missing file is not an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.RankedSlots < 0 {
		return nil, fmt.Errorf("ranked_slots must be >= 0, got %d", c.RankedSlots)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return &c, nil
}
