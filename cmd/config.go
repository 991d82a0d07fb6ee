package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/trackscope-cli/internal/config"
	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set TrackScope configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk. List keys take comma-separated values;
blob_columns takes column:axis pairs, e.g. features:genre,mood_features:mood.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := applySetting(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	atoi := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "source":
		c.Source = val
	case "table":
		c.Table = val
	case "output_dir":
		c.OutputDir = val
	case "format":
		c.Format, err = normalizeFormat(val)
	case "ranked_slots":
		c.RankedSlots, err = atoi(0)
	case "top_k_keys":
		c.TopKKeys, err = atoi(1)
	case "top_k_tags":
		c.TopKTags, err = atoi(1)
	case "top_k_labels":
		c.TopKLabels, err = atoi(1)
	case "top_k_categorical":
		c.TopKCategorical, err = atoi(1)
	case "workers":
		c.Workers, err = atoi(1)
	case "load_timeout_sec":
		c.LoadTimeoutSec, err = atoi(1)
	case "log_max_size_mb":
		c.LogMaxSizeMB, err = atoi(1)
	case "log_max_backups":
		c.LogMaxBackups, err = atoi(0)
	case "lenient_blobs":
		c.LenientBlobs, err = strconv.ParseBool(val)
		if err != nil {
			err = fmt.Errorf("invalid bool for lenient_blobs: %v", val)
		}
	case "outlier_threshold":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f <= 0 {
			return fmt.Errorf("invalid float for outlier_threshold: %v", val)
		}
		c.OutlierThreshold = f
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	case "log_file":
		c.LogFile = val
	case "numeric_columns":
		c.NumericColumns = splitList(val)
	case "blob_columns":
		var cols []track.BlobColumn
		for _, pair := range splitList(val) {
			col, axis, ok := strings.Cut(pair, ":")
			if !ok || strings.TrimSpace(col) == "" || strings.TrimSpace(axis) == "" {
				return fmt.Errorf("invalid blob column %q (use column:axis)", pair)
			}
			cols = append(cols, track.BlobColumn{Column: strings.TrimSpace(col), Axis: strings.TrimSpace(axis)})
		}
		c.BlobColumns = cols
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
