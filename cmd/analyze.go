package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trackscope-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/trackscope-cli/internal/config"
	"github.com/KaramelBytes/trackscope-cli/internal/normalize"
	"github.com/KaramelBytes/trackscope-cli/internal/pipeline"
	"github.com/KaramelBytes/trackscope-cli/internal/store"
)

// runFlags are shared by analyze and analyze-batch.
type runFlags struct {
	format     string
	table      string
	outDir     string
	workers    int
	slots      int
	strict     bool
	outlierThr float64
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "", "output format: md|json|yaml (default from config)")
	cmd.Flags().StringVar(&f.table, "table", "", "table to read from a SQLite source (default from config)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "directory for analysis_summary.<ext> files")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "decode blobs with N workers (default from config)")
	cmd.Flags().IntVar(&f.slots, "slots", -1, "number of ranked tag/instrument slots (default from config)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "reject blobs with text before the JSON object")
	cmd.Flags().Float64Var(&f.outlierThr, "outlier-threshold", 0, "robust |z| threshold for outliers (MAD-based)")
}

// reset restores defaults; flags bound to package vars keep state between
// Execute calls in tests.
func (f *runFlags) reset() { *f = runFlags{slots: -1} }

// options merges config and flags. Flags win.
func (f *runFlags) options(c *cfgpkg.Global, source string) (pipeline.Options, string, error) {
	format, err := normalizeFormat(firstNonEmpty(f.format, c.Format))
	if err != nil {
		return pipeline.Options{}, "", err
	}
	opt := pipeline.DefaultOptions(source)
	opt.Source = store.Source{
		Path:    source,
		Table:   firstNonEmpty(f.table, c.Table),
		Timeout: time.Duration(c.LoadTimeoutSec) * time.Second,
	}
	if len(c.NumericColumns) > 0 {
		opt.NumericColumns = c.NumericColumns
	}
	if c.BlobColumns != nil {
		opt.BlobColumns = c.BlobColumns
	}
	opt.Slots = c.RankedSlots
	if f.slots >= 0 {
		opt.Slots = f.slots
	}
	setPositive(&opt.TopKKeys, c.TopKKeys)
	setPositive(&opt.TopKTags, c.TopKTags)
	setPositive(&opt.TopKLabels, c.TopKLabels)
	setPositive(&opt.TopKCategorical, c.TopKCategorical)

	opt.Normalize = normalize.Options{Lenient: c.LenientBlobs && !f.strict, Workers: c.Workers}
	if f.workers > 0 {
		opt.Normalize.Workers = f.workers
	}
	opt.Analysis = analysis.DefaultOptions()
	if c.OutlierThreshold > 0 {
		opt.Analysis.OutlierThreshold = c.OutlierThreshold
	}
	if f.outlierThr > 0 {
		opt.Analysis.OutlierThreshold = f.outlierThr
	}
	return opt, format, nil
}

func setPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	anaFlags      = runFlags{slots: -1}
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [source]",
	Short: "Analyze a classified track database and produce a summary",
	Long: `Analyze loads the tracks table from a SQLite database (or a CSV/TSV export),
normalizes probability blobs and ranked slots, and writes a summary report.
The source defaults to the configured 'source'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		source := c.Source
		if len(args) == 1 {
			source = args[0]
		}
		if source == "" {
			return fmt.Errorf("no source given and no 'source' configured")
		}
		opt, format, err := anaFlags.options(c, source)
		if err != nil {
			return err
		}
		log, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		rep, err := pipeline.Run(commandContext(cmd), opt, log)
		if err != nil {
			return err
		}
		data, err := render(rep, format)
		if err != nil {
			return err
		}

		out := anaOutputPath
		if out == "" {
			if dir := firstNonEmpty(anaFlags.outDir, c.OutputDir); dir != "" {
				out = filepath.Join(dir, "analysis_summary."+format)
			}
		}
		return emit(cmd.OutOrStdout(), data, out, false)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
}

// commandContext falls back to Background for commands run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
