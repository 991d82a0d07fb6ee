package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trackscope-cli/internal/analysis"
	"github.com/KaramelBytes/trackscope-cli/internal/coerce"
	"github.com/KaramelBytes/trackscope-cli/internal/normalize"
	"github.com/KaramelBytes/trackscope-cli/internal/pipeline"
	"github.com/KaramelBytes/trackscope-cli/internal/store"
	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// queryFlags back describe, top and corr.
type queryFlags struct {
	columns string
	format  string
	table   string
	k       int
	blob    string
	axis    string
	strict  bool
}

var qFlags queryFlags

type queryContext struct {
	format  string
	lenient bool
	workers int
	blobs   []track.BlobColumn
	log     *zap.Logger
}

func (qc *queryContext) close() { _ = qc.log.Sync() }

// loadForQuery reads source and coerces the ranked probability columns so
// they can be queried as numbers. Coercion warnings are logged. The caller
// closes the returned context.
func loadForQuery(cmd *cobra.Command, source string) (*track.Table, *queryContext, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, nil, err
	}
	format, err := normalizeFormat(firstNonEmpty(qFlags.format, c.Format))
	if err != nil {
		return nil, nil, err
	}
	t, err := store.Load(commandContext(cmd), store.Source{
		Path:    source,
		Table:   firstNonEmpty(qFlags.table, c.Table),
		Timeout: time.Duration(c.LoadTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(c)
	if err != nil {
		return nil, nil, err
	}
	t, warnings := coerce.Probabilities(t, coerce.SlotColumns(c.RankedSlots))
	pipeline.LogWarnings(log, warnings)
	return t, &queryContext{format: format, lenient: c.LenientBlobs, workers: c.Workers, blobs: c.BlobColumns, log: log}, nil
}

func (q queryFlags) columnList() []string { return splitList(q.columns) }

var describeCmd = &cobra.Command{
	Use:   "describe <source>",
	Short: "Descriptive statistics for numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		columns := qFlags.columnList()
		if len(columns) == 0 {
			return fmt.Errorf("--columns is required")
		}
		t, qc, err := loadForQuery(cmd, args[0])
		if err != nil {
			return err
		}
		defer qc.close()
		data, err := render(analysis.Describe(t, columns), qc.format)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), data, "", true)
	},
}

var topCmd = &cobra.Command{
	Use:   "top <source>",
	Short: "Most frequent values across columns, optionally from a normalized blob",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, qc, err := loadForQuery(cmd, args[0])
		if err != nil {
			return err
		}
		defer qc.close()
		columns := qFlags.columnList()
		if qFlags.blob != "" {
			bc := track.BlobColumn{Column: qFlags.blob, Axis: qFlags.axis}
			for _, known := range qc.blobs {
				if known.Column == qFlags.blob && bc.Axis == "" {
					bc.Axis = known.Axis
				}
			}
			if bc.Axis == "" {
				bc.Axis = "label"
			}
			res, ok := normalize.Column(t, bc, normalize.Options{Lenient: qc.lenient && !qFlags.strict, Workers: qc.workers})
			if !ok {
				return fmt.Errorf("column %s not found", qFlags.blob)
			}
			pipeline.LogWarnings(qc.log, res.Warnings)
			t = res.Table
			if len(columns) == 0 {
				columns = []string{bc.Axis}
			}
		}
		if len(columns) == 0 {
			return fmt.Errorf("--columns or --blob is required")
		}
		data, err := render(analysis.CountTopK(t, columns, qFlags.k), qc.format)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), data, "", true)
	},
}

var corrCmd = &cobra.Command{
	Use:   "corr <source>",
	Short: "Pairwise Pearson correlation matrix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, qc, err := loadForQuery(cmd, args[0])
		if err != nil {
			return err
		}
		defer qc.close()
		columns := qFlags.columnList()
		if len(columns) == 0 {
			columns = analysis.NumericColumns(t)
		}
		data, err := render(analysis.Correlate(t, columns), qc.format)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), data, "", true)
	},
}

func init() {
	for _, c := range []*cobra.Command{describeCmd, topCmd, corrCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVar(&qFlags.columns, "columns", "", "comma-separated column names")
		c.Flags().StringVar(&qFlags.format, "format", "", "output format: md|json|yaml")
		c.Flags().StringVar(&qFlags.table, "table", "", "table to read from a SQLite source")
	}
	topCmd.Flags().IntVarP(&qFlags.k, "top", "k", 10, "number of values to keep (0 = all)")
	topCmd.Flags().StringVar(&qFlags.blob, "blob", "", "normalize this blob column first and count its labels")
	topCmd.Flags().StringVar(&qFlags.axis, "axis", "", "label axis name for --blob (default from config)")
	topCmd.Flags().BoolVar(&qFlags.strict, "strict", false, "reject blobs with text before the JSON object")
}
