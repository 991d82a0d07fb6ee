// Package pipeline runs load, coerce, normalize and aggregate over one
// track table and assembles the report.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trackscope-cli/internal/analysis"
	"github.com/KaramelBytes/trackscope-cli/internal/coerce"
	"github.com/KaramelBytes/trackscope-cli/internal/normalize"
	"github.com/KaramelBytes/trackscope-cli/internal/store"
	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// Options configures one run.
type Options struct {
	Source         store.Source
	NumericColumns []string
	BlobColumns    []track.BlobColumn
	// Slots is the number of ranked tag/instrument slot pairs.
	Slots int

	TopKKeys        int
	TopKTags        int
	TopKLabels      int
	TopKCategorical int

	Normalize normalize.Options
	Analysis  analysis.Options
}

// DefaultOptions returns the classifier's layout for the database at path.
func DefaultOptions(path string) Options {
	return Options{
		Source:          store.Source{Path: path, Table: track.DefaultTable},
		NumericColumns:  track.DefaultNumericColumns(),
		BlobColumns:     track.DefaultBlobColumns(),
		Slots:           track.DefaultSlots,
		TopKKeys:        20,
		TopKTags:        30,
		TopKLabels:      30,
		TopKCategorical: 10,
		Normalize:       normalize.Options{Lenient: true, Workers: 1},
		Analysis:        analysis.DefaultOptions(),
	}
}

// Run executes the whole pipeline. Only a load failure is returned as an
// error; every per-track or per-label problem ends up in Report.Warnings.
func Run(ctx context.Context, opt Options, log *zap.Logger) (*analysis.Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	start := time.Now()

	t, err := store.Load(ctx, opt.Source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opt.Source.Path, err)
	}
	log.Info("loaded tracks",
		zap.String("source", opt.Source.Path),
		zap.String("table", t.Name),
		zap.Int("tracks", t.Len()),
		zap.Int("columns", len(t.Columns())),
	)

	rep := &analysis.Report{
		RunID:       runID,
		GeneratedAt: start.UTC(),
		Source:      opt.Source.Path,
		Table:       t.Name,
		Tracks:      t.Len(),
		Columns:     len(t.Columns()),
	}

	slotProbs := coerce.SlotColumns(opt.Slots)
	t, warnings := coerce.Probabilities(t, slotProbs)

	numeric := featureColumns(t, opt.NumericColumns, slotProbs)
	rep.Numeric = analysis.DescribeWith(t, numeric, opt.Analysis)
	rep.Correlation = analysis.Correlate(t, numeric)
	if len(rep.Numeric.Absent) > 0 {
		rep.Notes = append(rep.Notes, fmt.Sprintf("numeric columns not in table: %s", strings.Join(rep.Numeric.Absent, ", ")))
	}
	if len(rep.Numeric.NonNumeric) > 0 {
		rep.Notes = append(rep.Notes, fmt.Sprintf("columns skipped as non-numeric: %s", strings.Join(rep.Numeric.NonNumeric, ", ")))
	}

	rep.Tags = append(rep.Tags, frequencyTables(t,
		namedColumns{"key", []string{track.KeyColumn}, opt.TopKKeys},
		namedColumns{"tags", track.SlotLabels(track.TagPrefix, opt.Slots), opt.TopKTags},
		namedColumns{"instruments", track.SlotLabels(track.InstrumentPrefix, opt.Slots), opt.TopKTags},
	)...)

	for _, prefix := range []string{track.TagPrefix, track.InstrumentPrefix} {
		res := normalize.RankedSlots(t, prefix, opt.Slots)
		if len(res.Records) == 0 {
			continue
		}
		rep.LongForm = append(rep.LongForm, summarize(res, opt))
	}

	blobCols := map[string]bool{}
	var blobs []analysis.LongFormSummary
	for _, bc := range opt.BlobColumns {
		blobCols[bc.Column] = true
		res, ok := normalize.Column(t, bc, opt.Normalize)
		if !ok {
			rep.Notes = append(rep.Notes, fmt.Sprintf("column %s not found", bc.Column))
			continue
		}
		warnings = append(warnings, res.Warnings...)
		sum := summarize(res, opt)
		blobs = append(blobs, sum)
		rep.LongForm = append(rep.LongForm, sum)
		log.Debug("normalized blob column",
			zap.String("column", bc.Column),
			zap.Int("records", len(res.Records)),
			zap.Int("tracks", res.Tracks),
			zap.Int("warnings", len(res.Warnings)),
		)
	}

	for _, col := range analysis.CategoricalColumns(t) {
		if blobCols[col] {
			continue
		}
		rep.Categorical = append(rep.Categorical, analysis.FrequencyTable{
			Title:       col,
			Frequencies: analysis.CountTopK(t, []string{col}, opt.TopKCategorical),
		})
	}
	rep.Missing = analysis.MissingValues(t)
	rep.Insights = insights(rep, blobs)
	rep.Warnings = warnings

	LogWarnings(log, warnings)
	log.Info("analysis complete",
		zap.Int("tracks", rep.Tracks),
		zap.Int("warnings", len(warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

// LogWarnings writes each per-record warning at WARN level.
func LogWarnings(log *zap.Logger, warnings []track.Warning) {
	for _, w := range warnings {
		log.Warn("record skipped",
			zap.Int64("track_id", w.TrackID),
			zap.String("stage", w.Stage),
			zap.String("column", w.Column),
			zap.String("label", w.Label),
			zap.String("reason", w.Reason),
		)
	}
}

// featureColumns returns the configured numeric features followed by any
// slot probability column present after coercion. A slot column whose cells
// all failed to parse is empty and is still described with count 0.
func featureColumns(t *track.Table, configured, slotProbs []string) []string {
	out := append([]string(nil), configured...)
	for _, c := range slotProbs {
		switch t.Kind(c) {
		case track.KindNumeric, track.KindEmpty:
			out = append(out, c)
		}
	}
	return out
}

type namedColumns struct {
	title   string
	columns []string
	k       int
}

// frequencyTables counts each group that has at least one column in t.
func frequencyTables(t *track.Table, groups ...namedColumns) []analysis.FrequencyTable {
	var out []analysis.FrequencyTable
	for _, g := range groups {
		f := analysis.CountTopK(t, g.columns, g.k)
		if len(f.Absent) == len(g.columns) {
			continue
		}
		out = append(out, analysis.FrequencyTable{Title: g.title, Frequencies: f})
	}
	return out
}

func summarize(res normalize.Result, opt Options) analysis.LongFormSummary {
	probs := make([]float64, len(res.Records))
	for i, r := range res.Records {
		probs[i] = r.Probability
	}
	return analysis.LongFormSummary{
		Source:      res.Column,
		Axis:        res.Axis,
		Records:     len(res.Records),
		Tracks:      res.Tracks,
		Probability: analysis.DescribeFloats(track.ProbabilityColumn, probs, opt.Analysis),
		Top:         analysis.CountTopK(res.Table, []string{res.Axis}, opt.TopKLabels),
		Warnings:    len(res.Warnings),
	}
}

func insights(rep *analysis.Report, blobs []analysis.LongFormSummary) []string {
	var out []string
	if bpm, ok := rep.Numeric.Stats("bpm"); ok && bpm.Computed() {
		out = append(out, fmt.Sprintf("BPM ranges from %.2f to %.2f, with a mean of %.2f.", bpm.Min, bpm.Max, bpm.Mean))
	}
	if rep.Correlation.Computed {
		if r, ok := rep.Correlation.Matrix.At("happiness", "aggressive"); ok && r < -0.3 {
			out = append(out, fmt.Sprintf("'happiness' and 'aggressive' are negatively correlated (r=%.2f).", r))
		}
	}
	for _, lf := range blobs {
		if lf.Records == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("Full %s probability vectors from '%s' cover %d tracks and give a finer %s profile than the ranked slots.",
			lf.Axis, lf.Source, lf.Tracks, lf.Axis))
	}
	return out
}
