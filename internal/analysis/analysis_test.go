package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

func featureTable(t *testing.T) *track.Table {
	t.Helper()
	f, n, s := track.FloatValue, track.NullValue(), track.TextValue
	tb, err := track.NewTable("classified_tracks", []string{"bpm", "happiness", "aggressive", "key", "tag1", "tag2", "empty"}, []track.Row{
		{TrackID: 1, Values: []track.Value{f(120), f(0.9), f(0.1), s("C"), s("rock"), s("pop"), n}},
		{TrackID: 2, Values: []track.Value{n, f(0.5), f(0.4), s("D"), s("jazz"), s("rock"), n}},
		{TrackID: 3, Values: []track.Value{f(140), f(0.2), f(0.8), s("C"), s("pop"), n, n}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tb
}

func TestDescribeSkipsMissing(t *testing.T) {
	d := Describe(featureTable(t), []string{"bpm"})
	st, ok := d.Stats("bpm")
	if !ok {
		t.Fatalf("bpm stats missing: %#v", d)
	}
	if st.Count != 2 || st.Missing != 1 {
		t.Fatalf("count/missing = %d/%d, want 2/1", st.Count, st.Missing)
	}
	if st.Mean != 130 || st.Min != 120 || st.Max != 140 || st.Median != 130 {
		t.Fatalf("unexpected stats: %#v", st)
	}
	if math.Abs(st.Std-math.Sqrt(200)) > 1e-9 {
		t.Fatalf("std = %v, want sqrt(200)", st.Std)
	}
	if st.Q25 != 125 || st.Q75 != 135 {
		t.Fatalf("quartiles = %v/%v", st.Q25, st.Q75)
	}
}

func TestDescribeEmptyAndUnknownColumns(t *testing.T) {
	d := Describe(featureTable(t), []string{"empty", "nope", "key", "bpm", "bpm"})
	if len(d.Columns) != 2 {
		t.Fatalf("columns = %#v, want empty and bpm", d.Columns)
	}
	st, _ := d.Stats("empty")
	if st.Count != 0 || st.Missing != 3 || !math.IsNaN(st.Mean) || st.Computed() {
		t.Fatalf("empty stats = %#v", st)
	}
	if len(d.Absent) != 1 || d.Absent[0] != "nope" {
		t.Fatalf("absent = %#v", d.Absent)
	}
	if len(d.NonNumeric) != 1 || d.NonNumeric[0] != "key" {
		t.Fatalf("non-numeric = %#v", d.NonNumeric)
	}

	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"mean":null`) {
		t.Fatalf("NaN mean should marshal as null: %s", raw)
	}
}

func TestDescribeSingleSampleStd(t *testing.T) {
	st := DescribeFloats("x", []float64{4}, DefaultOptions())
	if st.Mean != 4 || !math.IsNaN(st.Std) {
		t.Fatalf("single sample stats = %#v", st)
	}
}

func TestDescribeOutliers(t *testing.T) {
	xs := []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50}
	st := DescribeFloats("score", xs, DefaultOptions())
	if st.OutliersCount != 1 || st.OutlierThreshold != 3.5 {
		t.Fatalf("outliers = %d (thr %v), want 1", st.OutliersCount, st.OutlierThreshold)
	}
	off := DescribeFloats("score", xs, Options{})
	if off.OutliersCount != 0 || off.OutlierThreshold != 0 {
		t.Fatalf("outliers should be off: %#v", off)
	}
}

func TestCorrelateSelfAndPairs(t *testing.T) {
	c := Correlate(featureTable(t), []string{"happiness", "aggressive", "bpm"})
	if !c.Computed {
		t.Fatalf("expected computed, reason %q", c.Reason)
	}
	for _, col := range c.Matrix.Columns {
		if r, _ := c.Matrix.At(col, col); r != 1 {
			t.Fatalf("self correlation %s = %v", col, r)
		}
	}
	r, _ := c.Matrix.At("happiness", "aggressive")
	if r > -0.9 {
		t.Fatalf("happiness~aggressive = %v, want strongly negative", r)
	}
	// bpm has two values, rows 1 and 3, so the pair is exactly determined
	r, _ = c.Matrix.At("bpm", "happiness")
	if math.Abs(r+1) > 1e-9 {
		t.Fatalf("bpm~happiness = %v, want -1", r)
	}
	if r2, _ := c.Matrix.At("happiness", "bpm"); r2 != r {
		t.Fatalf("matrix not symmetric: %v vs %v", r, r2)
	}
}

func TestCorrelateNeedsTwoColumns(t *testing.T) {
	c := Correlate(featureTable(t), []string{"bpm", "key", "nope"})
	if c.Computed || c.Matrix != nil {
		t.Fatalf("single column must not be computed: %#v", c)
	}
	if !strings.Contains(c.Reason, "have 1") {
		t.Fatalf("reason = %q", c.Reason)
	}
	if len(c.Absent) != 1 || len(c.NonNumeric) != 1 {
		t.Fatalf("absent/non-numeric = %#v/%#v", c.Absent, c.NonNumeric)
	}
}

func TestCorrelateUndefinedCellsAreNull(t *testing.T) {
	c := Correlate(featureTable(t), []string{"bpm", "empty"})
	if !c.Computed {
		t.Fatalf("expected computed")
	}
	if r, _ := c.Matrix.At("empty", "empty"); !math.IsNaN(r) {
		t.Fatalf("empty diagonal = %v, want NaN", r)
	}
	if r, _ := c.Matrix.At("bpm", "empty"); !math.IsNaN(r) {
		t.Fatalf("bpm~empty = %v, want NaN", r)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `[1,null]`) {
		t.Fatalf("matrix json = %s", raw)
	}
	if pairs := c.Matrix.TopPairs(0); len(pairs) != 0 {
		t.Fatalf("undefined pairs listed: %#v", pairs)
	}
}

func TestCorrelateLargeScaleColumns(t *testing.T) {
	f := track.FloatValue
	tb, err := track.NewTable("scaled", []string{"a", "b"}, []track.Row{
		{TrackID: 1, Values: []track.Value{f(1e200), f(1)}},
		{TrackID: 2, Values: []track.Value{f(2e200), f(2)}},
		{TrackID: 3, Values: []track.Value{f(3e200), f(3)}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	c := Correlate(tb, []string{"a", "b"})
	if r, _ := c.Matrix.At("a", "b"); math.Abs(r-1) > 1e-9 {
		t.Fatalf("a~b = %v, want 1", r)
	}
}

func TestCountTopKPooledAndDeterministic(t *testing.T) {
	tb := featureTable(t)
	f := CountTopK(tb, []string{"tag1", "tag2"}, 0)
	want := []CategoryCount{{"rock", 2}, {"pop", 2}, {"jazz", 1}}
	if len(f.Values) != len(want) {
		t.Fatalf("values = %#v", f.Values)
	}
	for i := range want {
		if f.Values[i] != want[i] {
			t.Fatalf("values[%d] = %#v, want %#v", i, f.Values[i], want[i])
		}
	}
	if f.Total != 5 || f.Distinct != 3 {
		t.Fatalf("total/distinct = %d/%d", f.Total, f.Distinct)
	}
	for i := 0; i < 5; i++ {
		again := CountTopK(tb, []string{"tag1", "tag2"}, 2)
		if len(again.Values) != 2 || again.Values[0].Value != "rock" || again.Values[1].Value != "pop" {
			t.Fatalf("non-deterministic ordering: %#v", again.Values)
		}
	}
}

func TestCountTopKRepeatedColumnCountsOnce(t *testing.T) {
	f := CountTopK(featureTable(t), []string{"tag1", "tag1"}, 0)
	if f.Total != 3 || len(f.Columns) != 1 {
		t.Fatalf("total/columns = %d/%v", f.Total, f.Columns)
	}
	for _, v := range f.Values {
		if v.Count != 1 {
			t.Fatalf("value counted twice: %#v", v)
		}
	}
}

func TestCountTopKOnLongTable(t *testing.T) {
	long := track.LongTable("genre", []track.LabelProb{
		{TrackID: 1, Label: "rock", Probability: 0.8},
		{TrackID: 1, Label: "jazz", Probability: 0.1},
	})
	f := CountTopK(long, []string{"genre"}, 1)
	if len(f.Values) != 1 || f.Values[0] != (CategoryCount{"rock", 1}) {
		t.Fatalf("top genre = %#v", f.Values)
	}
	empty := CountTopK(track.LongTable("genre", nil), []string{"genre", "mood"}, 5)
	if len(empty.Values) != 0 || len(empty.Absent) != 1 || empty.Absent[0] != "mood" {
		t.Fatalf("empty long table counts = %#v", empty)
	}
}

func TestMissingValuesAndKinds(t *testing.T) {
	tb := featureTable(t)
	mv := MissingValues(tb)
	if len(mv) != len(tb.Columns()) {
		t.Fatalf("missing rows = %d", len(mv))
	}
	byCol := map[string]MissingCount{}
	for _, m := range mv {
		byCol[m.Column] = m
	}
	if byCol["bpm"].Missing != 1 || byCol["empty"].Missing != 3 || byCol["empty"].Percent != 100 {
		t.Fatalf("missing counts = %#v", byCol)
	}
	if got := strings.Join(NumericColumns(tb), ","); got != "bpm,happiness,aggressive" {
		t.Fatalf("numeric = %s", got)
	}
	if got := strings.Join(CategoricalColumns(tb), ","); got != "key,tag1,tag2" {
		t.Fatalf("categorical = %s", got)
	}
}

func TestReportMarkdown(t *testing.T) {
	tb := featureTable(t)
	rep := &Report{
		Source:      "tracks.db",
		Table:       tb.Name,
		Tracks:      tb.Len(),
		Columns:     len(tb.Columns()),
		Numeric:     Describe(tb, []string{"bpm", "empty"}),
		Correlation: Correlate(tb, []string{"happiness", "aggressive"}),
		Tags:        []FrequencyTable{{Title: "tags", Frequencies: CountTopK(tb, []string{"tag1", "tag2"}, 2)}},
		LongForm: []LongFormSummary{{
			Source: "features", Axis: "genre", Records: 2, Tracks: 1,
			Probability: DescribeFloats("probability", []float64{0.8, 0.1}, DefaultOptions()),
			Top:         Frequencies{Values: []CategoryCount{{"rock", 1}, {"jazz", 1}}, Distinct: 2},
			Warnings:    1,
		}},
		Missing:  MissingValues(tb),
		Insights: []string{"BPM ranges from 120 to 140 (mean 130)"},
		Warnings: []track.Warning{{TrackID: 2, Stage: track.StageNormalize, Column: "features", Label: "rock", Reason: "probability is not a number"}},
	}
	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"Source: tracks.db",
		"Tracks: 3",
		"- bpm: count 2",
		"- empty: count 0 (missing 3), no statistics",
		"[CORRELATIONS]",
		"happiness ~ aggressive: r=",
		"- tags: rock(2), pop(2); unique=3",
		"- genre from features: 2 records over 1 tracks, 1 skipped",
		"rock(1), jazz(1)",
		"[MISSING VALUES]",
		"- empty: 3 (100.0%)",
		"[INSIGHTS]",
		"[NOTES]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "- happiness: 0") {
		t.Fatalf("columns without missing values should be omitted:\n%s", md)
	}
}

func TestReportMarkdownUncomputedCorrelation(t *testing.T) {
	rep := &Report{Correlation: Correlate(featureTable(t), []string{"bpm"})}
	md := rep.Markdown()
	if !strings.Contains(md, "- not computed: need at least 2 numeric columns, have 1") {
		t.Fatalf("markdown = %s", md)
	}
}

func TestQueryMarkdown(t *testing.T) {
	tb := featureTable(t)
	md := Describe(tb, []string{"bpm", "nope"}).Markdown()
	if !strings.Contains(md, "- bpm: count 2, mean 130") || !strings.Contains(md, "- absent: nope") {
		t.Fatalf("describe markdown = %s", md)
	}
	md = CountTopK(tb, []string{"key"}, 1).Markdown()
	if !strings.Contains(md, "- key: C(2); unique=2") || !strings.Contains(md, "- counted: 3") {
		t.Fatalf("top markdown = %s", md)
	}
	md = Correlate(tb, []string{"bpm", "empty"}).Markdown()
	if !strings.Contains(md, "- bpm: bpm=1.000, empty=n/a") {
		t.Fatalf("corr markdown = %s", md)
	}
}
