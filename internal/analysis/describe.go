package analysis

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// Options controls descriptive statistics.
type Options struct {
	// Outliers counts robust |z| > OutlierThreshold (median/MAD) per column.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for track feature analysis.
func DefaultOptions() Options {
	return Options{Outliers: true, OutlierThreshold: 3.5}
}

// ColumnStats is one row of a describe table. Statistics that cannot be
// computed (no samples, or fewer than two for Std) are NaN.
type ColumnStats struct {
	Name    string  `yaml:"name"`
	Count   int     `yaml:"count"`
	Missing int     `yaml:"missing"`
	Mean    float64 `yaml:"mean"`
	Std     float64 `yaml:"std"`
	Min     float64 `yaml:"min"`
	Q25     float64 `yaml:"q25"`
	Median  float64 `yaml:"median"`
	Q75     float64 `yaml:"q75"`
	Max     float64 `yaml:"max"`
	// Outliers (robust Z via MAD); threshold is 0 when not computed
	OutliersCount    int     `yaml:"outliers,omitempty"`
	OutlierThreshold float64 `yaml:"outlier_threshold,omitempty"`
}

// Computed reports whether any statistic beyond the count exists.
func (c ColumnStats) Computed() bool { return c.Count > 0 }

// MarshalJSON writes undefined statistics as null.
func (c ColumnStats) MarshalJSON() ([]byte, error) {
	type out struct {
		Name             string   `json:"name"`
		Count            int      `json:"count"`
		Missing          int      `json:"missing"`
		Mean             *float64 `json:"mean"`
		Std              *float64 `json:"std"`
		Min              *float64 `json:"min"`
		Q25              *float64 `json:"q25"`
		Median           *float64 `json:"median"`
		Q75              *float64 `json:"q75"`
		Max              *float64 `json:"max"`
		OutliersCount    int      `json:"outliers,omitempty"`
		OutlierThreshold float64  `json:"outlier_threshold,omitempty"`
	}
	return json.Marshal(out{
		Name: c.Name, Count: c.Count, Missing: c.Missing,
		Mean: finite(c.Mean), Std: finite(c.Std), Min: finite(c.Min),
		Q25: finite(c.Q25), Median: finite(c.Median), Q75: finite(c.Q75), Max: finite(c.Max),
		OutliersCount: c.OutliersCount, OutlierThreshold: c.OutlierThreshold,
	})
}

// Description is the result of Describe.
type Description struct {
	Columns []ColumnStats `json:"columns" yaml:"columns"`
	// Absent lists requested columns the table does not have.
	Absent []string `json:"absent,omitempty" yaml:"absent,omitempty"`
	// NonNumeric lists requested columns holding non-numeric values.
	NonNumeric []string `json:"non_numeric,omitempty" yaml:"non_numeric,omitempty"`
}

// Stats returns the stats row for name.
func (d Description) Stats(name string) (ColumnStats, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnStats{}, false
}

// Describe computes count/mean/std/min/quartiles/max for each requested
// numeric column with default options.
func Describe(t *track.Table, columns []string) Description {
	return DescribeWith(t, columns, DefaultOptions())
}

// DescribeWith is Describe with explicit options. Columns with no samples
// are kept with Count 0; absent and non-numeric columns are reported
// separately instead of failing.
func DescribeWith(t *track.Table, columns []string, opt Options) Description {
	var d Description
	seen := map[string]bool{}
	for _, col := range columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		vals, ok := t.Column(col)
		if !ok {
			d.Absent = append(d.Absent, col)
			continue
		}
		if k := t.Kind(col); k != track.KindNumeric && k != track.KindEmpty {
			d.NonNumeric = append(d.NonNumeric, col)
			continue
		}
		d.Columns = append(d.Columns, describeValues(col, vals, opt))
	}
	return d
}

// DescribeFloats summarizes an already-extracted sample.
func DescribeFloats(name string, xs []float64, opt Options) ColumnStats {
	vals := make([]track.Value, len(xs))
	for i, x := range xs {
		vals[i] = track.FloatValue(x)
	}
	return describeValues(name, vals, opt)
}

func describeValues(name string, vals []track.Value, opt Options) ColumnStats {
	s := ColumnStats{Name: name}
	// Welford update
	var n int
	var mean, m2 float64
	xs := make([]float64, 0, len(vals))
	for _, v := range vals {
		x, ok := v.Number()
		if !ok || math.IsNaN(x) {
			s.Missing++
			continue
		}
		n++
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
		xs = append(xs, x)
	}
	s.Count = n
	nan := math.NaN()
	s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
	if n == 0 {
		return s
	}
	s.Mean = mean
	if n > 1 {
		s.Std = math.Sqrt(m2 / float64(n-1))
	}
	sort.Float64s(xs)
	s.Min = xs[0]
	s.Max = xs[len(xs)-1]
	s.Q25 = quantile(xs, 0.25)
	s.Median = quantile(xs, 0.5)
	s.Q75 = quantile(xs, 0.75)

	if opt.Outliers && n >= 8 {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		median, mad := medianMAD(xs)
		if mad > 0 {
			for _, x := range xs {
				if math.Abs(0.6745*(x-median)/mad) > thr {
					s.OutliersCount++
				}
			}
		}
		s.OutlierThreshold = thr
	}
	return s
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks of a sorted sample.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
