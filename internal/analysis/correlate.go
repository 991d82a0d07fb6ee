package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
// Undefined cells are NaN.
type CorrMatrix struct {
	Columns []string    `yaml:"columns"`
	Values  [][]float64 `yaml:"values"` // row-major, Values[i][j]
}

// MarshalJSON writes undefined cells as null.
func (m CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j, v := range row {
			vals[i][j] = finite(v)
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, vals})
}

// At returns the coefficient for columns a and b.
func (m CorrMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a" yaml:"a"`
	B string  `json:"b" yaml:"b"`
	R float64 `json:"r" yaml:"r"`
}

// Correlation is the result of Correlate. Matrix is nil unless Computed.
type Correlation struct {
	Computed   bool        `json:"computed" yaml:"computed"`
	Reason     string      `json:"reason,omitempty" yaml:"reason,omitempty"`
	Matrix     *CorrMatrix `json:"matrix,omitempty" yaml:"matrix,omitempty"`
	Absent     []string    `json:"absent,omitempty" yaml:"absent,omitempty"`
	NonNumeric []string    `json:"non_numeric,omitempty" yaml:"non_numeric,omitempty"`
}

// Correlate computes pairwise-complete Pearson correlations: every cell
// uses only the rows where both of its columns have a value. Fewer than
// two usable columns yields Computed=false rather than a degenerate matrix.
func Correlate(t *track.Table, columns []string) Correlation {
	var c Correlation
	var names []string
	var series [][]float64
	var present [][]bool
	seen := map[string]bool{}
	for _, col := range columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		vals, ok := t.Column(col)
		if !ok {
			c.Absent = append(c.Absent, col)
			continue
		}
		if k := t.Kind(col); k != track.KindNumeric && k != track.KindEmpty {
			c.NonNumeric = append(c.NonNumeric, col)
			continue
		}
		xs := make([]float64, len(vals))
		ok2 := make([]bool, len(vals))
		for i, v := range vals {
			if x, isNum := v.Number(); isNum && !math.IsNaN(x) {
				xs[i], ok2[i] = x, true
			}
		}
		names = append(names, col)
		series = append(series, xs)
		present = append(present, ok2)
	}
	if len(names) < 2 {
		c.Reason = fmt.Sprintf("need at least 2 numeric columns, have %d", len(names))
		return c
	}

	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		mat[a][a] = math.NaN()
		for _, ok := range present[a] {
			if ok {
				mat[a][a] = 1
				break
			}
		}
		for b := a + 1; b < n; b++ {
			r := pearson(series[a], series[b], present[a], present[b])
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	c.Computed = true
	c.Matrix = &CorrMatrix{Columns: names, Values: mat}
	return c
}

// pearson over rows where both sides are present. NaN when fewer than two
// such rows exist or either side is constant over them. Deviations are scaled
// by their largest magnitude so squares of large values stay finite.
func pearson(x, y []float64, okX, okY []bool) float64 {
	var n, mx, my float64
	for i := range x {
		if okX[i] && okY[i] {
			n++
			mx += (x[i] - mx) / n
			my += (y[i] - my) / n
		}
	}
	if n < 2 {
		return math.NaN()
	}
	var scaleX, scaleY float64
	for i := range x {
		if okX[i] && okY[i] {
			scaleX = math.Max(scaleX, math.Abs(x[i]-mx))
			scaleY = math.Max(scaleY, math.Abs(y[i]-my))
		}
	}
	if scaleX == 0 || scaleY == 0 {
		return math.NaN()
	}
	var sxx, syy, sxy float64
	for i := range x {
		if okX[i] && okY[i] {
			dx, dy := (x[i]-mx)/scaleX, (y[i]-my)/scaleY
			sxx += dx * dx
			syy += dy * dy
			sxy += dx * dy
		}
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / (math.Sqrt(sxx) * math.Sqrt(syy))
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// TopPairs lists the off-diagonal pairs by descending |r|, skipping
// undefined cells. limit <= 0 keeps all.
func (m CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
