package analysis

import "github.com/KaramelBytes/trackscope-cli/internal/track"

// MissingCount is one row of the missing-values table.
type MissingCount struct {
	Column  string  `json:"column" yaml:"column"`
	Missing int     `json:"missing" yaml:"missing"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// MissingValues counts null cells per column in schema order.
func MissingValues(t *track.Table) []MissingCount {
	out := make([]MissingCount, 0, len(t.Columns()))
	for _, col := range t.Columns() {
		vals, _ := t.Column(col)
		m := MissingCount{Column: col}
		for _, v := range vals {
			if v.IsNull() {
				m.Missing++
			}
		}
		if len(vals) > 0 {
			m.Percent = float64(m.Missing) * 100 / float64(len(vals))
		}
		out = append(out, m)
	}
	return out
}

// NumericColumns returns the columns whose non-null cells are all numbers.
func NumericColumns(t *track.Table) []string {
	return columnsOfKind(t, track.KindNumeric)
}

// CategoricalColumns returns the columns whose non-null cells are all text.
func CategoricalColumns(t *track.Table) []string {
	return columnsOfKind(t, track.KindCategorical)
}

func columnsOfKind(t *track.Table, kind track.ColumnKind) []string {
	var out []string
	for _, c := range t.Columns() {
		if t.Kind(c) == kind {
			out = append(out, c)
		}
	}
	return out
}
