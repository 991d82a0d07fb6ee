package analysis

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// CategoryCount is one value of a frequency table.
type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Frequencies is the result of CountTopK.
type Frequencies struct {
	Columns []string        `json:"columns" yaml:"columns"`
	Values  []CategoryCount `json:"values" yaml:"values"`
	// Distinct is the number of distinct values before truncation.
	Distinct int `json:"distinct" yaml:"distinct"`
	// Total is the number of non-missing cells counted.
	Total  int      `json:"total" yaml:"total"`
	Absent []string `json:"absent,omitempty" yaml:"absent,omitempty"`
}

// CountTopK counts each distinct non-missing value across columns, pooled.
// A column listed twice is counted once.
// Values come back by descending count; ties keep first-seen order
// (columns in the order given, rows in table order). k <= 0 keeps all.
func CountTopK(t *track.Table, columns []string, k int) Frequencies {
	var f Frequencies
	counts := map[string]int{}
	listed := map[string]bool{}
	var order []string
	for _, col := range columns {
		if listed[col] {
			continue
		}
		listed[col] = true
		f.Columns = append(f.Columns, col)
		vals, ok := t.Column(col)
		if !ok {
			f.Absent = append(f.Absent, col)
			continue
		}
		for _, v := range vals {
			if v.IsNull() {
				continue
			}
			key := strings.TrimSpace(v.String())
			if key == "" {
				continue
			}
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
			f.Total++
		}
	}
	f.Distinct = len(order)
	tops := make([]CategoryCount, len(order))
	for i, key := range order {
		tops[i] = CategoryCount{Value: key, Count: counts[key]}
	}
	sort.SliceStable(tops, func(i, j int) bool { return tops[i].Count > tops[j].Count })
	if k > 0 && len(tops) > k {
		tops = tops[:k]
	}
	f.Values = tops
	return f
}
