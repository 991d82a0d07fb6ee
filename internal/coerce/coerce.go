// Package coerce turns loosely typed probability columns into numeric ones.
package coerce

import (
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// SlotColumns lists every ranked probability column for n slots:
// tag1_prob..tagN_prob followed by instrument1_prob..instrumentN_prob.
func SlotColumns(n int) []string {
	return append(track.SlotProbs(track.TagPrefix, n), track.SlotProbs(track.InstrumentPrefix, n)...)
}

// Probabilities returns a copy of t where each listed column that exists is
// numeric. Unparseable or missing cells become Null, never zero. Columns
// absent from the schema are skipped.
func Probabilities(t *track.Table, columns []string) (*track.Table, []track.Warning) {
	var warnings []track.Warning
	ids := t.TrackIDs()
	out := t
	for _, col := range columns {
		vals, ok := out.Column(col)
		if !ok {
			continue
		}
		changed := false
		next := make([]track.Value, len(vals))
		for i, v := range vals {
			nv, reason := toNumber(v)
			if nv.Kind != v.Kind {
				changed = true
			}
			if reason != "" {
				warnings = append(warnings, track.Warning{TrackID: ids[i], Stage: track.StageCoerce, Column: col, Reason: reason})
			}
			next[i] = nv
		}
		if !changed {
			continue
		}
		nt, err := out.WithColumn(col, next)
		if err != nil {
			// Shapes come from the table itself.
			panic(err)
		}
		out = nt
	}
	return out, warnings
}

// toNumber coerces one cell. The reason is non-empty when a present value
// had to be dropped.
func toNumber(v track.Value) (track.Value, string) {
	switch v.Kind {
	case track.Null:
		return v, ""
	case track.Int, track.Float:
		n, _ := v.Number()
		if math.IsNaN(n) {
			return track.NullValue(), ""
		}
		return v, ""
	}
	s, ok := v.Text()
	if !ok {
		return track.NullValue(), "binary value is not numeric"
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return track.NullValue(), ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return track.NullValue(), strconv.Quote(truncate(s, 32)) + " is not numeric"
	}
	if math.IsNaN(f) {
		return track.NullValue(), ""
	}
	return track.FloatValue(f), ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
