package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// FrequencyTable is a titled frequency count.
type FrequencyTable struct {
	Title       string `json:"title" yaml:"title"`
	Frequencies `yaml:",inline"`
}

// LongFormSummary aggregates one normalized label axis.
type LongFormSummary struct {
	Source  string `json:"source" yaml:"source"`
	Axis    string `json:"axis" yaml:"axis"`
	Records int    `json:"records" yaml:"records"`
	// Tracks counts tracks with at least one record.
	Tracks      int         `json:"tracks" yaml:"tracks"`
	Probability ColumnStats `json:"probability" yaml:"probability"`
	// Top counts records per label, i.e. the number of tracks a label is present in.
	Top      Frequencies `json:"top" yaml:"top"`
	Warnings int         `json:"warnings" yaml:"warnings"`
}

// Report is the aggregate summary of one track table.
type Report struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Source      string            `json:"source" yaml:"source"`
	Table       string            `json:"table" yaml:"table"`
	Tracks      int               `json:"tracks" yaml:"tracks"`
	Columns     int               `json:"columns" yaml:"columns"`
	Numeric     Description       `json:"numeric" yaml:"numeric"`
	Correlation Correlation       `json:"correlation" yaml:"correlation"`
	Tags        []FrequencyTable  `json:"tags" yaml:"tags"`
	LongForm    []LongFormSummary `json:"long_form" yaml:"long_form"`
	Categorical []FrequencyTable  `json:"categorical" yaml:"categorical"`
	Missing     []MissingCount    `json:"missing" yaml:"missing"`
	Insights    []string          `json:"insights" yaml:"insights"`
	Notes       []string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	Warnings    []track.Warning   `json:"warnings" yaml:"warnings"`
}

// maxListedWarnings caps the NOTES section; the full list stays in Warnings.
const maxListedWarnings = 25

// Markdown renders a compact sectioned report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Source))
	}
	if r.Table != "" {
		b.WriteString(fmt.Sprintf("Table: %s\n", r.Table))
	}
	b.WriteString(fmt.Sprintf("Tracks: %d\n", r.Tracks))
	b.WriteString(fmt.Sprintf("Columns: %d\n", r.Columns))
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	}

	if len(r.Numeric.Columns) > 0 {
		b.WriteString("\n[NUMERIC FEATURES]\n")
		for _, c := range r.Numeric.Columns {
			b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(c.Name), statsLine(c)))
		}
	}

	b.WriteString("\n[CORRELATIONS]\n")
	switch {
	case !r.Correlation.Computed:
		b.WriteString(fmt.Sprintf("- not computed: %s\n", r.Correlation.Reason))
	default:
		pairs := r.Correlation.Matrix.TopPairs(10)
		if len(pairs) == 0 {
			b.WriteString("- no defined pairs\n")
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Tags) > 0 {
		b.WriteString("\n[TAG FREQUENCIES]\n")
		for _, ft := range r.Tags {
			writeFrequencies(&b, ft.Title, ft.Frequencies)
		}
	}

	if len(r.LongForm) > 0 {
		b.WriteString("\n[LONG-FORM FEATURES]\n")
		for _, lf := range r.LongForm {
			b.WriteString(fmt.Sprintf("- %s from %s: %d records over %d tracks", lf.Axis, lf.Source, lf.Records, lf.Tracks))
			if lf.Warnings > 0 {
				b.WriteString(fmt.Sprintf(", %d skipped", lf.Warnings))
			}
			b.WriteString("\n")
			if lf.Records > 0 {
				b.WriteString(fmt.Sprintf("  • probability: %s\n", statsLine(lf.Probability)))
				writeTop(&b, "  • top: ", lf.Top)
			}
		}
	}

	if len(r.Categorical) > 0 {
		b.WriteString("\n[CATEGORICAL COLUMNS]\n")
		for _, ft := range r.Categorical {
			writeFrequencies(&b, ft.Title, ft.Frequencies)
		}
	}

	if len(r.Missing) > 0 {
		b.WriteString("\n[MISSING VALUES]\n")
		for _, m := range r.Missing {
			if m.Missing == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", safeName(m.Column), m.Missing, m.Percent))
		}
	}

	if len(r.Insights) > 0 {
		b.WriteString("\n[INSIGHTS]\n")
		for _, s := range r.Insights {
			b.WriteString("- " + s + "\n")
		}
	}

	if len(r.Notes) > 0 || len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- " + n + "\n")
		}
		for i, w := range r.Warnings {
			if i == maxListedWarnings {
				b.WriteString(fmt.Sprintf("- ... and %d more warnings\n", len(r.Warnings)-maxListedWarnings))
				break
			}
			b.WriteString("- " + safeVal(w.String()) + "\n")
		}
	}
	return b.String()
}

func statsLine(c ColumnStats) string {
	if !c.Computed() {
		return fmt.Sprintf("count 0 (missing %d), no statistics", c.Missing)
	}
	s := fmt.Sprintf("count %d, mean %s, std %s, min %s, q25 %s, median %s, q75 %s, max %s",
		c.Count, num(c.Mean), num(c.Std), num(c.Min), num(c.Q25), num(c.Median), num(c.Q75), num(c.Max))
	if c.OutlierThreshold > 0 && c.OutliersCount > 0 {
		s += fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
	}
	return s
}

func writeFrequencies(b *strings.Builder, title string, f Frequencies) {
	if len(f.Values) == 0 {
		b.WriteString(fmt.Sprintf("- %s: no values\n", title))
		return
	}
	writeTop(b, "- "+title+": ", f)
}

func writeTop(b *strings.Builder, lead string, f Frequencies) {
	b.WriteString(lead)
	for i, kv := range f.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
	}
	if f.Distinct > len(f.Values) {
		b.WriteString(fmt.Sprintf("; unique=%d", f.Distinct))
	}
	b.WriteString("\n")
}

func num(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", f)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// Markdown renders the describe table alone.
func (d Description) Markdown() string {
	var b strings.Builder
	b.WriteString("[NUMERIC FEATURES]\n")
	for _, c := range d.Columns {
		b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(c.Name), statsLine(c)))
	}
	if len(d.Absent) > 0 {
		b.WriteString(fmt.Sprintf("- absent: %s\n", strings.Join(d.Absent, ", ")))
	}
	if len(d.NonNumeric) > 0 {
		b.WriteString(fmt.Sprintf("- non-numeric: %s\n", strings.Join(d.NonNumeric, ", ")))
	}
	return b.String()
}

// Markdown renders one frequency table.
func (f Frequencies) Markdown() string {
	var b strings.Builder
	b.WriteString("[TOP VALUES]\n")
	title := strings.Join(f.Columns, ", ")
	writeFrequencies(&b, safeName(title), f)
	b.WriteString(fmt.Sprintf("- counted: %d\n", f.Total))
	if len(f.Absent) > 0 {
		b.WriteString(fmt.Sprintf("- absent: %s\n", strings.Join(f.Absent, ", ")))
	}
	return b.String()
}

// Markdown renders the full matrix, one row per column.
func (c Correlation) Markdown() string {
	var b strings.Builder
	b.WriteString("[CORRELATIONS]\n")
	if !c.Computed {
		b.WriteString(fmt.Sprintf("- not computed: %s\n", c.Reason))
	} else {
		for i, row := range c.Matrix.Values {
			cells := make([]string, len(row))
			for j, r := range row {
				cells[j] = fmt.Sprintf("%s=%s", c.Matrix.Columns[j], corrCell(r))
			}
			b.WriteString(fmt.Sprintf("- %s: %s\n", c.Matrix.Columns[i], strings.Join(cells, ", ")))
		}
	}
	if len(c.Absent) > 0 {
		b.WriteString(fmt.Sprintf("- absent: %s\n", strings.Join(c.Absent, ", ")))
	}
	if len(c.NonNumeric) > 0 {
		b.WriteString(fmt.Sprintf("- non-numeric: %s\n", strings.Join(c.NonNumeric, ", ")))
	}
	return b.String()
}

func corrCell(r float64) string {
	if math.IsNaN(r) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", r)
}
