package track

import "fmt"

// Column names of every long-form table.
const (
	TrackIDColumn     = "track_id"
	ProbabilityColumn = "probability"
)

// Pipeline stages that can emit warnings.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageCoerce    = "coerce"
)

// LabelProb is one normalized (track, label, probability) triple.
type LabelProb struct {
	TrackID     int64   `json:"track_id" yaml:"track_id"`
	Label       string  `json:"label" yaml:"label"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// Warning is a per-record diagnostic. It never alters control flow.
type Warning struct {
	TrackID int64  `json:"track_id" yaml:"track_id"`
	Stage   string `json:"stage" yaml:"stage"`
	Column  string `json:"column,omitempty" yaml:"column,omitempty"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Reason  string `json:"reason" yaml:"reason"`
}

func (w Warning) String() string {
	s := fmt.Sprintf("track %d: %s", w.TrackID, w.Stage)
	if w.Column != "" {
		s += " " + w.Column
	}
	if w.Label != "" {
		s += fmt.Sprintf(" [%s]", w.Label)
	}
	return s + ": " + w.Reason
}

// LongTable lays records out as a table with schema
// (track_id, <axis>, probability). The schema exists even with no records.
func LongTable(axis string, records []LabelProb) *Table {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			TrackID: r.TrackID,
			Values:  []Value{IntValue(r.TrackID), TextValue(r.Label), FloatValue(r.Probability)},
		}
	}
	return MustTable(axis, []string{TrackIDColumn, axis, ProbabilityColumn}, rows)
}
