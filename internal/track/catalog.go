package track

import "fmt"

// DefaultTable is the table written by the classifier.
const DefaultTable = "classified_tracks"

// DefaultSlots is how many ranked tag/instrument slots the classifier writes.
const DefaultSlots = 10

// Ranked slot families.
const (
	TagPrefix        = "tag"
	InstrumentPrefix = "instrument"
	KeyColumn        = "key"
)

// DefaultNumericColumns lists the scalar audio features the classifier persists.
func DefaultNumericColumns() []string {
	return []string{
		"bpm", "spectral_centroid", "spectral_bandwidth", "spectral_rolloff",
		"spectral_contrast", "spectral_flatness", "rms",
		"atonal", "tonal", "dark", "bright", "percussive", "smooth",
		"happiness", "party", "aggressive", "danceability", "relaxed", "sad",
		"engagement", "approachability",
	}
}

// BlobColumn pairs a serialized probability-map column with the name of its label axis.
type BlobColumn struct {
	Column string `mapstructure:"column" yaml:"column" json:"column"`
	Axis   string `mapstructure:"axis" yaml:"axis" json:"axis"`
}

// DefaultBlobColumns returns the known probability-map columns.
func DefaultBlobColumns() []BlobColumn {
	return []BlobColumn{
		{Column: "features", Axis: "genre"},
		{Column: "instrument_features", Axis: "instrument"},
		{Column: "mood_features", Axis: "mood"},
		{Column: "style_features", Axis: "style"},
	}
}

// SlotLabel names the i-th ranked label column, e.g. tag3.
func SlotLabel(prefix string, i int) string { return fmt.Sprintf("%s%d", prefix, i) }

// SlotProb names the i-th ranked probability column, e.g. tag3_prob.
func SlotProb(prefix string, i int) string { return fmt.Sprintf("%s%d_prob", prefix, i) }

// SlotLabels returns prefix1..prefixN.
func SlotLabels(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, SlotLabel(prefix, i))
	}
	return out
}

// SlotProbs returns prefix1_prob..prefixN_prob.
func SlotProbs(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, SlotProb(prefix, i))
	}
	return out
}
