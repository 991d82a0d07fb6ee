package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// RankedSlots builds the long form from prefixI / prefixI_prob column
// pairs. A record is emitted only when the label is non-empty text and the
// probability is numeric; the two fields are not cross-validated otherwise.
// Run coercion first so that text probabilities are already numeric.
func RankedSlots(t *track.Table, prefix string, n int) Result {
	ids := t.TrackIDs()
	axis := prefix
	res := Result{Axis: axis, Column: prefix + "1.." + prefix + fmt.Sprint(n)}
	contributed := make(map[int]bool)
	for i := 1; i <= n; i++ {
		labels, okL := t.Column(track.SlotLabel(prefix, i))
		probs, okP := t.Column(track.SlotProb(prefix, i))
		if !okL || !okP {
			continue
		}
		for row := range labels {
			label, ok := labels[row].Text()
			label = strings.TrimSpace(label)
			if !ok || label == "" {
				continue
			}
			p, ok := probs[row].Number()
			if !ok {
				continue
			}
			res.Records = append(res.Records, track.LabelProb{TrackID: ids[row], Label: label, Probability: p})
			contributed[row] = true
		}
	}
	res.Tracks = len(contributed)
	res.Table = track.LongTable(axis, res.Records)
	return res
}

// Encode serializes one track's records back into a flat JSON object,
// keeping record order. Records from other tracks are rejected.
func Encode(records []track.LabelProb) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, r := range records {
		if r.TrackID != records[0].TrackID {
			return nil, fmt.Errorf("encode: mixed track ids %d and %d", records[0].TrackID, r.TrackID)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(r.Label)
		if err != nil {
			return nil, fmt.Errorf("encode label: %w", err)
		}
		v, err := json.Marshal(r.Probability)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", r.Label, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
