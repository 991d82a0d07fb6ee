// Package normalize flattens serialized label→probability maps and ranked
// slot columns into long-form (track_id, label, probability) records.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sourcegraph/conc/iter"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// Options controls blob decoding.
type Options struct {
	// Lenient discards any text before the first '{'.
	Lenient bool
	// Workers > 1 decodes tracks concurrently. Output order is unchanged.
	Workers int
}

// Result is the batch outcome for one blob column.
type Result struct {
	Axis     string
	Column   string
	Table    *track.Table
	Records  []track.LabelProb
	Warnings []track.Warning
	// Tracks counts tracks that contributed at least one record.
	Tracks int
}

// trackResult is the per-track outcome: records on success, warnings on
// track- or label-level failure. Both may be non-empty.
type trackResult struct {
	records  []track.LabelProb
	warnings []track.Warning
}

type blobInput struct {
	id  int64
	val track.Value
}

// Blobs decodes one blob per track. ids and values are parallel slices.
// A malformed track or entry is skipped with a warning; the batch never fails.
func Blobs(column, axis string, ids []int64, values []track.Value, opt Options) Result {
	in := make([]blobInput, len(values))
	for i := range values {
		var id int64
		if i < len(ids) {
			id = ids[i]
		}
		in[i] = blobInput{id: id, val: values[i]}
	}
	decode := func(b *blobInput) trackResult { return decodeTrack(column, b.id, b.val, opt.Lenient) }

	var results []trackResult
	if opt.Workers > 1 {
		results = iter.Mapper[blobInput, trackResult]{MaxGoroutines: opt.Workers}.Map(in, decode)
	} else {
		results = make([]trackResult, len(in))
		for i := range in {
			results[i] = decode(&in[i])
		}
	}

	res := Result{Axis: axis, Column: column}
	for _, r := range results {
		if len(r.records) > 0 {
			res.Tracks++
		}
		res.Records = append(res.Records, r.records...)
		res.Warnings = append(res.Warnings, r.warnings...)
	}
	res.Table = track.LongTable(axis, res.Records)
	return res
}

// Column normalizes a blob column of t. A column absent from the schema
// yields an empty result with its schema, not an error.
func Column(t *track.Table, bc track.BlobColumn, opt Options) (Result, bool) {
	vals, ok := t.Column(bc.Column)
	if !ok {
		return Result{Axis: bc.Axis, Column: bc.Column, Table: track.LongTable(bc.Axis, nil)}, false
	}
	return Blobs(bc.Column, bc.Axis, t.TrackIDs(), vals, opt), true
}

func decodeTrack(column string, id int64, v track.Value, lenient bool) trackResult {
	if v.IsNull() {
		return trackResult{}
	}
	warn := func(label, reason string) track.Warning {
		return track.Warning{TrackID: id, Stage: track.StageNormalize, Column: column, Label: label, Reason: reason}
	}
	raw, ok := v.Bytes()
	if !ok {
		return trackResult{warnings: []track.Warning{warn("", fmt.Sprintf("unexpected %s value", v.Kind))}}
	}
	if !utf8.Valid(raw) {
		return trackResult{warnings: []track.Warning{warn("", "blob is not valid UTF-8")}}
	}
	text := strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff"))
	if lenient {
		if i := strings.IndexByte(text, '{'); i > 0 {
			text = text[i:]
		}
	}
	if text == "" {
		return trackResult{warnings: []track.Warning{warn("", "blob is empty")}}
	}
	entries, err := decodeObject(text)
	if err != nil {
		return trackResult{warnings: []track.Warning{warn("", err.Error())}}
	}

	// A repeated key takes its last value at the first key's position.
	last := make(map[string]json.RawMessage, len(entries))
	for _, e := range entries {
		last[e.key] = e.raw
	}
	var out trackResult
	for _, e := range entries {
		raw, pending := last[e.key]
		if !pending {
			continue
		}
		delete(last, e.key)
		p, err := probability(raw)
		if err != nil {
			out.warnings = append(out.warnings, warn(e.key, err.Error()))
			continue
		}
		out.records = append(out.records, track.LabelProb{TrackID: id, Label: e.key, Probability: p})
	}
	return out
}

type entry struct {
	key string
	raw json.RawMessage
}

var errNotObject = errors.New("blob is not a JSON object")

// decodeObject walks one flat JSON object and keeps its keys in document order.
func decodeObject(text string) ([]entry, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}
	var entries []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode json: unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json: value for %q: %w", key, err)
		}
		entries = append(entries, entry{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json: trailing data after object")
	}
	return entries, nil
}

// probability accepts a JSON number or a string holding a number.
func probability(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, errors.New("empty value")
	}
	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("bad string value: %w", err)
		}
		s = strings.TrimSpace(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s = string(raw)
	default:
		return 0, fmt.Errorf("value %s is not numeric", truncate(string(raw), 32))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not numeric", truncate(s, 32))
	}
	return f, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
