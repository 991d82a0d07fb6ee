package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// loadCSV reads a flat export of the track table. Cells are typed as
// Int, then Float, then Text; empty cells are Null.
func loadCSV(ctx context.Context, path string) (*track.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open csv: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = sniffDelimiter(path)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s has no header", ErrSourceUnavailable, filepath.Base(path))
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrSourceUnavailable, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []track.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read row %d: %v", ErrSourceUnavailable, len(rows)+1, err)
		}
		vals := make([]track.Value, len(columns))
		for j := range columns {
			if j < len(rec) {
				vals[j] = inferCell(rec[j])
			}
		}
		rows = append(rows, track.Row{Values: vals})
	}
	assignIDs(columns, rows)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := track.NewTable(name, columns, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return t, nil
}

func inferCell(raw string) track.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return track.NullValue()
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return track.IntValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return track.FloatValue(f)
	}
	return track.TextValue(raw)
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
