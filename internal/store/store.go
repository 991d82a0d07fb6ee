package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// ErrSourceUnavailable marks every load failure: missing file, unreadable
// store, missing table. Loads are all-or-nothing.
var ErrSourceUnavailable = errors.New("source unavailable")

// DefaultTimeout bounds a single load when Source.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Source describes where the Track Record table lives.
type Source struct {
	// Path to a SQLite database, or to a .csv/.tsv export.
	Path string
	// Table to read from a SQLite database. Ignored for CSV.
	Table string
	// Timeout bounds the read; 0 means DefaultTimeout.
	Timeout time.Duration
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads the whole table described by src. On any failure the
// returned error wraps ErrSourceUnavailable and no table is returned.
func Load(ctx context.Context, src Source) (*track.Table, error) {
	if strings.TrimSpace(src.Path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrSourceUnavailable)
	}
	info, err := os.Stat(src.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceUnavailable, src.Path)
	}
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".csv", ".tsv":
		return loadCSV(ctx, src.Path)
	}
	table := src.Table
	if table == "" {
		table = track.DefaultTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", ErrSourceUnavailable, table)
	}
	return loadSQLite(ctx, src.Path, table)
}

// assignIDs picks the storage row key: an integer id/track_id column when
// every row has one, otherwise the row ordinal.
func assignIDs(columns []string, rows []track.Row) {
	for _, name := range []string{"id", track.TrackIDColumn} {
		j := -1
		for i, c := range columns {
			if strings.EqualFold(c, name) {
				j = i
				break
			}
		}
		if j < 0 {
			continue
		}
		ids := make([]int64, len(rows))
		ok := true
		for i, r := range rows {
			if r.Values[j].Kind != track.Int {
				ok = false
				break
			}
			n, _ := r.Values[j].Number()
			ids[i] = int64(n)
		}
		if ok {
			for i := range rows {
				rows[i].TrackID = ids[i]
			}
			return
		}
	}
	for i := range rows {
		rows[i].TrackID = int64(i)
	}
}
