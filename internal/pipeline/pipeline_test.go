package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/trackscope-cli/internal/store"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracks.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stmts := []string{
		`CREATE TABLE classified_tracks (id INTEGER PRIMARY KEY, bpm REAL, happiness REAL, aggressive REAL, "key" TEXT,
			tag1 TEXT, tag1_prob TEXT, tag2 TEXT, tag2_prob TEXT, features BLOB, instrument_features TEXT)`,
		`INSERT INTO classified_tracks VALUES (1, 120, 0.9, 0.1, 'C', 'rock', '0.7', 'pop', '0.2', '{"rock": 0.8, "jazz": 0.1}', '{"guitar": 0.6}')`,
		`INSERT INTO classified_tracks VALUES (2, 140, 0.2, 0.8, 'D', 'metal', 'abc', NULL, NULL, '{"rock": "high"}', 'not json')`,
		`INSERT INTO classified_tracks VALUES (3, NULL, 0.5, 0.4, 'C', 'rock', '0.9', '', '0.3', NULL, NULL)`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.Close()
	return path
}

func TestRunBuildsReport(t *testing.T) {
	path := writeFixture(t)
	core, logs := observer.New(zapcore.InfoLevel)
	rep, err := Run(context.Background(), DefaultOptions(path), zap.New(core))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.RunID == "" || rep.Tracks != 3 || rep.Table != "classified_tracks" {
		t.Fatalf("overview = %q/%d/%q", rep.RunID, rep.Tracks, rep.Table)
	}

	bpm, ok := rep.Numeric.Stats("bpm")
	if !ok || bpm.Count != 2 || bpm.Mean != 130 {
		t.Fatalf("bpm stats = %#v", bpm)
	}
	if p, ok := rep.Numeric.Stats("tag1_prob"); !ok || p.Count != 2 || p.Missing != 1 {
		t.Fatalf("tag1_prob stats = %#v (ok=%v)", p, ok)
	}
	if !rep.Correlation.Computed {
		t.Fatalf("correlation not computed: %s", rep.Correlation.Reason)
	}

	if len(rep.Tags) != 2 || rep.Tags[0].Title != "key" || rep.Tags[1].Title != "tags" {
		t.Fatalf("tag tables = %#v", rep.Tags)
	}
	if top := rep.Tags[1].Values[0]; top.Value != "rock" || top.Count != 2 {
		t.Fatalf("top tag = %#v", top)
	}

	if len(rep.LongForm) != 3 {
		t.Fatalf("long form = %#v", rep.LongForm)
	}
	slots, genre, inst := rep.LongForm[0], rep.LongForm[1], rep.LongForm[2]
	if slots.Axis != "tag" || slots.Records != 3 || slots.Tracks != 2 {
		t.Fatalf("slot summary = %#v", slots)
	}
	if genre.Axis != "genre" || genre.Records != 2 || genre.Tracks != 1 || genre.Warnings != 1 {
		t.Fatalf("genre summary = %#v", genre)
	}
	if inst.Axis != "instrument" || inst.Records != 1 || inst.Warnings != 1 {
		t.Fatalf("instrument summary = %#v", inst)
	}

	for _, ft := range rep.Categorical {
		if ft.Title == "features" || ft.Title == "instrument_features" || ft.Title == "tag1_prob" {
			t.Fatalf("unexpected categorical column %q", ft.Title)
		}
	}
	if len(rep.Warnings) != 3 {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}
	if n := logs.FilterMessage("record skipped").Len(); n != 3 {
		t.Fatalf("logged %d warnings, want 3", n)
	}

	joined := strings.Join(rep.Insights, "\n")
	if !strings.Contains(joined, "BPM ranges from 120.00 to 140.00, with a mean of 130.00.") {
		t.Fatalf("insights = %s", joined)
	}
	if !strings.Contains(joined, "'happiness' and 'aggressive' are negatively correlated") {
		t.Fatalf("insights = %s", joined)
	}
	notes := strings.Join(rep.Notes, "\n")
	if !strings.Contains(notes, "column mood_features not found") {
		t.Fatalf("notes = %s", notes)
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	path := writeFixture(t)
	seq, err := Run(context.Background(), DefaultOptions(path), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	opt := DefaultOptions(path)
	opt.Normalize.Workers = 4
	par, err := Run(context.Background(), opt, nil)
	if err != nil {
		t.Fatalf("Run parallel: %v", err)
	}
	if len(seq.Warnings) != len(par.Warnings) {
		t.Fatalf("warnings differ: %d vs %d", len(seq.Warnings), len(par.Warnings))
	}
	for i := range seq.Warnings {
		if seq.Warnings[i] != par.Warnings[i] {
			t.Fatalf("warning %d differs: %v vs %v", i, seq.Warnings[i], par.Warnings[i])
		}
	}
}

func TestRunUnavailableSource(t *testing.T) {
	_, err := Run(context.Background(), DefaultOptions(filepath.Join(t.TempDir(), "missing.db")), nil)
	if !errors.Is(err, store.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestRunDescribesUnparseableSlotColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, s := range []string{
		`CREATE TABLE classified_tracks (id INTEGER PRIMARY KEY, bpm REAL, happiness REAL, tag1 TEXT, tag1_prob TEXT)`,
		`INSERT INTO classified_tracks VALUES (1, 120, NULL, 'rock', 'bad')`,
		`INSERT INTO classified_tracks VALUES (2, 128, NULL, 'pop', NULL)`,
	} {
		if err := db.Exec(s).Error; err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.Close()

	rep, err := Run(context.Background(), DefaultOptions(path), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, col := range []string{"happiness", "tag1_prob"} {
		s, ok := rep.Numeric.Stats(col)
		if !ok {
			t.Fatalf("%s missing from numeric description", col)
		}
		if s.Count != 0 || s.Missing != 2 {
			t.Fatalf("%s stats = %#v", col, s)
		}
	}
	if !rep.Correlation.Computed {
		t.Fatalf("correlation not computed: %s", rep.Correlation.Reason)
	}
	if _, ok := rep.Correlation.Matrix.At("tag1_prob", "bpm"); !ok {
		t.Fatalf("tag1_prob missing from correlation columns %v", rep.Correlation.Matrix.Columns)
	}
	if !strings.Contains(rep.Markdown(), "- tag1_prob: count 0 (missing 2), no statistics") {
		t.Fatalf("markdown:\n%s", rep.Markdown())
	}
}
