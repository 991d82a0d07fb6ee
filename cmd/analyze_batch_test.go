package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_OutDirAvoidsCollisions(t *testing.T) {
	home := isolateHome(t)

	// Two databases with the same basename in different directories
	writeTracksDB(t, filepath.Join(home, "d1"))
	writeTracksDB(t, filepath.Join(home, "d2"))
	outDir := filepath.Join(home, "summaries")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "tracks.db"), "--out-dir", outDir)
	if !strings.Contains(out, "[1/2] Processing tracks.db...") || !strings.Contains(out, "[2/2] Processing tracks.db...") {
		t.Fatalf("missing progress lines:\n%s", out)
	}
	if !strings.Contains(out, "writing to tracks.analysis_summary__2.md") {
		t.Fatalf("missing collision notice:\n%s", out)
	}

	b1 := filepath.Join(outDir, "tracks.analysis_summary.md")
	b2 := filepath.Join(outDir, "tracks.analysis_summary__2.md")
	for _, p := range []string{b1, b2} {
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing summary %s: %v", p, err)
		}
		if !strings.Contains(string(body), "[DATASET SUMMARY]") {
			t.Fatalf("summary %s has no dataset section", p)
		}
	}
}

func TestAnalyzeBatch_ContinuesPastBadSource(t *testing.T) {
	home := isolateHome(t)
	good := writeTracksDB(t, filepath.Join(home, "good"))
	bad := filepath.Join(home, "bad.db")
	if err := os.WriteFile(bad, []byte(strings.Repeat("not a database ", 64)), 0o644); err != nil {
		t.Fatalf("write bad: %v", err)
	}
	outDir := filepath.Join(home, "out")

	out, err := execCmd(t, "analyze-batch", bad, good, "--out-dir", outDir)
	if err == nil {
		t.Fatalf("expected combined error for the bad source")
	}
	if !strings.Contains(out, "✗ Skipped bad.db") {
		t.Fatalf("missing skip notice:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "tracks.analysis_summary.md")); err != nil {
		t.Fatalf("good source not written: %v", err)
	}
}

func TestAnalyzeBatch_NoMatches(t *testing.T) {
	home := isolateHome(t)
	if _, err := execCmd(t, "analyze-batch", filepath.Join(home, "*.db"), "--quiet"); err == nil {
		t.Fatalf("expected no-match error")
	}
}
