// Package csvexport writes per-context-size stats snapshots to CSV,
// mirroring the directory layout evallog uses for its JSON arrays. The CSV
// format itself has no natural home in any pack dependency, so it is
// written with the standard library's encoding/csv; see DESIGN.md.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var header = []string{
	"context_size",
	"success_rate_percent",
	"correct_answers",
	"total_processed",
	"test_cases_completed",
	"total_test_cases",
	"avg_response_time_ms",
	"avg_input_tokens",
	"avg_output_tokens",
	"avg_cost",
	"p50_ms",
	"p90_ms",
	"p99_ms",
	"avg_cached_tokens",
	"cache_ratio_percent",
}

// Row is one context size's exported stats line.
type Row struct {
	ContextSize         int
	SuccessRatePercent  float64
	CorrectAnswers      int64
	TotalProcessed      int64
	TestCasesCompleted  int64
	TotalTestCases      int64
	AvgResponseTimeMs   float64
	AvgInputTokens      float64
	AvgOutputTokens     float64
	AvgCost             float64
	P50Ms               int64
	P90Ms               int64
	P99Ms               int64
	AvgCachedTokens     float64
	CacheRatioPercent   float64
}

func (r Row) toCSV() []string {
	return []string{
		strconv.Itoa(r.ContextSize),
		strconv.FormatFloat(r.SuccessRatePercent, 'f', 1, 64),
		strconv.FormatInt(r.CorrectAnswers, 10),
		strconv.FormatInt(r.TotalProcessed, 10),
		strconv.FormatInt(r.TestCasesCompleted, 10),
		strconv.FormatInt(r.TotalTestCases, 10),
		strconv.FormatInt(int64(r.AvgResponseTimeMs+0.5), 10),
		strconv.FormatInt(int64(r.AvgInputTokens+0.5), 10),
		strconv.FormatInt(int64(r.AvgOutputTokens+0.5), 10),
		strconv.FormatFloat(r.AvgCost, 'f', 4, 64),
		strconv.FormatInt(r.P50Ms, 10),
		strconv.FormatInt(r.P90Ms, 10),
		strconv.FormatInt(r.P99Ms, 10),
		strconv.FormatInt(int64(r.AvgCachedTokens+0.5), 10),
		strconv.FormatFloat(r.CacheRatioPercent, 'f', 1, 64),
	}
}

// sanitize replaces every character outside [A-Za-z0-9_] with '_'.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Path computes the CSV path for a given generator/system/model combo.
func Path(baseDir, generatorName, memorySystem, mainModel, helperModel string, evidenceCount int) string {
	parts := []string{baseDir, generatorName, memorySystem, sanitize(mainModel)}
	if helperModel != "" {
		parts = append(parts, fmt.Sprintf("helper_model_%s", sanitize(helperModel)))
	}
	parts = append(parts, fmt.Sprintf("%d_evidence.csv", evidenceCount))
	return filepath.Join(parts...)
}

// Export writes rows (sorted ascending by context size) to the CSV at path,
// overwriting any existing file. When isFinalExport is set, the same rows
// are also appended to a sibling ".history" file behind a timestamp and a
// checkpoint marker line.
func Export(baseDir, generatorName, memorySystem, mainModel, helperModel string, evidenceCount int, rows []Row, isFinalExport bool, now time.Time) error {
	sorted := append([]Row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ContextSize < sorted[j].ContextSize })

	path := Path(baseDir, generatorName, memorySystem, mainModel, helperModel, evidenceCount)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating csv directory: %w", err)
	}

	if err := writeCSV(path, sorted); err != nil {
		return err
	}

	if isFinalExport {
		if err := appendHistory(path+".history", sorted, now); err != nil {
			return err
		}
	}

	return nil
}

func writeCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.toCSV()); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// isoLocalDateTime formats t the way java.time.LocalDateTime.toString() does:
// no zone offset, seconds always present.
func isoLocalDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// vcsCheckpoint returns the current commit the history entry should be
// stamped with, falling back to "unknown" outside a git checkout.
func vcsCheckpoint() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// appendHistory appends one run to the sibling .history file: a blank
// line, the "=== Run at ... ===" marker, a "Git checkpoint: ..." line, a
// blank line, the CSV header, the rows, and a trailing blank line.
func appendHistory(path string, rows []Row, now time.Time) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "\n=== Run at %s ===\nGit checkpoint: %s\n\n", isoLocalDateTime(now), vcsCheckpoint()); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.toCSV()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	_, err = fmt.Fprintln(f)
	return err
}
