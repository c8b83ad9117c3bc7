// Package evallog provides the run-scoped JSON log writer for evaluation
// results: two streaming JSON arrays (correct/incorrect), periodic flush,
// and a reader-side JSON repair for truncated logs. Grounded on the
// teacher's pkg/eventlog.Writer, generalized from a single rotating JSONL
// file to the run-scoped paired-array layout spec.md §4.5/§6 specifies.
package evallog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"memorybench/pkg/model"
)

func marshalEntry(entry EvaluationLogEntry) ([]byte, error) {
	return json.Marshal(entry)
}

// EvaluationLogEntry is the stable JSON contract for one logged result,
// consumed by the LogBased generator on replay.
type EvaluationLogEntry struct {
	ContextTestResult   model.ContextTestResult `json:"contextTestResult"`
	AnswerResult        model.AnswerResult      `json:"answerResult"`
	EvidenceType        string                  `json:"evidenceType"`
	MemorySystem        string                  `json:"memorySystem"`
	TestCaseGeneratorType string                `json:"testCaseGeneratorType"`
	ResponseTimeMs      int64                   `json:"responseTimeMs"`
}

const flushEvery = 10

// streamWriter appends JSON elements one at a time inside a "[" ... "]"
// wrapper, flushing to disk periodically.
type streamWriter struct {
	file        *os.File
	buf         *bufio.Writer
	count       int
	wroteFirst  bool
}

func newStreamWriter(path string) (*streamWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating log file %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString("["); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing opening bracket: %w", err)
	}
	return &streamWriter{file: f, buf: w}, nil
}

func (s *streamWriter) appendRaw(jsonObj []byte) error {
	if s.wroteFirst {
		if _, err := s.buf.WriteString(","); err != nil {
			return err
		}
	}
	s.wroteFirst = true
	if _, err := s.buf.Write(jsonObj); err != nil {
		return err
	}
	s.count++
	if s.count%flushEvery == 0 {
		return s.buf.Flush()
	}
	return nil
}

func (s *streamWriter) finalize() error {
	if err := s.buf.Flush(); err != nil {
		return err
	}
	if _, err := s.file.WriteString("]"); err != nil {
		return err
	}
	return s.file.Close()
}

// Logger is the process-wide evaluation result logger, with an explicit
// lifecycle: New -> InitializeRun -> LogResult... -> Finalize.
type Logger struct {
	baseDir string

	mu      sync.Mutex
	correct *streamWriter
	incorrect *streamWriter
	runDir  string

	correctCount   atomic.Int64
	incorrectCount atomic.Int64
}

// New creates a Logger rooted at baseDir (e.g. "logs/evaluations").
func New(baseDir string) *Logger {
	return &Logger{baseDir: baseDir}
}

// RunID is the local-time YYYY-MM-DD_HH-mm-ss identifier for one run.
func RunID(now time.Time) string {
	return now.Format("2006-01-02_15-04-05")
}

// InitializeRun opens a fresh run directory and both streaming JSON array
// files under {baseDir}/{caseType}/{memorySystem}/{sanitizedModel}/{evidenceCount}_evidence/{runId}/.
func (l *Logger) InitializeRun(caseType, memorySystem, modelName string, evidenceCount int, now time.Time) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	runID := RunID(now)
	dir := filepath.Join(l.baseDir, caseType, memorySystem, sanitize(modelName), fmt.Sprintf("%d_evidence", evidenceCount), runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log run directory: %w", err)
	}

	correct, err := newStreamWriter(filepath.Join(dir, "correct_responses.json"))
	if err != nil {
		return "", err
	}
	incorrect, err := newStreamWriter(filepath.Join(dir, "incorrect_responses.json"))
	if err != nil {
		correct.file.Close()
		return "", err
	}

	l.runDir = dir
	l.correct = correct
	l.incorrect = incorrect
	l.correctCount.Store(0)
	l.incorrectCount.Store(0)

	return runID, nil
}

// LogResult appends entry to the correct or incorrect array depending on
// its ContextTestResult.IsCorrect, flushing every 10 entries.
func (l *Logger) LogResult(entry EvaluationLogEntry) error {
	data, err := marshalEntry(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ContextTestResult.IsCorrect {
		l.correctCount.Add(1)
		return l.correct.appendRaw(data)
	}
	l.incorrectCount.Add(1)
	return l.incorrect.appendRaw(data)
}

// Flush forces both writers to disk without closing the arrays.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.correct != nil {
		if err := l.correct.buf.Flush(); err != nil {
			return err
		}
	}
	if l.incorrect != nil {
		if err := l.incorrect.buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeRun closes both JSON arrays, leaving them valid and parseable.
func (l *Logger) FinalizeRun() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.correct != nil {
		if err := l.correct.finalize(); err != nil {
			return fmt.Errorf("finalizing correct_responses.json: %w", err)
		}
	}
	if l.incorrect != nil {
		if err := l.incorrect.finalize(); err != nil {
			return fmt.Errorf("finalizing incorrect_responses.json: %w", err)
		}
	}
	return nil
}

// Counts returns the number of correct/incorrect entries logged this run.
func (l *Logger) Counts() (correct, incorrect int64) {
	return l.correctCount.Load(), l.incorrectCount.Load()
}

// RunDir returns the directory of the currently active run.
func (l *Logger) RunDir() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runDir
}

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
