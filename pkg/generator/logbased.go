package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"memorybench/pkg/evallog"
	"memorybench/pkg/model"
)

// LogBased rehydrates test cases from a previous run's log entries: one
// case per entry, with empty conversations and contextSize taken from the
// entry. It fails fatally on any test-case id collision, since re-judge
// replay must never silently lose entries.
type LogBased struct {
	Entries []evallog.EvaluationLogEntry
}

// DuplicateTestCaseIDError is fatal: it names every colliding entry's
// question, context size, and evidence hash to aid diagnosis.
type DuplicateTestCaseIDError struct {
	ID      string
	Entries []evallog.EvaluationLogEntry
}

func (e *DuplicateTestCaseIDError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "duplicate test case id %q across %d log entries:\n", e.ID, len(e.Entries))
	for _, entry := range e.Entries {
		fmt.Fprintf(&b, "  question=%q context=%d evidenceHash=%s\n",
			entry.ContextTestResult.EvidenceItem.Question,
			entry.ContextTestResult.ContextSize,
			entry.ContextTestResult.EvidenceItem.Hash())
	}
	return b.String()
}

// LoadLogEntries reads every element from both correct_responses.json and
// incorrect_responses.json under runDir, repairing a truncated file first.
func LoadLogEntries(runDir string) ([]evallog.EvaluationLogEntry, error) {
	var all []evallog.EvaluationLogEntry

	for _, name := range []string{"correct_responses.json", "incorrect_responses.json"} {
		path := runDir + string(os.PathSeparator) + name
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		content := string(data)
		if !json.Valid(data) {
			repaired, repairErr := evallog.Repair(content)
			if repairErr != nil {
				return nil, fmt.Errorf("JSON repair failed for %s: %w", path, repairErr)
			}
			content = repaired
		}

		var entries []evallog.EvaluationLogEntry
		if err := json.Unmarshal([]byte(content), &entries); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		all = append(all, entries...)
	}

	return all, nil
}

// NewLogBased builds a LogBased generator over previously-logged entries.
func NewLogBased(entries []evallog.EvaluationLogEntry) *LogBased {
	return &LogBased{Entries: entries}
}

func (l *LogBased) GeneratorType() string      { return "log_based" }
func (l *LogBased) GeneratorClassType() string { return "LogBasedTestCaseGenerator" }

// Generate builds one TestCase per entry, detecting id collisions fatally.
func (l *LogBased) Generate() ([]model.TestCase, error) {
	byID := make(map[string][]evallog.EvaluationLogEntry)
	order := make([]string, 0, len(l.Entries))

	cases := make([]model.TestCase, 0, len(l.Entries))

	for _, entry := range l.Entries {
		size := entry.ContextTestResult.ContextSize
		tc := model.TestCase{
			EvidenceItems: []model.EvidenceItem{entry.ContextTestResult.EvidenceItem},
			Conversations: nil,
			ContextSize:   &size,
		}
		id := tc.ID()

		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = append(byID[id], entry)

		cases = append(cases, tc)
	}

	sort.Strings(order)
	for _, id := range order {
		if len(byID[id]) > 1 {
			return nil, &DuplicateTestCaseIDError{ID: id, Entries: byID[id]}
		}
	}

	return cases, nil
}
