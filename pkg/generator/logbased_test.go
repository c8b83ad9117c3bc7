package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorybench/pkg/evallog"
	"memorybench/pkg/model"
)

func entryFor(question string, contextSize int) evallog.EvaluationLogEntry {
	return evallog.EvaluationLogEntry{
		ContextTestResult: model.ContextTestResult{
			EvidenceItem: model.EvidenceItem{Question: question, Answer: "a"},
			ContextSize:  contextSize,
		},
	}
}

func TestLogBasedGenerateOneCasePerEntry(t *testing.T) {
	entries := []evallog.EvaluationLogEntry{
		entryFor("q1", 10),
		entryFor("q2", 20),
		entryFor("q3", 30),
	}

	gen := NewLogBased(entries)
	cases, err := gen.Generate()
	require.NoError(t, err)
	require.Len(t, cases, 3)

	for i, c := range cases {
		assert.Empty(t, c.Conversations)
		require.NotNil(t, c.ContextSize)
		assert.Equal(t, entries[i].ContextTestResult.ContextSize, *c.ContextSize)
		assert.Equal(t, entries[i].ContextTestResult.EvidenceItem.Question, c.EvidenceItems[0].Question)
	}
}

func TestLogBasedGenerateFailsOnDuplicateID(t *testing.T) {
	entries := []evallog.EvaluationLogEntry{
		entryFor("same question", 10),
		entryFor("same question", 10),
	}

	gen := NewLogBased(entries)
	_, err := gen.Generate()
	require.Error(t, err)

	var dupErr *DuplicateTestCaseIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Len(t, dupErr.Entries, 2)
	assert.Contains(t, dupErr.Error(), "same question")
}

func TestLogBasedGeneratorTypeLabels(t *testing.T) {
	gen := NewLogBased(nil)
	assert.Equal(t, "log_based", gen.GeneratorType())
	assert.Equal(t, "LogBasedTestCaseGenerator", gen.GeneratorClassType())
}
