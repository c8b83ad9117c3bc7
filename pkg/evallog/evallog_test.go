package evallog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorybench/pkg/model"
)

func TestLoggerLifecycleProducesValidArrays(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir)

	runID, err := logger.InitializeRun("standard", "long_context", "claude-sonnet-4", 50, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02_03-04-05", runID)

	for i := 0; i < 15; i++ {
		correct := i%2 == 0
		err := logger.LogResult(EvaluationLogEntry{
			ContextTestResult: model.ContextTestResult{IsCorrect: correct, ContextSize: 50},
			ResponseTimeMs:    100,
		})
		require.NoError(t, err)
	}

	require.NoError(t, logger.FinalizeRun())

	runDir := logger.RunDir()
	correctData, err := os.ReadFile(filepath.Join(runDir, "correct_responses.json"))
	require.NoError(t, err)
	incorrectData, err := os.ReadFile(filepath.Join(runDir, "incorrect_responses.json"))
	require.NoError(t, err)

	var correctArr, incorrectArr []EvaluationLogEntry
	require.NoError(t, json.Unmarshal(correctData, &correctArr))
	require.NoError(t, json.Unmarshal(incorrectData, &incorrectArr))

	correctCount, incorrectCount := logger.Counts()
	assert.Equal(t, int64(len(correctArr)), correctCount)
	assert.Equal(t, int64(len(incorrectArr)), incorrectCount)
	assert.Equal(t, 15, len(correctArr)+len(incorrectArr))
}

func TestSanitizeModelName(t *testing.T) {
	assert.Equal(t, "claude_sonnet_4_20250514", sanitize("claude-sonnet-4-20250514"))
}
