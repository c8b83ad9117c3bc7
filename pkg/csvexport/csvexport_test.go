package csvexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSanitizesAndOmitsHelperWhenEmpty(t *testing.T) {
	path := Path("logs/csv", "standard", "long_context", "claude-sonnet-4", "", 50)
	assert.Equal(t, filepath.Join("logs/csv", "standard", "long_context", "claude_sonnet_4", "50_evidence.csv"), path)
}

func TestPathIncludesHelperModelSegment(t *testing.T) {
	path := Path("logs/csv", "batched", "block_based", "claude-opus-4", "claude-haiku-3", 100)
	assert.Equal(t, filepath.Join("logs/csv", "batched", "block_based", "claude_opus_4", "helper_model_claude_haiku_3", "100_evidence.csv"), path)
}

func TestExportWritesHeaderAndRowsSortedByContextSize(t *testing.T) {
	dir := t.TempDir()
	rows := []Row{
		{ContextSize: 30, SuccessRatePercent: 80.5, CorrectAnswers: 8, TotalProcessed: 10},
		{ContextSize: 10, SuccessRatePercent: 90.0, CorrectAnswers: 9, TotalProcessed: 10},
	}

	require.NoError(t, Export(dir, "standard", "long_context", "claude-sonnet-4", "", 50, rows, false, time.Now()))

	path := Path(dir, "standard", "long_context", "claude-sonnet-4", "", 50)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "context_size,success_rate_percent")
	idx10 := indexOf(content, "10,90.0")
	idx30 := indexOf(content, "30,80.5")
	require.GreaterOrEqual(t, idx10, 0)
	require.GreaterOrEqual(t, idx30, 0)
	assert.Less(t, idx10, idx30)

	_, err = os.Stat(path + ".history")
	assert.True(t, os.IsNotExist(err))
}

func TestExportFinalAppendsHistoryWithCheckpoint(t *testing.T) {
	dir := t.TempDir()
	rows := []Row{{ContextSize: 10, SuccessRatePercent: 90.0}}

	require.NoError(t, Export(dir, "standard", "long_context", "claude-sonnet-4", "", 50, rows, true, time.Now()))

	path := Path(dir, "standard", "long_context", "claude-sonnet-4", "", 50)
	historyData, err := os.ReadFile(path + ".history")
	require.NoError(t, err)

	content := string(historyData)
	assert.Contains(t, content, "=== Run at ")
	assert.Contains(t, content, "Git checkpoint: ")
	assert.Contains(t, content, "context_size,success_rate_percent")
	assert.True(t, strings.HasPrefix(content, "\n"), "history entry should start with a blank line")
	assert.True(t, strings.HasSuffix(content, "\n\n"), "history entry should end with a blank line")
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
