package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"memorybench/pkg/model"
)

func TestRecordEvidenceResultAggregatesCounters(t *testing.T) {
	tracker := NewTracker()
	size := 10
	tc := model.TestCase{ContextSize: &size}

	tokens := 100
	cost := 0.05
	tracker.RecordEvidenceResult(&tc, true, 150, &model.AnswerResult{InputTokens: &tokens, Cost: &cost})
	tracker.RecordEvidenceResult(&tc, false, 250, &model.AnswerResult{InputTokens: &tokens, Cost: &cost})

	assert.Equal(t, int64(2), tracker.TotalProcessed())
	assert.InDelta(t, 0.10, tracker.TotalCost(), 0.0001)

	sizes, snaps := tracker.contextSizesSorted()
	assert.Equal(t, []int{10}, sizes)
	assert.Equal(t, float64(50), snaps[10].successRate())
}

func TestCacheRatioClampedTo100(t *testing.T) {
	s := snapshot{inputTokens: []int64{10}, cachedTokens: []int64{50}}
	assert.Equal(t, float64(100), s.cacheRatio())
}

func TestPercentileNearestRank(t *testing.T) {
	series := []int64{10, 20, 30, 40, 50}
	assert.Equal(t, int64(30), percentile(series, 50))
	assert.Equal(t, int64(50), percentile(series, 99))
}

func TestMarkTestCaseCompleted(t *testing.T) {
	tracker := NewTracker()
	tracker.RegisterContextSize(10, 5)
	tracker.MarkTestCaseCompleted(10)
	tracker.MarkTestCaseCompleted(10)

	_, snaps := tracker.contextSizesSorted()
	assert.Equal(t, int64(2), snaps[10].completedTestCases)
	assert.Equal(t, int64(5), snaps[10].totalTestCases)
}
