package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"memorybench/pkg/model"
)

func recordNWithCost(t *testing.T, tracker *Tracker, contextSize int, n int, correct bool, cost float64) {
	t.Helper()
	size := contextSize
	tc := model.TestCase{ContextSize: &size}
	for i := 0; i < n; i++ {
		c := cost
		tracker.RecordEvidenceResult(&tc, correct, 100, &model.AnswerResult{Cost: &c})
	}
}

func TestShouldTerminateEarlyCostCap(t *testing.T) {
	tracker := NewTracker()
	recordNWithCost(t, tracker, 10, 20, true, 16.0)

	assert.InDelta(t, 320.0, tracker.TotalCost(), 0.001)

	shouldStop, reason := tracker.ShouldTerminateEarly()
	assert.True(t, shouldStop)
	assert.Equal(t, ReasonCostCap, reason)
}

func TestShouldTerminateEarlyNoRuleFiresOnFreshTracker(t *testing.T) {
	tracker := NewTracker()
	shouldStop, reason := tracker.ShouldTerminateEarly()
	assert.False(t, shouldStop)
	assert.Equal(t, ReasonNone, reason)
}

func TestShouldTerminateEarlyCostCapBoundaryNotTriggering(t *testing.T) {
	tracker := NewTracker()
	// Exactly $300 total cost must not trigger C4 (strict ">" required); a
	// single context size with a high cost may still trip a later rule.
	recordNWithCost(t, tracker, 10, 30, true, 10.0)
	assert.InDelta(t, 300.0, tracker.TotalCost(), 0.001)

	_, reason := tracker.ShouldTerminateEarly()
	assert.NotEqual(t, ReasonCostCap, reason)
}

func TestViolationCountCountsStrictIncreases(t *testing.T) {
	assert.Equal(t, 0, violationCount([]float64{90, 80, 70}))
	assert.Equal(t, 1, violationCount([]float64{90, 80, 85}))
	assert.Equal(t, 2, violationCount([]float64{50, 60, 40, 70}))
}

func TestDilutionDetectedRequiresFiveProportionalPointGap(t *testing.T) {
	assert.True(t, dilutionDetected([]float64{90, 85, 50, 40}))
	assert.False(t, dilutionDetected([]float64{90, 85, 88, 84}))
}
