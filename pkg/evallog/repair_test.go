package evallog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairTruncatedMidObject(t *testing.T) {
	input := `[{"a":1},{"b":2},{"c":`
	repaired, err := Repair(input)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1},{"b":2}]`, repaired)

	var out []map[string]int
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	assert.Len(t, out, 2)
}

func TestRepairWellFormedPassesThrough(t *testing.T) {
	input := `[{"a":1},{"b":2}]`
	repaired, err := Repair(input)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(repaired)))
}

func TestRepairNoCompleteObjectFails(t *testing.T) {
	_, err := Repair(`[{"a":`)
	assert.Error(t, err)
}

func TestRepairRejectsNonArray(t *testing.T) {
	_, err := Repair(`{"a":1}`)
	assert.Error(t, err)
}

func TestRepairHandlesEscapedQuotesAndNestedBraces(t *testing.T) {
	input := `[{"a":"va\"l","nested":{"x":1}},{"b":2},{"c":`
	repaired, err := Repair(input)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	assert.Len(t, out, 2)
}
