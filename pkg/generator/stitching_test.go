package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorybench/pkg/model"
)

func TestSplitContextSizesPartitionsAtThreshold(t *testing.T) {
	small, large := SplitContextSizes([]int{5, 50, 10, 30, 100}, 30)
	assert.Equal(t, []int{5, 10}, small)
	assert.Equal(t, []int{30, 50, 100}, large)
}

func TestStitchingGenerateUnionsSmallAndLarge(t *testing.T) {
	smallSize, largeSize := 10, 50
	smallGen := &stubGenerator{cases: []model.TestCase{
		{EvidenceItems: []model.EvidenceItem{{Question: "q-small", Answer: "a"}}, ContextSize: &smallSize},
	}}
	largeGen := &stubGenerator{cases: []model.TestCase{
		{EvidenceItems: []model.EvidenceItem{{Question: "q-large", Answer: "a"}}, ContextSize: &largeSize},
	}}

	st := NewStitching(30, smallGen, largeGen)
	assert.Equal(t, "stitching", st.GeneratorType())
	assert.Equal(t, "StitchingTestCaseGenerator", st.GeneratorClassType())

	cases, err := st.Generate()
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, 1, smallGen.calls)
	assert.Equal(t, 1, largeGen.calls)
	assert.Equal(t, "q-small", cases[0].EvidenceItems[0].Question)
	assert.Equal(t, "q-large", cases[1].EvidenceItems[0].Question)
}

func TestStitchingGenerateTolerantOfNilSide(t *testing.T) {
	onlySize := 5
	onlyGen := &stubGenerator{cases: []model.TestCase{
		{EvidenceItems: []model.EvidenceItem{{Question: "q", Answer: "a"}}, ContextSize: &onlySize},
	}}

	st := NewStitching(30, onlyGen, nil)
	cases, err := st.Generate()
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}
