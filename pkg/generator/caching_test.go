package generator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorybench/pkg/model"
)

func sampleCases() []model.TestCase {
	size := 10
	return []model.TestCase{
		{
			EvidenceItems: []model.EvidenceItem{{Question: "q1", Answer: "a1", Category: "cat"}},
			Conversations: []model.Conversation{
				{ID: "c1", Messages: []model.Message{{Speaker: model.SpeakerUser, Text: "hi"}}},
			},
			ContextSize: &size,
		},
		{
			EvidenceItems: []model.EvidenceItem{{Question: "q2", Answer: "a2", Category: "cat"}},
			Conversations: nil,
		},
	}
}

// TestCacheFileRoundTrip exercises writeCacheFile/readCacheFile directly,
// the streaming invariant spec.md §8 calls out: test cases written to a
// cache file and read back are structurally equal to the originals.
func TestCacheFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	original := sampleCases()

	require.NoError(t, writeCacheFile(path, original))

	readBack, err := readCacheFile(path)
	require.NoError(t, err)
	require.Len(t, readBack, len(original))
	for i := range original {
		assert.Equal(t, original[i].EvidenceItems, readBack[i].EvidenceItems)
		assert.Equal(t, original[i].Conversations, readBack[i].Conversations)
		assert.Equal(t, original[i].ContextSize, readBack[i].ContextSize)
		assert.Equal(t, original[i].ID(), readBack[i].ID())
	}
}

type stubGenerator struct {
	cases []model.TestCase
	calls int
}

func (s *stubGenerator) GeneratorType() string      { return "stub" }
func (s *stubGenerator) GeneratorClassType() string { return "StubTestCaseGenerator" }
func (s *stubGenerator) Generate() ([]model.TestCase, error) {
	s.calls++
	return s.cases, nil
}

func TestCachingGenerateWritesThenReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	inner := &stubGenerator{cases: sampleCases()}

	cachingGen := NewCaching(inner, path, false, nil)

	first, err := cachingGen.Generate()
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Len(t, first, 2)

	second, err := cachingGen.Generate()
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second Generate should read from the cache file instead of calling Inner again")
	assert.Equal(t, first[0].ID(), second[0].ID())
}

func TestCachingOverwriteBypassesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	inner := &stubGenerator{cases: sampleCases()}

	cachingGen := NewCaching(inner, path, true, nil)

	_, err := cachingGen.Generate()
	require.NoError(t, err)
	_, err = cachingGen.Generate()
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "Overwrite should skip the cache read on every call")
}
