package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"memorybench/pkg/model"
)

func TestParseJudgeResponseRightOnly(t *testing.T) {
	assert.Equal(t, judgeRight, parseJudgeResponse("The answer is RIGHT."))
}

func TestParseJudgeResponseWrongOnly(t *testing.T) {
	assert.Equal(t, judgeWrong, parseJudgeResponse("this is wrong"))
}

func TestParseJudgeResponseAmbiguousWhenBoth(t *testing.T) {
	assert.Equal(t, judgeAmbiguous, parseJudgeResponse("not right, actually wrong"))
}

func TestParseJudgeResponseAmbiguousWhenNeither(t *testing.T) {
	assert.Equal(t, judgeAmbiguous, parseJudgeResponse("unclear"))
}

func TestRetrievedRelevantCountIntersects(t *testing.T) {
	evidenceIDs := map[string]bool{"a": true, "b": true}
	count := retrievedRelevantCount([]string{"a", "c", "b"}, evidenceIDs)
	assert.Equal(t, 2, count)
}

func TestSplitByConversationCountLargeAndSmall(t *testing.T) {
	smallSize, largeSize := 5, 40
	cases := []model.TestCase{
		{ContextSize: &smallSize},
		{ContextSize: &largeSize},
	}
	large, small := splitByConversationCount(cases)
	assert.Len(t, large, 1)
	assert.Len(t, small, 1)
	assert.Equal(t, 40, large[0].ConversationCount())
	assert.Equal(t, 5, small[0].ConversationCount())
}

func TestEvidenceCountOfUsesFirstNonEmptyCase(t *testing.T) {
	cases := []model.TestCase{
		{},
		{EvidenceItems: []model.EvidenceItem{{}, {}}},
	}
	assert.Equal(t, 2, evidenceCountOf(cases))
}

func TestEvidenceCountOfDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, evidenceCountOf(nil))
}
