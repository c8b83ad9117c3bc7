package verify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorybench/pkg/llm"
	"memorybench/pkg/model"
)

type scriptedCompleter struct {
	responses []string
	calls     int
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, llm.TokenUsage, float64, error) {
	resp := s.responses[s.calls]
	s.calls++
	_ = prompt
	return resp, llm.TokenUsage{}, 0, nil
}

func (s *scriptedCompleter) ModelName() string { return "scripted" }

func evidenceItem() model.EvidenceItem {
	return model.EvidenceItem{
		Question: "What is the user's favorite color?",
		Answer:   "blue",
		Conversations: []model.Conversation{
			{ID: "c1", Messages: []model.Message{{Speaker: model.SpeakerUser, Text: "My favorite color is blue."}}},
		},
	}
}

func TestFilteringVerificationPassesWellFormedItem(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"YES", "NO"}}
	verifier := NewFilteringVerification(completer)

	verdict, err := verifier.Verify(context.Background(), evidenceItem())
	require.NoError(t, err)
	assert.True(t, verdict.Passed())
}

func TestFilteringVerificationFailsWhenAnswerableWithoutEvidence(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"YES", "YES"}}
	verifier := NewFilteringVerification(completer)

	verdict, err := verifier.Verify(context.Background(), evidenceItem())
	require.NoError(t, err)
	assert.False(t, verdict.Passed())
	assert.True(t, verdict.AnswerableWithEvidence)
	assert.False(t, verdict.UnanswerableWithoutEvidence)
}

func TestVerificationExecutorPartitionsPassedAndRejected(t *testing.T) {
	good := evidenceItem()
	bad := evidenceItem()
	bad.Question = "What is 2 + 2?"

	// good item: YES (answerable with evidence), NO (unanswerable without) -> pass.
	// bad item: YES, YES (answerable even without evidence) -> rejected.
	completer := &fakeSequencedCompleter{responses: []string{"YES", "NO", "YES", "YES"}}

	executor := NewVerificationExecutor(NewFilteringVerification(completer))
	passed, rejected, err := executor.Run(context.Background(), []model.EvidenceItem{good, bad})
	require.NoError(t, err)
	assert.Len(t, passed, 1)
	assert.Len(t, rejected, 1)
	assert.Equal(t, good.Question, passed[0].Question)
	assert.Equal(t, bad.Question, rejected[0].Question)
}

type fakeSequencedCompleter struct {
	responses []string
	calls     int
}

func (f *fakeSequencedCompleter) Complete(_ context.Context, prompt string) (string, llm.TokenUsage, float64, error) {
	resp := f.responses[f.calls]
	f.calls++
	_ = strings.TrimSpace(prompt)
	return resp, llm.TokenUsage{}, 0, nil
}

func (f *fakeSequencedCompleter) ModelName() string { return "sequenced" }
