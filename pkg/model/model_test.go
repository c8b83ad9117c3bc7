package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationEnsureID(t *testing.T) {
	c := Conversation{Messages: []Message{{Speaker: SpeakerUser, Text: "hi"}}}
	require.Empty(t, c.ID)
	c.EnsureID()
	assert.NotEmpty(t, c.ID)
}

func TestTestCaseConversationCount(t *testing.T) {
	size := 10
	tc := TestCase{ContextSize: &size, Conversations: make([]Conversation, 3)}
	assert.Equal(t, 10, tc.ConversationCount())

	tc2 := TestCase{Conversations: make([]Conversation, 4)}
	assert.Equal(t, 4, tc2.ConversationCount())
}

func TestTestCaseIDStableAndUnique(t *testing.T) {
	e1 := EvidenceItem{Question: "q1", Answer: "a1", Category: "cat"}
	e2 := EvidenceItem{Question: "q2", Answer: "a2", Category: "cat"}

	size := 5
	tcA := TestCase{EvidenceItems: []EvidenceItem{e1}, ContextSize: &size}
	tcB := TestCase{EvidenceItems: []EvidenceItem{e2}, ContextSize: &size}

	assert.NotEqual(t, tcA.ID(), tcB.ID())
	assert.Equal(t, tcA.ID(), tcA.ID())
}

func TestEvidenceConversationsFlattened(t *testing.T) {
	conv1 := NewConversation("", []Message{{Speaker: SpeakerUser, Text: "a"}}, true)
	conv2 := NewConversation("", []Message{{Speaker: SpeakerUser, Text: "b"}}, true)

	tc := TestCase{EvidenceItems: []EvidenceItem{
		{Conversations: []Conversation{conv1}},
		{Conversations: []Conversation{conv2}},
	}}

	got := tc.EvidenceConversations()
	assert.Len(t, got, 2)
	assert.Equal(t, conv1.ID, got[0].ID)
	assert.Equal(t, conv2.ID, got[1].ID)

	ids := tc.EvidenceConversationIDs()
	assert.True(t, ids[conv1.ID])
	assert.True(t, ids[conv2.ID])
}
