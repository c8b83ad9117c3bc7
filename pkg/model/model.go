// Package model defines the in-memory records that flow through a memorybench
// evaluation run: messages, conversations, evidence items, test cases and the
// results produced while scoring them.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Speaker identifies who produced a Message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Message is an immutable utterance within a Conversation.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Conversation is an ordered sequence of Messages. Identity is stable across
// runs; a Conversation loaded without an ID is assigned a fresh one.
type Conversation struct {
	ID               string    `json:"id"`
	Messages         []Message `json:"messages"`
	ContainsEvidence bool      `json:"contains_evidence,omitempty"`
}

// NewConversation builds a Conversation, filling in a fresh ID if none is given.
func NewConversation(id string, messages []Message, containsEvidence bool) Conversation {
	if id == "" {
		id = uuid.NewString()
	}
	return Conversation{ID: id, Messages: messages, ContainsEvidence: containsEvidence}
}

// EnsureID fills a missing ID with a fresh unique value, mutating in place.
func (c *Conversation) EnsureID() {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
}

// EvidenceItem is a (question, answer) unit whose conversations suffice to
// answer the question.
type EvidenceItem struct {
	Question         string         `json:"question"`
	Answer           string         `json:"answer"`
	MessageEvidences []Message      `json:"message_evidences"`
	Conversations    []Conversation `json:"conversations"`
	Category         string         `json:"category"`
	Scenario         *string        `json:"scenario,omitempty"`
	PersonID         *string        `json:"person_id,omitempty"`
}

// Hash returns a stable content hash used for deduplication and test case IDs.
func (e *EvidenceItem) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s|a=%s|cat=%s", e.Question, e.Answer, e.Category)
	if e.Scenario != nil {
		fmt.Fprintf(h, "|scn=%s", *e.Scenario)
	}
	if e.PersonID != nil {
		fmt.Fprintf(h, "|person=%s", *e.PersonID)
	}
	for i := range e.MessageEvidences {
		m := &e.MessageEvidences[i]
		fmt.Fprintf(h, "|m%d=%s:%s", i, m.Speaker, m.Text)
	}
	for i := range e.Conversations {
		fmt.Fprintf(h, "|c%d=%s", i, e.Conversations[i].ID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// hashEvidenceItems produces a single stable hash over a list of evidence
// items, order-independent so dedup-then-reorder doesn't change the id.
func hashEvidenceItems(items []EvidenceItem) string {
	hashes := make([]string, len(items))
	for i := range items {
		hashes[i] = items[i].Hash()
	}
	sort.Strings(hashes)
	h := sha256.New()
	h.Write([]byte(strings.Join(hashes, ",")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// TestCase pairs one or more evidence items with a conversation list diluted
// (or not) to a target context size.
type TestCase struct {
	EvidenceItems []EvidenceItem `json:"evidence_items"`
	Conversations []Conversation `json:"conversations"`
	ContextSize   *int           `json:"context_size,omitempty"`
}

// ConversationCount returns the target context size if set, else the actual
// number of conversations attached to the case.
func (t *TestCase) ConversationCount() int {
	if t.ContextSize != nil {
		return *t.ContextSize
	}
	return len(t.Conversations)
}

// ID returns the stable identity of this test case: hash(evidenceItems) + "_ctx" + conversationCount.
func (t *TestCase) ID() string {
	return fmt.Sprintf("%s_ctx%d", hashEvidenceItems(t.EvidenceItems), t.ConversationCount())
}

// EvidenceConversations returns every evidence conversation contained in any
// evidence item, in the order they were attached (flattened across items).
func (t *TestCase) EvidenceConversations() []Conversation {
	var out []Conversation
	for i := range t.EvidenceItems {
		out = append(out, t.EvidenceItems[i].Conversations...)
	}
	return out
}

// EvidenceConversationIDs returns the set of conversation IDs considered
// evidence for this test case.
func (t *TestCase) EvidenceConversationIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, c := range t.EvidenceConversations() {
		ids[c.ID] = true
	}
	return ids
}

// ContextType distinguishes how a case reached a given conversation count.
type ContextType string

const (
	ContextTypeStandard  ContextType = "standard"
	ContextTypeBatched   ContextType = "batched"
	ContextTypeLogBased  ContextType = "log_based"
)

// ContextTestResult is produced once per (testCase, evidenceItem) pair.
type ContextTestResult struct {
	EvidenceItem                  EvidenceItem `json:"evidence_item"`
	ContextType                   ContextType  `json:"context_type"`
	ContextSize                   int          `json:"context_size"`
	ModelAnswer                   string       `json:"model_answer"`
	IsCorrect                     bool         `json:"is_correct"`
	RetrievedRelevantConversations int         `json:"retrieved_relevant_conversations"`
}

// AnswerResult is the output of a MemoryAnswerer.AnswerQuestion call.
type AnswerResult struct {
	Answer                  *string        `json:"answer,omitempty"`
	RetrievedConversationIDs []string      `json:"retrieved_conversation_ids"`
	InputTokens              *int          `json:"input_tokens,omitempty"`
	OutputTokens             *int          `json:"output_tokens,omitempty"`
	CachedInputTokens        *int          `json:"cached_input_tokens,omitempty"`
	Cost                     *float64      `json:"cost,omitempty"`
	MemorySystemResponses    []string      `json:"memory_system_responses,omitempty"`
}

// MarshalStable renders a TestCase deterministically; used by the caching
// generator's streaming writer.
func (t *TestCase) MarshalStable() ([]byte, error) {
	return json.Marshal(t)
}
