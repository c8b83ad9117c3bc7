package answerer

import (
	"context"
	"fmt"
	"strings"

	"memorybench/pkg/llm"
	"memorybench/pkg/model"
)

const longContextPromptTemplate = `You are an intelligent memory assistant tasked with retrieving accurate information from a conversation transcript.

The transcript below contains a sequence of conversations between a user and an assistant, in chronological order. Some conversations are relevant to the question; most are not.

TRANSCRIPT:
%s

Question: %s
Answer concisely using only information present in the transcript. If the answer cannot be found, reply with "no information relevant".
Answer:`

// LongContext answers by inlining the full transcript into a single prompt,
// grounded on the trpc-agent-go benchmark's long_context evaluator: the
// entire conversation history is concatenated once and handed to the main
// model alongside the question.
type LongContext struct {
	main          llm.Completer
	conversations []model.Conversation
}

// NewLongContext builds a LongContext answerer driven by mainModel.
func NewLongContext(mainModel llm.Completer) *LongContext {
	return &LongContext{main: mainModel}
}

func (a *LongContext) Initialize(_ context.Context) error { return nil }

func (a *LongContext) AddConversations(_ context.Context, conversations []model.Conversation) error {
	a.conversations = append(a.conversations, conversations...)
	return nil
}

func (a *LongContext) AnswerQuestion(ctx context.Context, question, _ string) (model.AnswerResult, error) {
	transcript := buildTranscript(a.conversations)
	prompt := fmt.Sprintf(longContextPromptTemplate, transcript, question)

	text, usage, cost, err := a.main.Complete(ctx, prompt)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("long_context answer: %w", err)
	}

	answer := strings.TrimSpace(text)
	ids := make([]string, 0, len(a.conversations))
	for _, c := range a.conversations {
		ids = append(ids, c.ID)
	}

	in, out, cached := usage.InputTokens, usage.OutputTokens, usage.CachedInputTokens
	return model.AnswerResult{
		Answer:                    &answer,
		RetrievedConversationIDs:  ids,
		InputTokens:               &in,
		OutputTokens:              &out,
		CachedInputTokens:         &cached,
		Cost:                      &cost,
	}, nil
}

func (a *LongContext) Cleanup(_ context.Context) error {
	a.conversations = nil
	return nil
}

func (a *LongContext) MemoryType() string { return string(KindLongContext) }

// buildTranscript renders conversations in order as "Speaker: text" lines,
// one conversation block per entry.
func buildTranscript(conversations []model.Conversation) string {
	var b strings.Builder
	for i := range conversations {
		c := &conversations[i]
		if i > 0 {
			b.WriteString("\n")
		}
		for _, m := range c.Messages {
			fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
