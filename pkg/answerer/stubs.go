package answerer

import (
	"context"
	"fmt"
	"strings"

	"memorybench/pkg/llm"
	"memorybench/pkg/model"
)

// mem0 and extracted_context are black-box strategies per spec.md §1: their
// internal memory-system algorithms are out of scope. These implementations
// satisfy the interface with a working, minimal strategy so the evaluator
// has something real to drive and to test failure/cleanup paths against.

// mem0Answerer keeps one record per message, the facts a remote memory
// service would otherwise retrieve; here they're ingested directly from
// conversation text as a structurally complete stand-in for that service.
type mem0Answerer struct {
	main    llm.Completer
	records []string
	convIDs []string
}

func newMem0(mainModel llm.Completer) *mem0Answerer {
	return &mem0Answerer{main: mainModel}
}

func (a *mem0Answerer) Initialize(_ context.Context) error { return nil }

func (a *mem0Answerer) AddConversations(_ context.Context, conversations []model.Conversation) error {
	for _, c := range conversations {
		a.convIDs = append(a.convIDs, c.ID)
		for _, m := range c.Messages {
			a.records = append(a.records, fmt.Sprintf("%s: %s", m.Speaker, m.Text))
		}
	}
	return nil
}

func (a *mem0Answerer) AnswerQuestion(ctx context.Context, question, _ string) (model.AnswerResult, error) {
	prompt := fmt.Sprintf("Memories:\n%s\n\nQuestion: %s\nAnswer concisely using only the memories above.\nAnswer:",
		strings.Join(a.records, "\n"), question)

	text, usage, cost, err := a.main.Complete(ctx, prompt)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("mem0 answer: %w", err)
	}
	answer := strings.TrimSpace(text)
	in, out, cached := usage.InputTokens, usage.OutputTokens, usage.CachedInputTokens
	return model.AnswerResult{
		Answer:                   &answer,
		RetrievedConversationIDs: a.convIDs,
		InputTokens:              &in,
		OutputTokens:             &out,
		CachedInputTokens:        &cached,
		Cost:                     &cost,
	}, nil
}

func (a *mem0Answerer) Cleanup(_ context.Context) error {
	a.records = nil
	a.convIDs = nil
	return nil
}

func (a *mem0Answerer) MemoryType() string { return string(KindMem0) }

// extractedContext asks the helper model to extract salient facts up front
// (once, not per-block) and asks the main model to answer from those facts;
// structurally distinct from block_based (no block partitioning) but still
// a two-model pipeline, per spec.md's factory requirement that it needs a
// helper model.
type extractedContextAnswerer struct {
	main          llm.Completer
	helper        llm.Completer
	conversations []model.Conversation
}

func newExtractedContext(mainModel, helperModel llm.Completer) *extractedContextAnswerer {
	return &extractedContextAnswerer{main: mainModel, helper: helperModel}
}

func (a *extractedContextAnswerer) Initialize(_ context.Context) error { return nil }

func (a *extractedContextAnswerer) AddConversations(_ context.Context, conversations []model.Conversation) error {
	a.conversations = append(a.conversations, conversations...)
	return nil
}

func (a *extractedContextAnswerer) AnswerQuestion(ctx context.Context, question, _ string) (model.AnswerResult, error) {
	extractPrompt := fmt.Sprintf("Extract facts relevant to answering \"%s\" from this transcript:\n%s",
		question, buildTranscript(a.conversations))

	extracted, helperUsage, helperCost, err := a.helper.Complete(ctx, extractPrompt)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("extracted_context extraction: %w", err)
	}

	finalPrompt := fmt.Sprintf("Facts:\n%s\n\nQuestion: %s\nAnswer:", extracted, question)
	text, mainUsage, mainCost, err := a.main.Complete(ctx, finalPrompt)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("extracted_context final answer: %w", err)
	}

	answer := strings.TrimSpace(text)
	ids := make([]string, 0, len(a.conversations))
	for _, c := range a.conversations {
		ids = append(ids, c.ID)
	}

	inputTokens := mainUsage.InputTokens
	outputTokens := helperUsage.OutputTokens + mainUsage.OutputTokens
	cachedTokens := mainUsage.CachedInputTokens
	cost := helperCost + mainCost

	return model.AnswerResult{
		Answer:                   &answer,
		RetrievedConversationIDs: ids,
		InputTokens:              &inputTokens,
		OutputTokens:             &outputTokens,
		CachedInputTokens:        &cachedTokens,
		Cost:                     &cost,
		MemorySystemResponses:    []string{extracted},
	}, nil
}

func (a *extractedContextAnswerer) Cleanup(_ context.Context) error {
	a.conversations = nil
	return nil
}

func (a *extractedContextAnswerer) MemoryType() string { return string(KindExtractedContext) }

// cachedLog replays an answer already recorded in a prior run's log, used
// when re-judging logged results without re-querying any memory system.
type cachedLogAnswerer struct {
	conversations []model.Conversation
	// Preloaded is the answer to replay. Neither Factory.Create nor the
	// evaluator sets it, so an answerer built through the factory has
	// nothing to replay and AnswerQuestion returns an error.
	Preloaded *model.AnswerResult
}

func newCachedLog() *cachedLogAnswerer {
	return &cachedLogAnswerer{}
}

func (a *cachedLogAnswerer) Initialize(_ context.Context) error { return nil }

func (a *cachedLogAnswerer) AddConversations(_ context.Context, conversations []model.Conversation) error {
	a.conversations = append(a.conversations, conversations...)
	return nil
}

func (a *cachedLogAnswerer) AnswerQuestion(_ context.Context, _, _ string) (model.AnswerResult, error) {
	if a.Preloaded == nil {
		return model.AnswerResult{}, fmt.Errorf("cached_log answerer has no preloaded answer to replay")
	}
	return *a.Preloaded, nil
}

func (a *cachedLogAnswerer) Cleanup(_ context.Context) error {
	a.conversations = nil
	a.Preloaded = nil
	return nil
}

func (a *cachedLogAnswerer) MemoryType() string { return string(KindCachedLog) }
