package answerer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"memorybench/pkg/llm"
	"memorybench/pkg/model"
)

const (
	defaultBlockSize        = 10
	defaultBlockWorkers     = 100
	noInfoSentinel          = "no information relevant"
	maxSentinelEditDistance = 5
)

const blockExtractPromptTemplate = `Below is a block of conversations. Extract any information relevant to the question; otherwise reply exactly with "no information relevant".

BLOCK:
%s

Question: %s
Relevant information:`

const blockFinalAnswerPromptTemplate = `You are answering a question using notes extracted from a long conversation history, one note per relevant block.

NOTES:
%s

Question: %s
Answer concisely using only the notes above. If none of the notes answer the question, say you don't know.
Answer:`

var alnumPattern = regexp.MustCompile(`[^a-z0-9]`)

// canonicalize lower-cases and strips non-alphanumeric characters so the
// sentinel fuzzy match is robust to punctuation/casing drift.
func canonicalize(s string) string {
	return alnumPattern.ReplaceAllString(strings.ToLower(s), "")
}

// isSentinel reports whether text is within maxSentinelEditDistance of the
// canonical "no information relevant" sentinel.
func isSentinel(text string) bool {
	dist := levenshtein.Distance(canonicalize(text), canonicalize(noInfoSentinel), nil)
	return dist <= maxSentinelEditDistance
}

// BlockBased partitions ingested conversations into fixed-size blocks,
// extracts per-block relevance via a helper model in parallel, aggregates
// the non-empty extractions, and generates the final answer with the main
// model. Implements spec.md §4.3 exactly, including its token/cost rollup
// rules.
type BlockBased struct {
	main          llm.Completer
	helper        llm.Completer
	blockSize     int
	workerLimit   int64
	conversations []model.Conversation
}

// NewBlockBased builds a BlockBased answerer. blockSize and workerLimit fall
// back to defaultBlockSize/defaultBlockWorkers when <= 0.
func NewBlockBased(mainModel, helperModel llm.Completer, blockSize, workerLimit int) *BlockBased {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	if workerLimit <= 0 {
		workerLimit = defaultBlockWorkers
	}
	return &BlockBased{
		main:        mainModel,
		helper:      helperModel,
		blockSize:   blockSize,
		workerLimit: int64(workerLimit),
	}
}

func (a *BlockBased) Initialize(_ context.Context) error { return nil }

func (a *BlockBased) AddConversations(_ context.Context, conversations []model.Conversation) error {
	a.conversations = append(a.conversations, conversations...)
	return nil
}

func (a *BlockBased) blocks() [][]model.Conversation {
	var blocks [][]model.Conversation
	for i := 0; i < len(a.conversations); i += a.blockSize {
		end := i + a.blockSize
		if end > len(a.conversations) {
			end = len(a.conversations)
		}
		blocks = append(blocks, a.conversations[i:end])
	}
	return blocks
}

type blockExtraction struct {
	index        int
	text         string
	convIDs      []string
	outputTokens int
	cost         float64
}

func (a *BlockBased) AnswerQuestion(ctx context.Context, question, _ string) (model.AnswerResult, error) {
	blocks := a.blocks()
	extractions := make([]blockExtraction, len(blocks))

	sem := semaphore.NewWeighted(a.workerLimit)
	group, gctx := errgroup.WithContext(ctx)

	for i, block := range blocks {
		i, block := i, block
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			prompt := fmt.Sprintf(blockExtractPromptTemplate, buildTranscript(block), question)
			text, usage, cost, err := a.helper.Complete(gctx, prompt)
			if err != nil {
				return fmt.Errorf("block %d extraction: %w", i, err)
			}

			ids := make([]string, 0, len(block))
			for _, c := range block {
				ids = append(ids, c.ID)
			}

			extractions[i] = blockExtraction{
				index:        i,
				text:         strings.TrimSpace(text),
				convIDs:      ids,
				outputTokens: usage.OutputTokens,
				cost:         cost,
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return model.AnswerResult{}, fmt.Errorf("block extraction: %w", err)
	}

	var notes []string
	var retrievedIDs []string
	totalOutputTokens := 0
	totalCost := 0.0
	var responses []string

	for _, ext := range extractions {
		totalOutputTokens += ext.outputTokens
		totalCost += ext.cost
		responses = append(responses, ext.text)
		if ext.text != "" && !isSentinel(ext.text) {
			notes = append(notes, ext.text)
			retrievedIDs = append(retrievedIDs, ext.convIDs...)
		}
	}

	finalPrompt := fmt.Sprintf(blockFinalAnswerPromptTemplate, strings.Join(notes, "\n---\n"), question)
	finalText, finalUsage, finalCost, err := a.main.Complete(ctx, finalPrompt)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("block_based final answer: %w", err)
	}

	answer := strings.TrimSpace(finalText)
	totalOutputTokens += finalUsage.OutputTokens
	totalCost += finalCost

	inputTokens := finalUsage.InputTokens
	cachedTokens := finalUsage.CachedInputTokens

	return model.AnswerResult{
		Answer:                   &answer,
		RetrievedConversationIDs: retrievedIDs,
		InputTokens:              &inputTokens,
		OutputTokens:             &totalOutputTokens,
		CachedInputTokens:        &cachedTokens,
		Cost:                     &totalCost,
		MemorySystemResponses:    responses,
	}, nil
}

func (a *BlockBased) Cleanup(_ context.Context) error {
	a.conversations = nil
	return nil
}

func (a *BlockBased) MemoryType() string { return string(KindBlockBased) }
