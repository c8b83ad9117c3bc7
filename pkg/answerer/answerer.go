// Package answerer defines the MemoryAnswerer capability set and the
// factory that selects a concrete strategy implementation. Each answerer
// instance is single-use: created for one test case, then cleaned up.
package answerer

import (
	"context"
	"fmt"

	"memorybench/pkg/llm"
	"memorybench/pkg/model"
)

// Kind names a memory-answerer strategy.
type Kind string

const (
	KindLongContext     Kind = "long_context"
	KindMem0            Kind = "mem0"
	KindBlockBased      Kind = "block_based"
	KindExtractedContext Kind = "extracted_context"
	KindCachedLog       Kind = "cached_log"
)

// MemoryAnswerer ingests conversations and answers a question about them.
// A single instance must not be used concurrently and must not outlive one
// test case.
type MemoryAnswerer interface {
	Initialize(ctx context.Context) error
	AddConversations(ctx context.Context, conversations []model.Conversation) error
	AnswerQuestion(ctx context.Context, question, testCaseID string) (model.AnswerResult, error)
	Cleanup(ctx context.Context) error
	MemoryType() string
}

// Factory builds MemoryAnswerer instances by kind, supplying a default
// helper model when a helper-requiring kind doesn't get one explicitly.
type Factory struct {
	DefaultHelperModel llm.Completer
}

// Create builds a fresh answerer for kind, using mainModel for the final
// answer and helperModel (or the factory default) for any intermediate
// extraction step.
func (f *Factory) Create(kind Kind, mainModel, helperModel llm.Completer) (MemoryAnswerer, error) {
	switch kind {
	case KindLongContext:
		if mainModel == nil {
			return nil, fmt.Errorf("long_context answerer requires a main model")
		}
		return NewLongContext(mainModel), nil
	case KindBlockBased:
		if mainModel == nil {
			return nil, fmt.Errorf("block_based answerer requires a main model")
		}
		h := helperModel
		if h == nil {
			h = f.DefaultHelperModel
		}
		if h == nil {
			return nil, fmt.Errorf("block_based answerer requires a helper model")
		}
		return NewBlockBased(mainModel, h, 0, 0), nil
	case KindExtractedContext:
		if mainModel == nil {
			return nil, fmt.Errorf("extracted_context answerer requires a main model")
		}
		h := helperModel
		if h == nil {
			h = f.DefaultHelperModel
		}
		if h == nil {
			return nil, fmt.Errorf("extracted_context answerer requires a helper model")
		}
		return newExtractedContext(mainModel, h), nil
	case KindMem0:
		if mainModel == nil {
			return nil, fmt.Errorf("mem0 answerer requires a main model")
		}
		return newMem0(mainModel), nil
	case KindCachedLog:
		return newCachedLog(), nil
	default:
		return nil, fmt.Errorf("unknown memory answerer kind %q", kind)
	}
}
