// Package verify provides an optional pre-use check, run while regenerating
// test cases, that a question is answerable given its evidence conversations
// and unanswerable without them. Built on the llm.Completer contract:
// verification is just two extra blocking calls
// against the same model abstraction the answerers use.
package verify

import (
	"context"
	"fmt"
	"strings"

	"memorybench/pkg/llm"
	"memorybench/pkg/model"
)

// Verdict is the outcome of verifying a single evidence item.
type Verdict struct {
	AnswerableWithEvidence    bool
	UnanswerableWithoutEvidence bool
}

// Passed reports whether the evidence item is well-formed: the question
// must be answerable with its evidence, and unanswerable without it.
func (v Verdict) Passed() bool {
	return v.AnswerableWithEvidence && v.UnanswerableWithoutEvidence
}

// FilteringVerification checks a single EvidenceItem against a judge-style
// completer: once with only the evidence conversations as context, once
// with none at all.
type FilteringVerification struct {
	Completer llm.Completer
}

// NewFilteringVerification builds a verifier bound to a completer.
func NewFilteringVerification(completer llm.Completer) *FilteringVerification {
	return &FilteringVerification{Completer: completer}
}

// Verify runs both checks and returns the combined Verdict.
func (f *FilteringVerification) Verify(ctx context.Context, item model.EvidenceItem) (Verdict, error) {
	withEvidence, _, _, err := f.Completer.Complete(ctx, withEvidencePrompt(item))
	if err != nil {
		return Verdict{}, fmt.Errorf("verifying answerability with evidence: %w", err)
	}

	withoutEvidence, _, _, err := f.Completer.Complete(ctx, withoutEvidencePrompt(item))
	if err != nil {
		return Verdict{}, fmt.Errorf("verifying unanswerability without evidence: %w", err)
	}

	return Verdict{
		AnswerableWithEvidence:      containsYes(withEvidence),
		UnanswerableWithoutEvidence: containsNo(withoutEvidence),
	}, nil
}

func withEvidencePrompt(item model.EvidenceItem) string {
	var b strings.Builder
	b.WriteString("Given only the following conversation evidence, can the question below be answered correctly? Reply with YES or NO and nothing else.\n\n")
	for _, c := range item.Conversations {
		for _, m := range c.Messages {
			fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Text)
		}
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", item.Question)
	return b.String()
}

func withoutEvidencePrompt(item model.EvidenceItem) string {
	return fmt.Sprintf("Without any conversation history, can the following question be answered correctly from general knowledge alone? Reply with YES or NO and nothing else.\n\nQuestion: %s\n", item.Question)
}

func containsYes(text string) bool {
	return strings.Contains(strings.ToLower(text), "yes")
}

func containsNo(text string) bool {
	return strings.Contains(strings.ToLower(text), "no")
}

// VerificationExecutor runs a FilteringVerification over a batch of
// evidence items, partitioning them into passed and rejected.
type VerificationExecutor struct {
	Verifier *FilteringVerification
}

// NewVerificationExecutor builds an executor bound to a verifier.
func NewVerificationExecutor(verifier *FilteringVerification) *VerificationExecutor {
	return &VerificationExecutor{Verifier: verifier}
}

// Run verifies every item sequentially (verification happens once, at
// generation time, not on the evaluation hot path, so it does not need its
// own worker pool) and returns the items that passed.
func (e *VerificationExecutor) Run(ctx context.Context, items []model.EvidenceItem) ([]model.EvidenceItem, []model.EvidenceItem, error) {
	var passed, rejected []model.EvidenceItem

	for _, item := range items {
		verdict, err := e.Verifier.Verify(ctx, item)
		if err != nil {
			return nil, nil, fmt.Errorf("verifying evidence item %q: %w", item.Question, err)
		}
		if verdict.Passed() {
			passed = append(passed, item)
		} else {
			rejected = append(rejected, item)
		}
	}

	return passed, rejected, nil
}
