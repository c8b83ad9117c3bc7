// Package generator produces lists of TestCases per spec.md §4.1: Standard,
// Batched, Stitching, Caching, and LogBased variants, all satisfying a
// common TestCaseGenerator interface.
package generator

import (
	"memorybench/pkg/model"
)

// TestCaseGenerator produces lists of TestCases. Generate is idempotent
// within a process and may be expensive on first call; every produced
// TestCase has a unique ID.
type TestCaseGenerator interface {
	Generate() ([]model.TestCase, error)
	GeneratorType() string
	GeneratorClassType() string
}

// EvidenceGenerator is the out-of-scope collaborator that synthesizes new
// evidence items; named here only so Standard/Batched can be parameterized
// by it when regenerating (rather than replaying) test cases.
type EvidenceGenerator interface {
	EvidenceItems() []model.EvidenceItem
}

// staticEvidenceGenerator adapts a plain slice to EvidenceGenerator.
type staticEvidenceGenerator struct {
	items []model.EvidenceItem
}

// NewStaticEvidenceGenerator wraps a precomputed evidence slice.
func NewStaticEvidenceGenerator(items []model.EvidenceItem) EvidenceGenerator {
	return &staticEvidenceGenerator{items: items}
}

func (s *staticEvidenceGenerator) EvidenceItems() []model.EvidenceItem {
	return s.items
}

// InsufficientFillerWarning is a non-fatal diagnostic emitted when a
// person's available filler is smaller than needed for a test case.
type InsufficientFillerWarning struct {
	PersonID string
	Needed   int
	Have     int
}

func (w InsufficientFillerWarning) Error() string {
	return "insufficient filler for person"
}

// AnsweringEvaluation renders the judge prompt used to score one answer.
// Out-of-scope scoring-rubric design lives with whichever generator
// produced the evidence; this package only names the seam and supplies a
// reasonable default.
type AnsweringEvaluation interface {
	JudgePromptTemplate(question, correctAnswer, modelAnswer string, evidenceMessages []model.Message) string
}

// JudgeTemplateProvider is implemented by generators that supply their own
// AnsweringEvaluation instead of the package default.
type JudgeTemplateProvider interface {
	AnsweringEvaluation() AnsweringEvaluation
}

type defaultAnsweringEvaluation struct{}

// DefaultAnsweringEvaluation is used whenever a generator does not
// implement JudgeTemplateProvider.
var DefaultAnsweringEvaluation AnsweringEvaluation = defaultAnsweringEvaluation{}

func (defaultAnsweringEvaluation) JudgePromptTemplate(question, correctAnswer, modelAnswer string, evidenceMessages []model.Message) string {
	var evidence string
	for _, m := range evidenceMessages {
		evidence += string(m.Speaker) + ": " + m.Text + "\n"
	}
	return "You are judging whether a model's answer to a question matches the correct answer.\n\n" +
		"Evidence:\n" + evidence + "\n" +
		"Question: " + question + "\n" +
		"Correct answer: " + correctAnswer + "\n" +
		"Model answer: " + modelAnswer + "\n\n" +
		"Reply with exactly one word: RIGHT if the model answer is correct, WRONG if it is not."
}

// AnsweringEvaluationFor resolves the judge template to use for a
// generator, falling back to DefaultAnsweringEvaluation.
func AnsweringEvaluationFor(gen TestCaseGenerator) AnsweringEvaluation {
	if provider, ok := gen.(JudgeTemplateProvider); ok {
		return provider.AnsweringEvaluation()
	}
	return DefaultAnsweringEvaluation
}
