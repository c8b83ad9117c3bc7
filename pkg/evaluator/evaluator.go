// Package evaluator drives test cases through memory answerers and a judge
// model, feeding results into stats tracking and the evaluation logger.
// Grounded on the teacher's pkg/dispatch worker fan-in pattern, generalized
// from a single WaitGroup pool to the dual large/small errgroup+semaphore
// pools spec.md's concurrency model requires.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"memorybench/pkg/answerer"
	"memorybench/pkg/generator"
	"memorybench/pkg/llm"
	"memorybench/pkg/logx"
	"memorybench/pkg/model"
)

// runShortMaxCases bounds generation when Evaluator.RunShort is set.
const runShortMaxCases = 5

// runShortThreads bounds worker pools when Evaluator.RunShort is set.
const runShortThreads = 10

// numBatches is the fixed batch count the top-level driver partitions into.
const numBatches = 30

// largePoolThreshold is the conversation-count boundary between the small
// and large worker pools.
const largePoolThreshold = 30

// Evaluator is the facade binding a generator, answerer factory, models,
// and concurrency settings into one runnable evaluation.
type Evaluator struct {
	Generator       generator.TestCaseGenerator
	Factory         *answerer.Factory
	AnswererKind    answerer.Kind
	MainModel       llm.Completer
	HelperModel     llm.Completer
	JudgeModel      llm.Completer
	TestCaseThreads int
	RunShort        bool

	LogBaseDir string
	CSVBaseDir string

	StatsFlushInterval time.Duration
	CSVSnapshotInterval time.Duration
}

// RunEvaluation generates test cases and delegates to MultithreadedEvaluator.
func (e *Evaluator) RunEvaluation(ctx context.Context) error {
	logger := logx.NewLogger("evaluator")

	cases, err := e.Generator.Generate()
	if err != nil {
		return fmt.Errorf("generating test cases: %w", err)
	}

	threads := e.TestCaseThreads
	if threads <= 0 {
		threads = 20
	}
	if e.RunShort {
		if len(cases) > runShortMaxCases {
			cases = cases[:runShortMaxCases]
		}
		threads = runShortThreads
	}

	if len(cases) == 0 {
		logger.Info("no test cases to evaluate, exiting")
		return nil
	}

	me := &MultithreadedEvaluator{
		Factory:         e.Factory,
		AnswererKind:    e.AnswererKind,
		MainModel:       e.MainModel,
		HelperModel:     e.HelperModel,
		JudgeModel:      e.JudgeModel,
		TestCaseThreads: threads,
		Generator:       e.Generator,

		LogBaseDir: e.LogBaseDir,
		CSVBaseDir: e.CSVBaseDir,

		StatsFlushInterval:  orDefault(e.StatsFlushInterval, 30*time.Second),
		CSVSnapshotInterval: orDefault(e.CSVSnapshotInterval, 5*time.Minute),
	}

	return me.Run(ctx, cases)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// generatorName derives the CSV/log path component from a generator's
// class type: lowercase, strip "generator" and spaces.
func generatorName(gen generator.TestCaseGenerator) string {
	name := strings.ToLower(gen.GeneratorClassType())
	name = strings.ReplaceAll(name, "generator", "")
	name = strings.ReplaceAll(name, " ", "")
	if name == "" {
		return gen.GeneratorType()
	}
	return name
}

// evidenceCountOf picks a representative evidence-count for path naming:
// the number of evidence items in the first test case that has any, or 1 if
// none does.
func evidenceCountOf(cases []model.TestCase) int {
	for _, tc := range cases {
		if n := len(tc.EvidenceItems); n > 0 {
			return n
		}
	}
	return 1
}

// judgeVerdict is the outcome of parsing a judge model response.
type judgeVerdict int

const (
	judgeAmbiguous judgeVerdict = iota
	judgeRight
	judgeWrong
)

// parseJudgeResponse implements the case-insensitive substring rule: only
// "right" -> correct, only "wrong" -> incorrect, both or neither -> ambiguous.
func parseJudgeResponse(response string) judgeVerdict {
	lower := strings.ToLower(response)
	hasRight := strings.Contains(lower, "right")
	hasWrong := strings.Contains(lower, "wrong")

	switch {
	case hasRight && !hasWrong:
		return judgeRight
	case hasWrong && !hasRight:
		return judgeWrong
	default:
		return judgeAmbiguous
	}
}

// retrievedRelevantCount computes |retrievedIds ∩ evidenceConversationIds|.
func retrievedRelevantCount(retrievedIDs []string, evidenceIDs map[string]bool) int {
	count := 0
	for _, id := range retrievedIDs {
		if evidenceIDs[id] {
			count++
		}
	}
	return count
}
