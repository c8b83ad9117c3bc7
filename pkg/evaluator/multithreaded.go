package evaluator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"memorybench/pkg/answerer"
	"memorybench/pkg/batch"
	"memorybench/pkg/csvexport"
	"memorybench/pkg/evallog"
	"memorybench/pkg/generator"
	"memorybench/pkg/llm"
	"memorybench/pkg/logx"
	"memorybench/pkg/model"
	"memorybench/pkg/stats"
)

const judgeRetryAttempts = 3

// MultithreadedEvaluator is the top-level driver: it partitions test cases
// into balanced batches, fans each batch out across two worker pools split
// by conversation count, scores answers with a judge model, and feeds
// every result into stats tracking and the evaluation logger.
type MultithreadedEvaluator struct {
	Factory         *answerer.Factory
	AnswererKind    answerer.Kind
	MainModel       llm.Completer
	HelperModel     llm.Completer
	JudgeModel      llm.Completer
	TestCaseThreads int
	Generator       generator.TestCaseGenerator

	LogBaseDir string
	CSVBaseDir string

	StatsFlushInterval  time.Duration
	CSVSnapshotInterval time.Duration
}

// Run executes the full batch-by-batch evaluation loop over cases.
func (m *MultithreadedEvaluator) Run(ctx context.Context, cases []model.TestCase) error {
	logger := logx.NewLogger("evaluator")

	if len(cases) == 0 {
		logger.Info("no test cases to evaluate, exiting")
		return nil
	}

	caseType := generatorName(m.Generator)
	memorySystem := string(m.AnswererKind)
	mainModelName := m.MainModel.ModelName()
	helperModelName := ""
	if m.HelperModel != nil {
		helperModelName = m.HelperModel.ModelName()
	}
	evidenceCount := evidenceCountOf(cases)

	evalLog := evallog.New(m.LogBaseDir)
	if _, err := evalLog.InitializeRun(caseType, memorySystem, mainModelName, evidenceCount, time.Now()); err != nil {
		return fmt.Errorf("initializing evaluation log: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // batching order, not cryptographic
	batches, err := batch.CreateBalancedBatches(cases, numBatches, rng)
	if err != nil {
		return fmt.Errorf("partitioning batches: %w", err)
	}

	tracker := stats.NewTracker()
	registerContextSizes(tracker, cases)
	judgeTemplate := generator.AnsweringEvaluationFor(m.Generator)

	statsDone := make(chan struct{})
	go m.runPeriodicFlush(tracker, statsDone)

	csvDone := make(chan struct{})
	go m.runPeriodicCSVSnapshot(tracker, caseType, memorySystem, mainModelName, helperModelName, evidenceCount, csvDone)

	terminated := false
	var terminationReason stats.TerminationReason

	for _, b := range batches {
		if len(b) == 0 {
			continue
		}
		large, small := splitByConversationCount(b)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return m.evaluatePool(gctx, large, tracker, evalLog, judgeTemplate)
		})
		g.Go(func() error {
			return m.evaluatePool(gctx, small, tracker, evalLog, judgeTemplate)
		})
		if err := g.Wait(); err != nil {
			logger.Warn("batch evaluation error: %v", err)
		}

		if stop, reason := tracker.ShouldTerminateEarly(); stop {
			terminated = true
			terminationReason = reason
			break
		}
	}

	close(statsDone)
	close(csvDone)

	if err := csvexport.Export(m.CSVBaseDir, caseType, memorySystem, mainModelName, helperModelName, evidenceCount, tracker.ExportRows(), true, time.Now()); err != nil {
		logger.Warn("final csv export failed: %v", err)
	}

	if err := evalLog.FinalizeRun(); err != nil {
		logger.Warn("finalizing evaluation log failed: %v", err)
	}

	if terminated {
		logger.Info("early termination: %s", terminationReason)
	}
	logger.Info("%s", tracker.GetStatsString())

	return nil
}

func registerContextSizes(tracker *stats.Tracker, cases []model.TestCase) {
	counts := make(map[int]int64)
	for _, tc := range cases {
		counts[tc.ConversationCount()]++
	}
	for size, count := range counts {
		tracker.RegisterContextSize(size, count)
	}
}

// splitByConversationCount partitions a batch into the large
// (conversationCount >= largePoolThreshold) and small pools.
func splitByConversationCount(b []model.TestCase) (large, small []model.TestCase) {
	for _, tc := range b {
		if tc.ConversationCount() >= largePoolThreshold {
			large = append(large, tc)
		} else {
			small = append(small, tc)
		}
	}
	return large, small
}

// evaluatePool processes one pool of test cases with up to TestCaseThreads
// concurrent workers, each owning a fresh MemoryAnswerer per test case.
func (m *MultithreadedEvaluator) evaluatePool(ctx context.Context, pool []model.TestCase, tracker *stats.Tracker, evalLog *evallog.Logger, judgeTemplate generator.AnsweringEvaluation) error {
	if len(pool) == 0 {
		return nil
	}

	threads := m.TestCaseThreads
	if threads <= 0 {
		threads = 1
	}
	sem := semaphore.NewWeighted(int64(threads))
	g, gctx := errgroup.WithContext(ctx)

	for i := range pool {
		tc := pool[i]
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			m.evaluateTestCase(gctx, &tc, tracker, evalLog, judgeTemplate)
			return nil
		})
	}

	return g.Wait()
}

// evaluateTestCase runs one test case end to end: initialize a fresh
// answerer, add conversations, answer every evidence item in order, judge
// each answer, record results, and always clean up.
func (m *MultithreadedEvaluator) evaluateTestCase(ctx context.Context, tc *model.TestCase, tracker *stats.Tracker, evalLog *evallog.Logger, judgeTemplate generator.AnsweringEvaluation) {
	logger := logx.NewLogger("evaluator")

	ans, err := m.Factory.Create(m.AnswererKind, m.MainModel, m.HelperModel)
	if err != nil {
		logger.Error("creating answerer: %v", err)
		return
	}
	defer func() {
		if err := ans.Cleanup(ctx); err != nil {
			logger.Warn("cleanup failed: %v", err)
		}
	}()

	if err := ans.Initialize(ctx); err != nil {
		logger.Error("initializing answerer: %v", err)
		return
	}
	if err := ans.AddConversations(ctx, tc.Conversations); err != nil {
		logger.Error("adding conversations: %v", err)
		return
	}

	testCaseID := tc.ID()

	for _, item := range tc.EvidenceItems {
		start := time.Now()
		answerResult, err := ans.AnswerQuestion(ctx, item.Question, testCaseID)
		elapsedMs := time.Since(start).Milliseconds()
		if err != nil {
			logger.Warn("answering question failed: %v", err)
			m.recordOutcome(tracker, evalLog, tc, item, answerResult, false, elapsedMs, ans.MemoryType())
			continue
		}

		answer := ""
		if answerResult.Answer != nil {
			answer = *answerResult.Answer
		}

		correct, judgeErr := m.judge(ctx, item, answer, judgeTemplate)
		if judgeErr != nil {
			logger.Warn("judging answer failed: %v", judgeErr)
			correct = false
		}

		m.recordOutcome(tracker, evalLog, tc, item, answerResult, correct, elapsedMs, ans.MemoryType())
	}

	tracker.MarkTestCaseCompleted(tc.ConversationCount())
}

// judge builds the judge prompt from judgeTemplate and sends it to the
// judge model, retrying a bounded number of times on ambiguous verdicts.
func (m *MultithreadedEvaluator) judge(ctx context.Context, item model.EvidenceItem, modelAnswer string, judgeTemplate generator.AnsweringEvaluation) (bool, error) {
	prompt := judgeTemplate.JudgePromptTemplate(item.Question, item.Answer, modelAnswer, item.MessageEvidences)

	var lastErr error
	for attempt := 0; attempt < judgeRetryAttempts; attempt++ {
		text, _, _, err := m.JudgeModel.Complete(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		switch parseJudgeResponse(text) {
		case judgeRight:
			return true, nil
		case judgeWrong:
			return false, nil
		default:
			lastErr = fmt.Errorf("ambiguous judge response: %q", text)
			continue
		}
	}

	return false, lastErr
}

func (m *MultithreadedEvaluator) recordOutcome(tracker *stats.Tracker, evalLog *evallog.Logger, tc *model.TestCase, item model.EvidenceItem, answerResult model.AnswerResult, correct bool, elapsedMs int64, memorySystem string) {
	retrieved := retrievedRelevantCount(answerResult.RetrievedConversationIDs, tc.EvidenceConversationIDs())

	result := model.ContextTestResult{
		EvidenceItem:                   item,
		ContextType:                    contextTypeOf(m.Generator),
		ContextSize:                    tc.ConversationCount(),
		IsCorrect:                      correct,
		RetrievedRelevantConversations: retrieved,
	}
	if answerResult.Answer != nil {
		result.ModelAnswer = *answerResult.Answer
	}

	tracker.RecordEvidenceResult(tc, correct, elapsedMs, &answerResult)

	entry := evallog.EvaluationLogEntry{
		ContextTestResult:     result,
		AnswerResult:          answerResult,
		EvidenceType:          item.Category,
		MemorySystem:          memorySystem,
		TestCaseGeneratorType: m.Generator.GeneratorClassType(),
		ResponseTimeMs:        elapsedMs,
	}

	logger := logx.NewLogger("evaluator")
	if err := evalLog.LogResult(entry); err != nil {
		logger.Warn("logging result failed: %v", err)
	}
}

func contextTypeOf(gen generator.TestCaseGenerator) model.ContextType {
	switch gen.GeneratorType() {
	case "standard":
		return model.ContextTypeStandard
	case "batched":
		return model.ContextTypeBatched
	case "log_based":
		return model.ContextTypeLogBased
	default:
		return model.ContextTypeStandard
	}
}

func (m *MultithreadedEvaluator) runPeriodicFlush(tracker *stats.Tracker, done <-chan struct{}) {
	interval := m.StatsFlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			tracker.Flush()
		}
	}
}

func (m *MultithreadedEvaluator) runPeriodicCSVSnapshot(tracker *stats.Tracker, caseType, memorySystem, mainModelName, helperModelName string, evidenceCount int, done <-chan struct{}) {
	interval := m.CSVSnapshotInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := logx.NewLogger("evaluator")
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := csvexport.Export(m.CSVBaseDir, caseType, memorySystem, mainModelName, helperModelName, evidenceCount, tracker.ExportRows(), false, time.Now()); err != nil {
				logger.Warn("csv snapshot failed: %v", err)
			}
		}
	}
}
