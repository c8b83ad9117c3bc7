// Package stats aggregates per-context-size evaluation metrics, renders a
// fixed-layout progress report, exports CSV snapshots, and implements the
// early-termination oracle. Grounded on the teacher's pkg/limiter (mutex-
// guarded float64 budget accounting) and pkg/metrics/agent middleware
// (Prometheus naming conventions), generalized from LLM request accounting
// to per-context-size test result accounting.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"memorybench/pkg/csvexport"
	"memorybench/pkg/logx"
	"memorybench/pkg/model"
)

// ContextStats holds the per-context-size counters and growable metric
// sequences. All mutation happens under its own exclusive lock.
type ContextStats struct {
	mu sync.Mutex

	Correct            int64
	TotalProcessed     int64
	CompletedTestCases int64
	TotalTestCases     int64

	responseTimesMs []int64
	inputTokens     []int64
	outputTokens    []int64
	cachedTokens    []int64
	costs           []float64
}

func newContextStats(totalTestCases int64) *ContextStats {
	return &ContextStats{TotalTestCases: totalTestCases}
}

func (c *ContextStats) record(correct bool, responseTimeMs int64, answer *model.AnswerResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TotalProcessed++
	if correct {
		c.Correct++
	}
	c.responseTimesMs = append(c.responseTimesMs, responseTimeMs)

	if answer != nil {
		if answer.InputTokens != nil {
			c.inputTokens = append(c.inputTokens, int64(*answer.InputTokens))
		}
		if answer.OutputTokens != nil {
			c.outputTokens = append(c.outputTokens, int64(*answer.OutputTokens))
		}
		if answer.CachedInputTokens != nil {
			c.cachedTokens = append(c.cachedTokens, int64(*answer.CachedInputTokens))
		}
		if answer.Cost != nil {
			c.costs = append(c.costs, *answer.Cost)
		}
	}
}

func (c *ContextStats) markCaseCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CompletedTestCases++
}

// snapshot is an immutable copy taken under the lock, safe to compute over
// without blocking concurrent writers.
type snapshot struct {
	correct            int64
	totalProcessed     int64
	completedTestCases int64
	totalTestCases     int64
	responseTimesMs    []int64
	inputTokens        []int64
	outputTokens       []int64
	cachedTokens       []int64
	costs              []float64
}

func (c *ContextStats) snapshot() snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot{
		correct:            c.Correct,
		totalProcessed:     c.TotalProcessed,
		completedTestCases: c.CompletedTestCases,
		totalTestCases:     c.TotalTestCases,
		responseTimesMs:    append([]int64(nil), c.responseTimesMs...),
		inputTokens:        append([]int64(nil), c.inputTokens...),
		outputTokens:       append([]int64(nil), c.outputTokens...),
		cachedTokens:       append([]int64(nil), c.cachedTokens...),
		costs:              append([]float64(nil), c.costs...),
	}
}

func (s snapshot) successRate() float64 {
	if s.totalProcessed == 0 {
		return 0
	}
	return round1(100 * float64(s.correct) / float64(s.totalProcessed))
}

func (s snapshot) totalCost() float64 {
	var sum float64
	for _, c := range s.costs {
		sum += c
	}
	return sum
}

func (s snapshot) avgInt(series []int64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum int64
	for _, v := range series {
		sum += v
	}
	return float64(sum) / float64(len(series))
}

func (s snapshot) avgFloat(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// percentile returns the nearest-rank percentile (p in [0,100]) of an int64
// series, without mutating the input.
func percentile(series []int64, p float64) int64 {
	if len(series) == 0 {
		return 0
	}
	sorted := append([]int64(nil), series...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p*float64(len(sorted))/100)) - 1
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}

// cacheRatio is min(cachedInputTokens / max(inputTokens, cachedInputTokens), 100),
// defending against providers that occasionally report cached > prompt.
func (s snapshot) cacheRatio() float64 {
	var totalCached, totalInput int64
	for _, v := range s.cachedTokens {
		totalCached += v
	}
	for _, v := range s.inputTokens {
		totalInput += v
	}
	denom := totalInput
	if totalCached > denom {
		denom = totalCached
	}
	if denom == 0 {
		return 0
	}
	ratio := 100 * float64(totalCached) / float64(denom)
	if ratio > 100 {
		ratio = 100
	}
	return round1(ratio)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// Tracker is the process-wide StatsTracker: per-context-size aggregates,
// percentile/cost tracking, progress projection, and the early-termination
// oracle.
type Tracker struct {
	startedAt time.Time

	mu           sync.RWMutex
	contextStats map[int]*ContextStats
	processedAt  []time.Time // sliding window for last-minute rate

	totalProcessed *promAtomicCounter

	logger *logx.Logger

	promTokens *prometheus.CounterVec
	promCost   *prometheus.CounterVec
	promJudge  *prometheus.CounterVec
}

// promAtomicCounter is a minimal mutex-guarded int64 counter for
// cross-goroutine totals.
type promAtomicCounter struct {
	mu sync.Mutex
	v  int64
}

func (c *promAtomicCounter) add(n int64) {
	c.mu.Lock()
	c.v += n
	c.mu.Unlock()
}

func (c *promAtomicCounter) load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// registerCounterVec registers a counter vector with the default registry,
// reusing the already-registered one when a previous Tracker registered it.
func registerCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return vec
}

// NewTracker builds a Tracker and registers its Prometheus collectors.
func NewTracker() *Tracker {
	return &Tracker{
		startedAt:      time.Now(),
		contextStats:   make(map[int]*ContextStats),
		totalProcessed: &promAtomicCounter{},
		logger:         logx.NewLogger("stats"),
		promTokens: registerCounterVec(
			prometheus.CounterOpts{
				Name: "memorybench_llm_tokens_total",
				Help: "Total number of tokens used while evaluating, by context size and kind",
			},
			[]string{"context_size", "kind"},
		),
		promCost: registerCounterVec(
			prometheus.CounterOpts{
				Name: "memorybench_llm_cost_total",
				Help: "Total cost in USD spent while evaluating, by context size",
			},
			[]string{"context_size"},
		),
		promJudge: registerCounterVec(
			prometheus.CounterOpts{
				Name: "memorybench_judge_result_total",
				Help: "Total judge verdicts, by context size and result",
			},
			[]string{"context_size", "result"},
		),
	}
}

// RegisterContextSize declares the total test case count for a context
// size up front, so progress reporting can show "completed / total".
func (t *Tracker) RegisterContextSize(contextSize int, totalTestCases int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.contextStats[contextSize]; !ok {
		t.contextStats[contextSize] = newContextStats(totalTestCases)
	}
}

func (t *Tracker) statsFor(contextSize int) *ContextStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs, ok := t.contextStats[contextSize]
	if !ok {
		cs = newContextStats(0)
		t.contextStats[contextSize] = cs
	}
	return cs
}

// RecordEvidenceResult records one scored evidence item under the relevant
// context's lock, then bumps the global counter and Prometheus series
// outside it.
func (t *Tracker) RecordEvidenceResult(testCase *model.TestCase, correct bool, responseTimeMs int64, answer *model.AnswerResult) {
	contextSize := testCase.ConversationCount()
	cs := t.statsFor(contextSize)
	cs.record(correct, responseTimeMs, answer)

	t.totalProcessed.add(1)

	label := fmt.Sprintf("%d", contextSize)
	if answer != nil {
		if answer.InputTokens != nil {
			t.promTokens.WithLabelValues(label, "input").Add(float64(*answer.InputTokens))
		}
		if answer.OutputTokens != nil {
			t.promTokens.WithLabelValues(label, "output").Add(float64(*answer.OutputTokens))
		}
		if answer.Cost != nil {
			t.promCost.WithLabelValues(label).Add(*answer.Cost)
		}
	}
	result := "wrong"
	if correct {
		result = "right"
	}
	t.promJudge.WithLabelValues(label, result).Inc()

	t.mu.Lock()
	t.processedAt = append(t.processedAt, time.Now())
	t.mu.Unlock()
}

// MarkTestCaseCompleted records that every evidence item for a test case at
// this context size has been scored.
func (t *Tracker) MarkTestCaseCompleted(contextSize int) {
	t.statsFor(contextSize).markCaseCompleted()
}

// TotalProcessed is the global count of recorded evidence results.
func (t *Tracker) TotalProcessed() int64 {
	return t.totalProcessed.load()
}

// TotalCost sums cost across every context size.
func (t *Tracker) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, cs := range t.contextStats {
		total += cs.snapshot().totalCost()
	}
	return total
}

// contextSizesSorted returns the configured context sizes in ascending
// order, with their current snapshot.
func (t *Tracker) contextSizesSorted() ([]int, map[int]snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sizes := make([]int, 0, len(t.contextStats))
	snaps := make(map[int]snapshot, len(t.contextStats))
	for size, cs := range t.contextStats {
		sizes = append(sizes, size)
		snaps[size] = cs.snapshot()
	}
	sort.Ints(sizes)
	return sizes, snaps
}

// ratePerMinute returns the number of evidence results recorded in the last
// 60 seconds.
func (t *Tracker) ratePerMinute() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := time.Now().Add(-time.Minute)
	n := 0
	for _, ts := range t.processedAt {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// GetStatsString renders the fixed-layout progress block: per-context
// success rate/averages/percentiles/cost, then overall progress, processing
// rate, cost projection, and ETA.
func (t *Tracker) GetStatsString() string {
	sizes, snaps := t.contextSizesSorted()

	var b strings.Builder
	b.WriteString("=== Evaluation Progress ===\n")

	var totalCompleted, totalCases int64
	var totalCost float64
	for _, size := range sizes {
		s := snaps[size]
		totalCompleted += s.completedTestCases
		totalCases += s.totalTestCases
		totalCost += s.totalCost()

		fmt.Fprintf(&b, "context=%-5d success=%5.1f%% (%d/%d) avgMs=%.0f p50=%dms p90=%dms p99=%dms cost=$%.4f\n",
			size, s.successRate(), s.correct, s.totalProcessed,
			s.avgInt(s.responseTimesMs),
			percentile(s.responseTimesMs, 50), percentile(s.responseTimesMs, 90), percentile(s.responseTimesMs, 99),
			s.totalCost())
	}

	elapsed := time.Since(t.startedAt)
	ratePerMin := t.ratePerMinute()
	var avgPerMin float64
	if elapsed.Minutes() > 0 {
		avgPerMin = float64(t.TotalProcessed()) / elapsed.Minutes()
	}

	costPerHour := 0.0
	if elapsed.Hours() > 0 {
		costPerHour = totalCost / elapsed.Hours()
	}

	var eta string
	if totalCases > 0 && avgPerMin > 0 {
		remaining := totalCases - totalCompleted
		if remaining < 0 {
			remaining = 0
		}
		etaMinutes := float64(remaining) / (avgPerMin / float64(max(1, len(sizes))))
		eta = fmt.Sprintf("%.1f min", etaMinutes)
	} else {
		eta = "unknown"
	}

	fmt.Fprintf(&b, "overall: testCases=%d/%d rate(1m)=%d/min rate(avg)=%.1f/min cost=$%.4f ($%.2f/hr) eta=%s\n",
		totalCompleted, totalCases, ratePerMin, avgPerMin, totalCost, costPerHour, eta)

	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Flush logs the current stats block; invoked by the periodic reporter.
func (t *Tracker) Flush() {
	t.logger.Info("%s", t.GetStatsString())
}

// ExportRows snapshots every tracked context size into csvexport.Row values,
// ready for csvexport.Export.
func (t *Tracker) ExportRows() []csvexport.Row {
	sizes, snaps := t.contextSizesSorted()

	rows := make([]csvexport.Row, 0, len(sizes))
	for _, size := range sizes {
		s := snaps[size]
		rows = append(rows, csvexport.Row{
			ContextSize:        size,
			SuccessRatePercent: s.successRate(),
			CorrectAnswers:     s.correct,
			TotalProcessed:     s.totalProcessed,
			TestCasesCompleted: s.completedTestCases,
			TotalTestCases:     s.totalTestCases,
			AvgResponseTimeMs:  s.avgInt(s.responseTimesMs),
			AvgInputTokens:     s.avgInt(s.inputTokens),
			AvgOutputTokens:    s.avgInt(s.outputTokens),
			AvgCost:            s.avgFloat(s.costs),
			P50Ms:              percentile(s.responseTimesMs, 50),
			P90Ms:              percentile(s.responseTimesMs, 90),
			P99Ms:              percentile(s.responseTimesMs, 99),
			AvgCachedTokens:    s.avgInt(s.cachedTokens),
			CacheRatioPercent:  s.cacheRatio(),
		})
	}
	return rows
}
