package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorybench/pkg/answerer"
	"memorybench/pkg/llm"
	"memorybench/pkg/model"
)

type fakeModel struct {
	name     string
	response string
}

func (f *fakeModel) Complete(_ context.Context, _ string) (string, llm.TokenUsage, float64, error) {
	return f.response, llm.TokenUsage{InputTokens: 10, OutputTokens: 5}, 0.001, nil
}

func (f *fakeModel) ModelName() string { return f.name }

type fakeGenerator struct {
	cases []model.TestCase
}

func (g *fakeGenerator) Generate() ([]model.TestCase, error) { return g.cases, nil }
func (g *fakeGenerator) GeneratorType() string                { return "standard" }
func (g *fakeGenerator) GeneratorClassType() string           { return "StandardTestCaseGenerator" }

func newTestCase(contextSize int, question string) model.TestCase {
	return model.TestCase{
		EvidenceItems: []model.EvidenceItem{{Question: question, Answer: "the stored answer"}},
		ContextSize:   &contextSize,
	}
}

func TestMultithreadedEvaluatorRunProducesCSVAndLog(t *testing.T) {
	logDir := t.TempDir()
	csvDir := t.TempDir()

	gen := &fakeGenerator{cases: []model.TestCase{
		newTestCase(5, "q1"),
		newTestCase(40, "q2"),
	}}

	factory := &answerer.Factory{}
	me := &MultithreadedEvaluator{
		Factory:             factory,
		AnswererKind:        answerer.KindLongContext,
		MainModel:           &fakeModel{name: "main-model"},
		JudgeModel:          &fakeModel{name: "judge-model", response: "RIGHT"},
		TestCaseThreads:     4,
		Generator:           gen,
		LogBaseDir:          logDir,
		CSVBaseDir:          csvDir,
		StatsFlushInterval:  time.Hour,
		CSVSnapshotInterval: time.Hour,
	}

	cases, err := gen.Generate()
	require.NoError(t, err)

	err = me.Run(context.Background(), cases)
	require.NoError(t, err)

	csvPath := filepath.Join(csvDir, "standardtestcase", "long_context", "main_model", "1_evidence.csv")
	_, statErr := os.Stat(csvPath)
	assert.NoError(t, statErr)

	historyPath := csvPath + ".history"
	_, statErr = os.Stat(historyPath)
	assert.NoError(t, statErr)
}
