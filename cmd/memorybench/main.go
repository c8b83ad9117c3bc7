// Command memorybench runs a batch evaluation of memory-answering strategies
// across context sizes, logging every result and exporting per-context CSV
// summaries. No flags are required for a normal run; -config points at an
// optional JSON config file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"memorybench/pkg/answerer"
	"memorybench/pkg/bench"
	"memorybench/pkg/config"
	"memorybench/pkg/convloader"
	"memorybench/pkg/evaluator"
	"memorybench/pkg/generator"
	"memorybench/pkg/llm"
	"memorybench/pkg/llm/anthropic"
	"memorybench/pkg/llm/gemini"
	"memorybench/pkg/llm/ollama"
	"memorybench/pkg/llm/openai"
	"memorybench/pkg/logx"
	"memorybench/pkg/model"
	"memorybench/pkg/personaload"
)

func main() {
	fmt.Println("memorybench boot")

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "config/config.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logx.Errorf("loading config: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logx.SetDebugEnabled(true)
		logx.SetDebugDomains(domainList(cfg.DebugDomainSet()))
	}

	cfgJSON, err := json.MarshalIndent(cfg, "", "  ")
	if err == nil {
		fmt.Printf("loaded configuration:\n%s\n", cfgJSON)
	}

	logger := logx.NewLogger("main")

	if err := run(context.Background(), cfg); err != nil {
		var benchErr *bench.Error
		if asBenchError(err, &benchErr) && benchErr.Kind == bench.Recoverable {
			logger.Warn("evaluation completed with a recoverable error: %v", benchErr)
			return
		}
		logger.Error("fatal: %v", err)
		os.Exit(1)
	}
}

func asBenchError(err error, target **bench.Error) bool {
	if be, ok := err.(*bench.Error); ok {
		*target = be
		return true
	}
	return false
}

func domainList(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// run wires config into a generator, an answerer factory, LLM completers,
// and an Evaluator, then executes the evaluation.
func run(ctx context.Context, cfg *config.Config) error {
	logger := logx.NewLogger("main")

	mainModel, err := buildCompleter("MEMORYBENCH_MAIN")
	if err != nil {
		return bench.NewFatal(fmt.Errorf("building main model: %w", err))
	}
	helperModel, err := buildCompleter("MEMORYBENCH_HELPER")
	if err != nil {
		logger.Warn("no helper model configured: %v", err)
		helperModel = nil
	}
	judgeModel, err := buildCompleter("MEMORYBENCH_JUDGE")
	if err != nil {
		judgeModel = mainModel
		logger.Warn("no judge model configured, reusing main model: %v", err)
	}

	gen, err := buildGenerator()
	if err != nil {
		return bench.NewFatal(fmt.Errorf("building test case generator: %w", err))
	}

	kind := answerer.Kind(envOr("MEMORYBENCH_ANSWERER", string(answerer.KindLongContext)))

	ev := &evaluator.Evaluator{
		Generator:       gen,
		Factory:         &answerer.Factory{DefaultHelperModel: helperModel},
		AnswererKind:    kind,
		MainModel:       mainModel,
		HelperModel:     helperModel,
		JudgeModel:      judgeModel,
		TestCaseThreads: cfg.EvidenceItemThreads,
		RunShort:        parseBoolEnv("MEMORYBENCH_RUN_SHORT"),
		LogBaseDir:      cfg.LogDir,
		CSVBaseDir:      cfg.CSVBaseDir,
	}

	if err := ev.RunEvaluation(ctx); err != nil {
		return bench.NewFatal(fmt.Errorf("running evaluation: %w", err))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true" || v == "TRUE"
}

// buildCompleter selects an LLM provider from <prefix>_PROVIDER
// (anthropic|openai|gemini|ollama) and constructs the matching Completer
// from <prefix>_MODEL and <prefix>_API_KEY / <prefix>_HOST.
func buildCompleter(prefix string) (llm.Completer, error) {
	provider := os.Getenv(prefix + "_PROVIDER")
	modelName := os.Getenv(prefix + "_MODEL")
	if provider == "" || modelName == "" {
		return nil, fmt.Errorf("%s_PROVIDER and %s_MODEL must both be set", prefix, prefix)
	}

	switch provider {
	case "anthropic":
		return anthropic.NewClient(os.Getenv(prefix+"_API_KEY"), modelName, 1024), nil
	case "openai":
		return openai.NewClient(os.Getenv(prefix+"_API_KEY"), modelName), nil
	case "gemini":
		return gemini.NewClient(os.Getenv(prefix+"_API_KEY"), modelName), nil
	case "ollama":
		host := envOr(prefix+"_HOST", "http://localhost:11434")
		return ollama.NewClient(host, modelName)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// buildGenerator assembles the TestCaseGenerator named by MEMORYBENCH_GENERATOR
// (standard|batched|log_based), reading filler conversations, an optional
// persona roster, and pre-generated evidence items from disk.
func buildGenerator() (generator.TestCaseGenerator, error) {
	kind := envOr("MEMORYBENCH_GENERATOR", "standard")
	contextSizes := []int{10, 30, 50, 100}

	if kind == "log_based" {
		runDir := os.Getenv("MEMORYBENCH_LOG_RUN_DIR")
		if runDir == "" {
			return nil, fmt.Errorf("MEMORYBENCH_LOG_RUN_DIR is required for the log_based generator")
		}
		entries, err := generator.LoadLogEntries(runDir)
		if err != nil {
			return nil, err
		}
		return generator.NewLogBased(entries), nil
	}

	fillerDir := envOr("MEMORYBENCH_FILLER_DIR", "testdata/filler")
	loader := convloader.New(fillerDir)

	if rosterPath := os.Getenv("MEMORYBENCH_PERSONA_ROSTER"); rosterPath != "" {
		roster, err := personaload.LoadRoster(rosterPath)
		if err != nil {
			return nil, err
		}
		loader = loader.WithRoster(roster)
	}
	if err := loader.Load(); err != nil {
		return nil, err
	}

	evidence, err := loadEvidence(envOr("MEMORYBENCH_EVIDENCE_FILE", "testdata/evidence.json"))
	if err != nil {
		return nil, err
	}
	evGen := generator.NewStaticEvidenceGenerator(evidence)
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic batch composition, not cryptographic

	switch kind {
	case "standard":
		return generator.NewStandard(evGen, contextSizes, loader, rng), nil
	case "batched":
		return generator.NewBatched(evGen, contextSizes, loader, rng, 5, 1), nil
	default:
		return nil, fmt.Errorf("unknown generator kind %q", kind)
	}
}

func loadEvidence(path string) ([]model.EvidenceItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading evidence file %s (generate it with the upstream evidence generator first): %w", path, err)
	}
	var items []model.EvidenceItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing evidence file %s: %w", path, err)
	}
	return items, nil
}
