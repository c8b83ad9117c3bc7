// Package config loads the explicitly-constructed run configuration for an
// evaluation: a JSON file overridden by environment variables. Grounded on
// the teacher's pkg/config loader (JSON-file + env-var precedence,
// validation-first), generalized from a global-singleton Config to a
// plain *Config value the caller constructs once and threads through
// explicitly — the teacher's own "replace global state with explicit
// construction" principle, applied here to the evaluation run rather than
// to EvaluationLogger.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every tunable memorybench recognizes, file values
// overridden by the environment variables read in applyEnvOverrides.
type Config struct {
	ContextSizes               []int  `json:"context_sizes"`
	EvidenceItemThreads        int    `json:"evidence_item_threads"`
	EvaluationStatsIntervalSec int    `json:"evaluation_stats_interval_seconds"`
	UseCachedTestCases         bool   `json:"use_cached_test_cases"`
	UseCache                   bool   `json:"use_cache"`
	OverwriteCache             bool   `json:"overwrite_cache"`
	Debug                      bool   `json:"debug"`
	DebugDomains               string `json:"debug_domains"`

	LogDir           string  `json:"log_dir"`
	CSVBaseDir       string  `json:"csv_base_dir"`
	CostCapUSD       float64 `json:"cost_cap_usd"`
	BatchCount       int     `json:"batch_count"`
	JudgeRetryBudget int     `json:"judge_retry_budget"`
}

// Default returns a Config with spec.md's documented defaults.
func Default() *Config {
	return &Config{
		ContextSizes:               []int{10, 30, 50, 100},
		EvidenceItemThreads:        20,
		EvaluationStatsIntervalSec: 30,
		UseCachedTestCases:         false,
		UseCache:                   false,
		OverwriteCache:             false,
		Debug:                      false,
		DebugDomains:               "",
		LogDir:                     "logs/evaluations",
		CSVBaseDir:                 "logs/csv",
		CostCapUSD:                 300.0,
		BatchCount:                 30,
		JudgeRetryBudget:           2,
	}
}

// Load builds a Config: Default(), then a JSON file at path (if it
// exists), then environment variable overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, jsonErr)
			}
		case os.IsNotExist(err):
			// No file: defaults stand, env vars still apply below.
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("CONTEXT_SIZES"); ok {
		sizes, err := parseIntList(v)
		if err != nil {
			return fmt.Errorf("CONTEXT_SIZES: %w", err)
		}
		cfg.ContextSizes = sizes
	}
	if v, ok := os.LookupEnv("EVIDENCE_ITEM_THREADS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVIDENCE_ITEM_THREADS: %w", err)
		}
		cfg.EvidenceItemThreads = n
	}
	if v, ok := os.LookupEnv("EVALUATION_STATS_INTERVAL_SECONDS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVALUATION_STATS_INTERVAL_SECONDS: %w", err)
		}
		cfg.EvaluationStatsIntervalSec = n
	}
	if v, ok := os.LookupEnv("USE_CACHED_TEST_CASES"); ok {
		cfg.UseCachedTestCases = parseBool(v)
	}
	if v, ok := os.LookupEnv("CRMMEMBENCH_USE_CACHE"); ok {
		cfg.UseCache = parseBool(v)
	}
	if v, ok := os.LookupEnv("CRMMEMBENCH_OVERWRITE_CACHE"); ok {
		cfg.OverwriteCache = parseBool(v)
	}
	if v, ok := os.LookupEnv("DEBUG"); ok {
		cfg.Debug = parseBool(v)
	}
	if v, ok := os.LookupEnv("MEMORYBENCH_DEBUG_DOMAINS"); ok {
		cfg.DebugDomains = v
	}
	if v, ok := os.LookupEnv("MEMORYBENCH_LOG_DIR"); ok {
		cfg.LogDir = v
	}
	if v, ok := os.LookupEnv("MEMORYBENCH_CSV_BASE_DIR"); ok {
		cfg.CSVBaseDir = v
	}
	if v, ok := os.LookupEnv("MEMORYBENCH_COST_CAP_USD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MEMORYBENCH_COST_CAP_USD: %w", err)
		}
		cfg.CostCapUSD = f
	}
	if v, ok := os.LookupEnv("MEMORYBENCH_BATCH_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEMORYBENCH_BATCH_COUNT: %w", err)
		}
		cfg.BatchCount = n
	}
	if v, ok := os.LookupEnv("MEMORYBENCH_JUDGE_RETRY_BUDGET"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEMORYBENCH_JUDGE_RETRY_BUDGET: %w", err)
		}
		cfg.JudgeRetryBudget = n
	}

	return nil
}

func parseIntList(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// DebugDomainSet splits DebugDomains on commas into a lookup set.
func (c *Config) DebugDomainSet() map[string]bool {
	set := make(map[string]bool)
	for _, d := range strings.Split(c.DebugDomains, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			set[d] = true
		}
	}
	return set
}
