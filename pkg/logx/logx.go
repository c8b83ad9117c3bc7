// Package logx provides structured, domain-filterable logging for memorybench
// components. Every package binds a named Logger (NewLogger("evaluator"),
// NewLogger("stats"), ...) and calls its Info/Warn/Error/Debug methods;
// DEBUG output is gated globally and, optionally, per component via
// MEMORYBENCH_DEBUG_DOMAINS.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped, component-tagged lines to stderr.
type Logger struct {
	component string
	logger    *log.Logger
}

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// debugConfig controls whether Debug output is emitted and for which
// components, sourced from environment variables at process start.
type debugConfig struct {
	enabled bool
	domains map[string]bool // nil means all domains
}

var (
	cfg      = &debugConfig{}
	cfgMutex sync.RWMutex
)

func init() { //nolint:gochecknoinits // environment-driven configuration
	initDebugFromEnv()
}

func initDebugFromEnv() {
	cfgMutex.Lock()
	defer cfgMutex.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		cfg.enabled = true
	}

	if domains := os.Getenv("MEMORYBENCH_DEBUG_DOMAINS"); domains != "" {
		cfg.domains = make(map[string]bool)
		for _, domain := range strings.Split(domains, ",") {
			d := strings.TrimSpace(domain)
			if d != "" {
				cfg.domains[d] = true
			}
		}
	}
}

// NewLogger binds a Logger to component, the name every line it writes is
// tagged with (e.g. "evaluator", "stats", "csvexport").
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0),
	}
}

// SetDebugEnabled overrides whether Debug output is emitted, bypassing the
// DEBUG environment variable. Intended for tests.
func SetDebugEnabled(enabled bool) {
	cfgMutex.Lock()
	defer cfgMutex.Unlock()
	cfg.enabled = enabled
}

// SetDebugDomains restricts Debug output to the given component names.
// An empty list re-enables every domain.
func SetDebugDomains(domains []string) {
	cfgMutex.Lock()
	defer cfgMutex.Unlock()

	if len(domains) == 0 {
		cfg.domains = nil
		return
	}
	cfg.domains = make(map[string]bool, len(domains))
	for _, d := range domains {
		cfg.domains[strings.TrimSpace(d)] = true
	}
}

// IsDebugEnabledForDomain reports whether Debug calls for component should
// produce output, honoring both the global DEBUG switch and domain filtering.
func IsDebugEnabledForDomain(component string) bool {
	cfgMutex.RLock()
	defer cfgMutex.RUnlock()

	if !cfg.enabled {
		return false
	}
	if cfg.domains == nil {
		return true
	}
	return cfg.domains[component]
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s: %s", timestamp, l.component, level, message)
}

// Debug logs only when DEBUG is enabled for this logger's component.
func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabledForDomain(l.component) {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Component returns the name this logger tags every line with.
func (l *Logger) Component() string {
	return l.component
}

// Global convenience functions bound to a "system" component, for call sites
// that have no logger of their own handy.
var defaultLogger = NewLogger("system")

func Debugf(format string, args ...any) {
	defaultLogger.Debug(format, args...)
}

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
//
//	err := logx.Errorf("setup failed: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
//
//	if err != nil { return logx.Wrap(err, "loading test cases") }
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}
