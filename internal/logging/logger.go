// Package logging provides config-driven categorized logging for bioclas.
// Every category is a named child of a single zap logger. When debug mode is
// off and no category is explicitly enabled, all loggers are no-ops.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config resolution
	CategoryKB        Category = "kb"        // Knowledge-base loading and reloads
	CategoryInference Category = "inference" // Per-point classification
	CategoryBatch     Category = "batch"     // Batch runs
	CategoryStore     Category = "store"     // SQLite persistence
	CategoryMetrics   Category = "metrics"   // Metrics export
	CategoryWatch     Category = "watch"     // Definition file watcher
)

// Categories lists every known category.
func Categories() []Category {
	return []Category{
		CategoryBoot, CategoryKB, CategoryInference, CategoryBatch,
		CategoryStore, CategoryMetrics, CategoryWatch,
	}
}

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string
	Format     string // "json" or "console"
	DebugMode  bool
	Categories map[string]bool
	OutputPath string // empty means stderr
}

// Logger is a category logger with printf-style helpers.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    *zap.Logger
	cfg     Config
	loggers = make(map[Category]*Logger)
)

// Initialize builds the zap backend from cfg and resets cached loggers.
func Initialize(c Config) error {
	level, err := zapcore.ParseLevel(strings.ToLower(defaultString(c.Level, "info")))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	var zc zap.Config
	switch strings.ToLower(defaultString(c.Format, "console")) {
	case "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return fmt.Errorf("invalid log format %q (want json or console)", c.Format)
	}
	if c.DebugMode {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	if c.OutputPath != "" {
		zc.OutputPaths = []string{c.OutputPath}
	}

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	SetLogger(l, c)
	return nil
}

// SetLogger installs an existing zap logger as the backend.
func SetLogger(l *zap.Logger, c Config) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	cfg = c
	loggers = make(map[Category]*Logger)
}

// Sync flushes the backend. Call at shutdown.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}

// IsCategoryEnabled returns whether a specific category is enabled.
// In debug mode categories default to enabled; otherwise they must be
// switched on explicitly.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return false
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return cfg.DebugMode
	}
	return enabled
}

// Get returns (or creates) the logger for a category. Disabled categories get
// a no-op logger.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// WithRun scopes a category logger to one batch run.
func WithRun(category Category, runID string) *Logger {
	return Get(category).With("run", runID)
}

// Enabled reports whether the logger writes anything.
func (l *Logger) Enabled() bool { return l.sugar != nil }

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Debugf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Infof(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Warnf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Errorf(format, args...)
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }

func KB(format string, args ...interface{})      { Get(CategoryKB).Info(format, args...) }
func KBDebug(format string, args ...interface{}) { Get(CategoryKB).Debug(format, args...) }
func KBWarn(format string, args ...interface{})  { Get(CategoryKB).Warn(format, args...) }
func KBError(format string, args ...interface{}) { Get(CategoryKB).Error(format, args...) }

func InferenceDebug(format string, args ...interface{}) {
	Get(CategoryInference).Debug(format, args...)
}

func InferenceWarn(format string, args ...interface{}) {
	Get(CategoryInference).Warn(format, args...)
}

func Batch(format string, args ...interface{})      { Get(CategoryBatch).Info(format, args...) }
func BatchDebug(format string, args ...interface{}) { Get(CategoryBatch).Debug(format, args...) }
func BatchWarn(format string, args ...interface{})  { Get(CategoryBatch).Warn(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func Metrics(format string, args ...interface{})     { Get(CategoryMetrics).Info(format, args...) }
func MetricsWarn(format string, args ...interface{}) { Get(CategoryMetrics).Warn(format, args...) }

func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
func WatchError(format string, args ...interface{}) { Get(CategoryWatch).Error(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
