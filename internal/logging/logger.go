// Package logging provides categorized logging for testcrafter.
// Every category is a named child of one root zap logger. Until Initialize (or
// SetLogger) is called every category is a no-op, so library code can log
// unconditionally.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config resolution
	CategoryAPI       Category = "api"       // Completion calls
	CategoryGenerator Category = "generator" // Prompt fan-out, fragment parsing
	CategoryRegistry  Category = "registry"  // Held test sequence, runs
	CategoryChat      Category = "chat"      // Router decisions
	CategoryPanel     Category = "panel"     // Message protocol
	CategoryWatch     Category = "watch"     // Auto-detect file watching
	CategoryStore     Category = "store"     // Run archive
)

// Options configures Initialize.
type Options struct {
	Level      string          // debug, info, warn, error
	File       string          // empty = stderr
	JSON       bool            // JSON encoder instead of console
	Categories map[string]bool // nil = all enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
	mu         sync.RWMutex
)

// Initialize builds the root logger from opts and installs it.
// The returned logger is the same root the categories derive from.
func Initialize(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = zap.NewAtomicLevelAt(parsed)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.JSON {
		cfg.Encoding = "json"
	}
	cfg.OutputPaths = []string{"stderr"}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{opts.File}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	install(logger, opts.Categories)
	return logger, nil
}

// SetLogger installs an existing root logger with every category enabled.
// Tests use it with zaptest/observer cores.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	install(logger, nil)
}

func install(logger *zap.Logger, cats map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	categories = cats
	loggers = make(map[Category]*Logger)
}

// Root returns the installed root logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// IsCategoryEnabled reports whether a category writes anything.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) the logger for a category.
func Get(category Category) *Logger {
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

	base := zap.NewNop()
	if categoryEnabledLocked(category) {
		base = root.Named(string(category))
	}
	l := &Logger{category: category, sugar: base.Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Root().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIError logs an error to the api category
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Generator logs to the generator category
func Generator(format string, args ...interface{}) {
	Get(CategoryGenerator).Info(format, args...)
}

// GeneratorDebug logs debug to the generator category
func GeneratorDebug(format string, args ...interface{}) {
	Get(CategoryGenerator).Debug(format, args...)
}

// GeneratorWarn logs a warning to the generator category
func GeneratorWarn(format string, args ...interface{}) {
	Get(CategoryGenerator).Warn(format, args...)
}

// Registry logs to the registry category
func Registry(format string, args ...interface{}) {
	Get(CategoryRegistry).Info(format, args...)
}

// RegistryDebug logs debug to the registry category
func RegistryDebug(format string, args ...interface{}) {
	Get(CategoryRegistry).Debug(format, args...)
}

// Chat logs to the chat category
func Chat(format string, args ...interface{}) {
	Get(CategoryChat).Info(format, args...)
}

// ChatDebug logs debug to the chat category
func ChatDebug(format string, args ...interface{}) {
	Get(CategoryChat).Debug(format, args...)
}

// Panel logs to the panel category
func Panel(format string, args ...interface{}) {
	Get(CategoryPanel).Info(format, args...)
}

// PanelDebug logs debug to the panel category
func PanelDebug(format string, args ...interface{}) {
	Get(CategoryPanel).Debug(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}
