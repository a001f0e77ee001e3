// Package logging provides categorized zap loggers for contentpilot.
// Every subsystem logs through a named child of one process-wide logger so
// log output can be filtered per category (parse, stream, store, ...).
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names used across the codebase.
const (
	CategoryParse     = "parse"
	CategoryStream    = "stream"
	CategoryAction    = "action"
	CategoryReconcile = "reconcile"
	CategoryStore     = "store"
	CategoryLive      = "live"
	CategoryServer    = "server"
	CategorySession   = "session"
	CategoryConfig    = "config"
	CategoryLLM       = "llm"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the process logger. level is one of debug/info/warn/error;
// json selects the production JSON encoder, otherwise the console encoder
// is used. Safe to call more than once; the last call wins.
func Init(level string, json bool) error {
	var cfg zap.Config
	if json {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil && level != "" {
		return err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// Set replaces the process logger. Tests use this to capture output.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
}

// L returns the logger for a category.
func L(category string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(category)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
