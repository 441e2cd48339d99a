// Package logger holds the process-wide zerolog logger. Components take a
// tagged child through For and never write to the root logger directly.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`    // debug, info, warn, error
	Format string `json:"format" yaml:"format" mapstructure:"format"` // console, json
	File   string `json:"file" yaml:"file" mapstructure:"file"`       // optional log file, appended to
}

const consoleTimeFormat = "15:04:05"

var (
	mu      sync.RWMutex
	console io.Writer = os.Stderr
	root              = newRoot(console, zerolog.InfoLevel)
	file    *os.File
)

func newRoot(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init replaces the root logger. Entries go to out, rendered for humans
// unless Format is json, and are also appended as JSON to File when set.
// A log file opened by an earlier Init is closed; if File cannot be opened
// the console writer is still installed.
func Init(cfg LogConfig, out io.Writer) error {
	mu.Lock()
	defer mu.Unlock()

	_ = closeFile()

	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}
	level := ParseLevel(cfg.Level)
	console = out
	root = newRoot(console, level)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		file = f
		root = newRoot(zerolog.MultiLevelWriter(console, f), level)
	}
	return nil
}

// For returns a child of the root logger tagged with a component name.
func For(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", component).Logger()
}

// Close closes the log file if one was opened. Later entries go to the
// console writer only.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	root = newRoot(console, root.GetLevel())
	return closeFile()
}

func closeFile() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}
