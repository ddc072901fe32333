// Package logging provides leveled logging on top of the standard logger.
//
// All output goes through the log package, which the binaries point at
// stderr so stdout stays reserved for protocol traffic.
package logging

import (
	"log"
	"strings"
	"sync/atomic"
)

// Log level constants
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(levelIndex(LevelInfo)))
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	return levelIndex(level) >= 0
}

// SetLevel sets the global logging level. Unknown levels are ignored.
func SetLevel(level string) {
	if i := levelIndex(level); i >= 0 {
		currentLevel.Store(int32(i))
	}
}

// Level returns the current logging level.
func Level() string {
	return levels[currentLevel.Load()]
}

// Enabled reports whether messages at level are currently logged.
func Enabled(level string) bool {
	i := levelIndex(level)
	return i >= 0 && int32(i) >= currentLevel.Load()
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	if Enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if Enabled(LevelInfo) {
		log.Printf("[INFO] "+format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if Enabled(LevelWarn) {
		log.Printf("[WARN] "+format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if Enabled(LevelError) {
		log.Printf("[ERROR] "+format, args...)
	}
}

func levelIndex(level string) int {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = LevelWarn
	}
	for i, l := range levels {
		if l == level {
			return i
		}
	}
	return -1
}
