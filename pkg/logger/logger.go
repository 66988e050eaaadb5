// Package logger provides leveled, component-tagged logging for the bridge.
// Components are short subsystem names ("gateway", "ipc", "prompt") so a
// single process log stays greppable.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is the logging verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu       sync.Mutex
	minLevel = LevelInfo
	out      = os.Stderr
)

// SetLevel sets the minimum level emitted. Unknown names keep the default.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(name) {
	case "debug":
		minLevel = LevelDebug
	case "info":
		minLevel = LevelInfo
	case "warn", "warning":
		minLevel = LevelWarn
	case "error":
		minLevel = LevelError
	}
}

func levelName(l Level) string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

func log(l Level, component, msg string, fields map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" ")
	b.WriteString(levelName(l))
	b.WriteString(" [")
	b.WriteString(component)
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(out, b.String())
}

// DebugC logs a debug message for a component.
func DebugC(component, msg string) { log(LevelDebug, component, msg, nil) }

// DebugCF logs a debug message with structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	log(LevelDebug, component, msg, fields)
}

// InfoC logs an info message for a component.
func InfoC(component, msg string) { log(LevelInfo, component, msg, nil) }

// InfoCF logs an info message with structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	log(LevelInfo, component, msg, fields)
}

// WarnC logs a warning for a component.
func WarnC(component, msg string) { log(LevelWarn, component, msg, nil) }

// WarnCF logs a warning with structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	log(LevelWarn, component, msg, fields)
}

// ErrorC logs an error for a component.
func ErrorC(component, msg string) { log(LevelError, component, msg, nil) }

// ErrorCF logs an error with structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	log(LevelError, component, msg, fields)
}
