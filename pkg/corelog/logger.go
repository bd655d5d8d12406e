// Package corelog is a small structured-logging abstraction: a
// leveled interface backed by the standard log package, with
// WithFields for key-value context. The error reporter logs every
// report through this interface, and cmd/simulator's main loop writes
// its own log lines through it.
package corelog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

// Logger is the leveled logging surface used throughout the core.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
}

// Config selects the default logger's behavior.
type Config struct {
	JSONOutput bool
	Level      string // "debug", "info", "warn", "error"
}

var levelOrder = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

type defaultLogger struct {
	out    *log.Logger
	cfg    Config
	fields map[string]interface{}
}

// New builds a Logger writing to stderr per cfg.
func New(cfg Config) Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return &defaultLogger{
		out: log.New(os.Stderr, "", log.LstdFlags),
		cfg: cfg,
	}
}

// Nop returns a Logger that discards everything, the default
// collaborator for components that don't otherwise need one wired in.
func Nop() Logger { return nopLogger{} }

func (l *defaultLogger) enabled(level string) bool {
	return levelOrder[level] >= levelOrder[l.cfg.Level]
}

func (l *defaultLogger) emit(level string, msg string) {
	if !l.enabled(level) {
		return
	}
	if l.cfg.JSONOutput {
		entry := map[string]interface{}{"level": level, "msg": msg}
		for k, v := range l.fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			l.out.Printf("level=%s msg=%q fields_error=%v", level, msg, err)
			return
		}
		l.out.Print(string(data))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "level=%s msg=%q", level, msg)
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	l.out.Print(b.String())
}

func (l *defaultLogger) Debug(args ...interface{}) { l.emit("debug", fmt.Sprint(args...)) }
func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.emit("debug", fmt.Sprintf(format, args...))
}
func (l *defaultLogger) Info(args ...interface{}) { l.emit("info", fmt.Sprint(args...)) }
func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.emit("info", fmt.Sprintf(format, args...))
}
func (l *defaultLogger) Warn(args ...interface{}) { l.emit("warn", fmt.Sprint(args...)) }
func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.emit("warn", fmt.Sprintf(format, args...))
}
func (l *defaultLogger) Error(args ...interface{}) { l.emit("error", fmt.Sprint(args...)) }
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.emit("error", fmt.Sprintf(format, args...))
}

func (l *defaultLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &defaultLogger{out: l.out, cfg: l.cfg, fields: merged}
}

type nopLogger struct{}

func (nopLogger) Debug(args ...interface{})                    {}
func (nopLogger) Debugf(format string, args ...interface{})     {}
func (nopLogger) Info(args ...interface{})                      {}
func (nopLogger) Infof(format string, args ...interface{})      {}
func (nopLogger) Warn(args ...interface{})                      {}
func (nopLogger) Warnf(format string, args ...interface{})      {}
func (nopLogger) Error(args ...interface{})                     {}
func (nopLogger) Errorf(format string, args ...interface{})     {}
func (nopLogger) WithFields(fields map[string]interface{}) Logger { return nopLogger{} }
