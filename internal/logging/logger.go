// Package logging is a small leveled printf logger over the standard log package.
package logging

import (
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type Logger struct {
	l     *log.Logger
	level Level
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{l: log.New(w, "", log.LstdFlags), level: level}
}

// Default writes to stderr at the level named by LOG_LEVEL.
func Default() *Logger {
	return New(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// Discard drops everything; used by tests and quiet CLI commands.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

func (lg *Logger) Debug(format string, v ...interface{}) { lg.print(LevelDebug, "DEBUG", format, v) }
func (lg *Logger) Info(format string, v ...interface{})  { lg.print(LevelInfo, "INFO", format, v) }
func (lg *Logger) Warn(format string, v ...interface{})  { lg.print(LevelWarn, "WARN", format, v) }
func (lg *Logger) Error(format string, v ...interface{}) { lg.print(LevelError, "ERROR", format, v) }

func (lg *Logger) print(lvl Level, tag, format string, v []interface{}) {
	if lg == nil || lvl < lg.level {
		return
	}
	lg.l.Printf("["+tag+"] "+format, v...)
}
