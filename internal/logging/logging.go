package logging

import (
	"log"
	"os"
	"strings"
)

// Level controls which messages are emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	minLevel    = LevelInfo
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
)

func init() {
	// Initialize loggers to write to standard output/error.
	// Includes date, time, and source file/line number for context.
	debugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	infoLogger = log.New(os.Stdout, "INFO:  ", log.Ldate|log.Ltime|log.Lshortfile)
	warnLogger = log.New(os.Stdout, "WARN:  ", log.Ldate|log.Ltime|log.Lshortfile)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// SetLevel sets the minimum level from a string such as "debug" or "warn".
// Unknown values fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		minLevel = LevelDebug
	case "info":
		minLevel = LevelInfo
	case "warn", "warning":
		minLevel = LevelWarn
	case "error":
		minLevel = LevelError
	default:
		minLevel = LevelInfo
	}
}

// Debug logs debug messages.
func Debug(format string, v ...interface{}) {
	if minLevel <= LevelDebug {
		debugLogger.Printf(format, v...)
	}
}

// Info logs informational messages.
func Info(format string, v ...interface{}) {
	if minLevel <= LevelInfo {
		infoLogger.Printf(format, v...)
	}
}

// Warn logs warning messages.
func Warn(format string, v ...interface{}) {
	if minLevel <= LevelWarn {
		warnLogger.Printf(format, v...)
	}
}

// Error logs error messages.
func Error(format string, v ...interface{}) {
	errorLogger.Printf(format, v...)
}

// Fatal logs error messages and exits the program with status 1.
func Fatal(format string, v ...interface{}) {
	errorLogger.Fatalf(format, v...)
}
