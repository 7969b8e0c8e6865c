package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	std     = logrus.New()
	logFile *os.File
)

func init() {
	std.SetOutput(os.Stdout)
	std.SetLevel(logrus.InfoLevel)
	std.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
}

// InitLog redirects log output to the given file in addition to stdout.
// The parent directory is created if missing.
func InitLog(path string) error {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q: %w", path, err)
	}

	logFile = f
	std.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

// FlushLog syncs and closes the log file, if any.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
		std.SetOutput(os.Stdout)
	}
}

// SetLevel updates the log level by name ("debug", "info", "warn", "error").
// Unknown names fall back to info.
func SetLevel(level string) {
	lv, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lv = logrus.InfoLevel
	}
	std.SetLevel(lv)
}

// Level returns the current log level name.
func Level() string {
	return std.GetLevel().String()
}

func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}

// DebugX logs a debug message tagged with a module name.
func DebugX(module, format string, args ...interface{}) {
	std.WithField("module", module).Debugf(format, args...)
}

// InfoX logs an info message tagged with a module name.
func InfoX(module, format string, args ...interface{}) {
	std.WithField("module", module).Infof(format, args...)
}

// WarnX logs a warning tagged with a module name.
func WarnX(module, format string, args ...interface{}) {
	std.WithField("module", module).Warnf(format, args...)
}
