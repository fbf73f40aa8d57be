package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger writes structured log output to a file. The file handle can be
// rotated in place (SIGHUP) without touching the slog handlers that point at
// it.
type Logger struct {
	logFile  *os.File
	logMutex sync.Mutex
}

var (
	logger   *Logger
	loggerMu sync.Mutex

	level slog.LevelVar
)

// SetDebug switches the installed slog handler between Info and Debug at
// runtime.
func SetDebug(debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsDebug reports whether debug logging is currently enabled.
func IsDebug() bool {
	return level.Level() <= slog.LevelDebug
}

func GetLogger() *Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	return logger
}

func SetLogger(l *Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		logger.Close()
	}
	logger = l
}

// NewLogger opens filename in append mode and installs a slog text handler
// writing to both the file and stderr. debug lowers the handler level to
// LevelDebug.
func NewLogger(filename string, debug bool) (*Logger, error) {
	logFile, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{logFile: logFile}

	SetDebug(debug)
	handler := slog.NewTextHandler(io.MultiWriter(l, os.Stderr), &slog.HandlerOptions{Level: &level})
	slog.SetDefault(slog.New(handler))

	return l, nil
}

// Write lets slog handlers target the current log file through the rotation
// mutex. Implements io.Writer.
func (l *Logger) Write(p []byte) (int, error) {
	l.logMutex.Lock()
	defer l.logMutex.Unlock()
	if l.logFile == nil {
		return len(p), nil
	}
	return l.logFile.Write(p)
}

func (l *Logger) Close() {
	l.logMutex.Lock()
	defer l.logMutex.Unlock()

	if l.logFile != nil {
		_ = l.logFile.Close()
		l.logFile = nil
	}
}

// Rotate closes and reopens the log file so an external tool can move the old
// one aside first.
func (l *Logger) Rotate() error {
	l.logMutex.Lock()
	defer l.logMutex.Unlock()

	if l.logFile == nil {
		return nil
	}

	currentLogPath := l.logFile.Name()
	_ = l.logFile.Close()

	logFile, err := os.OpenFile(currentLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		l.logFile = nil
		return fmt.Errorf("failed to reopen log file: %w", err)
	}
	l.logFile = logFile

	return nil
}
