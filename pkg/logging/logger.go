package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp format prefixed to every log line.
const TimeLayout = "2006-01-02 15:04:05"

// Logger writes one timestamped line per message to the console and,
// when a path is given, to an append-only log file.
//
// All log methods (Debugf, Infof, Warnf, Errorf) write unconditionally.
// There is currently no log level filtering.
type Logger struct {
	runID     string
	sugar     *zap.SugaredLogger
	file      *logFile
	console   io.Writer
	logPath   string
	closeOnce sync.Once
}

// New creates a logger that tees to console and to the file at path.
// An empty path logs to console only.
//
// If the log file cannot be opened, New returns a console-only logger along
// with the error so callers can warn and carry on.
func New(path string, console io.Writer) (*Logger, error) {
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		runID:   uuid.New().String(),
		console: console,
	}

	cores := []zapcore.Core{newCore(zapcore.AddSync(console))}

	if path != "" {
		file, err := openLogFile(path)
		if err != nil {
			l.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
			l.Warnf("WARNING: Failed to initialize file logging: %v", err)
			return l, err
		}
		l.file = file
		l.logPath = path
		cores = append(cores, newCore(file))
	}

	l.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		runID:   uuid.New().String(),
		sugar:   zap.NewNop().Sugar(),
		console: io.Discard,
	}
}

func newCore(ws zapcore.WriteSyncer) zapcore.Core {
	encCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       encodeTime,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, zapcore.DebugLevel)
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format(TimeLayout) + "]")
}

// Printf logs a formatted message
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Writer returns the console writer, for output that should not carry a
// timestamp (progress dots, usage text).
func (l *Logger) Writer() io.Writer {
	return l.console
}

// RunID identifies this process run.
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path to the log file, or "" for console-only loggers.
func (l *Logger) LogPath() string {
	return l.logPath
}

// TruncateIfLarger trims the log file to its last keepLines lines once it
// grows past maxBytes, then appends a notice. It reports whether a
// truncation happened. Console-only loggers never truncate.
func (l *Logger) TruncateIfLarger(maxBytes int64, keepLines int) (bool, error) {
	if l.file == nil {
		return false, nil
	}

	truncated, err := l.file.truncate(maxBytes, keepLines)
	if err != nil || !truncated {
		return false, err
	}

	l.Printf("Log truncated to last %d lines", keepLines)
	return true, nil
}

// Close flushes and closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.sugar.Sync()
		if l.file != nil {
			err = l.file.close()
		}
	})
	return err
}

// logFile serialises zap's writes with truncation so no line is lost
// between reading the tail and rewriting the file.
type logFile struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func openLogFile(path string) (*logFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &logFile{f: f, path: path}, nil
}

func (w *logFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Write(p)
}

func (w *logFile) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Sync()
}

func (w *logFile) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func (w *logFile) truncate(maxBytes int64, keepLines int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() <= maxBytes {
		return false, nil
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		return false, fmt.Errorf("failed to read log file: %w", err)
	}

	tail := lastLines(string(data), keepLines)

	// O_APPEND puts the next write at the new end of file.
	if err := w.f.Truncate(0); err != nil {
		return false, fmt.Errorf("failed to truncate log file: %w", err)
	}
	if _, err := w.f.WriteString(tail); err != nil {
		return false, fmt.Errorf("failed to rewrite log file: %w", err)
	}
	return true, nil
}

// lastLines returns the final n lines of s, newline terminated.
func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n") + "\n"
}
