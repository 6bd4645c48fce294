// Package logging provides the structured logger shared by every package:
// a console core teed with an optional rotating JSON file core.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and its sugared form.
//
// This organism composes:
//   - FileWriter molecule (log file rotation via lumberjack)
//   - MultiCore molecule (tee output to console + optional file)
//
// Example:
//
//	logger, err := NewLogger(Options{Level: "debug", DevMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("variants generated", zap.Int("count", 15))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger

	isDevelopment bool
	logFilePath   string
}

// Options configures NewLogger. The zero value logs info and above as JSON
// to stderr with no log file.
type Options struct {
	// Level is a level name understood by ParseLogLevelString.
	// Empty means info, or debug in DevMode.
	Level string

	// DevMode selects the colored console encoder.
	DevMode bool

	// FilePath enables a rotated JSON log file when non-empty.
	FilePath string

	// FileConfig overrides the rotation settings of the log file.
	FileConfig FileWriterConfig

	// Console receives console output. Defaults to os.Stderr so that
	// command output on stdout stays clean.
	Console io.Writer
}

// NewLogger creates a Logger from opts.
func NewLogger(opts Options) (*Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if opts.DevMode {
		defaultLevel = zapcore.DebugLevel
	}
	level := ParseLogLevelString(opts.Level, defaultLevel)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var fileWriter zapcore.WriteSyncer
	if opts.FilePath != "" {
		w, err := NewFileWriterWithConfig(opts.FilePath, opts.FileConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file writer: %w", err)
		}
		fileWriter = w
	}

	core := NewMultiCore(level, zapcore.AddSync(console), fileWriter, opts.DevMode)
	l := newFromCore(core, zap.AddCaller(), zap.AddCallerSkip(1))
	l.isDevelopment = opts.DevMode
	l.logFilePath = opts.FilePath
	return l, nil
}

// NewFromCore wraps an existing core, typically an observer core in tests.
func NewFromCore(core zapcore.Core) *Logger {
	return newFromCore(core)
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return newFromCore(zapcore.NewNopCore())
}

func newFromCore(core zapcore.Core, opts ...zap.Option) *Logger {
	z := zap.New(core, opts...)
	return &Logger{zap: z, sugar: z.Sugar()}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel with optional structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

// Info logs a message at InfoLevel with optional structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

// Warn logs a message at WarnLevel with optional structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs a message at ErrorLevel with optional structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

// Debugw logs a message at DebugLevel with loosely-typed key-value pairs.
func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Infow logs a message at InfoLevel with loosely-typed key-value pairs.
//
// Example:
//
//	logger.Infow("html rewritten", "path", "index.html", "pictures", 3)
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warnw logs a message at WarnLevel with loosely-typed key-value pairs.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Errorw logs a message at ErrorLevel with loosely-typed key-value pairs.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Infof logs a formatted message at InfoLevel.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

// With creates a child logger with fields included in every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return l.derive(l.zap.With(fields...))
}

// Named adds a sub-logger name, e.g. "variants" or "htmlrewrite".
func (l *Logger) Named(name string) *Logger {
	return l.derive(l.zap.Named(name))
}

func (l *Logger) derive(z *zap.Logger) *Logger {
	return &Logger{
		zap:           z,
		sugar:         z.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Sugar returns the underlying sugared logger.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Zap returns the underlying zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment returns true if the logger is configured for development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

// LogFilePath returns the path to the log file, empty when none is written.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}
