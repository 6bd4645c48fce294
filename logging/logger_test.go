package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer

	logger, err := NewLogger(Options{Console: &console})
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}
	if logger.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	if logger.LogFilePath() != "" {
		t.Errorf("LogFilePath() = %q, want empty", logger.LogFilePath())
	}

	logger.Debug("hidden at info level")
	logger.Info("variants generated", zap.Int("count", 3))
	_ = logger.Sync()

	out := console.String()
	if strings.Contains(out, "hidden at info level") {
		t.Error("debug entry written at info level")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("console output is not JSON in production mode: %v\n%s", err, out)
	}
	if entry[FieldMessage] != "variants generated" {
		t.Errorf("msg = %v", entry[FieldMessage])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry["count"])
	}
}

func TestNewLogger_DevModeWithFile(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, err := NewLogger(Options{DevMode: true, FilePath: logPath, Console: &console})
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}
	if !logger.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
	if logger.LogFilePath() != logPath {
		t.Errorf("LogFilePath() = %q, want %q", logger.LogFilePath(), logPath)
	}

	logger.Debug("debug visible in dev mode", zap.String("key", "value"))
	_ = logger.Sync()

	if !strings.Contains(console.String(), "debug visible in dev mode") {
		t.Errorf("console missing entry: %q", console.String())
	}
	if json.Valid(bytes.TrimSpace(console.Bytes())) {
		t.Error("dev console output should be human-readable, got JSON")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !json.Valid(bytes.TrimSpace(data)) {
		t.Errorf("log file should hold JSON, got %q", data)
	}
}

func TestNewLogger_ExplicitLevel(t *testing.T) {
	var console bytes.Buffer
	logger, err := NewLogger(Options{Level: "warn", DevMode: true, Console: &console})
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	if strings.Contains(console.String(), "dropped") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(console.String(), "kept") {
		t.Error("warn entry missing")
	}
}

func TestLogger_NamedAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromCore(core)

	child := logger.Named("variants").With(zap.String("source", "./imgs/a.png"))
	child.Debugw("variant skipped", "size", 240)
	child.Infof("generated %d variants", 2)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.LoggerName != "variants" {
			t.Errorf("LoggerName = %q, want variants", e.LoggerName)
		}
		if e.ContextMap()["source"] != "./imgs/a.png" {
			t.Errorf("source field = %v", e.ContextMap()["source"])
		}
	}
	if entries[0].ContextMap()["size"] != int64(240) {
		t.Errorf("size field = %v", entries[0].ContextMap()["size"])
	}
	if entries[1].Message != "generated 2 variants" {
		t.Errorf("Message = %q", entries[1].Message)
	}
}

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromCore(core)

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")
	logger.Warnw("ww", "k", "v")
	logger.Errorw("ew", "k", "v")
	logger.Infow("iw", "k", "v")

	if got := logs.FilterLevelExact(zapcore.WarnLevel).Len(); got != 2 {
		t.Errorf("warn entries = %d, want 2", got)
	}
	if got := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); got != 2 {
		t.Errorf("error entries = %d, want 2", got)
	}
	if got := logs.Len(); got != 7 {
		t.Errorf("total entries = %d, want 7", got)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	logger.Named("x").Errorw("discarded", "k", 1)
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() on nop logger = %v", err)
	}
	if logger.Zap() == nil || logger.Sugar() == nil {
		t.Error("accessors should be non-nil")
	}
}

func TestLogger_Sync_NilLogger(t *testing.T) {
	var logger *Logger
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() on nil logger = %v, want nil", err)
	}
}

func TestNewMultiCore_NoFileWriter(t *testing.T) {
	var console bytes.Buffer
	core := NewMultiCore(zapcore.InfoLevel, zapcore.AddSync(&console), nil, false)

	zap.New(core).Info("only console")
	if !strings.Contains(console.String(), "only console") {
		t.Errorf("console = %q", console.String())
	}
}

func TestNewMultiCore_BothOutputs(t *testing.T) {
	var console, file bytes.Buffer
	core := NewMultiCore(zapcore.InfoLevel, zapcore.AddSync(&console), zapcore.AddSync(&file), true)

	logger := zap.New(core)
	logger.Debug("filtered")
	logger.Info("both", zap.String("key", "value"))

	if !strings.Contains(console.String(), "both") {
		t.Error("console missing entry")
	}
	if strings.Contains(file.String(), "filtered") {
		t.Error("file contains entry below level")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry); err != nil {
		t.Fatalf("file output not JSON: %v", err)
	}
	for _, key := range []string{FieldTimestamp, FieldLevel, FieldMessage} {
		if _, ok := entry[key]; !ok {
			t.Errorf("file entry missing %q", key)
		}
	}
}

func TestParseLogLevelString(t *testing.T) {
	tests := []struct {
		levelStr     string
		defaultLevel zapcore.Level
		expected     zapcore.Level
	}{
		{"debug", zapcore.InfoLevel, zapcore.DebugLevel},
		{"INFO", zapcore.DebugLevel, zapcore.InfoLevel},
		{"Warn", zapcore.InfoLevel, zapcore.WarnLevel},
		{"warning", zapcore.InfoLevel, zapcore.WarnLevel},
		{" error ", zapcore.InfoLevel, zapcore.ErrorLevel},
		{"", zapcore.InfoLevel, zapcore.InfoLevel},
		{"verbose", zapcore.WarnLevel, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			if got := ParseLogLevelString(tt.levelStr, tt.defaultLevel); got != tt.expected {
				t.Errorf("ParseLogLevelString(%q) = %v, want %v", tt.levelStr, got, tt.expected)
			}
		})
	}
}

func TestApplyFileWriterDefaults(t *testing.T) {
	got := applyFileWriterDefaults(FileWriterConfig{MaxBackups: 7})
	if got.MaxSizeMB != DefaultMaxSizeMB || got.MaxAgeDays != DefaultMaxAgeDays {
		t.Errorf("zero fields not defaulted: %+v", got)
	}
	if got.MaxBackups != 7 {
		t.Errorf("MaxBackups = %d, want 7", got.MaxBackups)
	}
	if !DefaultFileWriterConfig().Compress {
		t.Error("default config should compress rotated files")
	}
}

func TestNewFileWriterWithConfig_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
	w, err := NewFileWriterWithConfig(path, FileWriterConfig{})
	if err != nil {
		t.Fatalf("NewFileWriterWithConfig() error: %v", err)
	}
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestShortTimeEncoder(t *testing.T) {
	cfg := NewConsoleEncoderConfig()
	if cfg.EncodeTime == nil || cfg.EncodeLevel == nil {
		t.Fatal("console encoder config missing encoders")
	}
	if NewEncoderConfig().TimeKey != FieldTimestamp {
		t.Errorf("TimeKey = %q", NewEncoderConfig().TimeKey)
	}
}
