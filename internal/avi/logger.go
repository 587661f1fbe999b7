package avi

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger    *slog.Logger
	logOutput io.Writer = os.Stdout
	loggerMu  sync.RWMutex
	debugMode bool
)

func init() {
	// 默认使用 Info 级别的文本处理器
	logger = newLogger(logOutput, slog.LevelInfo)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetDebugMode 设置调试模式
func SetDebugMode(enabled bool) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	debugMode = enabled

	level := slog.LevelInfo
	if enabled {
		level = slog.LevelDebug
	}
	logger = newLogger(logOutput, level)
}

// SetLogOutput 设置日志输出位置，CLI 把日志写到 stderr
func SetLogOutput(w io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logOutput = w

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	logger = newLogger(logOutput, level)
}

// IsDebugMode 是否调试模式
func IsDebugMode() bool {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return debugMode
}

// LogDebug 调试日志
func LogDebug(msg string, args ...any) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	l.Debug(msg, args...)
}

// LogInfo 信息日志
func LogInfo(msg string, args ...any) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	l.Info(msg, args...)
}

// LogWarn 警告日志
func LogWarn(msg string, args ...any) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	l.Warn(msg, args...)
}

// LogError 错误日志
func LogError(msg string, args ...any) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	l.Error(msg, args...)
}
