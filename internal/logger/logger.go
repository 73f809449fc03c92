// internal/logger/logger.go
//
// Structured logger (Zap + Lumberjack).
//
// Context
// -------
// Fantasia builds its logger twice.  Bootstrap() gives a console logger
// that covers argument parsing and config loading; once `[log]` is known,
// New() replaces it.  With a log directory configured, JSON events go to one
// file per day under `<dir>/YYYY-MM-DD.log`, rotated, compressed, and
// pruned by Lumberjack.  When stdout is a TTY the same events are teed to
// the console.
//
// The logger is handed to every component explicitly.  Nothing here touches
// zap's process-wide globals.
//
// Usage
// -----
//
//	log, err := logger.New(cfg.Log.Level, cfg.Log.Dir, logger.IsTTY())
//	if err != nil { … }
//	log.Info("server listening", zap.Stringer("addr", addr))
//
// Notes
// -----
//   - ISO-8601 timestamps, lowercase levels, short caller.
//   - Errors from zap itself go to the same sink via ErrorOutput.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Rotation limits for the file sink.
const (
	maxSizeMB  = 50
	maxBackups = 7
	maxAgeDays = 14
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// Bootstrap returns an info-level console logger on stderr.
func Bootstrap() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		zap.InfoLevel,
	)
	return zap.New(core, zap.AddCaller())
}

// New builds the configured logger.  level is a zap level name; an empty
// dir keeps output on the console.
func New(level, dir string, tee bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	encCfg := encoderConfig()
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		lvl,
	)

	if dir == "" {
		return zap.New(console, zap.AddCaller()), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir %s: %w", dir, err)
	}

	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(dir, time.Now().Format("2006-01-02")+".log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), lvl),
	}
	if tee {
		cores = append(cores, console)
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	)
	z.Debug("file logger online", zap.String("dir", dir), zap.Bool("tee", tee))
	return z, nil
}

// IsTTY reports whether stdout is an interactive terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
