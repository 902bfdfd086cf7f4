// Package log wraps zap the way the teacher's internal/log does: a single
// global *zap.Logger swappable at startup, package-level helpers so call
// sites never import zap.Logger directly, and lumberjack-backed rotation
// when a file sink is configured.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config mirrors the teacher's log.Config: format/level plus a rotating
// file sink description.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   FileConfig
}

// FileConfig describes the lumberjack-backed rotation policy.
type FileConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxDays    int
}

var globalLogger = zap.NewNop()

// Init builds the global logger from cfg. Safe to call again to reconfigure.
func Init(cfg Config) error {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.File.Filename != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxDays,
		})
	} else {
		sink = zapcore.AddSync(zapcore.Lock(zapcore.AddSync(zapStderr{})))
	}

	core := zapcore.NewCore(encoder, sink, level)
	globalLogger = zap.New(core, zap.AddCaller())
	return nil
}

// zapStderr routes to os.Stderr without importing os at package scope twice.
type zapStderr struct{}

func (zapStderr) Write(p []byte) (int, error) { return stderrWrite(p) }

func Debug(msg string, fields ...zap.Field) { globalLogger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { globalLogger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { globalLogger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { globalLogger.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { globalLogger.Fatal(msg, fields...) }

// Sync flushes any buffered log entries, matching the teacher's
// defer log.Sync() convention at process shutdown.
func Sync() error { return globalLogger.Sync() }

// With returns a child logger carrying the given fields, for call sites
// that want to avoid repeating fields across a sequence of log lines.
func With(fields ...zap.Field) *zap.Logger { return globalLogger.With(fields...) }
