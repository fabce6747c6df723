// Package obs carries the library's ambient observability stack: a zap
// logger configured the way the teacher's logger/log.go configures it, and
// a small set of Prometheus metrics for provider operations.
package obs

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console-encoded zap.Logger matching the teacher's
// format: ISO8601 timestamps, capital colored levels, short caller.
// Unlike the teacher's package-level global, callers own the returned
// logger so multiple feeds/registries in one process never race over a
// shared init().
func NewLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalColorLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		level,
	)
	return zap.New(core, zap.AddCaller())
}

var (
	defaultOnce sync.Once
	defaultLog  *zap.Logger
)

// Default returns a process-wide logger at info level, lazily built the
// first time it is needed by a Registry or a Redis provider that was not
// handed an explicit logger.
func Default() *zap.Logger {
	defaultOnce.Do(func() {
		defaultLog = NewLogger(false)
	})
	return defaultLog
}
