// Package zlog sets up the zap logger shared by every command.
package zlog

import (
	"io"
	"os"
	"time"

	"gitlab.com/efronlicht/enve"
	"gitlab.com/efronlicht/nbblog/observability/meta"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console logger writing to w at the given level.
// Writes are buffered and flushed every second or on Sync: always defer logger.Sync().
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		&zapcore.BufferedWriteSyncer{WS: zapcore.AddSync(w), FlushInterval: time.Second},
		level,
	))
}

// Setup builds the logger for the named app from the environment ($LOG_LEVEL, default info), makes it the global logger,
// redirects the stdlib log package into it, and logs the app's metadata once.
func Setup(app string) (*zap.Logger, meta.App) {
	m := meta.New(app)
	logger := New(os.Stderr, enve.FromTextOr[zapcore.Level]("LOG_LEVEL", zapcore.InfoLevel)).
		Named(app).
		With(zap.String("instance_id", m.InstanceID))
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)
	logger.Debug("metadata dump", zap.Reflect("meta", m))
	return logger, m
}
