package cli

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger logs to w. Verbose runs get the human-readable development
// encoding at debug level; otherwise JSON at warn level. Statement tracing
// needs debug level, so trace lowers the level too.
func newLogger(w io.Writer, verbose, trace bool) *zap.Logger {
	var (
		cfg   zap.Config
		level = zapcore.WarnLevel
	)

	if verbose {
		cfg = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	} else {
		cfg = zap.NewProductionConfig()
	}

	if trace {
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	if cfg.Encoding == "console" {
		enc = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	} else {
		enc = zapcore.NewJSONEncoder(cfg.EncoderConfig)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)

	return zap.New(core, zap.AddCaller())
}
