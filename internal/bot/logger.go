package bot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/you/solana-arb/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger: JSON to stdout, plus rotating
// combined.log and error.log files under cfg.Dir when it is set.
func NewLogger(cfg config.LoggingCfg) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.LevelKey = "level"
	encCfg.MessageKey = "msg"
	encCfg.CallerKey = "caller"
	encCfg.StacktraceKey = "stacktrace"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level),
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		combined := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "combined.log"),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		errorsOnly := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "error.log"),
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		cores = append(cores,
			zapcore.NewCore(enc, zapcore.AddSync(combined), level),
			zapcore.NewCore(enc, zapcore.AddSync(errorsOnly), zapcore.ErrorLevel),
		)
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
