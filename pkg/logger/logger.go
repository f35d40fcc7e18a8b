package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Loggers groups the application loggers by concern.
type Loggers struct {
	Error    *zap.Logger // failures that were handled locally
	Audit    *zap.Logger // successful state changes
	Request  *zap.Logger // incoming HTTP requests
	Security *zap.Logger // authentication failures and permission denials
	System   *zap.Logger // process lifecycle
}

func newFileLogger(filePath string, level zapcore.Level) (*zap.Logger, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ws := zapcore.AddSync(file)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		ws,
		level,
	)
	return zap.New(core), nil
}

func newConsoleLogger(name string, level zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		level,
	)
	return zap.New(core).Named(name)
}

// New builds the loggers. With an empty dir every logger writes to stdout,
// otherwise each one appends JSON lines to its own file inside dir.
func New(dir string) (*Loggers, error) {
	levels := []struct {
		name  string
		level zapcore.Level
	}{
		{"errors", zapcore.ErrorLevel},
		{"audit", zapcore.InfoLevel},
		{"request", zapcore.InfoLevel},
		{"security", zapcore.WarnLevel},
		{"system", zapcore.InfoLevel},
	}

	built := make([]*zap.Logger, len(levels))
	if dir == "" {
		for i, l := range levels {
			built[i] = newConsoleLogger(l.name, l.level)
		}
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		for i, l := range levels {
			lg, err := newFileLogger(filepath.Join(dir, l.name+".log"), l.level)
			if err != nil {
				return nil, fmt.Errorf("cannot create %s logger: %w", l.name, err)
			}
			built[i] = lg
		}
	}

	return &Loggers{
		Error:    built[0],
		Audit:    built[1],
		Request:  built[2],
		Security: built[3],
		System:   built[4],
	}, nil
}

// Nop returns loggers that discard everything.
func Nop() *Loggers {
	return Single(zap.NewNop())
}

// Single routes every concern to the same logger. Tests use it together
// with zaptest/observer.
func Single(l *zap.Logger) *Loggers {
	return &Loggers{
		Error:    l,
		Audit:    l,
		Request:  l,
		Security: l,
		System:   l,
	}
}

// Sync flushes every logger.
func (l *Loggers) Sync() {
	_ = l.Error.Sync()
	_ = l.Audit.Sync()
	_ = l.Request.Sync()
	_ = l.Security.Sync()
	_ = l.System.Sync()
}
