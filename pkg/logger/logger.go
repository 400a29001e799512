package logger

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "clan-service"

// Output encodings accepted by Init and New
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init replaces the process logger. The level stays adjustable at runtime
// through SetLevel and LevelHandler.
func Init(lvl, format string) error {
	parsed, err := parseLevel(lvl)
	if err != nil {
		return err
	}

	built, err := build(level, format)
	if err != nil {
		return err
	}
	level.SetLevel(parsed)

	mu.Lock()
	global = built
	mu.Unlock()
	return nil
}

// New builds an independent logger with its own fixed level
func New(lvl, format string) (*zap.Logger, error) {
	parsed, err := parseLevel(lvl)
	if err != nil {
		return nil, err
	}
	return build(zap.NewAtomicLevelAt(parsed), format)
}

func parseLevel(lvl string) (zapcore.Level, error) {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.ToLower(lvl))); err != nil {
		return parsed, fmt.Errorf("invalid log level %s: %w", lvl, err)
	}
	return parsed, nil
}

func build(atom zap.AtomicLevel, format string) (*zap.Logger, error) {
	encoding := strings.ToLower(format)
	if encoding == "" {
		encoding = FormatJSON
	}
	if encoding != FormatJSON && encoding != FormatConsole {
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == FormatConsole {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := zap.Config{
		Level:            atom,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]interface{}{"service": serviceName},
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return built, nil
}

// SetLevel changes the level of the process logger
func SetLevel(lvl string) error {
	parsed, err := parseLevel(lvl)
	if err != nil {
		return err
	}
	level.SetLevel(parsed)
	return nil
}

// Level reports the current level of the process logger
func Level() string {
	return level.Level().String()
}

// LevelHandler serves the process level: GET reports it, PUT {"level":"debug"} changes it
func LevelHandler() http.Handler {
	return level
}

// Get returns the process logger, building a JSON one at info level on first use
func Get() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	if err := Init(zapcore.InfoLevel.String(), FormatJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return Get()
}

// Named returns a child logger tagged with a component name
func Named(component string) *zap.Logger {
	return Get().Named(component)
}

func Debug(msg string, fields ...zap.Field) { Get().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Get().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Get().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Get().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { Get().Fatal(msg, fields...) }

// With returns the process logger with fields attached
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// Sync flushes buffered entries; stdout sync errors are ignored
func Sync() error {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l == nil {
		return nil
	}
	if err := l.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") && !strings.Contains(err.Error(), "inappropriate ioctl") {
		return err
	}
	return nil
}
