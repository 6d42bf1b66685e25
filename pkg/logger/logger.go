package logger

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/internal/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

// InitLogger initializes Zap logger with configuration
func InitLogger(cfg *config.Config) error {
	logsPath := cfg.App.LogsPath
	if logsPath == "" {
		logsPath = "./logs"
	}
	if err := os.MkdirAll(logsPath, 0755); err != nil {
		return err
	}

	zapLevel := parseLevel(cfg.App.LogLevel, cfg.App.Environment)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
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

	infoFile, err := openLogFile(logsPath, "info.log")
	if err != nil {
		return err
	}
	errorFile, err := openLogFile(logsPath, "error.log")
	if err != nil {
		infoFile.Close()
		return err
	}
	debugFile, err := openLogFile(logsPath, "debug.log")
	if err != nil {
		infoFile.Close()
		errorFile.Close()
		return err
	}

	encoder := zapcore.NewJSONEncoder(encoderConfig)

	infoCore := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(infoFile), zapcore.AddSync(os.Stdout)),
		levelRange(zapLevel, zapcore.WarnLevel),
	)
	errorCore := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(errorFile), zapcore.AddSync(os.Stderr)),
		zapcore.ErrorLevel,
	)
	debugCore := zapcore.NewCore(
		encoder,
		zapcore.AddSync(debugFile),
		levelRange(zapLevel, zapcore.DebugLevel),
	)

	core := zapcore.NewTee(infoCore, errorCore, debugCore)

	// Production drops repeated entries past 100/s per message.
	if cfg.IsProduction() {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}

	Set(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
	return nil
}

func openLogFile(dir, name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func parseLevel(level, environment string) zapcore.Level {
	if level != "" {
		if l, err := zapcore.ParseLevel(level); err == nil {
			return l
		}
	}
	if environment == constants.EnvProduction {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

func levelRange(min, max zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool {
		return l >= min && l <= max
	}
}

// Set replaces the process logger. Tests use it to capture output.
func Set(l *zap.Logger) {
	current.Store(l)
}

// GetLogger returns the structured logger, or a no-op logger before InitLogger.
func GetLogger() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Sync syncs all logs (call this before application exits)
func Sync() {
	if l := current.Load(); l != nil {
		_ = l.Sync()
	}
}

// LogRequest logs HTTP request information
func LogRequest(method, path string, statusCode int, duration time.Duration, clientIP, userAgent, requestID string) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", duration),
		zap.String("client_ip", clientIP),
		zap.String("user_agent", userAgent),
	}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	switch {
	case statusCode >= 500:
		GetLogger().Error("HTTP Request", fields...)
	case statusCode >= 400:
		GetLogger().Warn("HTTP Request", fields...)
	default:
		GetLogger().Info("HTTP Request", fields...)
	}
}

// LogPanic logs panic and recovers
func LogPanic(recovered interface{}) {
	GetLogger().Error("Panic recovered",
		zap.Any("panic", recovered),
		zap.Stack("stack"),
	)
}

// LogAuth logs authentication events
func LogAuth(email, action string, success bool, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("email", email),
		zap.String("action", action),
		zap.Bool("success", success),
	}, fields...)

	if success {
		GetLogger().Info("Authentication success", allFields...)
	} else {
		GetLogger().Warn("Authentication failure", allFields...)
	}
}
