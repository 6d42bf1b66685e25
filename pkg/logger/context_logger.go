package logger

import (
	"context"
	"maps"
	"slices"
	"time"

	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextLogBuilder collects fields for one entry and enriches it with request
// metadata carried by the context.
type ContextLogBuilder struct {
	logger    *zap.Logger
	ctx       context.Context
	level     zapcore.Level
	fields    []zap.Field
	message   string
	shouldLog bool
}

func newBuilder(ctx context.Context, level zapcore.Level, message string) *ContextLogBuilder {
	l := GetLogger()
	b := &ContextLogBuilder{
		logger:    l,
		ctx:       ctx,
		level:     level,
		message:   message,
		shouldLog: l.Core().Enabled(level),
	}
	if b.shouldLog {
		b.fields = make([]zap.Field, 0, 12)
		b.extractContextFields()
	}
	return b
}

func (clb *ContextLogBuilder) extractContextFields() {
	if clb.ctx == nil {
		return
	}
	values := ctxutil.ContextToMap(clb.ctx)
	for _, key := range slices.Sorted(maps.Keys(values)) {
		clb.fields = append(clb.fields, zap.Any(key, values[key]))
	}
}

func (clb *ContextLogBuilder) String(key, value string) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.String(key, value))
	}
	return clb
}

func (clb *ContextLogBuilder) Strings(key string, value []string) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Strings(key, value))
	}
	return clb
}

func (clb *ContextLogBuilder) Int(key string, value int) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Int(key, value))
	}
	return clb
}

func (clb *ContextLogBuilder) Int64(key string, value int64) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Int64(key, value))
	}
	return clb
}

func (clb *ContextLogBuilder) Uint(key string, value uint) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Uint(key, value))
	}
	return clb
}

func (clb *ContextLogBuilder) Bool(key string, value bool) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Bool(key, value))
	}
	return clb
}

func (clb *ContextLogBuilder) Float64(key string, value float64) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Float64(key, value))
	}
	return clb
}

func (clb *ContextLogBuilder) Duration(value time.Duration) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Duration("duration", value))
	}
	return clb
}

func (clb *ContextLogBuilder) Err(err error) *ContextLogBuilder {
	if clb.shouldLog && err != nil {
		clb.fields = append(clb.fields, zap.Error(err))
	}
	return clb
}

func (clb *ContextLogBuilder) Any(key string, value interface{}) *ContextLogBuilder {
	if clb.shouldLog {
		clb.fields = append(clb.fields, zap.Any(key, value))
	}
	return clb
}

// Log writes the entry. Entries for cancelled contexts are still written so
// that timeouts stay visible.
func (clb *ContextLogBuilder) Log() {
	if !clb.shouldLog {
		return
	}
	if ce := clb.logger.Check(clb.level, clb.message); ce != nil {
		ce.Write(clb.fields...)
	}
}

func InfoWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.InfoLevel, message)
}

func WarnWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.WarnLevel, message)
}

func ErrorWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.ErrorLevel, message)
}

func DebugWithContext(ctx context.Context, message string) *ContextLogBuilder {
	return newBuilder(ctx, zapcore.DebugLevel, message)
}
