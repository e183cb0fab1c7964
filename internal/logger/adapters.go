package logger

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// Temporal adapts zap to the Temporal SDK logger
type Temporal struct {
	zl *zap.Logger
}

var (
	_ log.Logger     = (*Temporal)(nil)
	_ log.WithLogger = (*Temporal)(nil)
)

func NewTemporal(zl *zap.Logger) *Temporal {
	// skip the adapter frame so callers show up in the caller field
	return &Temporal{zl: zl.WithOptions(zap.AddCallerSkip(1))}
}

func (t *Temporal) Debug(msg string, keyvals ...interface{}) { t.zl.Debug(msg, fields(keyvals)...) }
func (t *Temporal) Info(msg string, keyvals ...interface{})  { t.zl.Info(msg, fields(keyvals)...) }
func (t *Temporal) Warn(msg string, keyvals ...interface{})  { t.zl.Warn(msg, fields(keyvals)...) }
func (t *Temporal) Error(msg string, keyvals ...interface{}) { t.zl.Error(msg, fields(keyvals)...) }

func (t *Temporal) With(keyvals ...interface{}) log.Logger {
	return &Temporal{zl: t.zl.With(fields(keyvals)...)}
}

// Watermill adapts zap to watermill.LoggerAdapter. Trace goes to debug.
type Watermill struct {
	zl *zap.Logger
}

var _ watermill.LoggerAdapter = (*Watermill)(nil)

func NewWatermill(zl *zap.Logger) *Watermill {
	return &Watermill{zl: zl.WithOptions(zap.AddCallerSkip(1))}
}

func watermillFields(lf watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(lf))
	for k, v := range lf {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (w *Watermill) Error(msg string, err error, lf watermill.LogFields) {
	w.zl.Error(msg, append(watermillFields(lf), zap.Error(err))...)
}

func (w *Watermill) Info(msg string, lf watermill.LogFields)  { w.zl.Info(msg, watermillFields(lf)...) }
func (w *Watermill) Debug(msg string, lf watermill.LogFields) { w.zl.Debug(msg, watermillFields(lf)...) }
func (w *Watermill) Trace(msg string, lf watermill.LogFields) { w.zl.Debug(msg, watermillFields(lf)...) }

func (w *Watermill) With(lf watermill.LogFields) watermill.LoggerAdapter {
	return &Watermill{zl: w.zl.With(watermillFields(lf)...)}
}
