package gatewaysdk

import "go.uber.org/zap"

// ZapLogger adapts a *zap.Logger to the Logger interface. It is the
// documented production logging backend; NewClient still defaults to
// StdLogger so the zero-value client has no required dependency wiring.
type ZapLogger struct {
	base *zap.Logger
}

// NewZapLoggerFrom builds a ZapLogger from an already-configured
// *zap.Logger.
func NewZapLoggerFrom(base *zap.Logger) *ZapLogger {
	return &ZapLogger{base: base}
}

func toZapFields(fields LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// Debug logs a debug message.
func (z *ZapLogger) Debug(msg string, fields LogFields) {
	z.base.Debug(msg, toZapFields(fields)...)
}

// Info logs an info message.
func (z *ZapLogger) Info(msg string, fields LogFields) {
	z.base.Info(msg, toZapFields(fields)...)
}

// Warn logs a warning message.
func (z *ZapLogger) Warn(msg string, fields LogFields) {
	z.base.Warn(msg, toZapFields(fields)...)
}

// Error logs an error message.
func (z *ZapLogger) Error(msg string, fields LogFields) {
	z.base.Error(msg, toZapFields(fields)...)
}

// WithFields returns a new ZapLogger with the given fields bound to every
// subsequent call.
func (z *ZapLogger) WithFields(fields LogFields) Logger {
	return &ZapLogger{base: z.base.With(toZapFields(fields)...)}
}

// Level is not tracked independently; zap's own level enabler governs which
// calls are emitted. Level reports LogLevelDebug as a permissive default.
func (z *ZapLogger) Level() LogLevel {
	return LogLevelDebug
}

// SetLevel is a no-op: zap's level is configured on the underlying core,
// not mutated per call through this seam.
func (z *ZapLogger) SetLevel(_ LogLevel) {}
