package factory

import (
	"errors"

	"github.com/goliatone/go-factory/pkg/rules"
	"go.uber.org/zap"
)

// ZapLogger writes operation and admission rule events to a zap logger.
type ZapLogger struct {
	logger *zap.Logger
}

var (
	_ OperationLogger = (*ZapLogger)(nil)
	_ rules.Logger    = (*ZapLogger)(nil)
)

// NewZapOperationLogger wraps logger. A nil logger discards everything.
func NewZapOperationLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger.Named("factory")}
}

func (l *ZapLogger) LogOperation(event OperationLogEvent) {
	fields := []zap.Field{
		zap.String("operation", event.Operation),
		zap.Stringer("caller", event.Caller),
		zap.Stringer("address", event.Address.Key),
		zap.Uint8("nonce", event.Address.Nonce),
		zap.Duration("duration", event.Duration),
	}
	if event.Version > 0 {
		fields = append(fields, zap.Uint64("version", event.Version))
	}
	if event.HookErr != nil {
		l.logger.Warn("activity hook failed", append(fields, zap.NamedError("hook_error", event.HookErr))...)
	}
	if event.Err == nil {
		l.logger.Info("operation committed", fields...)
		return
	}
	fields = append(fields, zap.Error(event.Err))
	if isRejection(event.Err) {
		l.logger.Info("operation rejected", fields...)
		return
	}
	l.logger.Error("operation failed", fields...)
}

func (l *ZapLogger) LogEvaluation(event rules.LogEvent) {
	fields := []zap.Field{
		zap.String("engine", event.Engine),
		zap.String("rule", event.Rule),
		zap.String("subject", event.Subject),
		zap.Bool("allowed", event.Allowed),
		zap.Duration("duration", event.Duration),
	}
	if event.Err != nil {
		l.logger.Warn("admission rule failed", append(fields, zap.String("expr", event.Expr), zap.Error(event.Err))...)
		return
	}
	l.logger.Debug("admission rule evaluated", fields...)
}

// isRejection separates caller mistakes from infrastructure failures.
func isRejection(err error) bool {
	for _, target := range []error{
		ErrAlreadyInitialized,
		ErrNotInitialized,
		ErrInvalidParameter,
		ErrUnauthorized,
		ErrFactoryPaused,
		ErrAlreadyPaused,
		ErrNotPaused,
		ErrAdmissionDenied,
		ErrInvalidSignature,
		ErrAddressMismatch,
		ErrUnknownOperation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
